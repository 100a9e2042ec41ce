package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/tidwall/gjson"

	"skill-engine/internal/util"
)

// UploadClient hands binary payloads to the upload collaborator, which
// answers {"url": "..."} with a public URL, or null when it declines to
// host the payload.
type UploadClient struct {
	Endpoint string
	HTTP     *http.Client
}

// Upload posts data as a multipart file. An empty returned URL with a nil
// error means the collaborator stored nothing; callers fall back to a
// data URI.
func (u *UploadClient) Upload(ctx context.Context, data []byte, filename, mimeType string) (string, error) {
	if u.Endpoint == "" {
		return "", nil
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create upload part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write upload payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.Endpoint, bytes.NewReader(body.Bytes()))
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload returned status %d: %s", resp.StatusCode, util.Snippet(respBody))
	}
	return gjson.GetBytes(respBody, "url").String(), nil
}
