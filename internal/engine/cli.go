package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"skill-engine/internal/errs"
	"skill-engine/internal/postproc"
	"skill-engine/internal/response"
	"skill-engine/internal/skill"
	"skill-engine/internal/template"
	"skill-engine/internal/util"
)

// runCLI handles the alternate execution path for commands expressed as a
// URL template or a remote shell-command template. The two modes are
// mutually exclusive; a command declaring neither fails closed.
func (e *Engine) runCLI(ctx context.Context, def *skill.Definition, cmd *skill.Command, params map[string]interface{}, opts Options) Result {
	start := e.now()
	spec := cmd.CLITemplate

	switch {
	case spec.GatewayExec:
		return e.runGatewayExec(ctx, def, cmd, spec, params, opts, start)
	case spec.URLTemplate != "":
		return e.runURLTemplate(ctx, def, cmd, spec, params, opts, start)
	default:
		return e.failure(start, errs.Configf("command '%s' declares neither url_template nor gateway_exec", cmd.Name))
	}
}

func (e *Engine) runGatewayExec(ctx context.Context, def *skill.Definition, cmd *skill.Command, spec *skill.CLITemplateSpec, params map[string]interface{}, opts Options, start time.Time) Result {
	if e.gateway == nil {
		return e.failure(start, errs.Configf("command '%s' requires gateway execution but no gateway is configured", cmd.Name))
	}
	command := template.Interpolate(spec.CommandTemplate, params)
	timeout := time.Duration(spec.TimeoutSeconds) * time.Second
	output, err := e.gateway.Exec(ctx, command, timeout)
	if err != nil {
		return e.failure(start, err)
	}
	res := Result{
		Success:  true,
		Output:   output,
		Duration: e.now().Sub(start),
	}
	e.record(ctx, def, cmd, opts, res)
	return res
}

func (e *Engine) runURLTemplate(ctx context.Context, def *skill.Definition, cmd *skill.Command, spec *skill.CLITemplateSpec, params map[string]interface{}, opts Options, start time.Time) Result {
	urlStr := template.Interpolate(spec.URLTemplate, params)
	method := strings.ToUpper(spec.Method)
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, urlStr, nil)
	if err != nil {
		return e.failure(start, errs.Configf("command '%s' produced an invalid URL '%s': %v", cmd.Name, urlStr, err))
	}
	for key, valueTmpl := range spec.Headers {
		req.Header.Set(key, template.Interpolate(valueTmpl, params))
	}

	resp, body, err := e.do(req)
	if err != nil {
		return e.failure(start, err)
	}

	// With a declared ResponseSpec or output template the command shares
	// the single-request extraction path; otherwise the body passes
	// through as text or pretty-printed JSON.
	if cmd.Response != nil || cmd.OutputTemplate != "" {
		interp, err := response.Interpret(resp, body, spec.ResponseType, cmd.Response)
		if err != nil {
			return e.failure(start, err)
		}
		st := &postproc.State{RawBody: body, Payload: interp.Payload, Fields: interp.Fields, Output: interp.Output}
		if err := e.pipeline.Run(ctx, cmd.PostProcessors, cmd.Response, st); err != nil {
			return e.failure(start, err)
		}
		if cmd.OutputTemplate != "" {
			st.Output = template.Interpolate(cmd.OutputTemplate, mergeVars(params, st.Fields))
		}
		res := Result{
			Success:  true,
			Output:   st.Output,
			Tokens:   st.Tokens,
			Cost:     st.Cost,
			Duration: e.now().Sub(start),
			ImageURL: st.ImageURL,
		}
		e.record(ctx, def, cmd, opts, res)
		return res
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return e.failure(start, &errs.UpstreamError{Status: resp.StatusCode, Msg: util.Truncate(string(body), 500)})
	}
	output := string(body)
	if util.LooksLikeJSON(output) {
		var buf bytes.Buffer
		if json.Indent(&buf, body, "", "  ") == nil {
			output = buf.String()
		}
	}
	res := Result{
		Success:  true,
		Output:   output,
		Duration: e.now().Sub(start),
	}
	e.record(ctx, def, cmd, opts, res)
	return res
}
