package engine

import (
	"context"
	"encoding/json"
	"strings"

	"skill-engine/internal/logging"
	"skill-engine/internal/skill"
	"skill-engine/internal/template"
)

// runMulti repeats the single-request executor over the enumerated value
// list, substituting each value into the declared parameter. Iterations
// run sequentially: this bounds outbound concurrency to one in-flight
// request per invocation and keeps merge orderings deterministic.
func (e *Engine) runMulti(ctx context.Context, def *skill.Definition, cmd *skill.Command, params map[string]interface{}, opts Options) Result {
	start := e.now()
	spec := cmd.MultiRequest

	type iteration struct {
		key    string
		result Result
	}
	iterations := make([]iteration, 0, len(spec.Values))

	merged := Result{}
	anySuccess := false
	lastError := ""
	for i, value := range spec.Values {
		if i > 0 && e.cfg.PaceDelay > 0 {
			e.sleep(e.cfg.PaceDelay)
		}
		iterParams := make(map[string]interface{}, len(params)+1)
		for k, v := range params {
			iterParams[k] = v
		}
		iterParams[spec.Param] = value

		res := e.runSingle(ctx, def, cmd, spec.Request, iterParams, opts)
		if res.Success {
			anySuccess = true
		} else {
			lastError = res.Error
			logging.Logf(logging.Warning, "Multi-request iteration %d (%s=%v) failed: %s", i+1, spec.Param, value, res.Error)
		}
		// Cost and tokens accumulate across all iterations regardless of
		// individual outcome.
		merged.Cost = merged.Cost.Add(res.Cost)
		merged.Tokens += res.Tokens
		if res.ImageURL != "" && merged.ImageURL == "" {
			merged.ImageURL = res.ImageURL
		}
		iterations = append(iterations, iteration{key: template.Stringify(value), result: res})
	}

	strategy := spec.MergeStrategy
	if strategy == "" {
		strategy = skill.MergeConcat
	}
	switch strategy {
	case skill.MergeObject:
		byKey := make(map[string]string)
		for _, it := range iterations {
			if it.result.Success {
				byKey[it.key] = it.result.Output
			}
		}
		merged.Output = encodeJSON(byKey)
	case skill.MergeArray:
		var list []map[string]string
		for _, it := range iterations {
			if it.result.Success {
				list = append(list, map[string]string{"key": it.key, "output": it.result.Output})
			}
		}
		merged.Output = encodeJSON(list)
	default: // concat
		var parts []string
		for _, it := range iterations {
			if it.result.Success && it.result.Output != "" {
				parts = append(parts, it.result.Output)
			}
		}
		merged.Output = strings.Join(parts, "\n\n")
	}

	// Partial success is success.
	merged.Success = anySuccess
	if !anySuccess {
		merged.Error = lastError
	}
	merged.Duration = e.now().Sub(start)
	return merged
}

func encodeJSON(v interface{}) string {
	encoded, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(encoded)
}
