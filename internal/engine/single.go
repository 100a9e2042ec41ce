package engine

import (
	"context"

	"skill-engine/internal/errs"
	"skill-engine/internal/postproc"
	"skill-engine/internal/request"
	"skill-engine/internal/response"
	"skill-engine/internal/skill"
	"skill-engine/internal/template"
)

// runSingle executes one declarative request end to end: credential,
// build, fetch, interpret, post-process, output templating.
func (e *Engine) runSingle(ctx context.Context, def *skill.Definition, cmd *skill.Command, spec *skill.RequestSpec, params map[string]interface{}, opts Options) Result {
	start := e.now()

	cred := ""
	if e.credentials != nil {
		var err error
		if cred, err = e.credentials.Resolve(ctx, def); err != nil {
			return e.failure(start, err)
		}
	} else if def.RequiresCredential() {
		return e.failure(start, errs.Configf("skill '%s' requires credential '%s' but no resolver is configured", def.Name, def.VaultService))
	}

	req, err := request.Build(ctx, def, spec, params, cred, e.cfg.RelayEndpoint)
	if err != nil {
		return e.failure(start, err)
	}

	resp, body, err := e.do(req)
	if err != nil {
		return e.failure(start, err)
	}

	interp, err := response.Interpret(resp, body, spec.ResponseFormat, cmd.Response)
	if err != nil {
		return e.failure(start, err)
	}

	st := &postproc.State{
		RawBody: body,
		Payload: interp.Payload,
		Fields:  interp.Fields,
		Output:  interp.Output,
	}
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

// mergeVars is the output-template context: command parameters overlaid
// with the extracted fields (fields win).
func mergeVars(params, fields map[string]interface{}) map[string]interface{} {
	vars := make(map[string]interface{}, len(params)+len(fields))
	for k, v := range params {
		vars[k] = v
	}
	for k, v := range fields {
		vars[k] = v
	}
	return vars
}
