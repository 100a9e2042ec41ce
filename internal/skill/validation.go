package skill

import (
	"fmt"
	"strings"
)

var (
	knownRisks           = []string{"", RiskNormal, RiskDangerous}
	knownFormats         = []string{"", FormatJSON, FormatText, FormatBinary}
	knownMergeStrategies = []string{"", MergeConcat, MergeObject, MergeArray}
	knownHTTPMethods     = []string{"", "GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	knownPostProcessors  = []string{PostUploadImage, PostEstimateCost}
)

func isKnown(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// Validate checks a definition's construction-time invariants beyond what
// the JSON schema expresses: enum values, the exactly-one-strategy rule,
// CLI mode exclusivity and known post-processor kinds.
func (d *Definition) Validate() error {
	var allErrors []string
	prefix := fmt.Sprintf("Skill[%s]", d.Name)

	if d.Name == "" {
		allErrors = append(allErrors, "- Skill.Name: is required")
	}
	if !isKnown(d.Risk, knownRisks) {
		allErrors = append(allErrors, fmt.Sprintf("- %s.Risk: invalid risk '%s'", prefix, d.Risk))
	}
	if len(d.Commands) == 0 {
		allErrors = append(allErrors, fmt.Sprintf("- %s.Commands: at least one command is required", prefix))
	}
	seen := make(map[string]bool)
	for i, cmd := range d.Commands {
		cmdPrefix := fmt.Sprintf("%s.Commands[%d]", prefix, i)
		if cmd.Name == "" {
			allErrors = append(allErrors, fmt.Sprintf("- %s.Name: is required", cmdPrefix))
		} else if seen[cmd.Name] {
			allErrors = append(allErrors, fmt.Sprintf("- %s.Name: duplicate command '%s'", cmdPrefix, cmd.Name))
		}
		seen[cmd.Name] = true
		allErrors = append(allErrors, validateCommand(cmdPrefix, cmd)...)
	}

	if len(allErrors) > 0 {
		return fmt.Errorf("skill validation failed:\n%s", strings.Join(allErrors, "\n"))
	}
	return nil
}

func validateCommand(prefix string, cmd *Command) []string {
	var errs []string

	strategies := 0
	for _, present := range []bool{cmd.Request != nil, cmd.MultiRequest != nil, cmd.CLITemplate != nil} {
		if present {
			strategies++
		}
	}
	if strategies != 1 {
		errs = append(errs, fmt.Sprintf("- %s: exactly one of 'request', 'multi_request' or 'cli_template' must be set (found %d)", prefix, strategies))
	}

	if cmd.Request != nil {
		errs = append(errs, validateRequestSpec(prefix+".Request", cmd.Request)...)
	}
	if cmd.MultiRequest != nil {
		mr := cmd.MultiRequest
		if mr.Param == "" {
			errs = append(errs, fmt.Sprintf("- %s.MultiRequest.Param: is required", prefix))
		}
		if len(mr.Values) == 0 {
			errs = append(errs, fmt.Sprintf("- %s.MultiRequest.Values: at least one value is required", prefix))
		}
		if !isKnown(mr.MergeStrategy, knownMergeStrategies) {
			errs = append(errs, fmt.Sprintf("- %s.MultiRequest.MergeStrategy: invalid strategy '%s'", prefix, mr.MergeStrategy))
		}
		if mr.Request == nil {
			errs = append(errs, fmt.Sprintf("- %s.MultiRequest.Request: is required", prefix))
		} else {
			errs = append(errs, validateRequestSpec(prefix+".MultiRequest.Request", mr.Request)...)
		}
	}
	if cmd.CLITemplate != nil {
		ct := cmd.CLITemplate
		hasURL := ct.URLTemplate != ""
		hasGateway := ct.GatewayExec
		if hasURL && hasGateway {
			errs = append(errs, fmt.Sprintf("- %s.CLITemplate: 'url_template' and 'gateway_exec' are mutually exclusive", prefix))
		}
		if !hasURL && !hasGateway {
			errs = append(errs, fmt.Sprintf("- %s.CLITemplate: one of 'url_template' or 'gateway_exec' is required", prefix))
		}
		if hasGateway && ct.CommandTemplate == "" {
			errs = append(errs, fmt.Sprintf("- %s.CLITemplate.CommandTemplate: is required for gateway_exec", prefix))
		}
		if ct.Method != "" && !isKnown(ct.Method, knownHTTPMethods) {
			errs = append(errs, fmt.Sprintf("- %s.CLITemplate.Method: invalid HTTP method '%s'", prefix, ct.Method))
		}
		if ct.TimeoutSeconds < 0 {
			errs = append(errs, fmt.Sprintf("- %s.CLITemplate.TimeoutSeconds: cannot be negative", prefix))
		}
	}

	for i, ref := range cmd.PostProcessors {
		if !isKnown(ref.Kind, knownPostProcessors) {
			errs = append(errs, fmt.Sprintf("- %s.PostProcessors[%d]: unknown kind '%s', must be one of %v", prefix, i, ref.Kind, knownPostProcessors))
		}
	}

	return errs
}

func validateRequestSpec(prefix string, spec *RequestSpec) []string {
	var errs []string
	if spec.Method != "" && !isKnown(spec.Method, knownHTTPMethods) {
		errs = append(errs, fmt.Sprintf("- %s.Method: invalid HTTP method '%s'", prefix, spec.Method))
	}
	if !isKnown(spec.ResponseFormat, knownFormats) {
		errs = append(errs, fmt.Sprintf("- %s.ResponseFormat: invalid format '%s'", prefix, spec.ResponseFormat))
	}
	return errs
}
