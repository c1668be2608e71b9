package pipeline

import (
	"strings"

	"github.com/AUW160150/Sigmatch/pkg/configstore"
)

const (
	DefaultInterpreter = "python"
	DefaultScript      = "orchestrate_pipeline.py"
)

// RunRequest selects the config file and the steps the orchestrator runs.
type RunRequest struct {
	ConfigPath         string `json:"config_path"`
	RunOCR             bool   `json:"run_ocr"`
	DoLLMSummarization bool   `json:"do_llm_summarization"`
	DoPatientMatching  bool   `json:"do_patient_matching"`
	DoEvaluation       bool   `json:"do_evaluation"`
}

// DefaultRunRequest summarizes and matches against the active config. Request
// bodies are decoded over it so omitted flags keep these values.
func DefaultRunRequest() RunRequest {
	return RunRequest{
		ConfigPath:         configstore.ActiveConfigPath,
		DoLLMSummarization: true,
		DoPatientMatching:  true,
	}
}

// Args renders the orchestrator invocation, interpreter first.
func (r RunRequest) Args(interpreter, script string) []string {
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}
	if script == "" {
		script = DefaultScript
	}
	configPath := r.ConfigPath
	if configPath == "" {
		configPath = configstore.ActiveConfigPath
	}
	return []string{
		interpreter, script,
		"--data_config_json", configPath,
		"--run_ocr", flag(r.RunOCR),
		"--do_llm_summarization", flag(r.DoLLMSummarization),
		"--do_patient_matching", flag(r.DoPatientMatching),
		"--do_evaluation", flag(r.DoEvaluation),
	}
}

func (r RunRequest) Command(interpreter, script string) string {
	return strings.Join(r.Args(interpreter, script), " ")
}

// flag renders booleans the way the orchestrator's argument parser expects.
func flag(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
