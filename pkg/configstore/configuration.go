package configstore

import (
	"encoding/json"
	"fmt"

	"github.com/AUW160150/Sigmatch/pkg/paths"
)

// Persisted keys of the caller-supplied fields.
const (
	KeyCohortName              = "cohortName"
	KeyPatientsFilePath        = "patients_file_path"
	KeyTrialFileConfigPath     = "trial_file_config_path"
	KeyPDFInfoPath             = "pdf_info_path"
	KeySignateraDFPath         = "signatera_df_path"
	KeySignateraFilterPatients = "signatera_filter_patients"
	KeyLLMArgumentJSON         = "llm_argument_json"
)

// Configuration is the flat record handed to the external pipeline. Paths is
// always a function of CohortName once the record has been saved; keys the
// store does not know are carried in Extra.
type Configuration struct {
	CohortName              string
	PatientsFilePath        string
	TrialFileConfigPath     string
	PDFInfoPath             string
	SignateraDFPath         string
	SignateraFilterPatients string
	LLMArgumentJSON         string
	Paths                   paths.Set
	Extra                   map[string]string
}

// Update is a partial configuration. Nil values leave the field untouched.
type Update map[string]*string

func Default() Configuration {
	return Configuration{
		CohortName:              paths.DefaultCohortName,
		PatientsFilePath:        "config_files/pipeline_json_files/" + paths.DefaultCohortName + ".json",
		TrialFileConfigPath:     "config_files/trial_files/pcv_trial.json",
		PDFInfoPath:             "config_files/other_config_files/Circulate_pdf_data_pull.csv",
		SignateraDFPath:         "config_files/other_config_files/All_Bladder_Cancer_Signatera.csv",
		SignateraFilterPatients: "config_files/other_config_files/bladder_signatera_positive_with_6m.txt",
		LLMArgumentJSON:         "config_files/",
		Paths:                   paths.Derive(paths.DefaultCohortName),
	}
}

// Fields flattens the record into its persisted form.
func (c Configuration) Fields() map[string]string {
	fields := make(map[string]string, len(c.Extra)+13)
	for key, value := range c.Extra {
		fields[key] = value
	}
	fields[KeyCohortName] = c.CohortName
	fields[KeyPatientsFilePath] = c.PatientsFilePath
	fields[KeyTrialFileConfigPath] = c.TrialFileConfigPath
	fields[KeyPDFInfoPath] = c.PDFInfoPath
	fields[KeySignateraDFPath] = c.SignateraDFPath
	fields[KeySignateraFilterPatients] = c.SignateraFilterPatients
	fields[KeyLLMArgumentJSON] = c.LLMArgumentJSON
	for key, value := range c.Paths.Fields() {
		fields[key] = value
	}
	return fields
}

func FromFields(fields map[string]string) Configuration {
	var c Configuration
	for key, value := range fields {
		switch key {
		case KeyCohortName:
			c.CohortName = value
		case KeyPatientsFilePath:
			c.PatientsFilePath = value
		case KeyTrialFileConfigPath:
			c.TrialFileConfigPath = value
		case KeyPDFInfoPath:
			c.PDFInfoPath = value
		case KeySignateraDFPath:
			c.SignateraDFPath = value
		case KeySignateraFilterPatients:
			c.SignateraFilterPatients = value
		case KeyLLMArgumentJSON:
			c.LLMArgumentJSON = value
		case "pdf_data_dir":
			c.Paths.PDFDataDir = value
		case "ocr_data_dir":
			c.Paths.OCRDataDir = value
		case "llm_summarization_result_dir":
			c.Paths.LLMSummarizationResultDir = value
		case "matching_result_dir":
			c.Paths.MatchingResultDir = value
		case "extracted_features_path":
			c.Paths.ExtractedFeaturesPath = value
		case "evaluation_results_path":
			c.Paths.EvaluationResultsPath = value
		default:
			if c.Extra == nil {
				c.Extra = make(map[string]string)
			}
			c.Extra[key] = value
		}
	}
	return c
}

// Merge applies the non-nil values of u over c and returns the result.
func (c Configuration) Merge(u Update) Configuration {
	fields := c.Fields()
	for key, value := range u {
		if value != nil {
			fields[key] = *value
		}
	}
	return FromFields(fields)
}

func (c Configuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Fields())
}

func (c *Configuration) UnmarshalJSON(data []byte) error {
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("configuration must be a flat object of strings: %w", err)
	}
	*c = FromFields(fields)
	return nil
}
