package prompts

func optional(s string) *string { return &s }

// Defaults is the built-in prompt set. Every agent in it is required.
func Defaults() Settings {
	return Settings{
		"final_decision_agent": {
			SystemPrompt: optional("You are the final decision-making agent in a clinical trial matching system."),
			MainPrompt:   "Make a final match decision for this patient-trial pair.",
		},
		"eligibility_checker_agent": {
			SystemPrompt: optional("You are a clinical trial eligibility expert."),
			MainPrompt:   "Analyze patient eligibility for this trial.",
		},
		"patient_analyzer_agent": {
			SystemPrompt: optional("You are a clinical expert specializing in patient analysis."),
			MainPrompt:   "Analyze this patient information and extract structured data.",
		},
		"trial_analyzer_agent": {
			SystemPrompt: optional("You are an expert at analyzing clinical trial protocols."),
			MainPrompt:   "Analyze this clinical trial and extract key eligibility information.",
		},
		"patient_record_summarize": {
			MainPrompt: "You are an expert clinical reasoning AI specializing in oncology.",
		},
		"extract_features": {
			MainPrompt: "You are an expert clinical reasoning AI specializing in oncology.",
		},
	}
}

// RequiredAgents lists the agent names that must always be present.
func RequiredAgents() []string {
	return []string{
		"final_decision_agent",
		"eligibility_checker_agent",
		"patient_analyzer_agent",
		"trial_analyzer_agent",
		"patient_record_summarize",
		"extract_features",
	}
}
