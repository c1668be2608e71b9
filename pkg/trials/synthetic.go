package trials

import (
	"time"

	"github.com/AUW160150/Sigmatch/pkg/common/models"
)

const syntheticTrialText = `Key inclusion criteria: Eligible subjects shall meet all of the following:
(1) Histopathologically diagnosed with colorectal adenocarcinoma.
(2) The primary location of the tumor is the colon or rectum.
(3) Clinical stage II or III colorectal cancer for which R0 resection has been performed or scheduled.
(4) Age ≥18 years at informed consent.
(5) ECOG Performance Status 0 or 1.
(6) Adequate organ function as defined by: ANC ≥1500/mm³, Platelets ≥100,000/mm³, Hemoglobin ≥9.0 g/dL, Creatinine ≤1.5x ULN, Bilirubin ≤1.5x ULN, AST/ALT ≤3x ULN.
(7) Written informed consent provided.

Key exclusion criteria:
(1) Prior systemic chemotherapy or radiotherapy for colorectal cancer (except neoadjuvant therapy for rectal cancer).
(2) Active double cancer (synchronous or metachronous malignancy within 5 years).
(3) Known BRAF V600E mutation (for certain study arms).
(4) Pregnant or breastfeeding women.
(5) Serious uncontrolled medical conditions or infections.
(6) Positive HBsAg or positive HCV antibody with detectable RNA.
(7) HIV antibody positive.
(8) Known hypersensitivity to study drugs.
(9) Psychiatric illness that would limit compliance with study requirements.`

// Synthetic returns the colorectal trial used to seed an empty workspace.
func Synthetic(now time.Time) models.Trial {
	return models.Trial{
		ID:       "synthetic_trial_" + now.Format(timestampLayout),
		Title:    "Synthetic Colorectal Cancer Clinical Trial",
		FullText: syntheticTrialText,
	}
}
