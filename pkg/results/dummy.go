package results

import (
	"math/rand"
	"strings"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/common/models"
)

var (
	matchReasons = []string{
		"Stage III colorectal adenocarcinoma confirmed",
		"R0 resection achieved",
		"ECOG PS 0-1",
		"Age appropriate",
		"No exclusion criteria met",
		"Adequate organ function",
		"MSI-H status favorable",
	}
	noMatchReasons = []string{
		"Stage IV disease with active treatment",
		"Prior therapy within 6 months",
		"ECOG PS 2 or higher",
		"Exclusion criteria triggered",
		"Inadequate organ function",
		"Age outside range",
	}
	concerns = []string{
		"Missing some follow-up imaging data",
		"Borderline lab values",
		"Multiple comorbidities",
		"Prior radiation therapy",
		"Delayed therapy start",
		"None significant",
	}
)

// DummyResults fabricates one decision per patient. MATCH scores are at
// least 3 and NO-MATCH scores at most 3.
func DummyResults(patientIDs []string, rng *rand.Rand) []models.MatchingResult {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	results := make([]models.MatchingResult, 0, len(patientIDs))
	for _, id := range patientIDs {
		decision := "NO-MATCH"
		reasons := noMatchReasons
		score := 1 + rng.Intn(5)
		if rng.Intn(2) == 0 {
			decision = MatchDecision
			reasons = matchReasons
			if score < 3 {
				score = 3
			}
		} else if score > 3 {
			score = 3
		}

		picked := make([]string, 0, 3)
		for _, idx := range rng.Perm(len(reasons))[:3] {
			picked = append(picked, reasons[idx])
		}
		results = append(results, models.MatchingResult{
			PatientID:         id,
			FinalDecision:     decision,
			OverallScore:      score,
			PrimaryReasons:    strings.Join(picked, "; "),
			Concerns:          concerns[rng.Intn(len(concerns))],
			DecisionReasoning: "Patient evaluation complete. " + decision + " determination based on analysis of clinical data and trial criteria.",
		})
	}
	return results
}
