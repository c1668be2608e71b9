package cohort

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/common/models"
)

const DefaultSyntheticPatients = 25

var (
	ethnicities = []string{"Caucasian", "African American", "Asian", "Hispanic", "Native American", "Pacific Islander"}
	genders     = []string{"male", "female"}
	cancerTypes = []string{
		"colorectal adenocarcinoma",
		"rectal adenocarcinoma",
		"sigmoid colon cancer",
		"ascending colon cancer",
		"transverse colon cancer",
	}
	stages    = []string{"I", "II", "IIA", "IIB", "IIC", "III", "IIIA", "IIIB", "IIIC", "IV", "IVA", "IVB"}
	surgeries = []string{
		"right hemicolectomy",
		"left hemicolectomy",
		"sigmoid colectomy",
		"low anterior resection",
		"abdominoperineal resection",
		"total colectomy",
		"subtotal colectomy",
		"transanal excision",
		"laparoscopic colectomy",
	}
	medications = []string{
		"Ondansetron 8mg PRN",
		"Oxycodone 5mg PRN",
		"Pantoprazole 40mg daily",
		"Lisinopril 10mg daily",
		"Metformin 500mg BID",
		"Aspirin 81mg daily",
		"Atorvastatin 20mg daily",
		"Omeprazole 20mg daily",
		"Metoprolol 25mg BID",
		"Amlodipine 5mg daily",
		"Gabapentin 300mg TID",
		"Ferrous sulfate 325mg daily",
	}
	comorbidities = []string{
		"hypertension",
		"type 2 diabetes",
		"hyperlipidemia",
		"GERD",
		"osteoarthritis",
		"hypothyroidism",
		"obesity",
		"CKD stage 3",
		"COPD",
		"atrial fibrillation",
	}
	chemoRegimens   = []string{"FOLFOX", "FOLFIRI", "CAPOX", "5-FU/LV", "capecitabine"}
	differentiation = []string{"well", "moderately", "poorly"}
)

// GenerateSynthetic builds n colorectal oncology records with ids P001, P002, ...
// A nil rng uses a time-seeded source.
func GenerateSynthetic(n int, rng *rand.Rand) []models.PatientRecord {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if n < 0 {
		n = 0
	}
	patients := make([]models.PatientRecord, 0, n)
	for i := 1; i <= n; i++ {
		patients = append(patients, syntheticPatient(i, rng))
	}
	return patients
}

func syntheticPatient(num int, rng *rand.Rand) models.PatientRecord {
	stage := pick(rng, stages)
	var b strings.Builder

	fmt.Fprintf(&b, "Patient is a %d-year-old %s %s with a diagnosis of stage %s %s. ",
		between(rng, 35, 82), pick(rng, ethnicities), pick(rng, genders), stage, pick(rng, cancerTypes))
	fmt.Fprintf(&b, "Initial diagnosis was made on %s following colonoscopy with biopsy. ", randomDate(rng, 2023, 2023))
	fmt.Fprintf(&b, "Patient underwent %s on %s with R0 resection. ", pick(rng, surgeries), randomDate(rng, 2023, 2024))
	fmt.Fprintf(&b, "Pathology confirmed %s differentiated adenocarcinoma. ", pick(rng, differentiation))
	fmt.Fprintf(&b, "%d of %d lymph nodes positive for metastatic disease.\n\n", between(rng, 0, 6), between(rng, 12, 28))

	fmt.Fprintf(&b, "Current medications: %s.\n\n", strings.Join(sample(rng, medications, between(rng, 1, 4)), ", "))
	b.WriteString(labValues(rng) + "\n\n")
	fmt.Fprintf(&b, "ECOG Performance Status: %d\n\n", between(rng, 0, 2))
	b.WriteString("Patient is HBsAg negative, HCV antibody negative. No active infections. ")
	if history := sample(rng, comorbidities, between(rng, 0, 3)); len(history) > 0 {
		fmt.Fprintf(&b, "Medical history includes %s. ", strings.Join(history, ", "))
	}
	b.WriteString("No history of other malignancies. No known drug allergies.\n\n")

	signateraDate := randomDate(rng, 2023, 2024)
	if rng.Float64() > 0.5 {
		fmt.Fprintf(&b, "Signatera ctDNA test (%s): Positive (%.1f MTM/mL)\n\n", signateraDate, uniform(rng, 0.5, 5.0))
	} else {
		fmt.Fprintf(&b, "Signatera (%s): Negative\n\n", signateraDate)
	}

	switch stage {
	case "III", "IIIA", "IIIB", "IIIC":
		fmt.Fprintf(&b, "Plan: Adjuvant %s chemotherapy x 6 months.", pick(rng, chemoRegimens))
	case "II", "IIA", "IIB":
		b.WriteString("Consideration for observation vs adjuvant chemotherapy given risk features.")
	default:
		b.WriteString("Surveillance protocol initiated.")
	}

	return models.PatientRecord{
		PatientID: fmt.Sprintf("P%03d", num),
		FullText:  strings.TrimSpace(b.String()),
	}
}

func labValues(rng *rand.Rand) string {
	return fmt.Sprintf(
		"Lab values (%s): CEA %.1f ng/mL, WBC %.1f, Hgb %.1f, Platelets %d, Creatinine %.1f, ALT %d, AST %d.",
		randomDate(rng, 2023, 2024),
		uniform(rng, 0.5, 25.0),
		uniform(rng, 3.5, 10.0),
		uniform(rng, 9.5, 14.5),
		between(rng, 120, 350),
		uniform(rng, 0.6, 1.4),
		between(rng, 15, 55),
		between(rng, 15, 50),
	)
}

func randomDate(rng *rand.Rand, startYear, endYear int) string {
	start := time.Date(startYear, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(endYear, 12, 31, 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours() / 24)
	return start.AddDate(0, 0, rng.Intn(days+1)).Format("01/02/2006")
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

// between is inclusive on both ends.
func between(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func sample(rng *rand.Rand, values []string, n int) []string {
	if n > len(values) {
		n = len(values)
	}
	picked := make([]string, 0, n)
	for _, idx := range rng.Perm(len(values))[:n] {
		picked = append(picked, values[idx])
	}
	return picked
}
