package domain

import "time"

// Reason records one point contribution to a diagnosis, in insertion order.
type Reason struct {
	Label  string `json:"label"`
	Points int    `json:"points"`
}

// RankedDiagnosis is one entry of the ranked differential.
type RankedDiagnosis struct {
	DiagnosisCode  string   `json:"diagnosis_code"`
	Score          int      `json:"score"`
	ConfidenceBand string   `json:"confidence_band"`
	KeyDrivers     []string `json:"key_drivers"`
}

// EvaluationResult is the immutable output of one engine invocation. For the
// routine route Top and SafetyNet are populated; for the urgent route
// TriggeredPaths, ProvisionalDiagnosis and Message carry the red-flag
// outcome and Top is empty.
type EvaluationResult struct {
	Route                Route             `json:"route"`
	Top                  []RankedDiagnosis `json:"top,omitempty"`
	SafetyNet            []string          `json:"safety_net,omitempty"`
	TriggeredPaths       []string          `json:"urgent_reason,omitempty"`
	ProvisionalDiagnosis string            `json:"provisional_diagnosis,omitempty"`
	Message              string            `json:"message,omitempty"`
}

// UrgentMessage is the fixed patient-safety message attached to every
// urgent-route result.
const UrgentMessage = "Urgent same-day assessment recommended."

// TriageReport is the issued artifact of a completed triage: the engine's
// evaluation plus the narrated summary and referral letter, archived for
// the clinical team.
type TriageReport struct {
	ID                string            `json:"id"`
	SessionID         string            `json:"session_id"`
	QuestionnaireType string            `json:"questionnaire_type"`
	Pathway           string            `json:"pathway"`
	Result            *EvaluationResult `json:"result"`
	Summary           string            `json:"summary"`
	ReferralLetter    string            `json:"referral_letter"`
	CreatedAt         time.Time         `json:"created_at"`
}

var displayNames = map[string]string{
	"tibiofemoral_oa":             "Tibiofemoral Osteoarthritis",
	"patellofemoral_oa":           "Patellofemoral Osteoarthritis",
	"pfps":                        "Patellofemoral Pain Syndrome",
	"acl_tear":                    "Anterior Cruciate Ligament Tear",
	"pcl_tear":                    "Posterior Cruciate Ligament Tear",
	"medial_meniscal_tear":        "Medial Meniscal Tear",
	"lateral_meniscal_tear":       "Lateral Meniscal Tear",
	"mcl_sprain":                  "Medial Collateral Ligament Sprain",
	"lcl_sprain":                  "Lateral Collateral Ligament Sprain",
	"patellar_instability":        "Patellar Instability",
	"painful_arthroplasty":        "Painful Arthroplasty",
	"bakers_cyst":                 "Baker's Cyst",
	"loose_body":                  "Loose Body",
	"septic_arthritis":            "Septic Arthritis",
	"bucket_handle_meniscal_tear": "Bucket Handle Meniscal Tear",
	"extensor_mechanism_rupture":  "Extensor Mechanism Rupture",
}

// DiagnosisDisplayName converts a diagnosis code to a human-readable name
// for reports and letters.
func DiagnosisDisplayName(code string) string {
	if name, ok := displayNames[code]; ok {
		return name
	}
	return titleFromCode(code)
}

func titleFromCode(code string) string {
	out := []rune{}
	upper := true
	for _, r := range code {
		if r == '_' {
			out = append(out, ' ')
			upper = true
			continue
		}
		if upper && r >= 'a' && r <= 'z' {
			r = r - 'a' + 'A'
		}
		upper = false
		out = append(out, r)
	}
	return string(out)
}
