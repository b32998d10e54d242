package domain

// Core Enums and Types

// Route represents the care pathway selected for a patient.
type Route string

const (
	RouteRoutine Route = "routine"
	RouteUrgent  Route = "urgent"
)

// AggregateMethod identifies one of the closed set of aggregate scoring
// methods supported by the engine.
type AggregateMethod string

const (
	// AggregateSumItems sums a value-mapped ordinal lookup over every entry
	// of a named nested section (e.g. all functional-difficulty items).
	AggregateSumItems AggregateMethod = "sum_function_items"
	// AggregateSumSubset sums the value-mapped lookup over an explicit list
	// of item keys only.
	AggregateSumSubset AggregateMethod = "sum_pf_loaded_items"
	// AggregateDeficit scores the shortfall of a numeric field from its
	// maximum possible value.
	AggregateDeficit AggregateMethod = "deficit"
	// AggregateTotalComplement scores the complement of the section total
	// against 100.
	AggregateTotalComplement AggregateMethod = "total"
)

// ValueSpecKind discriminates the expected-value spec variants of a
// condition entry.
type ValueSpecKind int

const (
	// SpecEquals matches on type-preserving exact equality.
	SpecEquals ValueSpecKind = iota
	// SpecOneOf matches when the resolved value is a member of a list.
	SpecOneOf
	// SpecCompare coerces the resolved value to a float and applies a
	// numeric comparator.
	SpecCompare
)

// ValueSpec is the expected-value side of a single condition entry.
// Exactly one variant is populated, selected by Kind.
type ValueSpec struct {
	Kind      ValueSpecKind
	Equals    any
	OneOf     []any
	Op        string // one of ">=", "<=", ">", "<", "="
	Threshold float64
}

// Condition maps attribute paths to expected-value specs. All entries must
// hold (logical AND); an empty condition matches unconditionally.
type Condition map[string]ValueSpec

// FormulaKind discriminates the closed set of target formula patterns an
// aggregate rule may use.
type FormulaKind int

const (
	// FormulaFloorDiv is floor(total/N).
	FormulaFloorDiv FormulaKind = iota
	// FormulaScaledDeficit is round(k*scale*deficit) with k defaulting to 1.
	FormulaScaledDeficit
	// FormulaTotalComplement is round(scale*(100-total)).
	FormulaTotalComplement
)

// Formula is a parsed aggregate target formula. String formulas in the
// source document are compiled to this form at load time; the engine never
// parses strings during evaluation.
type Formula struct {
	Kind        FormulaKind
	Denominator int     // FormulaFloorDiv
	Multiplier  float64 // FormulaScaledDeficit, 1.0 when the source had none
}

// AggregateRule is a scoring rule computed over multiple record fields.
type AggregateRule struct {
	Method   AggregateMethod
	ValueMap map[string]int // ordinal label -> integer value
	Items    []string       // AggregateSumSubset item keys
	Field    string         // AggregateDeficit source field
	Max      int            // AggregateDeficit maximum possible value
	Scale    float64        // deficit / total-complement scale factor
	Targets  map[string]Formula
}

// ScoringRule is a single entry of a scoring block: either a conditional
// point addition (When + Add/AddAll) or a set of aggregate computations.
type ScoringRule struct {
	When       Condition
	Label      string // reason label, "<block>:<condition-description>"
	Add        map[string]int
	AddAll     *int
	Aggregates []AggregateRule
}

// RedFlagRule short-circuits scoring when every one of its condition paths
// resolves truthy.
type RedFlagRule struct {
	Conditions []string
	Diagnosis  string
	Override   bool
}

// RankingConfig controls truncation and justification of the ranked output.
type RankingConfig struct {
	TopK            int
	MaxReasonsPerDx int
	// TieBreakers are declared by clinical authors but not mechanically
	// applied; ties keep the diagnoses list order.
	TieBreakers []string
}

// ConfidenceBand labels an inclusive integer score range. The first band
// containing a score wins.
type ConfidenceBand struct {
	Min   int
	Max   int
	Label string
}

// SafetyNetRule appends a message when its trigger holds. Trigger is either
// TriggerAnyRedFlag or "diagnosis_includes:<code>".
type SafetyNetRule struct {
	Trigger string
	Message string
}

// TriggerAnyRedFlag is the safety-net trigger satisfied when any canonical
// red-flag path resolves truthy, independently of the urgent gate.
const TriggerAnyRedFlag = "any_red_flag_triggered"

// DiagnosisIncludesPrefix prefixes safety-net triggers bound to a retained
// diagnosis code.
const DiagnosisIncludesPrefix = "diagnosis_includes:"

// OutputConfig controls result formatting.
type OutputConfig struct {
	ConfidenceBands []ConfidenceBand
	SafetyNetRules  []SafetyNetRule
}

// MechanismVocabulary is one mechanism enum with its trigger phrases.
type MechanismVocabulary struct {
	Mechanism string
	Keywords  []string
}

// NLPMaps holds the keyword vocabularies used by free-text extraction.
// MechanismKeywords keeps the document order of the source JSON: earlier
// vocabularies win when an answer mentions several mechanisms.
type NLPMaps struct {
	MechanismKeywords []MechanismVocabulary
	KneeScoreMaxima   map[string]int
}

// BlockOrder is the canonical evaluation order of scoring blocks. Blocks
// absent from a specification are skipped.
var BlockOrder = []string{
	"mechanism",
	"onset_mechanism",
	"symptoms",
	"oa_index",
	"knee_score",
	"symptoms_from_text",
	"exam",
	"imaging",
}

// Specification is the compiled, immutable clinical rules document for one
// questionnaire/body-region. Loaded once at startup and read-only after.
type Specification struct {
	Version   string
	Name      string
	Diagnoses []string
	RedFlags  []RedFlagRule
	Scoring   map[string][]ScoringRule
	Ranking   RankingConfig
	Output    OutputConfig
	NLPMaps   NLPMaps

	diagnosisSet map[string]struct{}
}

// SealDiagnoses builds the diagnosis lookup set. Called once by the loader
// after the diagnosis list is final.
func (s *Specification) SealDiagnoses() {
	s.diagnosisSet = make(map[string]struct{}, len(s.Diagnoses))
	for _, dx := range s.Diagnoses {
		s.diagnosisSet[dx] = struct{}{}
	}
}

// HasDiagnosis reports whether code is part of the diagnosis universe.
func (s *Specification) HasDiagnosis(code string) bool {
	if s.diagnosisSet != nil {
		_, ok := s.diagnosisSet[code]
		return ok
	}
	for _, dx := range s.Diagnoses {
		if dx == code {
			return true
		}
	}
	return false
}
