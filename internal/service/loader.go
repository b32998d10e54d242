package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/msk-triage-server/internal/domain"
)

// knownPathPrefixes is the attribute-path vocabulary shared by the
// questionnaire specifications and the record builders. Conditions
// referencing paths outside it fail at load time instead of silently
// evaluating to false forever.
var knownPathPrefixes = map[string]struct{}{
	"patient":                   {},
	"laterality":                {},
	"duration_class":            {},
	"mechanism":                 {},
	"phenotype":                 {},
	"oa_pattern":                {},
	"oa_index":                  {},
	"knee_score":                {},
	"exam":                      {},
	"imaging":                   {},
	"red_flags":                 {},
	"impact_on_activities_text": {},
	"injury_mechanism_text":     {},
}

// Raw document shapes. The on-disk encoding mirrors the clinical authors'
// JSON documents; everything stringly typed here is compiled to the typed
// model before the engine ever sees it.

type rawSpec struct {
	Version      string               `json:"version"`
	Name         string               `json:"name"`
	Diagnoses    []string             `json:"diagnoses"`
	RedFlagLogic []rawRedFlag         `json:"red_flag_logic"`
	Scoring      map[string][]rawRule `json:"scoring"`
	Ranking      rawRanking           `json:"ranking"`
	Output       rawOutput            `json:"output"`
	NLPMaps      rawNLPMaps           `json:"nlp_maps"`
}

type rawRedFlag struct {
	IfAllTrue []string `json:"if_all_true"`
	Action    struct {
		Route           string `json:"route"`
		Diagnosis       string `json:"diagnosis"`
		OverrideRanking bool   `json:"override_ranking"`
	} `json:"action"`
}

type rawRule struct {
	When      map[string]any `json:"when"`
	Add       map[string]int `json:"add"`
	AddAll    *int           `json:"add_all"`
	Aggregate []rawAggregate `json:"aggregate"`
}

type rawAggregate struct {
	Method  string            `json:"method"`
	Map     map[string]int    `json:"map"`
	Items   []string          `json:"items"`
	Field   string            `json:"field"`
	Max     int               `json:"max"`
	Scale   float64           `json:"scale"`
	ThenAdd map[string]string `json:"then_add"`
}

type rawRanking struct {
	TopK        int `json:"top_k"`
	TieBreakers []struct {
		Rule string `json:"rule"`
	} `json:"tie_breakers"`
	Justification struct {
		MaxReasonsPerDx int `json:"max_reasons_per_dx"`
	} `json:"justification"`
}

type rawOutput struct {
	ConfidenceBands []struct {
		Min   int    `json:"min"`
		Max   int    `json:"max"`
		Label string `json:"label"`
	} `json:"confidence_bands"`
	SafetyNetRules []struct {
		If      string `json:"if"`
		Message string `json:"message"`
	} `json:"safety_net_rules"`
}

type rawNLPMaps struct {
	MechanismKeywords json.RawMessage `json:"mechanism_keywords"`
	KneeScoreMaxima   map[string]int  `json:"knee_score_maxima"`
}

// parseMechanismKeywords decodes the mechanism keyword table token by
// token so the document's key order survives; a Go map would randomize
// which mechanism wins when an answer mentions several.
func parseMechanismKeywords(raw json.RawMessage) ([]domain.MechanismVocabulary, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, domain.NewMalformedSpecError("nlp_maps.mechanism_keywords", "invalid JSON: %v", err)
	}
	if tok != json.Delim('{') {
		return nil, domain.NewMalformedSpecError("nlp_maps.mechanism_keywords", "must be an object")
	}

	var out []domain.MechanismVocabulary
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, domain.NewMalformedSpecError("nlp_maps.mechanism_keywords", "invalid JSON: %v", err)
		}
		mechanism, ok := keyTok.(string)
		if !ok {
			return nil, domain.NewMalformedSpecError("nlp_maps.mechanism_keywords", "unexpected token %v", keyTok)
		}
		var keywords []string
		if err := dec.Decode(&keywords); err != nil {
			return nil, domain.NewMalformedSpecError("nlp_maps.mechanism_keywords", "keywords for %q: %v", mechanism, err)
		}
		out = append(out, domain.MechanismVocabulary{Mechanism: mechanism, Keywords: keywords})
	}
	return out, nil
}

// LoadSpecification parses a specification document into the compiled
// internal model. It fails fast with *domain.MalformedSpecError on any
// structural defect: undefined diagnosis code, unknown aggregate method,
// unparseable formula, or an attribute path outside the known vocabulary.
func LoadSpecification(data []byte) (*domain.Specification, error) {
	var raw rawSpec
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, domain.NewMalformedSpecError("document", "invalid JSON: %v", err)
	}
	if len(raw.Diagnoses) == 0 {
		return nil, domain.NewMalformedSpecError("diagnoses", "at least one diagnosis code is required")
	}

	mechanisms, err := parseMechanismKeywords(raw.NLPMaps.MechanismKeywords)
	if err != nil {
		return nil, err
	}

	spec := &domain.Specification{
		Version:   raw.Version,
		Name:      raw.Name,
		Diagnoses: raw.Diagnoses,
		Scoring:   make(map[string][]domain.ScoringRule, len(raw.Scoring)),
		NLPMaps: domain.NLPMaps{
			MechanismKeywords: mechanisms,
			KneeScoreMaxima:   raw.NLPMaps.KneeScoreMaxima,
		},
	}
	spec.SealDiagnoses()

	for i, rf := range raw.RedFlagLogic {
		field := fmt.Sprintf("red_flag_logic[%d]", i)
		if len(rf.IfAllTrue) == 0 {
			return nil, domain.NewMalformedSpecError(field, "if_all_true must not be empty")
		}
		for _, path := range rf.IfAllTrue {
			if err := checkPath(field, path); err != nil {
				return nil, err
			}
		}
		spec.RedFlags = append(spec.RedFlags, domain.RedFlagRule{
			Conditions: rf.IfAllTrue,
			Diagnosis:  rf.Action.Diagnosis,
			Override:   rf.Action.OverrideRanking,
		})
	}

	for blockName, rules := range raw.Scoring {
		if !knownBlock(blockName) {
			return nil, domain.NewMalformedSpecError("scoring."+blockName, "unknown scoring block")
		}
		compiled := make([]domain.ScoringRule, 0, len(rules))
		for i, rule := range rules {
			field := fmt.Sprintf("scoring.%s[%d]", blockName, i)
			cr, err := compileRule(spec, blockName, field, rule)
			if err != nil {
				return nil, err
			}
			compiled = append(compiled, cr)
		}
		spec.Scoring[blockName] = compiled
	}

	spec.Ranking = domain.RankingConfig{
		TopK:            raw.Ranking.TopK,
		MaxReasonsPerDx: raw.Ranking.Justification.MaxReasonsPerDx,
	}
	if spec.Ranking.TopK <= 0 {
		spec.Ranking.TopK = 3
	}
	if spec.Ranking.MaxReasonsPerDx <= 0 {
		spec.Ranking.MaxReasonsPerDx = 4
	}
	for _, tb := range raw.Ranking.TieBreakers {
		spec.Ranking.TieBreakers = append(spec.Ranking.TieBreakers, tb.Rule)
	}

	for _, b := range raw.Output.ConfidenceBands {
		spec.Output.ConfidenceBands = append(spec.Output.ConfidenceBands, domain.ConfidenceBand{
			Min: b.Min, Max: b.Max, Label: b.Label,
		})
	}
	for _, sn := range raw.Output.SafetyNetRules {
		spec.Output.SafetyNetRules = append(spec.Output.SafetyNetRules, domain.SafetyNetRule{
			Trigger: sn.If, Message: sn.Message,
		})
	}

	return spec, nil
}

func knownBlock(name string) bool {
	for _, b := range domain.BlockOrder {
		if b == name {
			return true
		}
	}
	return false
}

func checkPath(field, path string) error {
	prefix, _, _ := strings.Cut(path, ".")
	if _, ok := knownPathPrefixes[prefix]; !ok {
		return domain.NewMalformedSpecError(field, "attribute path %q is outside the known vocabulary", path)
	}
	return nil
}

func compileRule(spec *domain.Specification, blockName, field string, raw rawRule) (domain.ScoringRule, error) {
	cond, err := compileCondition(field, raw.When)
	if err != nil {
		return domain.ScoringRule{}, err
	}

	rule := domain.ScoringRule{
		When:   cond,
		Label:  blockName + ":" + describeCondition(raw.When),
		Add:    raw.Add,
		AddAll: raw.AddAll,
	}

	for dx := range raw.Add {
		if !spec.HasDiagnosis(dx) {
			return domain.ScoringRule{}, domain.NewMalformedSpecError(field, "add references undefined diagnosis %q", dx)
		}
	}

	for j, agg := range raw.Aggregate {
		aggField := fmt.Sprintf("%s.aggregate[%d]", field, j)
		compiled, err := compileAggregate(spec, aggField, agg)
		if err != nil {
			return domain.ScoringRule{}, err
		}
		rule.Aggregates = append(rule.Aggregates, compiled)
	}

	return rule, nil
}

func compileCondition(field string, raw map[string]any) (domain.Condition, error) {
	cond := make(domain.Condition, len(raw))
	for path, expected := range raw {
		if err := checkPath(field, path); err != nil {
			return nil, err
		}
		spec, err := compileValueSpec(field, path, expected)
		if err != nil {
			return nil, err
		}
		cond[path] = spec
	}
	return cond, nil
}

// comparator prefixes, longest first so ">=" is never misread as ">"
var comparatorOps = []string{">=", "<=", ">", "<", "="}

func compileValueSpec(field, path string, expected any) (domain.ValueSpec, error) {
	switch exp := expected.(type) {
	case []any:
		return domain.ValueSpec{Kind: domain.SpecOneOf, OneOf: exp}, nil
	case string:
		for _, op := range comparatorOps {
			if !strings.HasPrefix(exp, op) {
				continue
			}
			threshold, err := strconv.ParseFloat(exp[len(op):], 64)
			if err != nil {
				return domain.ValueSpec{}, domain.NewMalformedSpecError(field,
					"condition %q has unparseable comparator value %q", path, exp)
			}
			return domain.ValueSpec{Kind: domain.SpecCompare, Op: op, Threshold: threshold}, nil
		}
		return domain.ValueSpec{Kind: domain.SpecEquals, Equals: exp}, nil
	default:
		return domain.ValueSpec{Kind: domain.SpecEquals, Equals: expected}, nil
	}
}

func compileAggregate(spec *domain.Specification, field string, raw rawAggregate) (domain.AggregateRule, error) {
	method := domain.AggregateMethod(raw.Method)
	switch method {
	case domain.AggregateSumItems, domain.AggregateSumSubset, domain.AggregateDeficit, domain.AggregateTotalComplement:
	default:
		return domain.AggregateRule{}, domain.NewMalformedSpecError(field, "unrecognized aggregate method %q", raw.Method)
	}

	agg := domain.AggregateRule{
		Method:   method,
		ValueMap: raw.Map,
		Items:    raw.Items,
		Field:    raw.Field,
		Max:      raw.Max,
		Scale:    raw.Scale,
		Targets:  make(map[string]domain.Formula, len(raw.ThenAdd)),
	}
	if agg.Scale == 0 {
		agg.Scale = defaultScale(method)
	}
	if method == domain.AggregateDeficit && agg.Field == "" {
		return domain.AggregateRule{}, domain.NewMalformedSpecError(field, "deficit aggregate requires a field name")
	}
	if method == domain.AggregateSumSubset && len(agg.Items) == 0 {
		return domain.AggregateRule{}, domain.NewMalformedSpecError(field, "subset aggregate requires an item list")
	}

	for dx, expr := range raw.ThenAdd {
		if !spec.HasDiagnosis(dx) {
			return domain.AggregateRule{}, domain.NewMalformedSpecError(field, "then_add references undefined diagnosis %q", dx)
		}
		formula, err := parseFormula(field, expr)
		if err != nil {
			return domain.AggregateRule{}, err
		}
		if !formulaFits(method, formula.Kind) {
			return domain.AggregateRule{}, domain.NewMalformedSpecError(field,
				"formula %q does not fit aggregate method %q", expr, raw.Method)
		}
		agg.Targets[dx] = formula
	}

	return agg, nil
}

func defaultScale(method domain.AggregateMethod) float64 {
	switch method {
	case domain.AggregateDeficit:
		return 1.0
	case domain.AggregateTotalComplement:
		return 0.1
	default:
		return 0
	}
}

func formulaFits(method domain.AggregateMethod, kind domain.FormulaKind) bool {
	switch method {
	case domain.AggregateSumItems, domain.AggregateSumSubset:
		return kind == domain.FormulaFloorDiv
	case domain.AggregateDeficit:
		return kind == domain.FormulaScaledDeficit
	case domain.AggregateTotalComplement:
		return kind == domain.FormulaTotalComplement
	}
	return false
}

// parseFormula compiles one of the supported formula patterns:
//
//	floor(total/N)
//	round(scale*deficit)
//	round(K*scale*deficit)
//	round(scale*(100-total))
//
// Anything else is a load-time error; the engine never interprets formula
// strings during evaluation.
func parseFormula(field, expr string) (domain.Formula, error) {
	const (
		floorPrefix  = "floor(total/"
		deficitPlain = "round(scale*deficit)"
		deficitTail  = "*scale*deficit)"
		totalExpr    = "round(scale*(100-total))"
	)

	switch {
	case strings.HasPrefix(expr, floorPrefix) && strings.HasSuffix(expr, ")"):
		denom, err := strconv.Atoi(expr[len(floorPrefix) : len(expr)-1])
		if err != nil || denom <= 0 {
			return domain.Formula{}, domain.NewMalformedSpecError(field, "unparseable floor denominator in %q", expr)
		}
		return domain.Formula{Kind: domain.FormulaFloorDiv, Denominator: denom}, nil

	case expr == deficitPlain:
		return domain.Formula{Kind: domain.FormulaScaledDeficit, Multiplier: 1.0}, nil

	case strings.HasPrefix(expr, "round(") && strings.HasSuffix(expr, deficitTail):
		mult, err := strconv.ParseFloat(expr[len("round("):len(expr)-len(deficitTail)], 64)
		if err != nil || mult <= 0 {
			return domain.Formula{}, domain.NewMalformedSpecError(field, "unparseable deficit multiplier in %q", expr)
		}
		return domain.Formula{Kind: domain.FormulaScaledDeficit, Multiplier: mult}, nil

	case expr == totalExpr:
		return domain.Formula{Kind: domain.FormulaTotalComplement}, nil

	default:
		return domain.Formula{}, domain.NewMalformedSpecError(field, "unsupported formula %q", expr)
	}
}

// describeCondition renders a condition deterministically for reason
// labels, e.g. "exam:{exam.lachman=yes_soft_endpoint}".
func describeCondition(raw map[string]any) string {
	if len(raw) == 0 {
		return "{}"
	}
	paths := make([]string, 0, len(raw))
	for path := range raw {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	parts := make([]string, 0, len(paths))
	for _, path := range paths {
		parts = append(parts, path+"="+describeValue(raw[path]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func describeValue(v any) string {
	switch val := v.(type) {
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			items = append(items, describeValue(item))
		}
		return "[" + strings.Join(items, "|") + "]"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
