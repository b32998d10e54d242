// Package service implements the questionnaire rule engine: a declarative
// condition-and-scoring evaluator that turns a clinical specification plus a
// patient-data record into a ranked, explainable differential diagnosis and
// care-pathway recommendation.
package service

import (
	"github.com/sirupsen/logrus"

	"github.com/msk-triage-server/internal/domain"
)

// RuleEngine evaluates questionnaire specifications against patient-data
// records. It is a pure synchronous computation: the specification is
// read-only configuration and every invocation builds fresh scoring state,
// so concurrent callers need no coordination.
type RuleEngine struct {
	logger *logrus.Logger
}

// NewRuleEngine creates a new questionnaire rule engine
func NewRuleEngine(logger *logrus.Logger) *RuleEngine {
	return &RuleEngine{logger: logger}
}

// Evaluate runs the full pipeline: red-flag gate, scoring blocks, ranking.
// The red-flag check is unconditional and always precedes scoring; a hit
// overrides every score.
func (e *RuleEngine) Evaluate(spec *domain.Specification, record domain.PatientRecord) *domain.EvaluationResult {
	if urgent := CheckRedFlags(spec, record); urgent != nil {
		e.logger.WithFields(logrus.Fields{
			"spec":      spec.Name,
			"diagnosis": urgent.ProvisionalDiagnosis,
			"paths":     urgent.TriggeredPaths,
		}).Warn("Red flag fired, routing urgent")
		return urgent
	}

	st := e.score(spec, record)
	result := e.rank(spec, record, st)

	e.logger.WithFields(logrus.Fields{
		"spec":       spec.Name,
		"ranked":     len(result.Top),
		"safety_net": len(result.SafetyNet),
	}).Info("Completed questionnaire evaluation")

	return result
}
