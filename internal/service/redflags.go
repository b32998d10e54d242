package service

import (
	"github.com/msk-triage-server/internal/domain"
)

// CheckRedFlags walks red_flag_logic in order and returns an urgent-route
// result for the first entry whose condition paths all resolve truthy.
// Red flags are patient-safety conditions and pre-empt all scoring; a hit
// is a total short-circuit. Returns nil when no entry fires.
func CheckRedFlags(spec *domain.Specification, record domain.PatientRecord) *domain.EvaluationResult {
	for _, rf := range spec.RedFlags {
		if allTruthy(record, rf.Conditions) {
			return &domain.EvaluationResult{
				Route:                domain.RouteUrgent,
				TriggeredPaths:       rf.Conditions,
				ProvisionalDiagnosis: rf.Diagnosis,
				Message:              domain.UrgentMessage,
			}
		}
	}
	return nil
}

func allTruthy(record domain.PatientRecord, paths []string) bool {
	for _, path := range paths {
		if !domain.Truthy(record.Resolve(path)) {
			return false
		}
	}
	return true
}

// anyRedFlagPath reports whether any path referenced by the red-flag rules
// resolves truthy. This is the softer safety-net signal and is evaluated
// independently of the urgent gate: a multi-condition entry may not fire
// while one of its paths is still present.
func anyRedFlagPath(spec *domain.Specification, record domain.PatientRecord) bool {
	for _, rf := range spec.RedFlags {
		for _, path := range rf.Conditions {
			if domain.Truthy(record.Resolve(path)) {
				return true
			}
		}
	}
	return false
}
