// Package specs embeds the questionnaire specification documents and
// exposes a registry that compiles them on demand.
package specs

import (
	"embed"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/msk-triage-server/internal/domain"
	"github.com/msk-triage-server/internal/service"
)

//go:embed *.json
var specFS embed.FS

// Questionnaire types served by the embedded registry.
const (
	TypeKneeOA     = "knee_oa"
	TypeKneeInjury = "knee_injury"
)

var specFiles = map[string]string{
	TypeKneeOA:     "knee_oa.json",
	TypeKneeInjury: "knee_injury.json",
}

const cacheSize = 16

// Registry resolves questionnaire types to compiled specifications.
// Compilation happens once per type; subsequent lookups hit the cache.
type Registry struct {
	logger *logrus.Logger
	cache  *lru.Cache[string, *domain.Specification]
}

// NewRegistry creates a registry and eagerly compiles every embedded
// specification so malformed documents fail at startup, not mid-interview.
func NewRegistry(logger *logrus.Logger) (*Registry, error) {
	cache, err := lru.New[string, *domain.Specification](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create spec cache: %w", err)
	}

	r := &Registry{logger: logger, cache: cache}
	for qt := range specFiles {
		if _, err := r.Get(qt); err != nil {
			return nil, fmt.Errorf("embedded specification %s: %w", qt, err)
		}
	}
	return r, nil
}

// Get returns the compiled specification for a questionnaire type.
// Returns *domain.SpecNotFoundError for unknown types.
func (r *Registry) Get(questionnaireType string) (*domain.Specification, error) {
	if spec, ok := r.cache.Get(questionnaireType); ok {
		return spec, nil
	}

	filename, ok := specFiles[questionnaireType]
	if !ok {
		return nil, &domain.SpecNotFoundError{QuestionnaireType: questionnaireType}
	}

	data, err := specFS.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded spec %s: %w", filename, err)
	}

	spec, err := service.LoadSpecification(data)
	if err != nil {
		return nil, err
	}

	r.cache.Add(questionnaireType, spec)
	r.logger.WithFields(logrus.Fields{
		"questionnaire_type": questionnaireType,
		"spec_name":          spec.Name,
		"diagnoses":          len(spec.Diagnoses),
	}).Debug("Compiled questionnaire specification")

	return spec, nil
}

// Available lists the registered questionnaire types in sorted order.
func (r *Registry) Available() []string {
	types := make([]string, 0, len(specFiles))
	for qt := range specFiles {
		types = append(types, qt)
	}
	sort.Strings(types)
	return types
}
