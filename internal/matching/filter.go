package matching

import (
	"fmt"
	"strings"

	"startup-match-workers/internal/models"
)

// FilterState is the client-side refinement applied to a result list.
// Empty sets do not restrict.
type FilterState struct {
	Categories     []string `json:"categorias"`
	Verticals      []string `json:"verticais"`
	BusinessModels []string `json:"modelos_negocio"`
	MatchMinimo    int      `json:"match_minimo"`
}

// Validate checks the minimum score is within 0..100 in steps of 5 and every
// set member is a known category, vertical or business model.
func (f FilterState) Validate() error {
	if f.MatchMinimo < 0 || f.MatchMinimo > 100 || f.MatchMinimo%5 != 0 {
		return fmt.Errorf("match_minimo must be 0-100 in steps of 5, got %d", f.MatchMinimo)
	}
	if err := checkKnown("categorias", models.Categories, f.Categories); err != nil {
		return err
	}
	if err := checkKnown("verticais", models.Verticals, f.Verticals); err != nil {
		return err
	}
	return checkKnown("modelos_negocio", models.BusinessModels, f.BusinessModels)
}

func checkKnown(field string, set, values []string) error {
	for _, v := range values {
		if !models.IsKnown(set, v) {
			return fmt.Errorf("%s: unknown value %q", field, v)
		}
	}
	return nil
}

// IsZero reports whether the state applies no restriction at all.
func (f FilterState) IsZero() bool {
	return len(f.Categories) == 0 && len(f.Verticals) == 0 && len(f.BusinessModels) == 0 && f.MatchMinimo == 0
}

// ApplyFilter keeps the matches that satisfy every predicate of state, in input order.
func ApplyFilter(matches []models.EnrichedMatch, state FilterState) []models.EnrichedMatch {
	cats := toSet(state.Categories)
	verts := toSet(state.Verticals)
	bms := toSet(state.BusinessModels)

	out := make([]models.EnrichedMatch, 0, len(matches))
	for _, m := range matches {
		if !inSet(cats, m.Categoria) || !inSet(verts, m.Vertical) || !inSet(bms, m.ModeloNegocio) {
			continue
		}
		if m.MatchPercentage < state.MatchMinimo {
			continue
		}
		out = append(out, m)
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[normalize(v)] = struct{}{}
	}
	return set
}

func inSet(set map[string]struct{}, v string) bool {
	if set == nil {
		return true
	}
	_, ok := set[normalize(v)]
	return ok
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
