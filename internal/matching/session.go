package matching

import (
	"startup-match-workers/internal/models"
)

// SearchSession is the in-memory view of one search: its results, the active
// filter and the client's selection.
type SearchSession struct {
	TransactionID string
	Matches       []models.EnrichedMatch
	Filter        FilterState

	maxSelection int
	selected     []string
}

// NewSearchSession starts a session over matches. maxSelection <= 0 means MaxMatches.
func NewSearchSession(transactionID string, matches []models.EnrichedMatch, maxSelection int) *SearchSession {
	if maxSelection <= 0 {
		maxSelection = MaxMatches
	}
	return &SearchSession{
		TransactionID: transactionID,
		Matches:       matches,
		maxSelection:  maxSelection,
	}
}

// ToggleSelection selects or deselects startupID and reports whether it is now selected.
// Ids not among the matches, and additions beyond the cap, are ignored.
func (s *SearchSession) ToggleSelection(startupID string) bool {
	for i, id := range s.selected {
		if id == startupID {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			return false
		}
	}
	if len(s.selected) >= s.maxSelection || !s.has(startupID) {
		return false
	}
	s.selected = append(s.selected, startupID)
	return true
}

// Selected returns the selected ids in selection order.
func (s *SearchSession) Selected() []string {
	out := make([]string, len(s.selected))
	copy(out, s.selected)
	return out
}

// SelectedMatches returns the selected matches in selection order.
func (s *SearchSession) SelectedMatches() []models.EnrichedMatch {
	out := make([]models.EnrichedMatch, 0, len(s.selected))
	for _, id := range s.selected {
		for _, m := range s.Matches {
			if m.StartupID == id {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// ApplyFilter replaces the active filter after validating it.
func (s *SearchSession) ApplyFilter(state FilterState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	s.Filter = state
	return nil
}

// ResetFilters clears every filter predicate.
func (s *SearchSession) ResetFilters() {
	s.Filter = FilterState{}
}

// Visible returns the matches passing the active filter.
func (s *SearchSession) Visible() []models.EnrichedMatch {
	return ApplyFilter(s.Matches, s.Filter)
}

// Price prices the current selection.
func (s *SearchSession) Price(unitPriceCents int64, isNewUser bool, rules PricingRules) PriceBreakdown {
	return CalculatePrice(len(s.selected), unitPriceCents, isNewUser, rules)
}

func (s *SearchSession) has(startupID string) bool {
	for _, m := range s.Matches {
		if m.StartupID == startupID {
			return true
		}
	}
	return false
}
