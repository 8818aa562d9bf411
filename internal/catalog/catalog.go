// Package catalog reads the set of active startups the matcher may recommend.
package catalog

import (
	"context"

	"startup-match-workers/internal/models"
)

// Supplier returns every active startup. Order is not significant.
type Supplier interface {
	ListActiveProviders(ctx context.Context) ([]models.Startup, error)
}

// FilterActive drops inactive records; sources are expected to do this already.
func FilterActive(startups []models.Startup) []models.Startup {
	out := make([]models.Startup, 0, len(startups))
	for _, s := range startups {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}

// Index maps startups by id.
func Index(startups []models.Startup) map[string]models.Startup {
	idx := make(map[string]models.Startup, len(startups))
	for _, s := range startups {
		idx[s.ID] = s
	}
	return idx
}
