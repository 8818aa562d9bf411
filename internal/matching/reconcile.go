package matching

import (
	"math"

	"startup-match-workers/internal/catalog"
	"startup-match-workers/internal/common/logger"
	"startup-match-workers/internal/common/metrics"
	"startup-match-workers/internal/models"
)

// ReconcileResult holds the enriched matches and the ids that could not be resolved.
type ReconcileResult struct {
	Matches []models.EnrichedMatch
	Dropped []string
}

// Reconcile joins model candidates with catalog records. Candidates whose id is
// not in the catalog are dropped with a warning; model order is kept.
func Reconcile(raw []MatchCandidate, startups []models.Startup, log logger.Logger) ReconcileResult {
	byID := catalog.Index(startups)

	res := ReconcileResult{Matches: make([]models.EnrichedMatch, 0, len(raw))}
	for _, c := range raw {
		s, ok := byID[c.StartupID]
		if !ok {
			log.Warn("dropping match for unknown startup", map[string]interface{}{
				"startupId": c.StartupID,
			})
			metrics.MatchesDropped.Inc()
			res.Dropped = append(res.Dropped, c.StartupID)
			continue
		}
		res.Matches = append(res.Matches, enrich(c, s))
	}
	return res
}

func enrich(c MatchCandidate, s models.Startup) models.EnrichedMatch {
	bucket := c.ImplementacaoEstimada
	if !models.IsKnown(models.ImplementationBuckets, bucket) {
		bucket = models.DefaultImplementation
	}
	return models.EnrichedMatch{
		StartupID:             s.ID,
		MatchPercentage:       int(math.Round(c.MatchPercentage)),
		ResumoPersonalizado:   c.ResumoPersonalizado,
		PontosFortes:          orEmpty(c.PontosFortes),
		ComoResolve:           c.ComoResolve,
		BeneficiosTangiveis:   orEmpty(c.BeneficiosTangiveis),
		ImplementacaoEstimada: bucket,
		Nome:                  s.Name,
		Categoria:             s.Category,
		Vertical:              s.Vertical,
		ModeloNegocio:         s.BusinessModel,
		Descricao:             s.Description,
		Site:                  s.Site,
		LogoURL:               s.LogoURL,
		PrecoBase:             s.BasePrice,
	}
}

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
