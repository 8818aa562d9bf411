package matching

import (
	"context"
	"time"

	"startup-match-workers/internal/catalog"
	apperrors "startup-match-workers/internal/common/errors"
	"startup-match-workers/internal/common/logger"
	"startup-match-workers/internal/llm"
	"startup-match-workers/internal/models"
)

// Outcome statuses of a matching run.
const (
	StatusMatched = "matched"
	StatusNoMatch = "no_match"
)

// MatchRequest is one search to be matched against the catalog.
type MatchRequest struct {
	Problem  string
	Profile  models.ClientProfile
	Insights []string
	Filters  PromptFilters
}

// MatchResult is what a successful run produced. An empty Matches is the
// "no adequate startup" outcome, not a failure.
type MatchResult struct {
	Matches     []models.EnrichedMatch
	Insight     string
	Dropped     []string
	Leaks       LeakReport
	CatalogSize int
	LLMLatency  time.Duration
}

func (r *MatchResult) Status() string {
	if len(r.Matches) == 0 {
		return StatusNoMatch
	}
	return StatusMatched
}

// Matcher runs the catalog → prompt → model → reconcile pipeline.
type Matcher struct {
	catalog  catalog.Supplier
	invoker  llm.Invoker
	leakMode LeakMode
	logger   logger.Logger
}

func NewMatcher(supplier catalog.Supplier, invoker llm.Invoker, leakMode LeakMode, log logger.Logger) *Matcher {
	if leakMode == "" {
		leakMode = LeakModeFlag
	}
	return &Matcher{
		catalog:  supplier,
		invoker:  invoker,
		leakMode: leakMode,
		logger:   log,
	}
}

// Match loads the active catalog, asks the model for candidates and joins them
// back with the catalog. An empty catalog fails with NO_PROVIDERS_AVAILABLE
// before the model is called.
func (m *Matcher) Match(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	if !req.Profile.Valid() {
		req.Profile = models.ProfileSME
	}

	providers, err := m.catalog.ListActiveProviders(ctx)
	if err != nil {
		return nil, err
	}
	providers = catalog.FilterActive(providers)
	if len(providers) == 0 {
		return nil, apperrors.NewNoProvidersAvailableError()
	}

	prompt := BuildMatchingPrompt(req.Problem, providers, req.Profile, req.Insights, req.Filters)

	m.logger.Debug("invoking matching model", map[string]interface{}{
		"invoker":     m.invoker.Name(),
		"catalogSize": len(providers),
		"promptBytes": len(prompt),
	})

	start := time.Now()
	raw, err := m.invoker.Invoke(ctx, llm.Request{
		Prompt:   prompt,
		Schema:   BuildMatchingJSONSchema(),
		Validate: ValidateResponse,
	})
	latency := time.Since(start)
	if err != nil {
		return nil, err
	}

	resp, err := DecodeResponse(raw)
	if err != nil {
		return nil, err
	}

	rec := Reconcile(resp.Matches, providers, m.logger)
	matches, leaks := CheckNameLeaks(rec.Matches, m.leakMode)
	if leaks.Count() > 0 {
		m.logger.Warn("generated text names the startup", map[string]interface{}{
			"startupIds": leaks.StartupIDs,
			"mode":       string(m.leakMode),
		})
	}

	return &MatchResult{
		Matches:     matches,
		Insight:     resp.InsightGeral,
		Dropped:     rec.Dropped,
		Leaks:       leaks,
		CatalogSize: len(providers),
		LLMLatency:  latency,
	}, nil
}
