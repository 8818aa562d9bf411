package matchstartups

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	apperrors "startup-match-workers/internal/common/errors"
	"startup-match-workers/internal/common/events"
	"startup-match-workers/internal/common/logger"
	"startup-match-workers/internal/common/metrics"
	"startup-match-workers/internal/common/observability"
	"startup-match-workers/internal/common/validation"
	"startup-match-workers/internal/matching"
	"startup-match-workers/internal/models"
	"startup-match-workers/internal/transaction"
)

const TaskType = "match-startups"

type Handler struct {
	config       *Config
	matcher      *matching.Matcher
	repo         transaction.Repository
	redis        *redis.Client
	publisher    events.Publisher
	obs          *observability.Observability
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

type Dependencies struct {
	Matcher       *matching.Matcher
	Repository    transaction.Repository
	Redis         *redis.Client
	Publisher     events.Publisher
	Observability *observability.Observability
	Logger        logger.Logger
}

func NewHandler(cfg *Config, deps Dependencies) *Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	obs := deps.Observability
	if obs == nil {
		obs = &observability.Observability{}
	}
	log := deps.Logger.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		matcher:      deps.Matcher,
		repo:         deps.Repository,
		redis:        deps.Redis,
		publisher:    publisher,
		obs:          obs,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err == nil {
		var output *Output
		output, err = h.Execute(ctx, input)
		if err == nil {
			h.completeJob(client, job, output)
			metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
			metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
			h.obs.RecordJobProcessed(ctx, TaskType, "completed")
			h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
			return
		}
	}

	stdErr := apperrors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
	h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("parse variables: %v", err))
	}

	res, err := validation.ValidateInput(variables, GetInputSchema())
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	if !res.Valid {
		return nil, apperrors.NewInvalidInputError(res.Summary())
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("decode variables: %v", err))
	}
	return &input, nil
}

// Execute matches one transaction. Only one run per transaction may be in flight.
// Every failure is published and audited before the lock is released.
func (h *Handler) Execute(ctx context.Context, input *Input) (output *Output, err error) {
	var release func()
	defer func() {
		if err != nil {
			err = h.fail(ctx, input.TransactionID, err)
		}
		if release != nil {
			release()
		}
	}()

	tx, err := h.repo.Get(ctx, input.TransactionID)
	if err != nil {
		return nil, err
	}

	req := matching.MatchRequest{
		Problem:  strings.TrimSpace(input.Problema),
		Profile:  models.ClientProfile(input.PerfilCliente),
		Insights: input.Insights,
		Filters:  input.Filtros,
	}
	if req.Problem == "" {
		req.Problem = strings.TrimSpace(tx.ProblemaRelatado)
	}
	if req.Problem == "" {
		return nil, apperrors.NewInvalidInputError("problema is empty")
	}
	if !req.Profile.Valid() {
		req.Profile = tx.PerfilCliente
	}
	if !req.Profile.Valid() {
		req.Profile = models.ProfileSME
	}

	release, err = acquireLock(ctx, h.redis, input.TransactionID, h.config.LockTTL)
	if err != nil {
		return nil, err
	}

	h.publish(ctx, events.MatchingStarted, input.TransactionID, map[string]interface{}{
		"perfilCliente": string(req.Profile),
	})

	result, err := h.matcher.Match(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := h.repo.SaveSuggestions(ctx, input.TransactionID, result.Matches, result.Insight, req.Profile); err != nil {
		return nil, err
	}

	status := result.Status()
	metrics.MatchingOutcomes.WithLabelValues(status).Inc()
	h.obs.RecordMatching(ctx, result.LLMLatency, len(result.Matches), status)

	eventType := events.MatchingCompleted
	if status == matching.StatusNoMatch {
		eventType = events.MatchingNoMatch
	}
	h.publish(ctx, eventType, input.TransactionID, map[string]interface{}{
		"matchCount": len(result.Matches),
	})

	runID := h.recordRun(ctx, transaction.MatchingRun{
		TransactionID: input.TransactionID,
		Status:        status,
		MatchCount:    len(result.Matches),
		DroppedCount:  len(result.Dropped),
		LeakCount:     result.Leaks.Count(),
		LLMLatency:    result.LLMLatency,
	})

	h.logger.Info("matching finished", map[string]interface{}{
		"transactionId": input.TransactionID,
		"status":        status,
		"matchCount":    len(result.Matches),
		"dropped":       len(result.Dropped),
		"catalogSize":   result.CatalogSize,
		"llmLatencyMs":  result.LLMLatency.Milliseconds(),
	})

	return &Output{
		Status:        status,
		MatchCount:    len(result.Matches),
		DroppedCount:  len(result.Dropped),
		NameLeaks:     result.Leaks.Count(),
		InsightGerado: result.Insight,
		RunID:         runID,
	}, nil
}

// fail publishes matching_failed and audits the run. A rejected duplicate gets
// no event since the session's running match is still reporting progress.
func (h *Handler) fail(ctx context.Context, transactionID string, err error) *apperrors.StandardError {
	stdErr := apperrors.AsStandardError(err)
	ctx = context.WithoutCancel(ctx)

	metrics.MatchingOutcomes.WithLabelValues("failed").Inc()
	h.obs.RecordMatching(ctx, 0, 0, "failed")

	if stdErr.Code != apperrors.ErrCodeMatchingInProgress {
		h.publish(ctx, events.MatchingFailed, transactionID, map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"retryable": stdErr.Retryable,
		})
	}
	h.recordRun(ctx, transaction.MatchingRun{
		TransactionID: transactionID,
		Status:        "failed",
		ErrorCode:     string(stdErr.Code),
	})
	return stdErr
}

// Progress events are advisory; a broker outage must not fail the match.
func (h *Handler) publish(ctx context.Context, eventType, transactionID string, data map[string]interface{}) {
	if err := h.publisher.Publish(ctx, events.NewEvent(eventType, transactionID, data)); err != nil {
		h.logger.WithError(err).Warn("failed to publish progress event", map[string]interface{}{
			"event":         eventType,
			"transactionId": transactionID,
		})
	}
}

func (h *Handler) recordRun(ctx context.Context, run transaction.MatchingRun) string {
	id, err := h.repo.RecordRun(ctx, run)
	if err != nil {
		h.logger.WithError(err).Warn("matching run audit insert failed", map[string]interface{}{
			"transactionId": run.TransactionID,
		})
	}
	return id
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
		"status": output.Status,
	})
}
