package filtermatches

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "startup-match-workers/internal/common/errors"
	"startup-match-workers/internal/common/logger"
	"startup-match-workers/internal/common/metrics"
	"startup-match-workers/internal/common/validation"
	"startup-match-workers/internal/matching"
	"startup-match-workers/internal/transaction"
)

const TaskType = "filter-matches"

type Handler struct {
	config       *Config
	repo         transaction.Repository
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(cfg *Config, repo transaction.Repository, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		repo:         repo,
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

	output, err := h.run(ctx, job)
	if err != nil {
		stdErr := apperrors.AsStandardError(err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) run(ctx context.Context, job entities.Job) (*Output, error) {
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
	return h.Execute(ctx, &input)
}

// Execute filters the given matches, or the transaction's suggestions when none are given.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	matches := input.Matches
	if matches == nil {
		if input.TransactionID == "" {
			return nil, apperrors.NewInvalidInputError("either matches or transactionId is required")
		}
		tx, err := h.repo.Get(ctx, input.TransactionID)
		if err != nil {
			return nil, err
		}
		matches = tx.StartupsSugeridas
	}

	session := matching.NewSearchSession(input.TransactionID, matches, 0)
	if input.FilterState.IsZero() {
		session.ResetFilters()
	} else if err := session.ApplyFilter(input.FilterState); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	visible := session.Visible()

	h.logger.Debug("filter applied", map[string]interface{}{
		"transactionId": input.TransactionID,
		"total":         len(matches),
		"visible":       len(visible),
		"unfiltered":    input.FilterState.IsZero(),
	})

	return &Output{
		Matches:      visible,
		VisibleCount: len(visible),
		TotalCount:   len(matches),
	}, nil
}
