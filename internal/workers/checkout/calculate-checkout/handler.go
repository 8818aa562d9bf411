package calculatecheckout

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
	"startup-match-workers/internal/models"
	"startup-match-workers/internal/transaction"
)

const TaskType = "calculate-checkout"

// Notifier hands the checkout summary to the payment step. *aws.SNSClient implements it.
type Notifier interface {
	PublishJSON(ctx context.Context, eventType string, payload interface{}) (string, error)
}

type Handler struct {
	config       *Config
	repo         transaction.Repository
	notifier     Notifier
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

// NewHandler builds the worker. notifier may be nil when the hand-off topic is disabled.
func NewHandler(cfg *Config, repo transaction.Repository, notifier Notifier, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		repo:         repo,
		notifier:     notifier,
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
		if output, err = h.Execute(ctx, input); err == nil {
			h.completeJob(client, job, output)
			metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
			metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
			return
		}
	}

	stdErr := apperrors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
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

// Execute prices the selection, stores the hand-off fields and notifies the payment step.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	tx, err := h.repo.Get(ctx, input.TransactionID)
	if err != nil {
		return nil, err
	}
	if tx.StatusPagamento == models.PaymentPaid {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("transaction %s is already paid", tx.ID))
	}
	if tx.StatusPagamento == models.PaymentCancelled {
		h.logger.Info("reopening cancelled checkout", map[string]interface{}{"transactionId": tx.ID})
	}

	session, err := h.buildSelection(tx, input.SelectedIDs)
	if err != nil {
		return nil, err
	}

	userID := input.UserID
	if userID == "" {
		userID = tx.UserID
	}
	paid, err := h.repo.HasPaidTransaction(ctx, userID)
	if err != nil {
		return nil, apperrors.NewTransactionUpdateFailedError(tx.ID, err)
	}
	isNewUser := !paid

	price := session.Price(h.config.UnitPriceCents, isNewUser, h.config.Rules)
	selected := session.Selected()

	if err := h.repo.SaveCheckout(ctx, tx.ID, transaction.CheckoutHandoff{
		SelectedIDs: selected,
		Details:     session.SelectedMatches(),
		TotalCents:  price.TotalCents,
	}); err != nil {
		return nil, err
	}

	output := &Output{
		QuantidadeSelecionada: price.Count,
		StartupsSelecionadas:  selected,
		Subtotal:              matching.CentsToReais(price.SubtotalCents),
		DescontoPrimeiro:      matching.CentsToReais(price.FirstFreeCents),
		DescontoPacote:        matching.CentsToReais(price.BundleDiscountCents),
		ValorTotal:            matching.CentsToReais(price.TotalCents),
		PrimeiraCompra:        isNewUser,
	}

	if h.notifier != nil {
		id, err := h.notifier.PublishJSON(ctx, CheckoutReadyEvent, checkoutMessage{
			TransactionID:   tx.ID,
			UserID:          userID,
			SelectedIDs:     selected,
			TotalCents:      price.TotalCents,
			FirstPurchase:   isNewUser,
			StatusPagamento: models.PaymentPending,
		})
		if err != nil {
			return nil, apperrors.NewEventPublishFailedError("sns", err)
		}
		output.NotificationID = id
	}

	h.logger.Info("checkout calculated", map[string]interface{}{
		"transactionId": tx.ID,
		"count":         price.Count,
		"totalCents":    price.TotalCents,
		"newUser":       isNewUser,
	})
	return output, nil
}

// buildSelection replays the requested ids onto a session over the transaction's
// suggestions. Duplicates collapse and ids past the cap are dropped; an id that
// was never suggested is rejected.
func (h *Handler) buildSelection(tx *models.Transaction, ids []string) (*matching.SearchSession, error) {
	session := matching.NewSearchSession(tx.ID, tx.StartupsSugeridas, h.config.Rules.MaxSelection)
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		if _, ok := tx.FindSuggestion(id); !ok {
			return nil, apperrors.NewSelectionInvalidError(fmt.Sprintf("startup %s was not suggested for transaction %s", id, tx.ID))
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if !session.ToggleSelection(id) {
			h.logger.Debug("selection cap reached, ignoring", map[string]interface{}{"startupId": id})
		}
	}

	if len(session.Selected()) == 0 {
		return nil, apperrors.NewSelectionInvalidError("no startup selected")
	}
	return session, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{"jobKey": job.Key})
}
