// Package transaction reads and updates the search session records the workers act on.
package transaction

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "startup-match-workers/internal/common/errors"
	"startup-match-workers/internal/models"
)

// CheckoutHandoff is what the checkout step writes before payment.
type CheckoutHandoff struct {
	SelectedIDs []string
	Details     []models.EnrichedMatch
	TotalCents  int64
}

// MatchingRun is one audit row per matching attempt.
type MatchingRun struct {
	ID            string
	TransactionID string
	Status        string
	MatchCount    int
	DroppedCount  int
	LeakCount     int
	LLMLatency    time.Duration
	ErrorCode     string
}

type Repository interface {
	Get(ctx context.Context, id string) (*models.Transaction, error)
	SaveSuggestions(ctx context.Context, id string, matches []models.EnrichedMatch, insight string, profile models.ClientProfile) error
	SaveCheckout(ctx context.Context, id string, handoff CheckoutHandoff) error
	HasPaidTransaction(ctx context.Context, userID string) (bool, error)
	RecordRun(ctx context.Context, run MatchingRun) (string, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectTransaction = `
	SELECT id, user_id, COALESCE(problema_relatado, ''), COALESCE(perfil_cliente, ''),
	       COALESCE(startups_sugeridas, '[]'::jsonb), COALESCE(insight_gerado, ''),
	       COALESCE(startups_selecionadas, '{}'), COALESCE(quantidade_selecionada, 0),
	       COALESCE(valor_total, 0), COALESCE(startups_detalhadas, '[]'::jsonb),
	       COALESCE(status_pagamento, 'pendente'), created_at, updated_at
	FROM transactions
	WHERE id = $1`

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Transaction, error) {
	var (
		t                   models.Transaction
		profile             string
		suggested, detailed []byte
	)
	err := r.db.QueryRowContext(ctx, selectTransaction, id).Scan(
		&t.ID,
		&t.UserID,
		&t.ProblemaRelatado,
		&profile,
		&suggested,
		&t.InsightGerado,
		pq.Array(&t.StartupsSelecionadas),
		&t.QuantidadeSelecionada,
		&t.ValorTotal,
		&detailed,
		&t.StatusPagamento,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewTransactionNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewTransactionLoadFailedError(id, err)
	}

	t.PerfilCliente = models.ClientProfile(profile)
	if err := json.Unmarshal(suggested, &t.StartupsSugeridas); err != nil {
		return nil, fmt.Errorf("decode startups_sugeridas: %w", err)
	}
	if err := json.Unmarshal(detailed, &t.StartupsDetalhadas); err != nil {
		return nil, fmt.Errorf("decode startups_detalhadas: %w", err)
	}
	return &t, nil
}

// SaveSuggestions stores a matching result. An empty list is stored as [] (no adequate match).
func (r *PostgresRepository) SaveSuggestions(ctx context.Context, id string, matches []models.EnrichedMatch, insight string, profile models.ClientProfile) error {
	if matches == nil {
		matches = []models.EnrichedMatch{}
	}
	payload, err := json.Marshal(matches)
	if err != nil {
		return apperrors.NewTransactionUpdateFailedError(id, err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET startups_sugeridas = $2, insight_gerado = $3, perfil_cliente = $4, updated_at = NOW()
		WHERE id = $1`,
		id, payload, insight, string(profile),
	)
	return checkUpdated(id, res, err)
}

func (r *PostgresRepository) SaveCheckout(ctx context.Context, id string, handoff CheckoutHandoff) error {
	details := handoff.Details
	if details == nil {
		details = []models.EnrichedMatch{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return apperrors.NewTransactionUpdateFailedError(id, err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET startups_selecionadas = $2, quantidade_selecionada = $3, valor_total = $4,
		    startups_detalhadas = $5, status_pagamento = $6, updated_at = NOW()
		WHERE id = $1`,
		id,
		pq.Array(handoff.SelectedIDs),
		len(handoff.SelectedIDs),
		float64(handoff.TotalCents)/100,
		payload,
		models.PaymentPending,
	)
	return checkUpdated(id, res, err)
}

// HasPaidTransaction reports whether the user already completed a payment.
func (r *PostgresRepository) HasPaidTransaction(ctx context.Context, userID string) (bool, error) {
	var paid bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM transactions
			WHERE user_id = $1 AND status_pagamento = $2
		)`, userID, models.PaymentPaid).Scan(&paid)
	if err != nil {
		return false, fmt.Errorf("check paid transactions: %w", err)
	}
	return paid, nil
}

// RecordRun appends an audit row and returns its id.
func (r *PostgresRepository) RecordRun(ctx context.Context, run MatchingRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO matching_runs (
			id, transaction_id, status, match_count, dropped_count,
			leak_count, llm_latency_ms, error_code, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		run.ID,
		run.TransactionID,
		run.Status,
		run.MatchCount,
		run.DroppedCount,
		run.LeakCount,
		run.LLMLatency.Milliseconds(),
		run.ErrorCode,
	)
	if err != nil {
		return "", fmt.Errorf("insert matching run: %w", err)
	}
	return run.ID, nil
}

func checkUpdated(id string, res sql.Result, err error) error {
	if err != nil {
		return apperrors.NewTransactionUpdateFailedError(id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewTransactionUpdateFailedError(id, err)
	}
	if n == 0 {
		return apperrors.NewTransactionNotFoundError(id)
	}
	return nil
}
