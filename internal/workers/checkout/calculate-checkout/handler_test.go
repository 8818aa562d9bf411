package calculatecheckout

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startup-match-workers/internal/common/config"
	apperrors "startup-match-workers/internal/common/errors"
	"startup-match-workers/internal/common/logger"
	"startup-match-workers/internal/models"
	"startup-match-workers/internal/transaction"
)

type fakeNotifier struct {
	eventType string
	payload   interface{}
	err       error
}

func (n *fakeNotifier) PublishJSON(_ context.Context, eventType string, payload interface{}) (string, error) {
	n.eventType = eventType
	n.payload = payload
	if n.err != nil {
		return "", n.err
	}
	return "msg-1", nil
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func suggestions(n int) []models.EnrichedMatch {
	out := make([]models.EnrichedMatch, n)
	for i := range out {
		out[i] = models.EnrichedMatch{StartupID: fmt.Sprintf("s-%d", i+1), MatchPercentage: 90 - i}
	}
	return out
}

func expectTransaction(mock sqlmock.Sqlmock, status string, suggested []models.EnrichedMatch) {
	body, _ := json.Marshal(suggested)
	now := time.Now()
	mock.ExpectQuery("FROM transactions").
		WithArgs("tx-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "problema_relatado", "perfil_cliente", "startups_sugeridas", "insight_gerado",
			"startups_selecionadas", "quantidade_selecionada", "valor_total", "startups_detalhadas",
			"status_pagamento", "created_at", "updated_at",
		}).AddRow("tx-1", "u-1", "p", "pme", body, "", "{}", 0, 0.0, []byte("[]"), status, now, now))
}

func expectPaid(mock sqlmock.Sqlmock, paid bool) {
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("u-1", models.PaymentPaid).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(paid))
}

func newHandler(t *testing.T, db *sql.DB, notifier Notifier) *Handler {
	return NewHandler(DefaultConfig(), transaction.NewPostgresRepository(db), notifier, logger.NewTestLogger(t))
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(&config.Config{
		Pricing: config.PricingConfig{UnitPriceCents: 700, BundleDiscountCents: 400, BundleSize: 5, MaxSelection: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(700), cfg.UnitPriceCents)
	assert.Equal(t, int64(400), cfg.Rules.BundleDiscountCents)

	_, err = NewConfig(&config.Config{Pricing: config.PricingConfig{MaxSelection: 9}})
	assert.Error(t, err)
}

func TestExecute_PricingScenarios(t *testing.T) {
	tests := []struct {
		name      string
		selected  int
		paidUser  bool
		wantTotal float64
	}{
		{"five items returning user", 5, true, 22.00},
		{"one item new user", 1, false, 0.00},
		{"three items new user", 3, false, 10.00},
		{"five items new user", 5, false, 17.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			notifier := &fakeNotifier{}
			h := newHandler(t, db, notifier)

			ids := make([]string, tt.selected)
			for i := range ids {
				ids[i] = fmt.Sprintf("s-%d", i+1)
			}

			expectTransaction(mock, models.PaymentPending, suggestions(5))
			expectPaid(mock, tt.paidUser)
			mock.ExpectExec("UPDATE transactions").
				WithArgs("tx-1", sqlmock.AnyArg(), tt.selected, tt.wantTotal, sqlmock.AnyArg(), models.PaymentPending).
				WillReturnResult(sqlmock.NewResult(0, 1))

			out, err := h.Execute(context.Background(), &Input{TransactionID: "tx-1", SelectedIDs: ids})
			require.NoError(t, err)
			assert.InDelta(t, tt.wantTotal, out.ValorTotal, 0.0001)
			assert.Equal(t, tt.selected, out.QuantidadeSelecionada)
			assert.Equal(t, !tt.paidUser, out.PrimeiraCompra)
			assert.Equal(t, "msg-1", out.NotificationID)
			assert.Equal(t, CheckoutReadyEvent, notifier.eventType)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestExecute_SelectionNormalised(t *testing.T) {
	db, mock := setupMockDB(t)
	h := newHandler(t, db, nil)

	expectTransaction(mock, models.PaymentPending, suggestions(6))
	expectPaid(mock, true)
	mock.ExpectExec("UPDATE transactions").
		WithArgs("tx-1", sqlmock.AnyArg(), 5, 22.0, sqlmock.AnyArg(), models.PaymentPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), &Input{
		TransactionID: "tx-1",
		SelectedIDs:   []string{"s-2", "s-2", "s-1", "s-3", "s-4", "s-5", "s-6"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s-2", "s-1", "s-3", "s-4", "s-5"}, out.StartupsSelecionadas)
	assert.Empty(t, out.NotificationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_UnknownSelection(t *testing.T) {
	db, mock := setupMockDB(t)
	h := newHandler(t, db, nil)
	expectTransaction(mock, models.PaymentPending, suggestions(2))

	_, err := h.Execute(context.Background(), &Input{TransactionID: "tx-1", SelectedIDs: []string{"s-1", "s-99"}})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSelectionInvalid))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_DatabaseDownIsRetryable(t *testing.T) {
	db, mock := setupMockDB(t)
	h := newHandler(t, db, nil)
	mock.ExpectQuery("FROM transactions").WithArgs("tx-1").WillReturnError(fmt.Errorf("driver: bad connection"))

	_, err := h.Execute(context.Background(), &Input{TransactionID: "tx-1", SelectedIDs: []string{"s-1"}})
	require.True(t, apperrors.HasCode(err, apperrors.ErrCodeTransactionLoadFailed))
	assert.True(t, apperrors.AsStandardError(err).Retryable)
}

func TestExecute_CancelledCheckoutCanBeRetried(t *testing.T) {
	db, mock := setupMockDB(t)
	h := newHandler(t, db, nil)

	expectTransaction(mock, models.PaymentCancelled, suggestions(2))
	expectPaid(mock, true)
	mock.ExpectExec("UPDATE transactions").WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), &Input{TransactionID: "tx-1", SelectedIDs: []string{"s-1"}})
	require.NoError(t, err)
	assert.Equal(t, 5.0, out.ValorTotal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_AlreadyPaid(t *testing.T) {
	db, mock := setupMockDB(t)
	h := newHandler(t, db, nil)
	expectTransaction(mock, models.PaymentPaid, suggestions(2))

	_, err := h.Execute(context.Background(), &Input{TransactionID: "tx-1", SelectedIDs: []string{"s-1"}})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}

func TestExecute_NotificationFailureIsRetryable(t *testing.T) {
	db, mock := setupMockDB(t)
	h := newHandler(t, db, &fakeNotifier{err: fmt.Errorf("throttled")})

	expectTransaction(mock, models.PaymentPending, suggestions(2))
	expectPaid(mock, false)
	mock.ExpectExec("UPDATE transactions").WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := h.Execute(context.Background(), &Input{TransactionID: "tx-1", SelectedIDs: []string{"s-1"}})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEventPublishFailed))
	assert.True(t, apperrors.AsStandardError(err).Retryable)
}

func TestParseInput(t *testing.T) {
	h := NewHandler(DefaultConfig(), nil, nil, logger.NewNoOpLogger())

	job := func(vars map[string]interface{}) entities.Job {
		body, _ := json.Marshal(vars)
		return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Type: TaskType, Variables: string(body)}}
	}

	input, err := h.parseInput(job(map[string]interface{}{"transactionId": "tx-1", "selectedIds": []string{"s-1"}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1"}, input.SelectedIDs)

	_, err = h.parseInput(job(map[string]interface{}{"transactionId": "tx-1", "selectedIds": []string{}}))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}
