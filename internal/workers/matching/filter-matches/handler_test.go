package filtermatches

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "startup-match-workers/internal/common/errors"
	"startup-match-workers/internal/common/logger"
	"startup-match-workers/internal/matching"
	"startup-match-workers/internal/models"
	"startup-match-workers/internal/transaction"
)

func sampleMatches() []models.EnrichedMatch {
	return []models.EnrichedMatch{
		{StartupID: "a", Categoria: "financeiro", MatchPercentage: 92},
		{StartupID: "b", Categoria: "vendas", MatchPercentage: 71},
		{StartupID: "c", Categoria: "financeiro", MatchPercentage: 58},
	}
}

func createMockJob(variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       7,
		Type:      TaskType,
		Retries:   3,
		Variables: string(variablesJSON),
	}}
}

func TestExecute_GivenMatches(t *testing.T) {
	h := NewHandler(NewConfig(nil), nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{
		Matches:     sampleMatches(),
		FilterState: matching.FilterState{Categories: []string{"financeiro"}, MatchMinimo: 60},
	})
	require.NoError(t, err)
	require.Len(t, out.Matches, 1)
	assert.Equal(t, "a", out.Matches[0].StartupID)
	assert.Equal(t, 1, out.VisibleCount)
	assert.Equal(t, 3, out.TotalCount)
}

func TestExecute_FromTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	suggested, _ := json.Marshal(sampleMatches())
	mock.ExpectQuery("FROM transactions").
		WithArgs("tx-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "problema_relatado", "perfil_cliente", "startups_sugeridas", "insight_gerado",
			"startups_selecionadas", "quantidade_selecionada", "valor_total", "startups_detalhadas",
			"status_pagamento", "created_at", "updated_at",
		}).AddRow("tx-1", "u-1", "p", "pme", suggested, "", "{}", 0, 0.0, []byte("[]"), "pendente", time.Now(), time.Now()))

	h := NewHandler(NewConfig(nil), transaction.NewPostgresRepository(db), logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{
		TransactionID: "tx-1",
		FilterState:   matching.FilterState{MatchMinimo: 70},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.VisibleCount)
	assert.Equal(t, 3, out.TotalCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_DatabaseDownIsRetryable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("FROM transactions").WithArgs("tx-1").WillReturnError(fmt.Errorf("driver: bad connection"))

	h := NewHandler(NewConfig(nil), transaction.NewPostgresRepository(db), logger.NewNoOpLogger())

	_, err = h.Execute(context.Background(), &Input{TransactionID: "tx-1"})
	require.True(t, apperrors.HasCode(err, apperrors.ErrCodeTransactionLoadFailed))
	assert.True(t, apperrors.AsStandardError(err).Retryable)
}

func TestExecute_InvalidFilter(t *testing.T) {
	h := NewHandler(NewConfig(nil), nil, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), &Input{
		Matches:     sampleMatches(),
		FilterState: matching.FilterState{MatchMinimo: 42},
	})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

	_, err = h.Execute(context.Background(), &Input{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

	_, err = h.Execute(context.Background(), &Input{
		Matches:     sampleMatches(),
		FilterState: matching.FilterState{Categories: []string{"cripto"}},
	})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}

func TestExecute_NoFilterKeepsEverything(t *testing.T) {
	h := NewHandler(NewConfig(nil), nil, logger.NewNoOpLogger())

	out, err := h.Execute(context.Background(), &Input{Matches: sampleMatches()})
	require.NoError(t, err)
	assert.Equal(t, 3, out.VisibleCount)
	assert.Equal(t, 3, out.TotalCount)
}

func TestRun_ValidatesVariables(t *testing.T) {
	h := NewHandler(NewConfig(nil), nil, logger.NewNoOpLogger())

	out, err := h.run(context.Background(), createMockJob(map[string]interface{}{
		"matches":     sampleMatches(),
		"filterState": map[string]interface{}{"match_minimo": 90},
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, out.VisibleCount)

	_, err = h.run(context.Background(), createMockJob(map[string]interface{}{
		"filterState": map[string]interface{}{"match_minimo": 90},
	}))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

	_, err = h.run(context.Background(), createMockJob(map[string]interface{}{
		"matches":     sampleMatches(),
		"filterState": map[string]interface{}{"match_minimo": 33},
	}))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}
