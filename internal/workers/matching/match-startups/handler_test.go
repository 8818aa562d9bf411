package matchstartups

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"startup-match-workers/internal/common/config"
	apperrors "startup-match-workers/internal/common/errors"
	"startup-match-workers/internal/common/events"
	"startup-match-workers/internal/common/logger"
	"startup-match-workers/internal/llm"
	"startup-match-workers/internal/matching"
	"startup-match-workers/internal/models"
	"startup-match-workers/internal/transaction"
)

// ==========================
// Mocks
// ==========================

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Get(ctx context.Context, id string) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockRepository) SaveSuggestions(ctx context.Context, id string, matches []models.EnrichedMatch, insight string, profile models.ClientProfile) error {
	return m.Called(ctx, id, matches, insight, profile).Error(0)
}

func (m *MockRepository) SaveCheckout(ctx context.Context, id string, handoff transaction.CheckoutHandoff) error {
	return m.Called(ctx, id, handoff).Error(0)
}

func (m *MockRepository) HasPaidTransaction(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) RecordRun(ctx context.Context, run transaction.MatchingRun) (string, error) {
	args := m.Called(ctx, run)
	return args.String(0), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type staticSupplier struct {
	startups []models.Startup
}

func (s staticSupplier) ListActiveProviders(context.Context) ([]models.Startup, error) {
	return s.startups, nil
}

// ==========================
// Test Helpers
// ==========================

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func catalog() []models.Startup {
	return []models.Startup{
		{ID: "s-1", Name: "Contaflow", Category: "financeiro", Description: "Conciliação bancária.", Active: true},
		{ID: "s-2", Name: "Vendi", Category: "vendas", Description: "CRM enxuto.", Active: true},
	}
}

const answer = `{
  "matches": [{
    "startup_id": "s-1",
    "match_percentage": 82,
    "resumo_personalizado": "Esta solução automatiza a conciliação.",
    "pontos_fortes": ["a", "b", "c"],
    "como_resolve": "A plataforma importa o extrato.",
    "beneficios_tangiveis": ["x", "y"],
    "implementacao_estimada": "imediato"
  }],
  "insight_geral": "Foque no financeiro."
}`

type fixture struct {
	handler   *Handler
	repo      *MockRepository
	publisher *recordingPublisher
	invoker   *llm.FakeInvoker
	redis     *miniredis.Miniredis
}

func newFixture(t *testing.T, invoker *llm.FakeInvoker, startups []models.Startup) *fixture {
	mr, rdb := setupRedis(t)
	repo := &MockRepository{}
	pub := &recordingPublisher{}
	log := logger.NewTestLogger(t)

	h := NewHandler(DefaultConfig(), Dependencies{
		Matcher:    matching.NewMatcher(staticSupplier{startups: startups}, invoker, matching.LeakModeFlag, log),
		Repository: repo,
		Redis:      rdb,
		Publisher:  pub,
		Logger:     log,
	})
	return &fixture{handler: h, repo: repo, publisher: pub, invoker: invoker, redis: mr}
}

func failedRun(code apperrors.ErrorCode) interface{} {
	return mock.MatchedBy(func(r transaction.MatchingRun) bool {
		return r.Status == "failed" && r.ErrorCode == string(code) && r.TransactionID != ""
	})
}

func pendingTransaction() *models.Transaction {
	return &models.Transaction{
		ID:               "tx-1",
		UserID:           "u-1",
		ProblemaRelatado: "Perco horas conciliando extratos",
		PerfilCliente:    models.ProfileSME,
		StatusPagamento:  models.PaymentPending,
	}
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "startup-search",
		ElementId:          "Activity_MatchStartups",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

// ==========================
// Tests
// ==========================

func TestNewConfig(t *testing.T) {
	appCfg := &config.Config{
		Workers:  map[string]config.WorkerConfig{TaskType: {Enabled: true, Timeout: 90000}},
		Matching: config.MatchingConfig{NameLeakMode: "redact", LockTTL: 120000},
	}

	cfg, err := NewConfig(appCfg)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.LockTTL)
	assert.Equal(t, matching.LeakModeRedact, cfg.LeakMode)

	appCfg.Matching.LockTTL = 60000
	_, err = NewConfig(appCfg)
	assert.ErrorContains(t, err, "lock_ttl")

	appCfg.Matching.LockTTL = 120000
	appCfg.Matching.NameLeakMode = "shout"
	_, err = NewConfig(appCfg)
	assert.Error(t, err)
}

func TestDefaultConfig_LockOutlivesJobTimeout(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	mr, rdb := setupRedis(t)
	_, err := acquireLock(context.Background(), rdb, "tx-1", cfg.LockTTL)
	require.NoError(t, err)

	// The job is abandoned by Zeebe at Timeout; the lock must still be held then.
	mr.FastForward(cfg.Timeout)
	_, err = acquireLock(context.Background(), rdb, "tx-1", cfg.LockTTL)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMatchingInProgress))
}

func TestParseInput(t *testing.T) {
	f := newFixture(t, llm.NewFakeJSONInvoker(answer), catalog())

	input, err := f.handler.parseInput(createMockJob(1, map[string]interface{}{
		"transactionId": "tx-1",
		"problema":      "vendas caindo",
		"perfilCliente": "pessoa_fisica",
		"filtros":       map[string]interface{}{"categorias": []string{"vendas"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, "tx-1", input.TransactionID)
	assert.Equal(t, []string{"vendas"}, input.Filtros.Categories)

	_, err = f.handler.parseInput(createMockJob(2, map[string]interface{}{"problema": "x"}))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

	_, err = f.handler.parseInput(createMockJob(3, map[string]interface{}{"transactionId": "tx-1", "perfilCliente": "empresa"}))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}

func TestExecute_Matched(t *testing.T) {
	f := newFixture(t, llm.NewFakeJSONInvoker(answer), catalog())
	f.repo.On("Get", mock.Anything, "tx-1").Return(pendingTransaction(), nil)
	f.repo.On("SaveSuggestions", mock.Anything, "tx-1",
		mock.MatchedBy(func(m []models.EnrichedMatch) bool {
			return len(m) == 1 && m[0].StartupID == "s-1" && m[0].Nome == "Contaflow"
		}), "Foque no financeiro.", models.ProfileSME).Return(nil)
	f.repo.On("RecordRun", mock.Anything, mock.MatchedBy(func(r transaction.MatchingRun) bool {
		return r.Status == matching.StatusMatched && r.MatchCount == 1
	})).Return("run-1", nil)

	out, err := f.handler.Execute(context.Background(), &Input{TransactionID: "tx-1"})
	require.NoError(t, err)

	assert.Equal(t, matching.StatusMatched, out.Status)
	assert.Equal(t, 1, out.MatchCount)
	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, []string{events.MatchingStarted, events.MatchingCompleted}, f.publisher.types())
	assert.Contains(t, f.invoker.Requests[0].Prompt, "Perco horas conciliando extratos")
	assert.False(t, f.redis.Exists(lockKey("tx-1")), "lock is released")
	f.repo.AssertExpectations(t)
}

func TestExecute_NoMatch(t *testing.T) {
	f := newFixture(t, llm.NewFakeJSONInvoker(`{"matches":[],"insight_geral":"nada"}`), catalog())
	f.repo.On("Get", mock.Anything, "tx-1").Return(pendingTransaction(), nil)
	f.repo.On("SaveSuggestions", mock.Anything, "tx-1", []models.EnrichedMatch{}, "nada", models.ProfileIndividual).Return(nil)
	f.repo.On("RecordRun", mock.Anything, mock.Anything).Return("run-2", nil)

	out, err := f.handler.Execute(context.Background(), &Input{
		TransactionID: "tx-1",
		Problema:      "quero vender mais",
		PerfilCliente: "pessoa_fisica",
	})
	require.NoError(t, err)
	assert.Equal(t, matching.StatusNoMatch, out.Status)
	assert.Zero(t, out.MatchCount)
	assert.Equal(t, []string{events.MatchingStarted, events.MatchingNoMatch}, f.publisher.types())
	f.repo.AssertExpectations(t)
}

func TestExecute_EmptyCatalog(t *testing.T) {
	invoker := llm.NewFakeJSONInvoker(answer)
	f := newFixture(t, invoker, nil)
	f.repo.On("Get", mock.Anything, "tx-1").Return(pendingTransaction(), nil)
	f.repo.On("RecordRun", mock.Anything, mock.MatchedBy(func(r transaction.MatchingRun) bool {
		return r.ErrorCode == string(apperrors.ErrCodeNoProvidersAvailable)
	})).Return("", fmt.Errorf("audit down"))

	_, err := f.handler.Execute(context.Background(), &Input{TransactionID: "tx-1"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNoProvidersAvailable))
	assert.Zero(t, invoker.Calls())
	assert.Equal(t, []string{events.MatchingStarted, events.MatchingFailed}, f.publisher.types())
	f.repo.AssertNotCalled(t, "SaveSuggestions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_MatchingInProgress(t *testing.T) {
	f := newFixture(t, llm.NewFakeJSONInvoker(answer), catalog())
	f.repo.On("Get", mock.Anything, "tx-1").Return(pendingTransaction(), nil)
	f.repo.On("RecordRun", mock.Anything, failedRun(apperrors.ErrCodeMatchingInProgress)).Return("run-4", nil)
	require.NoError(t, f.redis.Set(lockKey("tx-1"), "other-run"))

	_, err := f.handler.Execute(context.Background(), &Input{TransactionID: "tx-1"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMatchingInProgress))
	assert.Zero(t, f.invoker.Calls())
	assert.Empty(t, f.publisher.types(), "the running match owns the session's events")
	f.repo.AssertExpectations(t)

	val, _ := f.redis.Get(lockKey("tx-1"))
	assert.Equal(t, "other-run", val, "foreign lock is untouched")
}

func TestExecute_TransactionNotFound(t *testing.T) {
	f := newFixture(t, llm.NewFakeJSONInvoker(answer), catalog())
	f.repo.On("Get", mock.Anything, "tx-x").Return(nil, apperrors.NewTransactionNotFoundError("tx-x"))
	f.repo.On("RecordRun", mock.Anything, failedRun(apperrors.ErrCodeTransactionNotFound)).Return("run-5", nil)

	_, err := f.handler.Execute(context.Background(), &Input{TransactionID: "tx-x"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTransactionNotFound))
	assert.Zero(t, f.invoker.Calls())
	assert.Equal(t, []string{events.MatchingFailed}, f.publisher.types())
	f.repo.AssertExpectations(t)
}

func TestExecute_EmptyProblem(t *testing.T) {
	f := newFixture(t, llm.NewFakeJSONInvoker(answer), catalog())
	tx := pendingTransaction()
	tx.ProblemaRelatado = "  "
	f.repo.On("Get", mock.Anything, "tx-1").Return(tx, nil)
	f.repo.On("RecordRun", mock.Anything, failedRun(apperrors.ErrCodeInvalidInput)).Return("run-6", nil)

	_, err := f.handler.Execute(context.Background(), &Input{TransactionID: "tx-1"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
	f.repo.AssertExpectations(t)
}

func TestExecute_PublisherOutageDoesNotFail(t *testing.T) {
	f := newFixture(t, llm.NewFakeJSONInvoker(answer), catalog())
	f.publisher.err = fmt.Errorf("broker unreachable")
	f.repo.On("Get", mock.Anything, "tx-1").Return(pendingTransaction(), nil)
	f.repo.On("SaveSuggestions", mock.Anything, "tx-1", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.repo.On("RecordRun", mock.Anything, mock.Anything).Return("run-3", nil)

	out, err := f.handler.Execute(context.Background(), &Input{TransactionID: "tx-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.MatchCount)
}

func TestExecute_SaveFailure(t *testing.T) {
	f := newFixture(t, llm.NewFakeJSONInvoker(answer), catalog())
	f.repo.On("Get", mock.Anything, "tx-1").Return(pendingTransaction(), nil)
	f.repo.On("SaveSuggestions", mock.Anything, "tx-1", mock.Anything, mock.Anything, mock.Anything).
		Return(apperrors.NewTransactionUpdateFailedError("tx-1", fmt.Errorf("deadlock")))
	f.repo.On("RecordRun", mock.Anything, failedRun(apperrors.ErrCodeTransactionUpdateFailed)).Return("run-7", nil)

	_, err := f.handler.Execute(context.Background(), &Input{TransactionID: "tx-1"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTransactionUpdateFailed))
	assert.False(t, f.redis.Exists(lockKey("tx-1")))
	assert.Equal(t, []string{events.MatchingStarted, events.MatchingFailed}, f.publisher.types())
	f.repo.AssertExpectations(t)
}

func TestExecute_RedisOutageIsRetryable(t *testing.T) {
	f := newFixture(t, llm.NewFakeJSONInvoker(answer), catalog())
	f.repo.On("Get", mock.Anything, "tx-1").Return(pendingTransaction(), nil)
	f.repo.On("RecordRun", mock.Anything, failedRun(apperrors.ErrCodeCacheUnavailable)).Return("run-8", nil)
	f.redis.Close()

	_, err := f.handler.Execute(context.Background(), &Input{TransactionID: "tx-1"})
	require.True(t, apperrors.HasCode(err, apperrors.ErrCodeCacheUnavailable))

	stdErr := apperrors.AsStandardError(err)
	assert.True(t, stdErr.Retryable)
	assert.Positive(t, apperrors.ConvertToBPMNError(stdErr).Retries)
	assert.Zero(t, f.invoker.Calls())
	assert.Equal(t, []string{events.MatchingFailed}, f.publisher.types())
	f.repo.AssertExpectations(t)
}

func TestExecute_TransactionLoadFailureIsRetryable(t *testing.T) {
	f := newFixture(t, llm.NewFakeJSONInvoker(answer), catalog())
	f.repo.On("Get", mock.Anything, "tx-1").
		Return(nil, apperrors.NewTransactionLoadFailedError("tx-1", fmt.Errorf("driver: bad connection")))
	f.repo.On("RecordRun", mock.Anything, failedRun(apperrors.ErrCodeTransactionLoadFailed)).Return("run-9", nil)

	_, err := f.handler.Execute(context.Background(), &Input{TransactionID: "tx-1"})
	require.True(t, apperrors.HasCode(err, apperrors.ErrCodeTransactionLoadFailed))
	assert.True(t, apperrors.AsStandardError(err).Retryable)
	f.repo.AssertExpectations(t)
}
