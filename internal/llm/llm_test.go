package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "startup-match-workers/internal/common/errors"
	"startup-match-workers/internal/common/logger"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newRetrying(t *testing.T, next Invoker, attempts int, timeout time.Duration) *Retrying {
	r := WithRetry(next, RetryConfig{
		MaxAttempts:    attempts,
		BaseDelay:      10 * time.Millisecond,
		MaxDelay:       40 * time.Millisecond,
		AttemptTimeout: timeout,
	}, logger.NewTestLogger(t))
	r.sleep = noSleep
	return r
}

func TestCleanJSON(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"":                        "",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanJSON(in))
	}
}

func TestRetrying_SucceedsAfterTransientFailure(t *testing.T) {
	fake := NewFakeInvoker(
		FakeResult{Err: errors.New("503 unavailable")},
		FakeResult{Body: `{"matches":[],"insight_geral":"x"}`},
	)
	r := newRetrying(t, fake, 3, time.Second)

	raw, err := r.Invoke(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"matches":[],"insight_geral":"x"}`, string(raw))
	assert.Equal(t, 2, fake.Calls())
}

func TestRetrying_ExhaustedIsInvocationFailure(t *testing.T) {
	fake := NewFakeInvoker(FakeResult{Err: errors.New("connection reset")})
	r := newRetrying(t, fake, 3, time.Second)

	_, err := r.Invoke(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMInvocationFailed))
	assert.Equal(t, 3, fake.Calls())
}

func TestRetrying_PermanentErrorStops(t *testing.T) {
	fake := NewFakeInvoker(FakeResult{Err: Permanent(errors.New("status 401"))})
	r := newRetrying(t, fake, 5, time.Second)

	_, err := r.Invoke(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMInvocationFailed))
	assert.Equal(t, 1, fake.Calls())
}

func TestRetrying_AttemptTimeout(t *testing.T) {
	block := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	fake := NewFakeInvoker(FakeResult{Delay: block})
	r := newRetrying(t, fake, 2, 20*time.Millisecond)

	_, err := r.Invoke(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMTimeout))
	assert.Equal(t, 2, fake.Calls())
}

func TestRetrying_TimeoutThenSuccess(t *testing.T) {
	block := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	fake := NewFakeInvoker(FakeResult{Delay: block}, FakeResult{Body: `{}`})
	r := newRetrying(t, fake, 2, 20*time.Millisecond)

	raw, err := r.Invoke(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(raw))
}

func TestRetrying_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := NewFakeInvoker(FakeResult{Delay: func(context.Context) error {
		cancel()
		return errors.New("aborted")
	}})
	r := newRetrying(t, fake, 3, time.Second)

	_, err := r.Invoke(ctx, Request{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMTimeout))
	assert.Equal(t, 1, fake.Calls())
}

func TestRetrying_Backoff(t *testing.T) {
	r := newRetrying(t, NewFakeJSONInvoker(`{}`), 5, time.Second)
	assert.Equal(t, 10*time.Millisecond, r.backoff(1))
	assert.Equal(t, 20*time.Millisecond, r.backoff(2))
	assert.Equal(t, 40*time.Millisecond, r.backoff(3))
	assert.Equal(t, 40*time.Millisecond, r.backoff(4))
}

func TestHTTPInvoker_Invoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body gatewayRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "find a CRM", body.Prompt)
		assert.Equal(t, "json", body.ResponseFormat)
		assert.Equal(t, "object", body.ResponseSchema["type"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"text": "```json\n{\"matches\":[],\"insight_geral\":\"ok\"}\n```",
		})
	}))
	defer srv.Close()

	inv := NewHTTPInvoker(srv.URL, "secret", "gemini-2.5-flash", 0.4)
	raw, err := inv.Invoke(context.Background(), Request{
		Prompt: "find a CRM",
		Schema: map[string]interface{}{"type": "object"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"matches":[],"insight_geral":"ok"}`, string(raw))
}

func TestHTTPInvoker_StatusClassification(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusBadRequest)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	defer srv.Close()

	inv := NewHTTPInvoker(srv.URL, "", "m", 0)

	_, err := inv.Invoke(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))

	status.Store(http.StatusServiceUnavailable)
	_, err = inv.Invoke(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.False(t, IsPermanent(err))

	status.Store(http.StatusTooManyRequests)
	_, err = inv.Invoke(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

func TestHTTPInvoker_EmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":"  "}`))
	}))
	defer srv.Close()

	_, err := NewHTTPInvoker(srv.URL, "", "m", 0).Invoke(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestRetrying_RejectedAnswerIsRetried(t *testing.T) {
	fake := NewFakeInvoker(FakeResult{Body: `{"bad":true}`}, FakeResult{Body: `{"good":true}`})
	r := newRetrying(t, fake, 3, time.Second)

	validate := func(raw json.RawMessage) error {
		if string(raw) != `{"good":true}` {
			return apperrors.NewLLMResponseInvalidError("missing good")
		}
		return nil
	}

	raw, err := r.Invoke(context.Background(), Request{Prompt: "p", Validate: validate})
	require.NoError(t, err)
	assert.Equal(t, `{"good":true}`, string(raw))
	assert.Equal(t, 2, fake.Calls())
}

func TestRetrying_RejectedEveryTimeSurfacesValidatorError(t *testing.T) {
	fake := NewFakeJSONInvoker(`{"bad":true}`)
	r := newRetrying(t, fake, 2, time.Second)

	validate := func(json.RawMessage) error {
		return apperrors.NewLLMResponseInvalidError("missing good")
	}

	_, err := r.Invoke(context.Background(), Request{Prompt: "p", Validate: validate})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMResponseInvalid))
	assert.Equal(t, 2, fake.Calls())
}
