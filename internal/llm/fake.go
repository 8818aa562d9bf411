package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// FakeInvoker replays scripted results in order; the last one repeats.
// It records every request for assertions in tests and local runs.
type FakeInvoker struct {
	mu        sync.Mutex
	responses []FakeResult
	Requests  []Request
}

type FakeResult struct {
	Body  string
	Err   error
	Delay func(ctx context.Context) error
}

func NewFakeInvoker(results ...FakeResult) *FakeInvoker {
	return &FakeInvoker{responses: results}
}

// NewFakeJSONInvoker always answers with body.
func NewFakeJSONInvoker(body string) *FakeInvoker {
	return NewFakeInvoker(FakeResult{Body: body})
}

func (f *FakeInvoker) Name() string { return "fake" }

func (f *FakeInvoker) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

func (f *FakeInvoker) Invoke(ctx context.Context, req Request) (json.RawMessage, error) {
	f.mu.Lock()
	idx := len(f.Requests)
	f.Requests = append(f.Requests, req)
	var res FakeResult
	if len(f.responses) > 0 {
		if idx >= len(f.responses) {
			idx = len(f.responses) - 1
		}
		res = f.responses[idx]
	}
	f.mu.Unlock()

	if res.Delay != nil {
		if err := res.Delay(ctx); err != nil {
			return nil, err
		}
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return json.RawMessage(res.Body), nil
}
