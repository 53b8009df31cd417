package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtlprog/folio/internal/refresh"
)

type mockRefresher struct {
	callCount atomic.Int32
	err       error
}

func (m *mockRefresher) Run(_ context.Context) (*refresh.Report, error) {
	m.callCount.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return &refresh.Report{Updated: []string{"AAPL"}}, nil
}

type mockHook struct {
	callCount atomic.Int32
}

func (m *mockHook) Sheets(_ context.Context) (int, error) {
	m.callCount.Add(1)
	return 1, nil
}

func TestRefreshWorkerRunsAndShutdown(t *testing.T) {
	mock := &mockRefresher{}
	hook := &mockHook{}
	w, err := NewRefreshWorker(mock, "@every 1s", hook)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := mock.callCount.Load(); got < 1 {
		t.Errorf("call count = %d, want >= 1", got)
	}
	if got := hook.callCount.Load(); got != mock.callCount.Load() {
		t.Errorf("hook calls = %d, want one per refresh", got)
	}
}

func TestRefreshWorkerSkipsHookOnFailure(t *testing.T) {
	mock := &mockRefresher{err: errors.New("db down")}
	hook := &mockHook{}
	w, err := NewRefreshWorker(mock, "@daily", hook)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w.runOnce(context.Background())

	if got := hook.callCount.Load(); got != 0 {
		t.Errorf("hook calls = %d, want 0", got)
	}
}

func TestNewRefreshWorkerInvalidSchedule(t *testing.T) {
	if _, err := NewRefreshWorker(&mockRefresher{}, "every now and then", nil); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
