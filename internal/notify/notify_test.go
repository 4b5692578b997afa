package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
)

func testNotification() domain.Notification {
	return domain.Notification{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Kind:      domain.NotificationKindPurchase,
		Payload:   json.RawMessage(`{"title":"Jollof"}`),
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type flakySink struct {
	mu        sync.Mutex
	failFirst int
	calls     int
	delivered []domain.Notification
}

func (s *flakySink) Send(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failFirst {
		return errors.New("sink unavailable")
	}
	s.delivered = append(s.delivered, n)
	return nil
}

func (s *flakySink) snapshot() (int, []domain.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, append([]domain.Notification(nil), s.delivered...)
}

func TestDispatcher_RetriesUntilDelivered(t *testing.T) {
	sink := &flakySink{failFirst: 2}
	d := NewDispatcher(sink, discardLogger(), DispatcherConfig{
		Buffer:          4,
		MaxElapsed:      5 * time.Second,
		InitialInterval: time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Start(ctx)

	n := testNotification()
	require.NoError(t, d.Enqueue(ctx, n))

	require.Eventually(t, func() bool {
		_, delivered := sink.snapshot()
		return len(delivered) == 1
	}, 2*time.Second, 5*time.Millisecond)

	calls, delivered := sink.snapshot()
	assert.Equal(t, 3, calls)
	assert.Equal(t, n.ID, delivered[0].ID)
}

type sinkFunc func(ctx context.Context, n domain.Notification) error

func (f sinkFunc) Send(ctx context.Context, n domain.Notification) error { return f(ctx, n) }

func TestDispatcher_GivesUpAfterMaxElapsed(t *testing.T) {
	poisoned := testNotification()
	healthy := testNotification()

	var poisonedCalls atomic.Int32
	var delivered atomic.Bool
	sink := sinkFunc(func(_ context.Context, n domain.Notification) error {
		if n.ID == poisoned.ID {
			poisonedCalls.Add(1)
			return errors.New("rejected")
		}
		delivered.Store(true)
		return nil
	})

	d := NewDispatcher(sink, discardLogger(), DispatcherConfig{
		Buffer:          4,
		MaxElapsed:      50 * time.Millisecond,
		InitialInterval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Start(ctx)

	require.NoError(t, d.Enqueue(ctx, poisoned))
	require.NoError(t, d.Enqueue(ctx, healthy))

	require.Eventually(t, delivered.Load, 2*time.Second, 5*time.Millisecond)
	assert.Greater(t, poisonedCalls.Load(), int32(1))
}

func TestDispatcher_StuckDeliveryDoesNotStallQueue(t *testing.T) {
	stuck := testNotification()
	release := make(chan struct{})

	var mu sync.Mutex
	var delivered []uuid.UUID
	sink := sinkFunc(func(ctx context.Context, n domain.Notification) error {
		if n.ID == stuck.ID {
			select {
			case <-release:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		mu.Lock()
		delivered = append(delivered, n.ID)
		mu.Unlock()
		return nil
	})

	d := NewDispatcher(sink, discardLogger(), DispatcherConfig{
		Buffer:          8,
		Workers:         2,
		MaxElapsed:      time.Minute,
		InitialInterval: time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Start(ctx)
	}()

	require.NoError(t, d.Enqueue(ctx, stuck))
	var others []uuid.UUID
	for range 3 {
		n := testNotification()
		others = append(others, n.ID)
		require.NoError(t, d.Enqueue(ctx, n))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == len(others)
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.ElementsMatch(t, others, delivered)
	mu.Unlock()

	close(release)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == len(others)+1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}

func TestDispatcher_EnqueueDoesNotBlock(t *testing.T) {
	d := NewDispatcher(&flakySink{}, discardLogger(), DispatcherConfig{Buffer: 1})

	require.NoError(t, d.Enqueue(context.Background(), testNotification()))
	err := d.Enqueue(context.Background(), testNotification())
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestRedisSink_Send(t *testing.T) {
	client, mock := redismock.NewClientMock()
	sink := NewRedisSink(client, "wallet:notifications")
	n := testNotification()

	data, err := json.Marshal(n)
	require.NoError(t, err)

	mock.ExpectRPush("wallet:notifications", string(data)).SetVal(1)
	require.NoError(t, sink.Send(context.Background(), n))

	mock.ExpectRPush("wallet:notifications", string(data)).SetErr(errors.New("connection refused"))
	assert.Error(t, sink.Send(context.Background(), n))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHTTPSink_Send(t *testing.T) {
	var hits atomic.Int32
	var got domain.Notification

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := testNotification()
	require.NoError(t, NewHTTPSink(srv.URL).Send(context.Background(), n))
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, n.AccountID, got.AccountID)
}

func TestHTTPSink_ClientErrorIsPermanent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	d := NewDispatcher(NewHTTPSink(srv.URL), discardLogger(), DispatcherConfig{
		Buffer:          1,
		MaxElapsed:      time.Second,
		InitialInterval: time.Millisecond,
	})
	d.deliver(context.Background(), testNotification())

	assert.Equal(t, int32(1), hits.Load())
}

func TestHTTPSink_ServerErrorIsRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(NewHTTPSink(srv.URL), discardLogger(), DispatcherConfig{
		Buffer:          1,
		MaxElapsed:      2 * time.Second,
		InitialInterval: time.Millisecond,
	})
	d.deliver(context.Background(), testNotification())

	assert.Equal(t, int32(3), hits.Load())
}

func TestLogSink_Send(t *testing.T) {
	assert.NoError(t, NewLogSink(discardLogger()).Send(context.Background(), testNotification()))
}
