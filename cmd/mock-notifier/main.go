package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
	"github.com/josh-kwaku/recipe-wallet/internal/logging"
)

// receiver stands in for the notification service. Redelivered events are
// acknowledged once and ignored afterwards.
type receiver struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (rc *receiver) events(w http.ResponseWriter, r *http.Request) {
	var n domain.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		http.Error(w, "invalid notification", http.StatusBadRequest)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		key = n.ID.String()
	}

	rc.mu.Lock()
	_, dup := rc.seen[key]
	rc.seen[key] = struct{}{}
	rc.mu.Unlock()

	if dup {
		slog.Info("duplicate notification ignored", "notification_id", n.ID)
	} else {
		slog.Info("notification received",
			"notification_id", n.ID,
			"account_id", n.AccountID,
			"kind", n.Kind,
			"payload", string(n.Payload),
		)
	}
	w.WriteHeader(http.StatusAccepted)
}

func main() {
	logging.Init("mock-notifier", "info", os.Getenv("APP_ENV"))

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8081"
	}

	rc := &receiver{seen: make(map[string]struct{})}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
			slog.Error("failed to write health response", "error", err)
		}
	})
	r.Post("/events", rc.events)

	slog.Info("mock notifier started", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
