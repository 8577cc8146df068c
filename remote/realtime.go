package remote

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"kinkeeper/config"
)

// changeEvent is the wire envelope for one remote row change.
type changeEvent struct {
	Table  string          `json:"table"`
	Type   string          `json:"type"` // INSERT | UPDATE | DELETE
	Record json.RawMessage `json:"record"`
}

// subscribeFrame is sent once per connection to pick the table to follow.
type subscribeFrame struct {
	Event string `json:"event"`
	Table string `json:"table"`
}

// Realtime follows the remote store's change feed over a websocket. One
// subscription per table; the connection is re-dialed forever on failure
// until the context is cancelled.
type Realtime struct {
	url    string
	apiKey string
	logger *log.Logger
}

func NewRealtime(cfg *config.Config, logger *log.Logger) *Realtime {
	return &Realtime{
		url:    cfg.RealtimeURL,
		apiKey: cfg.RemoteAPIKey,
		logger: logger,
	}
}

// Subscribe starts following changes on table, invoking handler with the
// raw record of every INSERT and UPDATE. It returns immediately; delivery
// runs on a background goroutine until ctx is cancelled. Deletes never
// arrive as DELETE events: the backend only tombstones rows, so deletions
// show up as UPDATE events with deleted=true.
func (r *Realtime) Subscribe(ctx context.Context, table string, handler func(record json.RawMessage)) {
	go r.run(ctx, table, handler)
}

func (r *Realtime) run(ctx context.Context, table string, handler func(record json.RawMessage)) {
	for {
		if ctx.Err() != nil {
			return
		}

		if err := r.follow(ctx, table, handler); err != nil && ctx.Err() == nil {
			if IsNetworkError(err) {
				r.logger.Debug("realtime connection lost", "table", table, "err", err)
			} else {
				r.logger.Error("realtime subscription failed", "table", table, "err", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (r *Realtime) follow(ctx context.Context, table string, handler func(record json.RawMessage)) error {
	conn, _, err := websocket.Dial(ctx, r.url+"?apikey="+r.apiKey, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := wsjson.Write(ctx, conn, subscribeFrame{Event: "subscribe", Table: table}); err != nil {
		return err
	}

	r.logger.Info("realtime subscription active", "table", table)

	for {
		var ev changeEvent
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			return err
		}

		if ev.Table != table {
			continue
		}
		switch ev.Type {
		case "INSERT", "UPDATE":
			handler(ev.Record)
		}
	}
}
