// Package worker consumes change events and maintains a read replica of the
// entries and settings from them.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"timesplit/internal/amqp"
	"timesplit/internal/core"
	applog "timesplit/internal/log"
)

// ReplicaWorker mirrors entries and settings from change events and
// recomputes the rate split after each one. Events older than the last one
// applied to the same record are ignored, so redelivery is harmless.
type ReplicaWorker struct {
	logger *applog.Logger

	mu       sync.Mutex
	entries  map[string]core.TimeEntry
	order    []string
	seen     map[string]time.Time
	settings core.Settings
	applied  int
	skipped  int
}

// Stats counts what the worker has done so far.
type Stats struct {
	Applied int
	Skipped int
	Entries int
}

// NewReplicaWorker starts from an empty replica with the given base amount.
func NewReplicaWorker(baseAmount float64, logger *applog.Logger) *ReplicaWorker {
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentAMQP, Handler: slog.Default().Handler()})
	}
	return &ReplicaWorker{
		logger:   logger,
		entries:  make(map[string]core.TimeEntry),
		seen:     make(map[string]time.Time),
		settings: core.Settings{BaseAmount: baseAmount},
	}
}

// HandleEvent applies one change event. Events that can never apply are
// reported wrapping amqp.ErrPermanent.
func (w *ReplicaWorker) HandleEvent(ctx context.Context, ev *amqp.ChangeEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := recordKey(ev)
	if last, ok := w.seen[key]; ok && ev.Timestamp.Before(last) {
		w.skipped++
		w.logger.DebugContext(ctx, "Skipping stale change event",
			applog.FieldEventType, ev.Type,
			applog.FieldEntryID, ev.ID)
		return nil
	}

	switch ev.Type {
	case amqp.EntryCreated, amqp.EntryUpdated:
		if ev.Entry == nil {
			return fmt.Errorf("%s event %s without entry: %w", ev.Type, ev.ID, amqp.ErrPermanent)
		}
		if _, exists := w.entries[ev.ID]; !exists {
			w.order = append(w.order, ev.ID)
		}
		w.entries[ev.ID] = *ev.Entry
	case amqp.EntryDeleted:
		if _, exists := w.entries[ev.ID]; exists {
			delete(w.entries, ev.ID)
			w.removeFromOrder(ev.ID)
		}
	case amqp.SettingsUpdated:
		if ev.Settings == nil {
			return fmt.Errorf("settings event without settings: %w", amqp.ErrPermanent)
		}
		w.settings = *ev.Settings
	default:
		return fmt.Errorf("unknown event type %q: %w", ev.Type, amqp.ErrPermanent)
	}

	w.seen[key] = ev.Timestamp
	w.applied++

	sum := w.summaryLocked()
	w.logger.InfoContext(ctx, "Applied change event",
		applog.FieldEventType, ev.Type,
		applog.FieldEntryID, ev.ID,
		applog.FieldTotalMinutes, sum.Totals.TotalMinutes,
		"per_minute_rate", sum.PerMinuteRateDisplay)
	return nil
}

// recordKey names the record an event changes. Entry events share one key
// per id so a late update cannot resurrect a deleted entry.
func recordKey(ev *amqp.ChangeEvent) string {
	if ev.Type == amqp.SettingsUpdated {
		return "settings"
	}
	return "entry:" + ev.ID
}

func (w *ReplicaWorker) removeFromOrder(id string) {
	for i, v := range w.order {
		if v == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			return
		}
	}
}

// Entries returns the replicated entries ordered by date.
func (w *ReplicaWorker) Entries() []core.TimeEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entriesLocked()
}

func (w *ReplicaWorker) entriesLocked() []core.TimeEntry {
	out := make([]core.TimeEntry, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.entries[id])
	}
	core.SortEntries(out)
	return out
}

// Summary computes the rate split over the replica.
func (w *ReplicaWorker) Summary() core.Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.summaryLocked()
}

func (w *ReplicaWorker) summaryLocked() core.Summary {
	return core.Summarize(w.entriesLocked(), w.settings)
}

// Stats returns the worker counters.
func (w *ReplicaWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{Applied: w.applied, Skipped: w.skipped, Entries: len(w.entries)}
}

// Report logs the current replica summary. It is meant to run periodically.
func (w *ReplicaWorker) Report(ctx context.Context) {
	sum := w.Summary()
	stats := w.Stats()
	w.logger.InfoContext(ctx, "Replica summary",
		"entries", sum.EntryCount,
		applog.FieldTotalMinutes, sum.Totals.TotalMinutes,
		applog.FieldBaseAmount, sum.BaseAmount,
		"per_minute_rate", sum.PerMinuteRateDisplay,
		"total_price", sum.TotalPrice,
		"applied", stats.Applied,
		"skipped", stats.Skipped)
}
