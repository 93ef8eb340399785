package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"timesplit/internal/amqp"
	"timesplit/internal/cache"
	"timesplit/internal/core"
	applog "timesplit/internal/log"
	"timesplit/internal/store"
)

const (
	summaryKey        = "summary"
	defaultSummaryTTL = time.Minute
)

// Publisher delivers change events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, ev *amqp.ChangeEvent) error
	Close() error
}

// Stats counts event deliveries and summary cache effectiveness.
type Stats struct {
	EventsPublished uint64
	EventsFailed    uint64
	SummaryCache    cache.Stats
}

// EntryService orchestrates repository mutations, change events and the
// cached summary. A nil publisher disables events.
type EntryService struct {
	repo      store.Repository
	publisher Publisher
	logger    *applog.Logger
	events    *applog.StructuredLogger

	summaries  *cache.LRUCache[core.Summary]
	group      singleflight.Group
	generation atomic.Uint64

	published atomic.Uint64
	failed    atomic.Uint64
}

// Option configures an EntryService.
type Option func(*EntryService)

// WithPublisher sends a change event after every successful mutation.
func WithPublisher(p Publisher) Option {
	return func(s *EntryService) { s.publisher = p }
}

// WithSummaryTTL bounds how long a computed summary is served from cache.
func WithSummaryTTL(ttl time.Duration) Option {
	return func(s *EntryService) {
		if ttl > 0 {
			s.summaries = cache.NewLRUCache[core.Summary](1, ttl)
		}
	}
}

// WithLogger replaces the default slog-backed logger.
func WithLogger(l *applog.Logger) Option {
	return func(s *EntryService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewEntryService(repo store.Repository, opts ...Option) *EntryService {
	s := &EntryService{
		repo:      repo,
		summaries: cache.NewLRUCache[core.Summary](1, defaultSummaryTTL),
		logger: applog.New(applog.Config{
			Component: applog.ComponentEntries,
			Handler:   slog.Default().Handler(),
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = applog.NewStructuredLogger(s.logger)
	return s
}

// SummaryCache exposes the cache so a cache.Manager can sweep it.
func (s *EntryService) SummaryCache() *cache.LRUCache[core.Summary] {
	return s.summaries
}

// ListEntries returns every entry ordered by date.
func (s *EntryService) ListEntries(ctx context.Context) ([]core.TimeEntry, error) {
	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// CreateEntry stores a new entry and announces it.
func (s *EntryService) CreateEntry(ctx context.Context, n core.NewEntry) (core.TimeEntry, error) {
	e, err := s.repo.CreateEntry(ctx, n)
	if err != nil {
		return core.TimeEntry{}, fmt.Errorf("create entry: %w", err)
	}
	s.invalidate()
	s.events.LogEntryChanged(ctx, applog.OpCreate, e.ID, e.Date, e.TotalMinutes)
	s.publish(ctx, amqp.NewEntryEvent(amqp.EntryCreated, e))
	return e, nil
}

// UpdateEntry merges p into the entry with the given id. found is false when
// no such entry exists; nothing is created in that case.
func (s *EntryService) UpdateEntry(ctx context.Context, id string, p core.EntryPatch) (core.TimeEntry, bool, error) {
	e, found, err := s.repo.UpdateEntry(ctx, id, p)
	if err != nil {
		return core.TimeEntry{}, false, fmt.Errorf("update entry %s: %w", id, err)
	}
	if !found {
		return core.TimeEntry{}, false, nil
	}
	if p.IsEmpty() {
		return e, true, nil
	}
	s.invalidate()
	s.events.LogEntryChanged(ctx, applog.OpUpdate, e.ID, e.Date, e.TotalMinutes)
	s.publish(ctx, amqp.NewEntryEvent(amqp.EntryUpdated, e))
	return e, true, nil
}

// DeleteEntry removes the entry and reports whether it existed.
func (s *EntryService) DeleteEntry(ctx context.Context, id string) (bool, error) {
	removed, err := s.repo.DeleteEntry(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete entry %s: %w", id, err)
	}
	if !removed {
		return false, nil
	}
	s.invalidate()
	s.logger.InfoContext(ctx, "Time entry deleted",
		applog.FieldEntryID, id,
		applog.FieldOperation, applog.OpDelete)
	s.publish(ctx, amqp.NewEntryDeletedEvent(id))
	return true, nil
}

// GetSettings returns the settings singleton.
func (s *EntryService) GetSettings(ctx context.Context) (core.Settings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings merges p into the settings singleton.
func (s *EntryService) UpdateSettings(ctx context.Context, p core.SettingsPatch) (core.Settings, error) {
	settings, err := s.repo.UpdateSettings(ctx, p)
	if err != nil {
		return core.Settings{}, fmt.Errorf("update settings: %w", err)
	}
	if p.BaseAmount == nil {
		return settings, nil
	}
	s.invalidate()
	s.logger.InfoContext(ctx, "Settings updated",
		applog.FieldBaseAmount, settings.BaseAmount,
		applog.FieldOperation, applog.OpUpdate)
	s.publish(ctx, amqp.NewSettingsEvent(settings))
	return settings, nil
}

// Summary returns per-person totals and the derived rates. Results are cached
// until the next mutation or TTL expiry; concurrent misses share one computation.
func (s *EntryService) Summary(ctx context.Context) (core.Summary, error) {
	if sum, ok := s.summaries.Get(summaryKey); ok {
		return sum, nil
	}

	gen := s.generation.Load()
	v, err, _ := s.group.Do(summaryKey+":"+strconv.FormatUint(gen, 10), func() (any, error) {
		entries, err := s.repo.ListEntries(ctx)
		if err != nil {
			return core.Summary{}, fmt.Errorf("list entries: %w", err)
		}
		settings, err := s.repo.GetSettings(ctx)
		if err != nil {
			return core.Summary{}, fmt.Errorf("get settings: %w", err)
		}
		sum := core.Summarize(entries, settings)
		// A mutation that landed while computing makes this result stale.
		if s.generation.Load() == gen {
			s.summaries.Set(summaryKey, sum)
		}
		return sum, nil
	})
	if err != nil {
		return core.Summary{}, fmt.Errorf("compute summary: %w", err)
	}
	return v.(core.Summary), nil
}

// Ping reports repository health when the backend supports it.
func (s *EntryService) Ping(ctx context.Context) error {
	if p, ok := s.repo.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Stats returns counters for the metrics endpoint.
func (s *EntryService) Stats() Stats {
	return Stats{
		EventsPublished: s.published.Load(),
		EventsFailed:    s.failed.Load(),
		SummaryCache:    s.summaries.Stats(),
	}
}

func (s *EntryService) invalidate() {
	s.generation.Add(1)
	s.summaries.Delete(summaryKey)
}

// publish never fails the caller; the mutation already succeeded.
func (s *EntryService) publish(ctx context.Context, ev *amqp.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.failed.Add(1)
		s.logger.WarnContext(ctx, "Failed to publish change event",
			applog.FieldEventType, ev.Type,
			applog.FieldEntryID, ev.ID,
			applog.FieldError, err)
		return
	}
	s.published.Add(1)
}

// Close closes both the repository and the publisher
func (s *EntryService) Close() error {
	var errs []error

	if c, ok := s.repo.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close entry service: %v", errs)
	}

	return nil
}
