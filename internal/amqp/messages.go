package amqp

import (
	"encoding/json"
	"time"

	"timesplit/internal/core"
)

// EventType names a change that happened in the repository.
type EventType string

const (
	EntryCreated    EventType = "entry.created"
	EntryUpdated    EventType = "entry.updated"
	EntryDeleted    EventType = "entry.deleted"
	SettingsUpdated EventType = "settings.updated"
)

// ChangeEvent is published after every successful mutation.
// Entry is set for created/updated events, Settings for settings events.
type ChangeEvent struct {
	Type      EventType       `json:"type"`
	ID        string          `json:"id"`
	Entry     *core.TimeEntry `json:"entry,omitempty"`
	Settings  *core.Settings  `json:"settings,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEntryEvent builds a created or updated event carrying the entry.
func NewEntryEvent(t EventType, e core.TimeEntry) *ChangeEvent {
	return &ChangeEvent{Type: t, ID: e.ID, Entry: &e, Timestamp: time.Now()}
}

// NewEntryDeletedEvent builds a deleted event for the given id.
func NewEntryDeletedEvent(id string) *ChangeEvent {
	return &ChangeEvent{Type: EntryDeleted, ID: id, Timestamp: time.Now()}
}

// NewSettingsEvent builds a settings-updated event.
func NewSettingsEvent(s core.Settings) *ChangeEvent {
	return &ChangeEvent{Type: SettingsUpdated, ID: s.ID, Settings: &s, Timestamp: time.Now()}
}

// RoutingKey joins the prefix and the event type, e.g. "timesplit.entry.created".
func (m *ChangeEvent) RoutingKey(prefix string) string {
	if prefix == "" {
		return string(m.Type)
	}
	return prefix + "." + string(m.Type)
}

// ToJSON converts the message to JSON bytes
func (m *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
