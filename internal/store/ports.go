package store

import (
	"context"

	"timesplit/internal/core"
)

// Ports for the repository backends.
type (
	// EntryStore owns the time-entry collection. Lookups by id report a
	// missing record through the found/removed boolean, not an error; the
	// error return is reserved for backend failures.
	EntryStore interface {
		// ListEntries returns every entry ordered ascending by date.
		ListEntries(ctx context.Context) ([]core.TimeEntry, error)
		// CreateEntry assigns an id, computes the total and stores the entry.
		CreateEntry(ctx context.Context, n core.NewEntry) (core.TimeEntry, error)
		// UpdateEntry merges the patch into the entry with the given id.
		UpdateEntry(ctx context.Context, id string, p core.EntryPatch) (entry core.TimeEntry, found bool, err error)
		// DeleteEntry removes the entry with the given id.
		DeleteEntry(ctx context.Context, id string) (removed bool, err error)
	}

	// SettingsStore owns the settings singleton.
	SettingsStore interface {
		GetSettings(ctx context.Context) (core.Settings, error)
		UpdateSettings(ctx context.Context, p core.SettingsPatch) (core.Settings, error)
	}

	// Repository is the full storage surface used by the service layer.
	Repository interface {
		EntryStore
		SettingsStore
	}
)
