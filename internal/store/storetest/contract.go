// Package storetest holds the behaviour every store.Repository backend must share.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesplit/internal/core"
	"timesplit/internal/store"
)

// Factory builds a fresh, empty repository whose settings start at the default base amount.
type Factory func(t *testing.T) store.Repository

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// RunContract exercises the repository properties against repositories built by newRepo.
func RunContract(t *testing.T, newRepo Factory) {
	t.Run("create defaults omitted minutes to zero", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		e, err := repo.CreateEntry(ctx, core.NewEntry{Date: "2024-01-01", Nafees: IntPtr(30), Waqas: IntPtr(20)})
		require.NoError(t, err)
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, core.Minutes{Nafees: 30, Waqas: 20}, e.Minutes)
		assert.Equal(t, 50, e.TotalMinutes)
	})

	t.Run("update recomputes total after merge", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		e, err := repo.CreateEntry(ctx, core.NewEntry{Date: "2024-01-01", Nafees: IntPtr(30), Waqas: IntPtr(20)})
		require.NoError(t, err)

		updated, found, err := repo.UpdateEntry(ctx, e.ID, core.EntryPatch{Cheetan: IntPtr(10)})
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 60, updated.TotalMinutes)
		assert.Equal(t, core.Minutes{Nafees: 30, Waqas: 20, Cheetan: 10}, updated.Minutes)

		list, err := repo.ListEntries(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, updated, list[0])
	})

	t.Run("update of unknown id reports not found and creates nothing", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, found, err := repo.UpdateEntry(ctx, "missing", core.EntryPatch{Nafees: IntPtr(1)})
		require.NoError(t, err)
		assert.False(t, found)

		list, err := repo.ListEntries(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("delete of unknown id leaves the collection alone", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		e, err := repo.CreateEntry(ctx, core.NewEntry{Date: "2024-01-01"})
		require.NoError(t, err)

		removed, err := repo.DeleteEntry(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, removed)
		list, err := repo.ListEntries(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		removed, err = repo.DeleteEntry(ctx, e.ID)
		require.NoError(t, err)
		assert.True(t, removed)
		list, err = repo.ListEntries(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("list is ordered by date", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		feb, err := repo.CreateEntry(ctx, core.NewEntry{Date: "2024-02-01"})
		require.NoError(t, err)
		jan, err := repo.CreateEntry(ctx, core.NewEntry{Date: "2024-01-15"})
		require.NoError(t, err)

		list, err := repo.ListEntries(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, jan.ID, list[0].ID)
		assert.Equal(t, feb.ID, list[1].ID)
	})

	t.Run("settings singleton keeps unspecified fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s, err := repo.GetSettings(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, s.ID)
		assert.Equal(t, float64(core.DefaultBaseAmount), s.BaseAmount)

		unchanged, err := repo.UpdateSettings(ctx, core.SettingsPatch{})
		require.NoError(t, err)
		assert.Equal(t, s, unchanged)

		v := 5000.0
		updated, err := repo.UpdateSettings(ctx, core.SettingsPatch{BaseAmount: &v})
		require.NoError(t, err)
		assert.Equal(t, s.ID, updated.ID)

		read, err := repo.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, float64(5000), read.BaseAmount)
		assert.Equal(t, s.ID, read.ID)
	})
}
