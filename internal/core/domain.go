package core

import (
	"strings"
)

// DefaultBaseAmount is the base amount a fresh settings record starts with.
const DefaultBaseAmount = 10000

type (
	// Minutes holds the four per-person minute counts of an entry.
	Minutes struct {
		Nafees  int `json:"nafees"`
		Waqas   int `json:"waqas"`
		Cheetan int `json:"cheetan"`
		Nadeem  int `json:"nadeem"`
	}

	// TimeEntry is one day of recorded minutes. TotalMinutes is derived and
	// always equals Minutes.Total() once stored.
	TimeEntry struct {
		ID   string `json:"id"`
		Date string `json:"date"`
		Minutes
		TotalMinutes int `json:"totalMinutes"`
	}

	// NewEntry carries the caller-supplied fields of a create request.
	// Nil person fields default to zero.
	NewEntry struct {
		Date    string
		Nafees  *int
		Waqas   *int
		Cheetan *int
		Nadeem  *int
	}

	// EntryPatch is a partial update. Only non-nil fields are applied.
	EntryPatch struct {
		Date    *string
		Nafees  *int
		Waqas   *int
		Cheetan *int
		Nadeem  *int
	}

	// Settings is the process-wide singleton holding the base amount.
	Settings struct {
		ID         string  `json:"id"`
		BaseAmount float64 `json:"baseAmount"`
	}

	// SettingsPatch is a partial settings update.
	SettingsPatch struct {
		BaseAmount *float64
	}
)

// Total returns the sum of the four person fields.
func (m Minutes) Total() int {
	return m.Nafees + m.Waqas + m.Cheetan + m.Nadeem
}

// Add returns the field-wise sum of m and o.
func (m Minutes) Add(o Minutes) Minutes {
	return Minutes{
		Nafees:  m.Nafees + o.Nafees,
		Waqas:   m.Waqas + o.Waqas,
		Cheetan: m.Cheetan + o.Cheetan,
		Nadeem:  m.Nadeem + o.Nadeem,
	}
}

// Build turns the create fields into a full entry with the given id.
func (n NewEntry) Build(id string) TimeEntry {
	e := TimeEntry{
		ID:   id,
		Date: n.Date,
		Minutes: Minutes{
			Nafees:  valueOrZero(n.Nafees),
			Waqas:   valueOrZero(n.Waqas),
			Cheetan: valueOrZero(n.Cheetan),
			Nadeem:  valueOrZero(n.Nadeem),
		},
	}
	e.TotalMinutes = e.Minutes.Total()
	return e
}

// Apply merges the patch over a copy of e and recomputes TotalMinutes.
// The receiver's ID is never changed.
func (p EntryPatch) Apply(e TimeEntry) TimeEntry {
	out := e
	if p.Date != nil {
		out.Date = *p.Date
	}
	if p.Nafees != nil {
		out.Nafees = *p.Nafees
	}
	if p.Waqas != nil {
		out.Waqas = *p.Waqas
	}
	if p.Cheetan != nil {
		out.Cheetan = *p.Cheetan
	}
	if p.Nadeem != nil {
		out.Nadeem = *p.Nadeem
	}
	out.TotalMinutes = out.Minutes.Total()
	return out
}

// IsEmpty reports whether the patch carries no fields.
func (p EntryPatch) IsEmpty() bool {
	return p.Date == nil && p.Nafees == nil && p.Waqas == nil && p.Cheetan == nil && p.Nadeem == nil
}

// Apply merges the patch over a copy of s.
func (p SettingsPatch) Apply(s Settings) Settings {
	out := s
	if p.BaseAmount != nil {
		out.BaseAmount = *p.BaseAmount
	}
	return out
}

func valueOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// FieldError describes one field that failed shape or type checks.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field problem found in a request body.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid data: " + strings.Join(parts, "; ")
}

// Add records a field problem.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Err returns e as an error when it holds at least one field problem, nil otherwise.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
