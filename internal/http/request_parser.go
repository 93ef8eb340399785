// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for decoding and validating request bodies.
// Every field is checked on its own and all problems are reported together,
// so a bad request is never partially applied.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"timesplit/internal/core"
)

// maxBodyBytes caps request bodies; entries and settings are tiny.
const maxBodyBytes = 1 << 20

// maxSafeInteger keeps minute counts exact and the sum of four of them
// inside an int64.
const maxSafeInteger = 1<<53 - 1

// Field names accepted in request bodies.
const (
	fieldDate       = "date"
	fieldNafees     = "nafees"
	fieldWaqas      = "waqas"
	fieldCheetan    = "cheetan"
	fieldNadeem     = "nadeem"
	fieldBaseAmount = "baseAmount"
)

// RequestBodyParser reads a JSON object body once and type-checks its
// fields, collecting every problem into a core.ValidationError.
type RequestBodyParser struct {
	fields map[string]json.RawMessage
	errs   core.ValidationError
}

// NewRequestBodyParser reads and decodes the request body. An empty body is
// treated as an empty object. Anything that is not a JSON object is reported
// as a validation problem on the "body" field.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{fields: map[string]json.RawMessage{}}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			p.errs.Add("body", "Request body too large")
		} else {
			p.errs.Add("body", "Unable to read request body")
		}
		return p
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return p
	}
	if !json.Valid(body) {
		p.errs.Add("body", "Malformed JSON")
		return p
	}
	if kind := jsonKind(body); kind != "object" {
		p.errs.Add("body", "Expected object, received "+kind)
		return p
	}
	if err := json.Unmarshal(body, &p.fields); err != nil {
		p.errs.Add("body", "Malformed JSON")
	}
	return p
}

// Err returns the collected validation problems, or nil.
func (p *RequestBodyParser) Err() error {
	return p.errs.Err()
}

// String returns the named string field. Missing fields yield nil and,
// when required, a "Required" problem.
func (p *RequestBodyParser) String(name string, required bool) *string {
	raw, ok := p.fields[name]
	if !ok {
		if required {
			p.errs.Add(name, "Required")
		}
		return nil
	}
	if kind := jsonKind(raw); kind != "string" {
		p.errs.Add(name, "Expected string, received "+kind)
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		p.errs.Add(name, "Invalid string")
		return nil
	}
	return &s
}

// NonNegativeInt returns the named integer field. Null, fractional, negative
// and non-numeric values are problems; a missing field yields nil.
func (p *RequestBodyParser) NonNegativeInt(name string) *int {
	f, ok := p.number(name)
	if !ok {
		return nil
	}
	if f != math.Trunc(f) {
		p.errs.Add(name, "Expected integer, received float")
		return nil
	}
	if f < 0 {
		p.errs.Add(name, "Number must be greater than or equal to 0")
		return nil
	}
	if f > maxSafeInteger {
		p.errs.Add(name, "Number must be less than or equal to "+strconv.FormatInt(maxSafeInteger, 10))
		return nil
	}
	v := int(f)
	return &v
}

// NonNegativeNumber returns the named finite number field, or nil when missing.
func (p *RequestBodyParser) NonNegativeNumber(name string) *float64 {
	f, ok := p.number(name)
	if !ok {
		return nil
	}
	if f < 0 {
		p.errs.Add(name, "Number must be greater than or equal to 0")
		return nil
	}
	return &f
}

func (p *RequestBodyParser) number(name string) (float64, bool) {
	raw, ok := p.fields[name]
	if !ok {
		return 0, false
	}
	if kind := jsonKind(raw); kind != "number" {
		p.errs.Add(name, "Expected number, received "+kind)
		return 0, false
	}
	f, err := strconv.ParseFloat(string(bytes.TrimSpace(raw)), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		p.errs.Add(name, "Number must be finite")
		return 0, false
	}
	return f, true
}

// jsonKind names the JSON type of a valid raw value.
func jsonKind(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "undefined"
	}
	switch raw[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// ParseNewEntry validates a create body. date is required; omitted minute
// fields default to zero downstream.
func ParseNewEntry(w http.ResponseWriter, r *http.Request) (core.NewEntry, error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Err(); err != nil {
		return core.NewEntry{}, err
	}

	var n core.NewEntry
	if d := p.String(fieldDate, true); d != nil {
		n.Date = *d
	}
	n.Nafees = p.NonNegativeInt(fieldNafees)
	n.Waqas = p.NonNegativeInt(fieldWaqas)
	n.Cheetan = p.NonNegativeInt(fieldCheetan)
	n.Nadeem = p.NonNegativeInt(fieldNadeem)

	if err := p.Err(); err != nil {
		return core.NewEntry{}, err
	}
	return n, nil
}

// ParseEntryPatch validates an update body. Every field is optional.
func ParseEntryPatch(w http.ResponseWriter, r *http.Request) (core.EntryPatch, error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Err(); err != nil {
		return core.EntryPatch{}, err
	}

	patch := core.EntryPatch{
		Date:    p.String(fieldDate, false),
		Nafees:  p.NonNegativeInt(fieldNafees),
		Waqas:   p.NonNegativeInt(fieldWaqas),
		Cheetan: p.NonNegativeInt(fieldCheetan),
		Nadeem:  p.NonNegativeInt(fieldNadeem),
	}

	if err := p.Err(); err != nil {
		return core.EntryPatch{}, err
	}
	return patch, nil
}

// ParseSettingsPatch validates a settings update body.
func ParseSettingsPatch(w http.ResponseWriter, r *http.Request) (core.SettingsPatch, error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Err(); err != nil {
		return core.SettingsPatch{}, err
	}

	patch := core.SettingsPatch{BaseAmount: p.NonNegativeNumber(fieldBaseAmount)}

	if err := p.Err(); err != nil {
		return core.SettingsPatch{}, err
	}
	return patch, nil
}

// RequireMethod checks if the request method matches one of the allowed
// methods. Returns an error response builder if it doesn't.
func RequireMethod(r *http.Request, methods ...string) *JSONResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}
