package http

import (
	"errors"
	"net/http"

	"timesplit/internal/core"
	applog "timesplit/internal/log"
)

// handleEntries serves the entry collection: GET lists, POST creates.
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listEntries(w, r)
	case http.MethodPost:
		s.createEntry(w, r)
	default:
		MethodNotAllowedError("GET, POST, OPTIONS").Write(w)
	}
}

// handleEntry serves a single entry: PUT updates, DELETE removes.
func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		NotFoundError(MsgEntryNotFound).Write(w)
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.updateEntry(w, r, id)
	case http.MethodDelete:
		s.deleteEntry(w, r, id)
	default:
		MethodNotAllowedError("PUT, DELETE, OPTIONS").Write(w)
	}
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.ListEntries(r.Context())
	if err != nil {
		s.logFailure(r, "Failed to list time entries", err, applog.ComponentEntries, applog.OpList)
		InternalServerError(MsgFetchEntriesFailed).Write(w)
		return
	}
	OK(entries).Write(w)
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	n, err := ParseNewEntry(w, r)
	if err != nil {
		s.writeValidationError(w, r, err)
		return
	}

	e, err := s.svc.CreateEntry(r.Context(), n)
	if err != nil {
		s.logFailure(r, "Failed to create time entry", err, applog.ComponentEntries, applog.OpCreate)
		InternalServerError(MsgCreateEntryFailed).Write(w)
		return
	}
	Created(e).Write(w)
}

func (s *Server) updateEntry(w http.ResponseWriter, r *http.Request, id string) {
	patch, err := ParseEntryPatch(w, r)
	if err != nil {
		s.writeValidationError(w, r, err)
		return
	}

	e, found, err := s.svc.UpdateEntry(r.Context(), id, patch)
	if err != nil {
		s.logFailure(r, "Failed to update time entry", err, applog.ComponentEntries, applog.OpUpdate,
			applog.FieldEntryID, id)
		InternalServerError(MsgUpdateEntryFailed).Write(w)
		return
	}
	if !found {
		NotFoundError(MsgEntryNotFound).Write(w)
		return
	}
	OK(e).Write(w)
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request, id string) {
	removed, err := s.svc.DeleteEntry(r.Context(), id)
	if err != nil {
		s.logFailure(r, "Failed to delete time entry", err, applog.ComponentEntries, applog.OpDelete,
			applog.FieldEntryID, id)
		InternalServerError(MsgDeleteEntryFailed).Write(w)
		return
	}
	if !removed {
		NotFoundError(MsgEntryNotFound).Write(w)
		return
	}
	OK(MessageBody{Message: MsgEntryDeleted}).Write(w)
}

// writeValidationError answers 400 with every field problem. Parsers only
// return validation errors, anything else is reported as a body problem.
func (s *Server) writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		ve = &core.ValidationError{}
		ve.Add("body", err.Error())
	}
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Request validation failed",
		applog.FieldOperation, applog.OpValidate,
		applog.FieldPath, r.URL.Path,
		applog.FieldError, ve.Error(),
		"error_type", applog.ErrorTypeValidation)
	ValidationErrorResponse(ve).Write(w)
}

// logFailure logs a backend error; the client only sees a generic message.
func (s *Server) logFailure(r *http.Request, msg string, err error, component, op string, args ...any) {
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogError(r.Context(), msg, err, component, op, args...)
}
