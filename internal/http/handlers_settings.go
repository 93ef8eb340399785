package http

import (
	"net/http"

	applog "timesplit/internal/log"
)

// handleSettings serves the settings singleton: GET reads, PUT merges.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getSettings(w, r)
	case http.MethodPut:
		s.updateSettings(w, r)
	default:
		MethodNotAllowedError("GET, PUT, OPTIONS").Write(w)
	}
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.GetSettings(r.Context())
	if err != nil {
		s.logFailure(r, "Failed to fetch settings", err, applog.ComponentSettings, applog.OpRead)
		InternalServerError(MsgFetchSettingsFailed).Write(w)
		return
	}
	OK(settings).Write(w)
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	patch, err := ParseSettingsPatch(w, r)
	if err != nil {
		s.writeValidationError(w, r, err)
		return
	}

	settings, err := s.svc.UpdateSettings(r.Context(), patch)
	if err != nil {
		s.logFailure(r, "Failed to update settings", err, applog.ComponentSettings, applog.OpUpdate)
		InternalServerError(MsgUpdateSettingsFailed).Write(w)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Settings updated",
		applog.FieldComponent, applog.ComponentSettings,
		applog.FieldBaseAmount, settings.BaseAmount)
	OK(settings).Write(w)
}

// handleSummary returns the rate split over every entry.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	sum, err := s.svc.Summary(r.Context())
	if err != nil {
		s.logFailure(r, "Failed to compute summary", err, applog.ComponentSummary, applog.OpRead)
		InternalServerError(MsgSummaryFailed).Write(w)
		return
	}
	OK(sum).Write(w)
}
