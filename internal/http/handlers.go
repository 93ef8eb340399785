package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// readyTimeout bounds the backend ping of the readiness check.
const readyTimeout = 5 * time.Second

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}

	OK(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if err := s.svc.Ping(ctx); err != nil {
		checks["storage"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	stats := s.svc.Stats()
	checks["summary_cache"] = map[string]any{
		"entries": stats.SummaryCache.Size,
		"status":  "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.trace.GetMetrics()
	stats := s.svc.Stats()
	uptime := time.Since(s.startedAt)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	// Write metrics in Prometheus-like format
	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_server_errors_total", "counter", "Total number of 5xx responses", traceMetrics.ServerErrors)
	writeMetric(w, "http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)
	writeMetric(w, "summary_cache_hits_total", "counter", "Total summary cache hits", stats.SummaryCache.Hits)
	writeMetric(w, "summary_cache_misses_total", "counter", "Total summary cache misses", stats.SummaryCache.Misses)
	writeMetric(w, "summary_cache_entries", "gauge", "Current summary cache entries", stats.SummaryCache.Size)
	writeMetric(w, "events_published_total", "counter", "Change events published to the broker", stats.EventsPublished)
	writeMetric(w, "events_failed_total", "counter", "Change events that failed to publish", stats.EventsFailed)
	writeMetric(w, "rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	writeMetric(w, "suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	writeMetric(w, "invalid_ip_attempts_total", "counter", "Forwarded client IPs that failed to parse", securityMetrics.InvalidIPAttempts)
	writeMetric(w, "uptime_seconds", "gauge", "Application uptime in seconds", int64(uptime.Seconds()))
}

func writeMetric[T int | int64 | uint64](w http.ResponseWriter, name, kind, help string, value T) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}
