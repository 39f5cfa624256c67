package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	applog "otchet/internal/log"
	"otchet/internal/view"
)

// handleEntriesCSV returns a period's CSV text for on-screen display.
// No Content-Disposition: the text is shown in the browser.
func (s *Server) handleEntriesCSV(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	tab, ok := s.dashboard.Tab(r.PathValue("id"))
	if !ok {
		NotFoundError("Период не найден").Write(w)
		return
	}
	NewHTMXResponse().BodyText(tab.View.CSV()).Write(w)
}

// handleSummaryText returns the chat-style plain-text digest of a period.
func (s *Server) handleSummaryText(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	tab, ok := s.dashboard.Tab(r.PathValue("id"))
	if !ok {
		NotFoundError("Период не найден").Write(w)
		return
	}
	NewHTMXResponse().BodyText(view.TextSummary(tab.View.Period())).Write(w)
}

// handlePeriodsJSON returns the loaded dataset in the report front-end shape.
func (s *Server) handlePeriodsJSON(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	body, err := json.Marshal(s.dashboard.Periods())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Encode periods failed", applog.FieldError, err)
		InternalServerError("Ошибка кодирования данных").Write(w)
		return
	}
	NewHTMXResponse().
		Header("Content-Type", "application/json").
		Body(body).
		Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports template, dataset and dependency checks.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})
	fail := func(name string, detail interface{}) {
		checks[name] = detail
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", "failed: templates not loaded")
	} else {
		checks["templates"] = "ok"
	}

	checks["dataset"] = map[string]interface{}{
		"periods": s.dashboard.Len(),
		"status":  "ok",
	}

	for _, c := range s.checks {
		detail, err := c.Probe(ctx)
		if err != nil {
			fail(c.Name, fmt.Sprintf("failed: %v", err))
			continue
		}
		if detail == "" {
			detail = "ok"
		}
		checks[c.Name] = detail
	}

	stats := s.fragments.Stats()
	checks["cache"] = map[string]interface{}{
		"entries": stats.Size,
		"status":  "ok",
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	cacheStats := s.fragments.Stats()

	w.WriteHeader(http.StatusOK)

	metric := func(name, help, kind string, value interface{}) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}

	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_client_errors_total", "Responses with a 4xx status", "counter", traceMetrics.ClientErrors)
	metric("http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "Average response time", "gauge", traceMetrics.AverageResponseTime)
	metric("report_periods", "Periods in the loaded dataset", "gauge", s.dashboard.Len())
	metric("fragment_cache_hits_total", "Rendered pane cache hits", "counter", cacheStats.Hits)
	metric("fragment_cache_misses_total", "Rendered pane cache misses", "counter", cacheStats.Misses)
	metric("fragment_cache_entries", "Rendered panes currently cached", "gauge", cacheStats.Size)
	metric("rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.LimitedRequests)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", fmt.Sprintf("%.0f", time.Since(s.started).Seconds()))
}
