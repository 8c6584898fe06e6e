package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cashbox/internal/core"
	"cashbox/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})
	fail := func(name, reason string) {
		checks[name] = reason
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", "failed: templates not loaded")
	} else {
		checks["templates"] = "ok"
	}

	if s.ping != nil {
		if err := s.ping(ctx); err != nil {
			fail("store", fmt.Sprintf("failed: %v", err))
		} else {
			checks["store"] = "ok"
		}
	} else if loaded, err := s.boxes.Ready(); err != nil {
		fail("store", fmt.Sprintf("failed: %v", err))
	} else if !loaded {
		fail("store", "not_loaded")
	} else {
		checks["store"] = "ok"
	}

	checks["confirmations"] = map[string]interface{}{
		"pending": s.boxes.PendingConfirmations(),
		"steps":   s.boxes.Steps(),
		"status":  "ok",
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics writes request, box and security counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()

	boxes := s.boxes.Boxes()
	cashed := 0
	for _, b := range boxes {
		if b.CashedOut {
			cashed++
		}
	}

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_request_duration_avg_ms Average request duration\n")
	fmt.Fprintf(w, "# TYPE http_request_duration_avg_ms gauge\n")
	fmt.Fprintf(w, "http_request_duration_avg_ms %d\n\n", traceMetrics.AverageResponseTime.Milliseconds())

	fmt.Fprintf(w, "# HELP boxes Boxes currently loaded\n")
	fmt.Fprintf(w, "# TYPE boxes gauge\n")
	fmt.Fprintf(w, "boxes{state=\"active\"} %d\n", len(boxes)-cashed)
	fmt.Fprintf(w, "boxes{state=\"cashed_out\"} %d\n\n", cashed)

	fmt.Fprintf(w, "# HELP pending_confirmations Open cash-out confirmations\n")
	fmt.Fprintf(w, "# TYPE pending_confirmations gauge\n")
	fmt.Fprintf(w, "pending_confirmations %d\n\n", s.boxes.PendingConfirmations())

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.started).Seconds())
}

type indexData struct {
	Today string
	Error string
	Boxes []core.Box
}

// handleIndex reloads the currency list and renders the box grid. A failed
// load still renders the page with an error banner and no boxes.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{Today: s.boxes.Today().Format("Monday, January 2, 2006")}
	if err := s.boxes.Load(r.Context()); err != nil {
		data.Error = "Could not load currencies. Please try again later."
	} else {
		data.Boxes = s.boxes.Boxes()
	}

	body, err := s.render("index.html", data)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err,
			log.FieldOperation, log.OpRender)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().HTML(body).Write(w)
}
