package admin

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/adaptive"
	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/protocol"
)

// requireAPIKey rejects requests without the configured X-API-Key header.
// Authentication is disabled when no key is configured. /health stays exempt
// so liveness probes need no credentials.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	if s.apiKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		got := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"uptime":   time.Since(s.startTime).String(),
		"protocol": s.engine.Current(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats())
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"current": stats.Current,
		"scores":  stats.Scores,
	})
}

// protocolInfo is the per-protocol row returned by GET /protocols.
type protocolInfo struct {
	Name            string                     `json:"name"`
	Supported       bool                       `json:"supported"`
	Active          bool                       `json:"active"`
	Characteristics protocol.Characteristics   `json:"characteristics"`
	Performance     adaptive.PerformanceRecord `json:"performance"`
}

func (s *Server) handleProtocols(w http.ResponseWriter, r *http.Request) {
	current := s.engine.Current()
	perf := s.engine.Performance()
	chars := s.engine.Characteristics()

	out := make([]protocolInfo, 0, protocol.Count())
	for _, id := range protocol.All() {
		out = append(out, protocolInfo{
			Name:            id.String(),
			Supported:       s.engine.Supports(id),
			Active:          id == current,
			Characteristics: chars[id],
			Performance:     perf[id],
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePutConditions(w http.ResponseWriter, r *http.Request) {
	var cond adaptive.NetworkConditions
	if err := decodeJSON(r, &cond); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if err := s.engine.UpdateConditions(cond); err != nil {
		writeError(w, http.StatusServiceUnavailable, "engine_closed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePutPerformance(w http.ResponseWriter, r *http.Request) {
	id, err := protocol.Parse(r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_protocol", err.Error())
		return
	}
	var rec adaptive.PerformanceRecord
	if err := decodeJSON(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if err := s.engine.UpdatePerformance(id, rec); err != nil {
		writeError(w, http.StatusServiceUnavailable, "engine_closed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePutSupport(w http.ResponseWriter, r *http.Request) {
	// Protocol IDs unmarshal from their canonical names, so the body is a
	// plain name-to-bool table: {"quic": true, "socks5": false}.
	var table map[protocol.ID]bool
	if err := decodeJSON(r, &table); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if err := s.engine.SetSupportTable(table); err != nil {
		if errors.Is(err, adaptive.ErrClosed) {
			writeError(w, http.StatusServiceUnavailable, "engine_closed", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "unknown_protocol", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// evaluateResponse wraps a decision with whether it was applied.
type evaluateResponse struct {
	Decision adaptive.Decision `json:"decision"`
	Executed bool              `json:"executed"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	d, err := s.engine.Evaluate()
	switch {
	case errors.Is(err, adaptive.ErrNoViableProtocol):
		// Sustained degradation, not a handler failure: the no-op decision
		// carries the explanation.
		writeJSON(w, http.StatusOK, evaluateResponse{Decision: d})
		return
	case errors.Is(err, adaptive.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "engine_closed", err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "evaluate_failed", err.Error())
		return
	}

	resp := evaluateResponse{Decision: d}
	if r.URL.Query().Get("execute") == "true" && !d.NoOp() {
		if err := s.engine.Execute(d); err != nil {
			switch {
			case errors.Is(err, adaptive.ErrCooldownActive):
				writeError(w, http.StatusConflict, "cooldown_active", err.Error())
			case errors.Is(err, adaptive.ErrStaleDecision):
				// Another caller switched between our Evaluate and Execute.
				writeError(w, http.StatusConflict, "stale_decision", err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "execute_failed", err.Error())
			}
			return
		}
		resp.Executed = true
	}
	writeJSON(w, http.StatusOK, resp)
}

// failureRequest is the body of POST /failures.
type failureRequest struct {
	Protocol protocol.ID `json:"protocol"`
	Reason   string      `json:"reason"`
}

func (s *Server) handleFailure(w http.ResponseWriter, r *http.Request) {
	var req failureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	d, err := s.engine.ReportFailure(req.Protocol, req.Reason)
	switch {
	case errors.Is(err, adaptive.ErrEmergencySuppressed):
		writeError(w, http.StatusTooManyRequests, "emergency_suppressed", d.Reason)
		return
	case errors.Is(err, adaptive.ErrNoViableProtocol):
		writeError(w, http.StatusConflict, "no_viable_protocol", d.Reason)
		return
	case errors.Is(err, adaptive.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "engine_closed", err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid_protocol", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{Decision: d, Executed: !d.NoOp()})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.collector.Refresh()
	s.registry.Handler().ServeHTTP(w, r)
}
