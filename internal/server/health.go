package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the health of an individual component
type ComponentStatus string

const (
	ComponentStatusUp       ComponentStatus = "up"
	ComponentStatusDown     ComponentStatus = "down"
	ComponentStatusDegraded ComponentStatus = "degraded"
)

// Health is the full health check response.
type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LatencyMs float64         `json:"latency_ms,omitempty"`
}

// handleHealth provides a detailed health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.checkHealth()

	statusCode := http.StatusOK
	if health.Status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady provides a readiness probe for load balancers: can we write
// to and delete from the ephemeral store right now?
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if probe := s.probeStore(ctx); probe.Status == ComponentStatusDown {
		http.Error(w, `{"status":"not_ready","message":"store unavailable"}`, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleLive provides a liveness probe (is the process running?).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "alive",
	})
}

func (s *Server) checkHealth() Health {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health := Health{
		Timestamp:  time.Now(),
		Version:    s.cfg.Build.Version,
		Components: make(map[string]ComponentHealth),
	}

	health.Components["store"] = s.probeStore(ctx)

	health.Status = HealthStatusHealthy
	for _, c := range health.Components {
		switch c.Status {
		case ComponentStatusDown:
			health.Status = HealthStatusUnhealthy
		case ComponentStatusDegraded:
			if health.Status == HealthStatusHealthy {
				health.Status = HealthStatusDegraded
			}
		}
	}

	return health
}

// probeStore does a put/open/remove roundtrip through the ephemeral store.
func (s *Server) probeStore(ctx context.Context) ComponentHealth {
	start := time.Now()

	handle, err := s.store.Put(ctx, "healthz", "text/plain", bytes.NewReader([]byte("ok")))
	if err != nil {
		return ComponentHealth{
			Status:  ComponentStatusDown,
			Message: "store put failed: " + err.Error(),
		}
	}
	defer s.store.Remove(ctx, handle)

	rc, err := s.store.Open(ctx, handle)
	if err != nil {
		return ComponentHealth{
			Status:  ComponentStatusDown,
			Message: "store open failed: " + err.Error(),
		}
	}
	_, _ = io.Copy(io.Discard, rc)
	rc.Close()

	latency := time.Since(start).Milliseconds()

	status := ComponentStatusUp
	message := "store healthy"
	if latency > 1000 {
		status = ComponentStatusDegraded
		message = "store latency high"
	}

	return ComponentHealth{
		Status:    status,
		Message:   message,
		LatencyMs: float64(latency),
	}
}
