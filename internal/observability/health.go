package observability

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthChecker gates readiness on the engine's startup conditions: the
// durable event log must be replayed and the intake edge connected before
// the read side should receive traffic. Draining overrides both during
// shutdown.
type HealthChecker struct {
	mu              sync.Mutex
	logReplayed     bool
	intakeConnected bool
	draining        bool
	startTime       time.Time
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{startTime: time.Now()}
}

// SetLogReplayed records that the durable log has been replayed into the
// engine (or that a cold start found no log).
func (h *HealthChecker) SetLogReplayed() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logReplayed = true
}

// SetIntakeConnected records that the event intake is subscribed.
func (h *HealthChecker) SetIntakeConnected() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.intakeConnected = true
}

// SetDraining marks the service as shutting down; readiness goes false so
// load balancers stop routing while in-flight work finishes.
func (h *HealthChecker) SetDraining() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.draining = true
}

func (h *HealthChecker) status() (ready bool, logReplayed, intakeConnected, draining bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.logReplayed && h.intakeConnected && !h.draining,
		h.logReplayed, h.intakeConnected, h.draining
}

// LivenessHandler returns HTTP 200 whenever the process is alive.
func (h *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "alive",
		"uptime": time.Since(h.startTime).String(),
	})
}

// ReadinessHandler reports HTTP 200 once the log is replayed and intake is
// up, 503 otherwise, with the individual conditions in the body.
func (h *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ready, logReplayed, intakeConnected, draining := h.status()

	status := "ready"
	code := http.StatusOK
	if !ready {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":           status,
		"log_replayed":     logReplayed,
		"intake_connected": intakeConnected,
		"draining":         draining,
	})
}
