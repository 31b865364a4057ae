// Package healthprobe serves the liveness and readiness endpoints of the
// arbitrage service. Liveness holds as long as the process answers;
// readiness flips on only after the venues, ledger and scheduler are wired,
// and off again during shutdown so the load balancer drains first.
package healthprobe

import (
	"net/http"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

// Probe tracks process start time and the readiness gate.
type Probe struct {
	service   string
	startedAt time.Time
	ready     atomic.Bool
}

// New creates a probe for the named service. It starts not ready.
func New(service string) *Probe {
	return &Probe{
		service:   service,
		startedAt: time.Now().UTC(),
	}
}

// SetReady flips the readiness gate.
func (p *Probe) SetReady(ready bool) {
	p.ready.Store(ready)
}

// Status is the body served by both endpoints.
type Status struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Uptime  string `json:"uptime"`
	Message string `json:"message,omitempty"`
}

// Health handles liveness. Always 200 while the process can answer.
func (p *Probe) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.write(w, http.StatusOK, Status{
			Status:  "healthy",
			Service: p.service,
			Uptime:  p.uptime(),
		})
	}
}

// Ready handles readiness: 503 until SetReady(true), 200 after.
func (p *Probe) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !p.ready.Load() {
			p.write(w, http.StatusServiceUnavailable, Status{
				Status:  "not_ready",
				Service: p.service,
				Message: "service is starting or draining",
			})
			return
		}

		p.write(w, http.StatusOK, Status{
			Status:  "ready",
			Service: p.service,
			Uptime:  p.uptime(),
		})
	}
}

func (p *Probe) uptime() string {
	return time.Since(p.startedAt).Round(time.Second).String()
}

func (p *Probe) write(w http.ResponseWriter, code int, s Status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(s)
}
