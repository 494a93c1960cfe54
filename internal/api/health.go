package api

import (
	"context"
	"net/http"
	"time"
)

type checkFunc func(ctx context.Context) error

type dependency struct {
	name     string
	check    checkFunc
	required bool
}

// HealthHandler reports liveness and dependency readiness. A required
// dependency being down fails readiness; an optional one degrades it.
type HealthHandler struct {
	deps    []dependency
	env     string
	version string
}

func NewHealthHandler(env, version string) *HealthHandler {
	return &HealthHandler{
		env:     env,
		version: version,
	}
}

func (h *HealthHandler) Require(name string, check checkFunc) {
	h.deps = append(h.deps, dependency{name: name, check: check, required: true})
}

func (h *HealthHandler) Optional(name string, check checkFunc) {
	h.deps = append(h.deps, dependency{name: name, check: check})
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string, len(h.deps))
	status := "ok"

	for _, dep := range h.deps {
		depCtx, depCancel := context.WithTimeout(ctx, time.Second)
		err := dep.check(depCtx)
		depCancel()

		if err == nil {
			deps[dep.name] = "ok"
			continue
		}
		deps[dep.name] = "down"
		switch {
		case dep.required:
			status = "error"
		case status == "ok":
			status = "degraded"
		}
	}

	resp := ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}
