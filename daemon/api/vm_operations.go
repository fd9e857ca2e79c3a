// SPDX-License-Identifier: LGPL-3.0-or-later

package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"

	"hyperwarm/daemon/metrics"
	"hyperwarm/daemon/tracing"
	"hyperwarm/hverr"
)

// AcquireRequest is the body for POST /api/v1/acquire.
type AcquireRequest struct {
	PoolName string `json:"pool_name"`
}

// AcquireResponse is the response from a successful acquire. MCPEndpoint
// is where a caller reaches the acquired VM's MCP server; guest-side agent
// software is out of scope here, so this is reported, not dialed.
type AcquireResponse struct {
	VMName       string `json:"vm_name"`
	IPAddress    string `json:"ip_address"`
	LeaseID      string `json:"lease_id"`
	ResumeTimeMS int64  `json:"resume_time_ms"`
	MCPEndpoint  string `json:"mcp_endpoint"`
}

func (s *Server) handleAcquire(w http.ResponseWriter, r *http.Request) {
	var req AcquireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, hverr.New(hverr.KindUsage, "invalid request body: %v", err))
		return
	}
	if req.PoolName == "" {
		s.errorResponse(w, hverr.New(hverr.KindUsage, "pool_name is required"))
		return
	}

	p, err := s.store.GetPoolByName(r.Context(), req.PoolName)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	result, err := s.pools.Acquire(r.Context(), p.ID)
	if err != nil {
		metrics.RecordAcquire(acquireResultLabel(err))
		s.errorResponse(w, err)
		return
	}
	metrics.RecordAcquire("success")
	metrics.RecordResume(resumePathLabel(result.ResumeTimeMS), float64(result.ResumeTimeMS)/1000)
	s.BroadcastVMEvent(result.VMName, "saved", "running")

	_, span := tracing.TraceAcquire(r.Context(), otel.Tracer("hyperwarm/pool"), req.PoolName, result.LeaseID, result.VMName)
	span.End()

	s.jsonResponse(w, http.StatusOK, AcquireResponse{
		VMName:       result.VMName,
		IPAddress:    result.IPAddress,
		LeaseID:      result.LeaseID,
		ResumeTimeMS: result.ResumeTimeMS,
		MCPEndpoint:  fmt.Sprintf("http://%s:%d/mcp", result.IPAddress, s.mcpPort),
	})
}

// resumePathLabel classifies a completed resume as fast or fallback for the
// duration histogram, on the same 2s threshold the resume design targets.
func resumePathLabel(resumeMS int64) string {
	if resumeMS > 2000 {
		return "fallback"
	}
	return "fast"
}

func acquireResultLabel(err error) string {
	switch hverr.KindOf(err) {
	case hverr.KindNoCapacity:
		return "no_capacity"
	default:
		return "resume_failed"
	}
}

// ReleaseRequest is the body for POST /api/v1/vms/{name}/release.
type ReleaseRequest struct {
	Reset bool `json:"reset"`
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req ReleaseRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.errorResponse(w, hverr.New(hverr.KindUsage, "invalid request body: %v", err))
			return
		}
	}

	if err := s.pools.Release(r.Context(), name, req.Reset); err != nil {
		s.errorResponse(w, err)
		return
	}
	s.BroadcastVMEvent(name, "running", "saved")

	w.WriteHeader(http.StatusNoContent)
}

// ResumeResponse is the response from POST /api/v1/vms/{name}/resume, a
// direct resume that bypasses the pool's lease bookkeeping (used to
// manually warm a specific VM over HTTP).
type ResumeResponse struct {
	VMName       string `json:"vm_name"`
	IPAddress    string `json:"ip_address"`
	ResumeTimeMS int64  `json:"resume_time_ms"`
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	vm, err := s.store.GetVMByName(r.Context(), name)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	ip, ms, err := s.lifecycle.Resume(r.Context(), vm.ID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	metrics.RecordResume(resumePathLabel(ms), float64(ms)/1000)
	s.BroadcastVMEvent(name, "saved", "running")

	s.jsonResponse(w, http.StatusOK, ResumeResponse{
		VMName:       name,
		IPAddress:    ip,
		ResumeTimeMS: ms,
	})
}
