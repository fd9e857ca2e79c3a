// SPDX-License-Identifier: LGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hyperwarm/daemon/models"
)

// TemplateListResponse is the response for GET /api/v1/templates.
type TemplateListResponse struct {
	Templates []TemplateView `json:"templates"`
	Total     int            `json:"total"`
}

// TemplateView is the wire representation of a registered template.
type TemplateView struct {
	Name         string `json:"name"`
	DiskPath     string `json:"disk_path"`
	DefaultMemMB int    `json:"default_mem_mb"`
	DefaultCPUs  int    `json:"default_cpus"`
	GPUEnabled   bool   `json:"gpu_enabled"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListTemplates(r.Context())
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	resp := TemplateListResponse{Templates: make([]TemplateView, 0, len(templates))}
	for _, t := range templates {
		resp.Templates = append(resp.Templates, TemplateView{
			Name:         t.Name,
			DiskPath:     t.DiskPath,
			DefaultMemMB: t.DefaultMemMB,
			DefaultCPUs:  t.DefaultCPUs,
			GPUEnabled:   t.GPUEnabled,
		})
	}
	resp.Total = len(resp.Templates)
	s.jsonResponse(w, http.StatusOK, resp)
}

// PoolView is the wire representation of a pool.
type PoolView struct {
	Name                  string `json:"name"`
	TemplateID            string `json:"template_id"`
	DesiredCount          int    `json:"desired_count"`
	WarmCount             int    `json:"warm_count"`
	PerHostCap            int    `json:"per_host_cap"`
	DefaultResetOnRelease bool   `json:"default_reset_on_release"`
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "pool")
	p, err := s.store.GetPoolByName(r.Context(), name)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, PoolView{
		Name:                  p.Name,
		TemplateID:            p.TemplateID,
		DesiredCount:          p.DesiredCount,
		WarmCount:             p.WarmCount,
		PerHostCap:            p.PerHostCap,
		DefaultResetOnRelease: p.DefaultResetOnRelease,
	})
}

// VMView is the wire representation of a VM.
type VMView struct {
	Name          string `json:"name"`
	State         string `json:"state"`
	ErrorMessage  string `json:"error_message,omitempty"`
	IPAddress     string `json:"ip_address,omitempty"`
	Leased        bool   `json:"leased"`
	LastResumedAt string `json:"last_resumed_at,omitempty"`
}

// VMListResponse is the response for GET /api/v1/pools/{pool}/vms.
type VMListResponse struct {
	VMs       []VMView  `json:"vms"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleListVMs(w http.ResponseWriter, r *http.Request) {
	poolName := chi.URLParam(r, "pool")
	p, err := s.store.GetPoolByName(r.Context(), poolName)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	vms, err := s.store.ListVMs(r.Context(), p.ID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	resp := VMListResponse{VMs: make([]VMView, 0, len(vms)), Timestamp: time.Now()}
	for _, vm := range vms {
		resp.VMs = append(resp.VMs, vmView(vm))
	}
	resp.Total = len(resp.VMs)
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleGetVM(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	vm, err := s.store.GetVMByName(r.Context(), name)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, vmView(vm))
}

func vmView(vm *models.VM) VMView {
	v := VMView{
		Name:         vm.Name,
		State:        string(vm.State),
		ErrorMessage: vm.ErrorMessage,
		IPAddress:    vm.IPAddress,
		Leased:       vm.IsLeased(),
	}
	if !vm.LastResumedAt.IsZero() {
		v.LastResumedAt = vm.LastResumedAt.Format(time.RFC3339)
	}
	return v
}
