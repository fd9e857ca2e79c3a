// SPDX-License-Identifier: LGPL-3.0-or-later

package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if !config.Enabled {
		t.Error("expected OpenAPI to be enabled by default")
	}
	if config.Title != "hyperwarm API" {
		t.Errorf("expected title 'hyperwarm API', got %s", config.Title)
	}
	if config.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %s", config.Version)
	}
	if config.SwaggerUIPath != "/api/docs" {
		t.Errorf("expected Swagger UI path '/api/docs', got %s", config.SwaggerUIPath)
	}
	if config.SpecPath != "/api/openapi.json" {
		t.Errorf("expected spec path '/api/openapi.json', got %s", config.SpecPath)
	}
}

func TestNewGenerator(t *testing.T) {
	config := DefaultConfig()
	generator := NewGenerator(config)

	if generator == nil {
		t.Fatal("expected generator to be created")
	}
	if generator.config != config {
		t.Error("expected config to be set")
	}
	if generator.spec == nil {
		t.Error("expected spec to be initialized")
	}
	if generator.spec.OpenAPI != "3.0.0" {
		t.Errorf("expected OpenAPI version 3.0.0, got %s", generator.spec.OpenAPI)
	}
}

func TestNewGeneratorNilConfig(t *testing.T) {
	generator := NewGenerator(nil)
	if generator == nil {
		t.Fatal("expected generator to default its config")
	}
	if generator.config.Title != "hyperwarm API" {
		t.Errorf("expected default config to be applied, got title %s", generator.config.Title)
	}
}

func TestGenerate_Schemas(t *testing.T) {
	spec := NewGenerator(DefaultConfig()).Generate()

	expectedSchemas := []string{"Template", "Pool", "VM", "AcquireRequest", "AcquireResponse", "ReleaseRequest", "Error"}
	for _, name := range expectedSchemas {
		if spec.Components.Schemas[name] == nil {
			t.Errorf("expected schema %q to be defined", name)
		}
	}
}

func TestGenerate_Paths(t *testing.T) {
	spec := NewGenerator(DefaultConfig()).Generate()

	expectedPaths := []string{
		"/health",
		"/api/v1/templates",
		"/api/v1/pools/{pool}",
		"/api/v1/pools/{pool}/vms",
		"/api/v1/vms/{name}",
		"/api/v1/acquire",
		"/api/v1/vms/{name}/release",
		"/api/v1/vms/{name}/resume",
	}
	for _, p := range expectedPaths {
		if spec.Paths.Find(p) == nil {
			t.Errorf("expected path %q to be defined", p)
		}
	}
}

func TestGenerate_Tags(t *testing.T) {
	spec := NewGenerator(DefaultConfig()).Generate()

	expectedTags := map[string]bool{"System": false, "Templates": false, "Pools": false, "VMs": false}
	for _, tag := range spec.Tags {
		if _, ok := expectedTags[tag.Name]; ok {
			expectedTags[tag.Name] = true
		}
	}
	for name, found := range expectedTags {
		if !found {
			t.Errorf("expected tag %q to be defined", name)
		}
	}
}

func TestAcquirePath_HasResponses(t *testing.T) {
	spec := NewGenerator(DefaultConfig()).Generate()

	acquire := spec.Paths.Find("/api/v1/acquire")
	if acquire == nil || acquire.Post == nil {
		t.Fatal("expected POST /api/v1/acquire")
	}
	for _, status := range []string{"200", "409", "503"} {
		if acquire.Post.Responses.Value(status) == nil {
			t.Errorf("expected %s response on acquire", status)
		}
	}
	if acquire.Post.RequestBody == nil {
		t.Error("expected a request body on acquire")
	}
}

func TestReleasePath_HasRequestBody(t *testing.T) {
	spec := NewGenerator(DefaultConfig()).Generate()

	release := spec.Paths.Find("/api/v1/vms/{name}/release")
	if release == nil || release.Post == nil {
		t.Fatal("expected POST /api/v1/vms/{name}/release")
	}
	if release.Post.RequestBody == nil {
		t.Error("expected a request body on release")
	}
}

func TestHandler_ServesJSON(t *testing.T) {
	generator := NewGenerator(DefaultConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil)
	rec := httptest.NewRecorder()

	generator.Handler()(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json content type, got %s", ct)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON body: %v", err)
	}
	if decoded["openapi"] != "3.0.0" {
		t.Errorf("expected openapi version 3.0.0 in body, got %v", decoded["openapi"])
	}
}

func TestSwaggerUIHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/docs", nil)
	rec := httptest.NewRecorder()

	SwaggerUIHandler("/api/openapi.json")(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !containsString(rec.Body.String(), "hyperwarm API Documentation") {
		t.Error("expected Swagger UI page to reference hyperwarm")
	}
}

func TestRegisterHandlers_Disabled(t *testing.T) {
	mux := http.NewServeMux()
	config := DefaultConfig()
	config.Enabled = false

	RegisterHandlers(mux, config)

	req := httptest.NewRequest(http.MethodGet, config.SpecPath, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected disabled config to register no routes, got status %d", rec.Code)
	}
}

func TestRegisterHandlers_Enabled(t *testing.T) {
	mux := http.NewServeMux()
	config := DefaultConfig()

	RegisterHandlers(mux, config)

	req := httptest.NewRequest(http.MethodGet, config.SpecPath, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected spec endpoint to respond 200, got %d", rec.Code)
	}
}

func containsString(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
