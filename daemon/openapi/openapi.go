// SPDX-License-Identifier: LGPL-3.0-or-later

// Package openapi generates an OpenAPI 3 description of the daemon's HTTP
// façade for operator tooling (Swagger UI, client generators), and serves
// it alongside a bundled Swagger UI page.
package openapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Config holds OpenAPI generation and serving settings.
type Config struct {
	Enabled bool

	Title       string
	Description string
	Version     string
	ServerURL   string

	ContactName  string
	ContactEmail string

	LicenseName string
	LicenseURL  string

	// SwaggerUIPath is where the bundled Swagger UI page is served.
	SwaggerUIPath string
	// SpecPath is where the generated spec document is served.
	SpecPath string
}

// DefaultConfig returns the settings the daemon serves the façade docs
// under by default.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		Title:         "hyperwarm API",
		Description:   "Save-state VM pool orchestration for a single Hyper-V host",
		Version:       "1.0.0",
		ServerURL:     "http://localhost:8080",
		ContactName:   "hyperwarm",
		LicenseName:   "LGPL-3.0-or-later",
		LicenseURL:    "https://www.gnu.org/licenses/lgpl-3.0.html",
		SwaggerUIPath: "/api/docs",
		SpecPath:      "/api/openapi.json",
	}
}

// Generator builds the OpenAPI document describing the HTTP façade.
type Generator struct {
	config *Config
	spec   *openapi3.T
}

// NewGenerator creates a Generator, defaulting config when nil.
func NewGenerator(config *Config) *Generator {
	if config == nil {
		config = DefaultConfig()
	}

	spec := &openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:       config.Title,
			Description: config.Description,
			Version:     config.Version,
			Contact: &openapi3.Contact{
				Name:  config.ContactName,
				Email: config.ContactEmail,
			},
			License: &openapi3.License{
				Name: config.LicenseName,
				URL:  config.LicenseURL,
			},
		},
		Servers: openapi3.Servers{
			{URL: config.ServerURL, Description: "hyperwarm daemon"},
		},
		Paths:      openapi3.NewPaths(),
		Components: &openapi3.Components{},
	}

	return &Generator{config: config, spec: spec}
}

// Generate builds and returns the complete spec document.
func (g *Generator) Generate() *openapi3.T {
	g.addSecuritySchemes()
	g.addSchemas()
	g.addPaths()
	g.addTags()
	return g.spec
}

func (g *Generator) addSecuritySchemes() {
	if g.spec.Components.SecuritySchemes == nil {
		g.spec.Components.SecuritySchemes = make(openapi3.SecuritySchemes)
	}
	g.spec.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "Bearer token authentication",
		},
	}
}

func (g *Generator) addSchemas() {
	if g.spec.Components.Schemas == nil {
		g.spec.Components.Schemas = make(openapi3.Schemas)
	}

	g.spec.Components.Schemas["Template"] = objectSchema(openapi3.Schemas{
		"name":          stringProp("Template name", "win11-golden"),
		"disk_path":     stringProp("Path to the golden VHDX", `C:\vms\templates\win11.vhdx`),
		"default_mem_mb": intProp("Default memory in MB for cloned VMs", 4096),
		"default_cpus":  intProp("Default vCPU count for cloned VMs", 2),
		"gpu_enabled":   boolProp("Whether cloned VMs request GPU partitioning"),
		"created_at":    dateTimeProp("Registration timestamp"),
	}, "name", "disk_path")

	g.spec.Components.Schemas["Pool"] = objectSchema(openapi3.Schemas{
		"name":                     stringProp("Pool name", "win11-pool"),
		"template_id":              stringProp("ID of the template this pool clones from", "3f1c..."),
		"desired_count":            intProp("Total VM slots the pool holds", 5),
		"warm_count":               intProp("Target number of saved, unleased VMs", 3),
		"per_host_cap":             intProp("Max VMs of this pool that may run concurrently (0 = unbounded)", 0),
		"default_reset_on_release": boolProp("Whether a release without an explicit decision resets the VM"),
	}, "name", "template_id")

	g.spec.Components.Schemas["VM"] = objectSchema(openapi3.Schemas{
		"name":             stringProp("VM name", "win11-pool-3"),
		"pool":             stringProp("Owning pool name", "win11-pool"),
		"state":            enumProp("Lifecycle state", []interface{}{"off", "running", "saved", "paused", "error"}, "saved"),
		"ip_address":       stringProp("Guest IP address once known", "10.0.5.14"),
		"leased":           boolProp("Whether a lease currently holds this VM"),
		"last_resumed_at":  dateTimeProp("Last successful resume timestamp"),
		"error_message":    stringProp("Error detail when state is error", ""),
	}, "name", "pool", "state")

	g.spec.Components.Schemas["AcquireRequest"] = objectSchema(openapi3.Schemas{
		"pool_name": stringProp("Pool to acquire a warm VM from", "win11-pool"),
	}, "pool_name")

	g.spec.Components.Schemas["AcquireResponse"] = objectSchema(openapi3.Schemas{
		"vm_name":        stringProp("Leased VM name", "win11-pool-3"),
		"lease_id":       stringProp("Lease identifier", "8f3c..."),
		"ip_address":     stringProp("Guest IP address", "10.0.5.14"),
		"resume_time_ms": intProp("Time spent resuming this VM, in milliseconds", 640),
		"mcp_endpoint":   stringProp("Where to reach the acquired VM's MCP server", "http://10.0.5.14:7331/mcp"),
	}, "vm_name", "lease_id")

	g.spec.Components.Schemas["ReleaseRequest"] = objectSchema(openapi3.Schemas{
		"reset": boolProp("Restore the VM to its clean checkpoint before saving it back"),
	})

	g.spec.Components.Schemas["Error"] = objectSchema(openapi3.Schemas{
		"error":   stringProp("Error kind (maps to CLI exit code / HTTP status)", "not_found"),
		"message": stringProp("Error detail", "not_found: vm not found"),
	}, "error", "message")
}

func (g *Generator) addPaths() {
	g.spec.Paths.Set("/health", &openapi3.PathItem{
		Get: op("System", "healthCheck", "Health check", "Reports that the daemon is serving, with its release version", nil,
			jsonResponse(200, "Healthy", objectSchema(openapi3.Schemas{
				"status":  stringProp("", "healthy"),
				"version": stringProp("Daemon release version", "0.1.0"),
			})),
		),
	})

	g.spec.Paths.Set("/api/v1/templates", &openapi3.PathItem{
		Get: op("Templates", "listTemplates", "List templates", "Lists every registered golden-image template", nil,
			jsonResponse(200, "Templates", objectSchema(openapi3.Schemas{
				"templates": arraySchema(ref("Template")),
				"total":     intProp("Number of templates", 1),
			})),
		),
	})

	g.spec.Paths.Set("/api/v1/pools/{pool}", &openapi3.PathItem{
		Get: op("Pools", "getPool", "Pool details", "Returns one pool's configuration", pathParam("pool", "Pool name"),
			jsonResponse(200, "Pool", ref("Pool")),
			jsonResponse(404, "Pool not found", ref("Error")),
		),
	})

	g.spec.Paths.Set("/api/v1/pools/{pool}/vms", &openapi3.PathItem{
		Get: op("VMs", "listPoolVMs", "List VMs in a pool", "Lists every VM belonging to a pool with its current state", pathParam("pool", "Pool name"),
			jsonResponse(200, "VMs", objectSchema(openapi3.Schemas{
				"vms":       arraySchema(ref("VM")),
				"total":     intProp("Number of VMs", 1),
				"timestamp": dateTimeProp("When the list was read"),
			})),
			jsonResponse(404, "Pool not found", ref("Error")),
		),
	})

	g.spec.Paths.Set("/api/v1/vms/{name}", &openapi3.PathItem{
		Get: op("VMs", "getVM", "VM details", "Returns one VM's full record", pathParam("name", "VM name"),
			jsonResponse(200, "VM", ref("VM")),
			jsonResponse(404, "VM not found", ref("Error")),
		),
	})

	g.spec.Paths.Set("/api/v1/acquire", &openapi3.PathItem{
		Post: opWithBody("VMs", "acquire", "Acquire a warm VM", "Leases and resumes the next available warm VM in the named pool", nil, ref("AcquireRequest"),
			jsonResponse(200, "Acquired", ref("AcquireResponse")),
			jsonResponse(409, "No warm VM available", ref("Error")),
			jsonResponse(503, "Insufficient host memory", ref("Error")),
		),
	})

	g.spec.Paths.Set("/api/v1/vms/{name}/release", &openapi3.PathItem{
		Post: opWithBody("VMs", "release", "Release a VM", "Releases a leased VM back to the pool, optionally resetting it", pathParam("name", "VM name"), ref("ReleaseRequest"),
			jsonResponse(204, "Released", nil),
			jsonResponse(409, "VM not in a state that can be saved back", ref("Error")),
		),
	})

	g.spec.Paths.Set("/api/v1/vms/{name}/resume", &openapi3.PathItem{
		Post: op("VMs", "resume", "Resume a VM directly", "Resumes a specific VM, bypassing the pool lease", pathParam("name", "VM name"),
			jsonResponse(200, "Resumed", objectSchema(openapi3.Schemas{
				"vm_name":        stringProp("Resumed VM name", "win11-pool-3"),
				"ip_address":     stringProp("Guest IP address", "10.0.5.14"),
				"resume_time_ms": intProp("Time spent resuming this VM, in milliseconds", 640),
			})),
			jsonResponse(404, "VM not found", ref("Error")),
		),
	})
}

func (g *Generator) addTags() {
	g.spec.Tags = openapi3.Tags{
		{Name: "System", Description: "Health and operational endpoints"},
		{Name: "Templates", Description: "Golden-image template endpoints"},
		{Name: "Pools", Description: "VM pool endpoints"},
		{Name: "VMs", Description: "Individual VM endpoints"},
	}
}

// Handler serves the generated OpenAPI document as JSON.
func (g *Generator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := g.Generate()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(spec)
	}
}

// SwaggerUIHandler serves a Swagger UI page pointed at specPath.
func SwaggerUIHandler(specPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		html := generateSwaggerUIHTML(specPath)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
	}
}

func generateSwaggerUIHTML(specPath string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>hyperwarm API Documentation</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5.10.0/swagger-ui.css">
    <style>
        html { box-sizing: border-box; overflow: -moz-scrollbars-vertical; overflow-y: scroll; }
        *, *:before, *:after { box-sizing: inherit; }
        body { margin: 0; padding: 0; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.10.0/swagger-ui-bundle.js"></script>
    <script src="https://unpkg.com/swagger-ui-dist@5.10.0/swagger-ui-standalone-preset.js"></script>
    <script>
        window.onload = function() {
            const ui = SwaggerUIBundle({
                url: "%s",
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [
                    SwaggerUIBundle.presets.apis,
                    SwaggerUIStandalonePreset
                ],
                plugins: [
                    SwaggerUIBundle.plugins.DownloadUrl
                ],
                layout: "StandaloneLayout"
            });
            window.ui = ui;
        };
    </script>
</body>
</html>`, specPath)
}

// RegisterHandlers wires the spec and Swagger UI endpoints onto mux.
func RegisterHandlers(mux *http.ServeMux, config *Config) {
	if !config.Enabled {
		return
	}

	generator := NewGenerator(config)
	mux.HandleFunc(config.SpecPath, generator.Handler())
	mux.HandleFunc(config.SwaggerUIPath, SwaggerUIHandler(config.SpecPath))

	docsRoot := strings.TrimSuffix(config.SwaggerUIPath, "/")
	if docsRoot != config.SwaggerUIPath {
		mux.HandleFunc(docsRoot, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, config.SwaggerUIPath, http.StatusMovedPermanently)
		})
	}
}

// --- schema/path construction helpers ---

func strPtr(s string) *string { return &s }

func objectSchema(props openapi3.Schemas, required ...string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: props,
		Required:   required,
	}}
}

func arraySchema(items *openapi3.SchemaRef) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:  &openapi3.Types{"array"},
		Items: items,
	}}
}

func stringProp(desc, example string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: desc, Example: example}}
}

func intProp(desc string, example int) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Description: desc, Example: example}}
}

func boolProp(desc string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}, Description: desc}}
}

func dateTimeProp(desc string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time", Description: desc}}
}

func enumProp(desc string, values []interface{}, example string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: desc, Enum: values, Example: example}}
}

func ref(schema string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Ref: "#/components/schemas/" + schema}
}

func pathParam(name, desc string) openapi3.Parameters {
	return openapi3.Parameters{{Value: &openapi3.Parameter{
		Name: name, In: "path", Required: true, Description: desc,
		Schema: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
	}}}
}

type statusResponse struct {
	status int
	ref    *openapi3.ResponseRef
}

func jsonResponse(status int, desc string, schema *openapi3.SchemaRef) statusResponse {
	resp := &openapi3.Response{Description: strPtr(desc)}
	if schema != nil {
		resp.Content = openapi3.Content{"application/json": &openapi3.MediaType{Schema: schema}}
	}
	return statusResponse{status: status, ref: &openapi3.ResponseRef{Value: resp}}
}

func op(tag, id, summary, desc string, params openapi3.Parameters, responses ...statusResponse) *openapi3.Operation {
	opts := make([]func(*openapi3.Responses), 0, len(responses))
	for _, sr := range responses {
		opts = append(opts, openapi3.WithStatus(sr.status, sr.ref))
	}
	return &openapi3.Operation{
		Tags:        []string{tag},
		OperationID: id,
		Summary:     summary,
		Description: desc,
		Parameters:  params,
		Responses:   openapi3.NewResponses(opts...),
	}
}

func opWithBody(tag, id, summary, desc string, params openapi3.Parameters, body *openapi3.SchemaRef, responses ...statusResponse) *openapi3.Operation {
	o := op(tag, id, summary, desc, params, responses...)
	o.RequestBody = &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
		Required: false,
		Content:  openapi3.Content{"application/json": &openapi3.MediaType{Schema: body}},
	}}
	return o
}
