package api

import (
	"net/http"
	"slices"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type openAPIDoc struct {
	Paths map[string]map[string]any `yaml:"paths"`
}

// TestOpenAPIMatchesRouter fails when a route is registered but not
// documented in openapi.yaml, or documented but not registered.
func TestOpenAPIMatchesRouter(t *testing.T) {
	var doc openAPIDoc
	require.NoError(t, yaml.Unmarshal(openapiSpec, &doc))

	documented := map[string]bool{}
	for path, methods := range doc.Paths {
		for method := range methods {
			if strings.HasPrefix(method, "x-") || method == "parameters" {
				continue
			}
			documented[strings.ToUpper(method)+" "+path] = true
		}
	}

	// Router only registers handlers, so a zero API is enough to walk it.
	registered := map[string]bool{}
	err := chi.Walk((&API{}).Router(), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		route = strings.TrimRight(route, "/")
		if route == "/openapi.yaml" || strings.HasPrefix(route, "/docs") || strings.HasPrefix(route, "/redoc") {
			return nil
		}
		registered[method+" "+route] = true
		return nil
	})
	require.NoError(t, err)

	var undocumented, stale []string
	for r := range registered {
		if !documented[r] {
			undocumented = append(undocumented, r)
		}
	}
	for r := range documented {
		if !registered[r] {
			stale = append(stale, r)
		}
	}
	slices.Sort(undocumented)
	slices.Sort(stale)
	assert.Empty(t, undocumented, "routes missing from openapi.yaml")
	assert.Empty(t, stale, "openapi.yaml paths with no route")
}
