package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestDocumentListsRoutes(t *testing.T) {
	raw, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var doc struct {
		BasePath    string                     `json:"basePath"`
		Paths       map[string]map[string]any  `json:"paths"`
		Definitions map[string]json.RawMessage `json:"definitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	assert.Equal(t, "/api", doc.BasePath)

	routes := map[string][]string{
		"/users":                    {"post"},
		"/users/{id}":               {"get", "patch"},
		"/users/by-email/{email}":   {"get"},
		"/users/by-login/{login}":   {"get"},
		"/users/{id}/binding":       {"get"},
		"/users/{id}/access":        {"get"},
		"/users/{id}/logins":        {"get", "post"},
		"/roles":                    {"get", "post"},
		"/roles/{id}":               {"get", "patch"},
		"/roles/{id}/bindings":      {"get"},
		"/bindings":                 {"post"},
		"/bindings/{id}":            {"get", "delete"},
		"/bindings/{id}/activate":   {"post"},
		"/bindings/{id}/deactivate": {"post"},
		"/sessions/current":         {"delete"},
	}
	assert.Len(t, doc.Paths, len(routes))
	for path, methods := range routes {
		ops, ok := doc.Paths[path]
		if !assert.True(t, ok, "missing %s", path) {
			continue
		}
		for _, m := range methods {
			assert.Contains(t, ops, m, "missing %s %s", m, path)
		}
	}

	for _, name := range []string{"errors.ErrorResponse", "model.User", "model.Role", "model.UserService", "model.LoginHistory", "service.Page", "service.Access"} {
		assert.Contains(t, doc.Definitions, name)
	}
}
