package apifox_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeforge/typeforge/internal/adapter"
	"github.com/typeforge/typeforge/internal/adapter/apifox"
	"github.com/typeforge/typeforge/internal/domain"
	"github.com/typeforge/typeforge/internal/fetch"
)

func decode(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func newAdapter() *apifox.Adapter {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return apifox.NewAdapter(fetch.NewFetcher(nil, logger), logger)
}

func TestParse_DelegatesOpenAPIShapedExport(t *testing.T) {
	raw := `{"openapi":"3.0.0","paths":{"/pets":{"get":{"operationId":"listPets","responses":{}}}}}`

	def, err := newAdapter().Parse(decode(t, raw), adapter.SourceConfig{})
	require.NoError(t, err)
	require.Len(t, def.Endpoints, 1)
	assert.Equal(t, "listPets", def.Endpoints[0].ID)
	// Delegation keeps the configured dialect tag.
	assert.Equal(t, domain.SourceKindApifox, def.Source.Kind)
}

func TestParse_DelegatesSwaggerShapedExport(t *testing.T) {
	raw := `{"swagger":"2.0","paths":{"/pets":{"get":{"operationId":"listPets","responses":{}}}}}`

	def, err := newAdapter().Parse(decode(t, raw), adapter.SourceConfig{})
	require.NoError(t, err)
	require.Len(t, def.Endpoints, 1)
	assert.Equal(t, domain.SourceKindApifox, def.Source.Kind)
}

func TestParse_NativeExportWeaklyTyped(t *testing.T) {
	raw := `{
		"apifoxProject":{"name":"Pets"},
		"apis":[
			{"name":"List pets","method":"get","path":"/pets","parameters":{"query":[{"name":"limit"}]}},
			{"name":"Create pet","method":"post","path":"/pets","requestBody":{"type":"application/json"}}
		]
	}`

	def, err := newAdapter().Parse(decode(t, raw), adapter.SourceConfig{})
	require.NoError(t, err)
	assert.Equal(t, "Pets", def.Title)
	require.Len(t, def.Endpoints, 2)

	list := def.Endpoints[0]
	assert.Equal(t, "GET", list.Method)
	assert.Equal(t, "/pets", list.Path)
	require.Len(t, list.ParametersIn(domain.LocationQuery), 1)
	// No JSON Schema in the native export: responses stay unknown.
	require.Len(t, list.Responses, 1)
	assert.Equal(t, domain.KindUnknown, list.Responses[0].Schema.Kind)

	create := def.Endpoints[1]
	require.NotNil(t, create.Body)
	assert.Equal(t, domain.KindUnknown, create.Body.Kind)
	assert.Equal(t, "application/json", create.BodyType)
}

func TestParse_APIListKeyAccepted(t *testing.T) {
	raw := `{"apiList":[{"name":"ping","method":"get","path":"/ping"}]}`
	def, err := newAdapter().Parse(decode(t, raw), adapter.SourceConfig{})
	require.NoError(t, err)
	require.Len(t, def.Endpoints, 1)
}

func TestParse_RejectsUnrecognizedShape(t *testing.T) {
	_, err := newAdapter().Parse(decode(t, `{"info":{"schema":"postman"}}`), adapter.SourceConfig{Name: "pm"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pm")
}
