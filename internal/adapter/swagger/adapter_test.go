package swagger_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeforge/typeforge/internal/adapter"
	"github.com/typeforge/typeforge/internal/adapter/swagger"
	"github.com/typeforge/typeforge/internal/domain"
	"github.com/typeforge/typeforge/internal/fetch"
)

func decode(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func newAdapter() *swagger.Adapter {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return swagger.NewAdapter(fetch.NewFetcher(nil, logger), logger)
}

func TestIsDocument(t *testing.T) {
	assert.True(t, swagger.IsDocument(decode(t, `{"swagger":"2.0","paths":{}}`)))
	assert.False(t, swagger.IsDocument(decode(t, `{"swagger":"1.2","paths":{}}`)))
	assert.False(t, swagger.IsDocument(decode(t, `{"openapi":"3.0.0","paths":{}}`)))
}

func TestParse_BodyParameterExtractedSeparately(t *testing.T) {
	raw := `{"swagger":"2.0","paths":{"/pets":{"post":{
		"operationId":"createPet",
		"parameters":[
			{"name":"verbose","in":"query","type":"boolean"},
			{"name":"pet","in":"body","required":true,"schema":{"type":"object","required":["name"],"properties":{"name":{"type":"string"}}}}
		],
		"responses":{"201":{"description":"created","schema":{"type":"object"}}}
	}}}}`

	def, err := newAdapter().Parse(decode(t, raw), adapter.SourceConfig{})
	require.NoError(t, err)
	require.Len(t, def.Endpoints, 1)

	ep := def.Endpoints[0]
	// The body param is hoisted out of the parameter list.
	require.NotNil(t, ep.Body)
	assert.Equal(t, domain.KindObject, ep.Body.Kind)
	assert.Equal(t, []string{"name"}, ep.Body.Required)
	assert.Empty(t, ep.ParametersIn(domain.LocationBody))
	require.Len(t, ep.ParametersIn(domain.LocationQuery), 1)
	assert.Equal(t, domain.KindBoolean, ep.ParametersIn(domain.LocationQuery)[0].Schema.Kind)
}

func TestParse_InlineParameterTypes(t *testing.T) {
	raw := `{"swagger":"2.0","paths":{"/pets/{id}":{"get":{
		"parameters":[
			{"name":"id","in":"path","required":true,"type":"integer"},
			{"name":"X-Trace","in":"header","type":"string"},
			{"name":"label","in":"formData","type":"string"}
		],
		"responses":{}
	}}}}`

	def, err := newAdapter().Parse(decode(t, raw), adapter.SourceConfig{})
	require.NoError(t, err)
	ep := def.Endpoints[0]
	assert.Equal(t, domain.KindInteger, ep.ParametersIn(domain.LocationPath)[0].Schema.Kind)
	assert.Len(t, ep.ParametersIn(domain.LocationHeader), 1)
	// formData fields travel in the body bucket.
	assert.Len(t, ep.ParametersIn(domain.LocationBody), 1)
}

func TestParse_ServersFromHostBasePathSchemes(t *testing.T) {
	raw := `{"swagger":"2.0","host":"api.example.com","basePath":"/v2","schemes":["https","http"],"paths":{}}`

	def, err := newAdapter().Parse(decode(t, raw), adapter.SourceConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://api.example.com/v2", "http://api.example.com/v2"}, def.Servers)
}

func TestParse_ResponseContentTypeFromProduces(t *testing.T) {
	raw := `{"swagger":"2.0","produces":["application/xml"],"paths":{"/pets":{"get":{
		"responses":{"200":{"description":"ok","schema":{"type":"array","items":{"type":"string"}}}}
	}}}}`

	def, err := newAdapter().Parse(decode(t, raw), adapter.SourceConfig{})
	require.NoError(t, err)
	resp := def.Endpoints[0].SuccessResponse()
	require.NotNil(t, resp)
	assert.Equal(t, "application/xml", resp.ContentType)
}

func TestParse_DefinitionsBecomeTypes(t *testing.T) {
	raw := `{"swagger":"2.0","paths":{},"definitions":{"Pet":{"type":"object","properties":{"id":{"type":"integer"}}}}}`

	def, err := newAdapter().Parse(decode(t, raw), adapter.SourceConfig{})
	require.NoError(t, err)
	require.Contains(t, def.Types, "Pet")
}

func TestParse_RejectsWrongShape(t *testing.T) {
	_, err := newAdapter().Parse(decode(t, `{"openapi":"3.0.0","paths":{}}`), adapter.SourceConfig{Name: "v3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "v3")
}
