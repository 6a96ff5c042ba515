package fetch

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doc(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestMerge_EmptySetFailsFast(t *testing.T) {
	m := NewMerger(testLogger())
	_, err := m.Merge(nil, StrategyAuto)
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestMerge_AutoSingleDocumentIsIdentity(t *testing.T) {
	m := NewMerger(testLogger())
	single := doc(t, `{"openapi":"3.0.0","paths":{"/pets":{"get":{}}},"info":{"title":"t"}}`)

	got, err := m.Merge([]interface{}{single}, StrategyAuto)
	require.NoError(t, err)
	assert.Equal(t, single, got)
}

func TestMerge_AutoSingleNonOpenAPIDocumentIsFirst(t *testing.T) {
	m := NewMerger(testLogger())
	single := doc(t, `{"info":{"name":"collection"}}`)

	got, err := m.Merge([]interface{}{single}, StrategyAuto)
	require.NoError(t, err)
	assert.Equal(t, single, got)
}

func TestMerge_AutoMixedDocumentsBecomeArray(t *testing.T) {
	m := NewMerger(testLogger())
	a := doc(t, `{"paths":{}}`)
	b := doc(t, `{"item":[]}`)

	got, err := m.Merge([]interface{}{a, b}, StrategyAuto)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{a, b}, got)
}

func TestMerge_FirstAndJSONArray(t *testing.T) {
	m := NewMerger(testLogger())
	a := doc(t, `{"a":1}`)
	b := doc(t, `{"b":2}`)

	got, err := m.Merge([]interface{}{a, b}, StrategyFirst)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	got, err = m.Merge([]interface{}{a, b}, StrategyJSONArray)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{a, b}, got)
}

func TestMerge_SwaggerRejectsUnshapedDocuments(t *testing.T) {
	m := NewMerger(testLogger())
	_, err := m.Merge([]interface{}{doc(t, `{"paths":{}}`), doc(t, `{"nope":true}`)}, StrategySwagger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document 1")
}

func TestMerge_OpenAPIPathsLaterWinsPerMethod(t *testing.T) {
	m := NewMerger(testLogger())
	a := doc(t, `{"paths":{"/pets":{"get":{"operationId":"old"},"delete":{"operationId":"del"}}}}`)
	b := doc(t, `{"paths":{"/pets":{"get":{"operationId":"new"}},"/toys":{"get":{}}}}`)

	got, err := m.Merge([]interface{}{a, b}, StrategyOpenAPI)
	require.NoError(t, err)

	merged := got.(map[string]interface{})
	paths := merged["paths"].(map[string]interface{})
	pets := paths["/pets"].(map[string]interface{})
	assert.Equal(t, "new", pets["get"].(map[string]interface{})["operationId"])
	// Untouched sibling method survives.
	assert.Equal(t, "del", pets["delete"].(map[string]interface{})["operationId"])
	assert.Contains(t, paths, "/toys")
}

func TestMerge_ComponentsSectionsMergeOneLevelDeep(t *testing.T) {
	m := NewMerger(testLogger())
	a := doc(t, `{"paths":{},"components":{"schemas":{"Pet":{"type":"object","required":["id"]},"Tag":{"type":"string"}}}}`)
	b := doc(t, `{"paths":{},"components":{"schemas":{"Pet":{"type":"object","description":"v2"}},"parameters":{"limit":{"in":"query"}}}}`)

	got, err := m.Merge([]interface{}{a, b}, StrategySwagger)
	require.NoError(t, err)

	components := got.(map[string]interface{})["components"].(map[string]interface{})
	schemas := components["schemas"].(map[string]interface{})
	pet := schemas["Pet"].(map[string]interface{})
	// One level deep: Pet's own keys merged, later wins on leaf conflict.
	assert.Equal(t, "v2", pet["description"])
	assert.Equal(t, []interface{}{"id"}, pet["required"])
	assert.Contains(t, schemas, "Tag")
	assert.Contains(t, components, "parameters")
}

func TestMerge_TagsAndServersDeduplicated(t *testing.T) {
	m := NewMerger(testLogger())
	a := doc(t, `{"paths":{},"tags":[{"name":"pets","description":"old"}],"servers":[{"url":"https://a"}]}`)
	b := doc(t, `{"paths":{},"tags":[{"name":"pets","description":"new"},{"name":"toys"}],"servers":[{"url":"https://a","description":"primary"},{"url":"https://b"}]}`)

	got, err := m.Merge([]interface{}{a, b}, StrategyOpenAPI)
	require.NoError(t, err)
	merged := got.(map[string]interface{})

	tags := merged["tags"].([]interface{})
	require.Len(t, tags, 2)
	assert.Equal(t, "new", tags[0].(map[string]interface{})["description"])

	servers := merged["servers"].([]interface{})
	require.Len(t, servers, 2)
	assert.Equal(t, "primary", servers[0].(map[string]interface{})["description"])
}

func TestMerge_UnsupportedStrategy(t *testing.T) {
	m := NewMerger(testLogger())
	_, err := m.Merge([]interface{}{doc(t, `{}`)}, Strategy("zip"))
	assert.Error(t, err)
}
