package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchDocumentation_SingleRequestJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token", r.Header.Get("X-Auth"))
		assert.Equal(t, "1", r.URL.Query().Get("v"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"openapi":"3.0.0"}`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), testLogger())
	got, err := f.FetchDocumentation(context.Background(), Source{Request: &Request{
		URL:     srv.URL,
		Headers: map[string]string{"X-Auth": "token"},
		Query:   map[string]string{"v": "1"},
	}})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"openapi": "3.0.0"}, got)
}

func TestFetchDocumentation_Non2xxFailsWithURLAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), testLogger())
	_, err := f.FetchDocumentation(context.Background(), Source{Request: &Request{URL: srv.URL}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), srv.URL)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchDocumentation_ParseModes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(`{"n":1}`))
	}))
	defer srv.Close()
	f := NewFetcher(srv.Client(), testLogger())

	// Auto sniffs text/plain into a string.
	got, err := f.FetchDocumentation(context.Background(), Source{Request: &Request{URL: srv.URL}})
	require.NoError(t, err)
	assert.Equal(t, `{"n":1}`, got)

	// Explicit JSON parses regardless of content type.
	got, err = f.FetchDocumentation(context.Background(), Source{Request: &Request{URL: srv.URL, Parse: ParseJSON}})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"n": float64(1)}, got)

	// Buffer returns raw bytes.
	got, err = f.FetchDocumentation(context.Background(), Source{Request: &Request{URL: srv.URL, Parse: ParseBuffer}})
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"n":1}`), got)
}

func TestFetchDocumentation_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"swagger":"2.0"}`), 0o644))

	f := NewFetcher(nil, testLogger())

	// Bare path.
	got, err := f.FetchDocumentation(context.Background(), Source{Request: &Request{URL: path}})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"swagger": "2.0"}, got)

	// file scheme.
	got, err = f.FetchDocumentation(context.Background(), Source{Request: &Request{URL: "file://" + path}})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"swagger": "2.0"}, got)

	_, err = f.FetchDocumentation(context.Background(), Source{Request: &Request{URL: filepath.Join(t.TempDir(), "missing.json")}})
	assert.Error(t, err)
}

func TestFetchDocumentation_MultiRequestMergesInDeclarationOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/a":
			_, _ = w.Write([]byte(`{"paths":{"/pets":{"get":{"operationId":"a"}}}}`))
		case "/b":
			_, _ = w.Write([]byte(`{"paths":{"/pets":{"get":{"operationId":"b"}}}}`))
		}
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), testLogger())
	got, err := f.FetchDocumentation(context.Background(), Source{Requests: []Request{
		{URL: srv.URL + "/a"},
		{URL: srv.URL + "/b"},
	}})
	require.NoError(t, err)

	// Both look OpenAPI-shaped, so auto deep-merges; the later declared
	// document wins at the colliding path+method.
	paths := got.(map[string]interface{})["paths"].(map[string]interface{})
	op := paths["/pets"].(map[string]interface{})["get"].(map[string]interface{})
	assert.Equal(t, "b", op["operationId"])
}

func TestFetchDocumentation_DiscoveryFollowsResolvedRequest(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/bootstrap", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"openapi_url":"/openapi.json"}`))
	})
	mux.HandleFunc("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"openapi":"3.1.0","paths":{}}`))
	})

	f := NewFetcher(srv.Client(), testLogger())
	got, err := f.FetchDocumentation(context.Background(), Source{Discovery: &Discovery{
		Bootstrap: Request{URL: srv.URL + "/bootstrap"},
		Resolve:   WellKnownResolver(srv.URL),
	}})
	require.NoError(t, err)
	assert.Equal(t, "3.1.0", got.(map[string]interface{})["openapi"])
}

func TestFetchDocumentation_DiscoveryResolverErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	resolverErr := errors.New("no schema advertised")
	f := NewFetcher(srv.Client(), testLogger())
	_, err := f.FetchDocumentation(context.Background(), Source{Discovery: &Discovery{
		Bootstrap: Request{URL: srv.URL},
		Resolve: func(bootstrap interface{}) ([]Request, error) {
			return nil, resolverErr
		},
	}})
	require.Error(t, err)
	assert.ErrorIs(t, err, resolverErr)
}

func TestFetchDocumentation_CustomMergeFuncOverrides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"paths":{}}`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), testLogger())
	got, err := f.FetchDocumentation(context.Background(), Source{
		Requests: []Request{{URL: srv.URL}, {URL: srv.URL}},
		MergeFunc: func(docs []interface{}) (interface{}, error) {
			return map[string]interface{}{"count": len(docs)}, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"count": 2}, got)
}

func TestFetchDocumentation_EmptySourceRejected(t *testing.T) {
	f := NewFetcher(nil, testLogger())
	_, err := f.FetchDocumentation(context.Background(), Source{})
	assert.Error(t, err)
}
