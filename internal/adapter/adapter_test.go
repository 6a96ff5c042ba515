package adapter_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeforge/typeforge/internal/adapter"
	"github.com/typeforge/typeforge/internal/adapter/apifox"
	"github.com/typeforge/typeforge/internal/adapter/openapi"
	"github.com/typeforge/typeforge/internal/adapter/postman"
	"github.com/typeforge/typeforge/internal/adapter/swagger"
	"github.com/typeforge/typeforge/internal/domain"
	"github.com/typeforge/typeforge/internal/fetch"
)

func defaultRegistry() *adapter.Registry {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetcher := fetch.NewFetcher(nil, logger)
	return adapter.NewRegistry(
		openapi.NewAdapter(fetcher, logger),
		swagger.NewAdapter(fetcher, logger),
		postman.NewAdapter(fetcher, logger),
		apifox.NewAdapter(fetcher, logger),
	)
}

func TestCandidates_TypedSourceSelectsMatchingAdapter(t *testing.T) {
	r := defaultRegistry()
	candidates := r.Candidates(adapter.SourceConfig{Type: domain.SourceKindSwagger}, "")
	require.Len(t, candidates, 1)
	assert.Equal(t, domain.SourceKindSwagger, candidates[0].Type())
}

func TestCandidates_UntypedSourceFallsThroughAllInOrder(t *testing.T) {
	r := defaultRegistry()
	candidates := r.Candidates(adapter.SourceConfig{}, "")
	require.Len(t, candidates, 4)
	assert.Equal(t, domain.SourceKindOpenAPI, candidates[0].Type())
	assert.Equal(t, domain.SourceKindApifox, candidates[3].Type())
}

func TestCandidates_PreferTagMovesToFront(t *testing.T) {
	r := defaultRegistry()
	candidates := r.Candidates(adapter.SourceConfig{}, domain.SourceKindPostman)
	require.Len(t, candidates, 4)
	assert.Equal(t, domain.SourceKindPostman, candidates[0].Type())
	// Everyone else keeps registration order.
	assert.Equal(t, domain.SourceKindOpenAPI, candidates[1].Type())
}

func TestFetchSource_RequiresPayload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetcher := fetch.NewFetcher(nil, logger)

	_, err := adapter.FetchSource(context.Background(), fetcher, adapter.SourceConfig{Name: "empty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestSourceName(t *testing.T) {
	assert.Equal(t, "pets", adapter.SourceName(adapter.SourceConfig{Name: "pets"}))
	assert.Equal(t, "openapi", adapter.SourceName(adapter.SourceConfig{Type: domain.SourceKindOpenAPI}))
	assert.Equal(t, "<unnamed>", adapter.SourceName(adapter.SourceConfig{}))
}
