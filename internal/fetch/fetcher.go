package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Fetcher resolves document sources into raw payloads. It is safe for use by
// a single pipeline run; the injected HTTP client carries timeout policy.
type Fetcher struct {
	client *http.Client
	merger *Merger
	logger *slog.Logger
}

// NewFetcher creates a Fetcher. A nil client falls back to
// http.DefaultClient.
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client: client,
		merger: NewMerger(logger),
		logger: logger.With("component", "fetcher"),
	}
}

// FetchDocumentation resolves a source into one raw payload. Multi-request
// and discovery sources fetch concurrently but reduce results in declaration
// order, so the merged output is order-stable regardless of completion
// timing.
func (f *Fetcher) FetchDocumentation(ctx context.Context, src Source) (interface{}, error) {
	switch {
	case src.Request != nil:
		return f.doRequest(ctx, *src.Request)

	case len(src.Requests) > 0:
		docs, err := f.fetchAll(ctx, src.Requests)
		if err != nil {
			return nil, err
		}
		return f.mergeDocs(docs, src)

	case src.Discovery != nil:
		return f.fetchDiscovery(ctx, src)

	default:
		return nil, fmt.Errorf("source has no request, requests or discovery configured")
	}
}

func (f *Fetcher) fetchDiscovery(ctx context.Context, src Source) (interface{}, error) {
	d := src.Discovery
	log := f.logger.With(slog.String("bootstrap_url", d.Bootstrap.URL))
	log.Debug("Fetching discovery bootstrap document")

	bootstrap, err := f.doRequest(ctx, d.Bootstrap)
	if err != nil {
		return nil, fmt.Errorf("discovery bootstrap failed: %w", err)
	}
	if d.Resolve == nil {
		return nil, fmt.Errorf("discovery source for %s has no resolver", d.Bootstrap.URL)
	}
	requests, err := d.Resolve(bootstrap)
	if err != nil {
		// Surface the resolver error; never degrade to an empty document.
		return nil, fmt.Errorf("discovery resolution for %s failed: %w", d.Bootstrap.URL, err)
	}
	if len(requests) == 0 {
		return nil, fmt.Errorf("discovery resolution for %s produced no requests", d.Bootstrap.URL)
	}
	log.Debug("Discovery resolved follow-up requests", slog.Int("count", len(requests)))

	docs, err := f.fetchAll(ctx, requests)
	if err != nil {
		return nil, err
	}
	return f.mergeDocs(docs, src)
}

// fetchAll issues all requests together and awaits them together; results
// land at their declaration index.
func (f *Fetcher) fetchAll(ctx context.Context, requests []Request) ([]interface{}, error) {
	docs := make([]interface{}, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range requests {
		g.Go(func() error {
			doc, err := f.doRequest(gctx, req)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (f *Fetcher) mergeDocs(docs []interface{}, src Source) (interface{}, error) {
	if src.MergeFunc != nil {
		return src.MergeFunc(docs)
	}
	strategy := src.Merge
	if strategy == "" {
		strategy = StrategyAuto
	}
	return f.merger.Merge(docs, strategy)
}

func (f *Fetcher) doRequest(ctx context.Context, req Request) (interface{}, error) {
	if path, ok := req.IsLocal(); ok {
		return f.readLocal(path)
	}
	return f.doHTTP(ctx, req)
}

// readLocal reads a file-scheme or bare-path source and JSON-parses it.
func (f *Fetcher) readLocal(path string) (interface{}, error) {
	f.logger.Debug("Reading document from local file", slog.String("path", path))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document from file %s: %w", path, err)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document from file %s: %w", path, err)
	}
	return doc, nil
}

func (f *Fetcher) doHTTP(ctx context.Context, req Request) (interface{}, error) {
	log := f.logger.With(slog.String("url", req.URL))

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body for %s: %w", req.URL, err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", req.URL, err)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for key, value := range req.Query {
			q.Set(key, value)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	log.Debug("Fetching document", slog.String("method", method))
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document from %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("Received non-2xx status", slog.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("failed to fetch document from %s: status %s", req.URL, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", req.URL, err)
	}

	return decodeBody(data, req.Parse, resp.Header.Get("Content-Type"), req.URL)
}

func decodeBody(data []byte, mode ParseMode, contentType, url string) (interface{}, error) {
	if mode == "" {
		mode = ParseAuto
	}
	switch mode {
	case ParseJSON:
		var doc interface{}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON document from %s: %w", url, err)
		}
		return doc, nil
	case ParseText:
		return string(data), nil
	case ParseBuffer:
		return data, nil
	case ParseAuto:
		media := strings.ToLower(contentType)
		switch {
		case strings.Contains(media, "json"):
			var doc interface{}
			if err := json.Unmarshal(data, &doc); err != nil {
				return nil, fmt.Errorf("failed to parse JSON document from %s: %w", url, err)
			}
			return doc, nil
		case strings.HasPrefix(media, "text/"):
			return string(data), nil
		default:
			// No usable content type: try JSON before giving raw bytes back.
			var doc interface{}
			if err := json.Unmarshal(data, &doc); err == nil {
				return doc, nil
			}
			return data, nil
		}
	default:
		return nil, fmt.Errorf("unsupported parse mode %q for %s", mode, url)
	}
}
