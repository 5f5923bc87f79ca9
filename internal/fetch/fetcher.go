// Package fetch retrieves every backend resource for one dashboard cycle.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	forgeerrors "github.com/forgev2/forge-admin/internal/errors"
	"github.com/forgev2/forge-admin/internal/observability"
	"github.com/forgev2/forge-admin/pkg/types"
)

// Fetcher issues GET <base>/data/{resource} for each resource concurrently.
// A failed resource yields no rows; it never fails the whole cycle.
type Fetcher struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
	stats   *observability.FetchStats
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithTimeout bounds each resource request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// WithStats records every fetch outcome into s.
func WithStats(s *observability.FetchStats) Option {
	return func(f *Fetcher) {
		f.stats = s
	}
}

// New creates a fetcher for the backend at baseURL.
func New(baseURL string, opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll fetches the named resources, or every resource when none are
// given. The returned set contains an entry for every requested name.
func (f *Fetcher) FetchAll(ctx context.Context, names ...types.ResourceName) *types.ResourceSet {
	if len(names) == 0 {
		names = types.AllResources
	}

	type result struct {
		rows    []types.Row
		columns []string
	}
	results := make([]result, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name types.ResourceName) {
			defer wg.Done()

			start := time.Now()
			rows, cols, err := f.fetchOne(ctx, name)
			elapsed := time.Since(start)

			if f.stats != nil {
				f.stats.Record(string(name), len(rows), elapsed, err)
			}
			if err != nil {
				f.logger.Warn("resource fetch failed",
					zap.String("resource", string(name)),
					zap.Duration("elapsed", elapsed),
					zap.Error(err))
				rows, cols = []types.Row{}, nil
			} else {
				if issues := types.Validate(name, rows); len(issues) > 0 {
					f.logger.Warn("resource rows missing required fields",
						zap.String("resource", string(name)),
						zap.Int("issues", len(issues)),
						zap.Stringer("first", issues[0]))
				}
				f.logger.Debug("resource fetched",
					zap.String("resource", string(name)),
					zap.Int("rows", len(rows)),
					zap.Duration("elapsed", elapsed))
			}
			results[i] = result{rows: rows, columns: cols}
		}(i, name)
	}
	wg.Wait()

	set := types.NewResourceSet()
	for i, name := range names {
		set.Put(name, results[i].rows, results[i].columns)
	}
	return set
}

func (f *Fetcher) fetchOne(ctx context.Context, name types.ResourceName) ([]types.Row, []string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	endpoint := fmt.Sprintf("%s/data/%s", f.baseURL, url.PathEscape(string(name)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, forgeerrors.NewFetchError(forgeerrors.CodeTransportFailed, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, forgeerrors.NewFetchError(forgeerrors.CodeTransportFailed, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, forgeerrors.NewFetchError(forgeerrors.CodeTransportFailed, "failed to read response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, forgeerrors.New(forgeerrors.ErrCategoryFetch, forgeerrors.CodeBadStatus,
			fmt.Sprintf("unexpected status %d", resp.StatusCode)).
			WithDetails(map[string]interface{}{"status": resp.StatusCode})
	}

	return DecodeEnvelope(body)
}

// DecodeEnvelope decodes a {"data": [...]} response body. A missing or null
// data member decodes to no rows. The column order is taken from the key
// order of the first row.
func DecodeEnvelope(body []byte) ([]types.Row, []string, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, forgeerrors.NewFetchError(forgeerrors.CodeMalformedBody, "response is not a JSON object", err)
	}

	raw := bytes.TrimSpace(env.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []types.Row{}, nil, nil
	}
	if raw[0] != '[' {
		return nil, nil, forgeerrors.NewFetchError(forgeerrors.CodeMalformedBody, "data is not an array", nil)
	}

	var rows []types.Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, nil, forgeerrors.NewFetchError(forgeerrors.CodeMalformedBody, "data rows are not objects", err)
	}
	if rows == nil {
		rows = []types.Row{}
	}

	cols, err := FirstObjectKeys(raw)
	if err != nil {
		return nil, nil, forgeerrors.NewFetchError(forgeerrors.CodeMalformedBody, "failed to read column order", err)
	}
	return rows, cols, nil
}

// FirstObjectKeys returns the member names of the first object in a JSON
// array, in document order. Duplicate names are reported once.
func FirstObjectKeys(array []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(array))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('[') {
		return nil, fmt.Errorf("expected array")
	}
	if !dec.More() {
		return nil, nil
	}
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('{') {
		// first element is null or a scalar
		return nil, nil
	}

	var keys []string
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
