package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/ratelimit"
)

// DefaultRequestsPerMinute bounds how hard a dev server or CDN gets hit
const DefaultRequestsPerMinute = 600

type AssetFetcher interface {
	RateLimitedGet(ctx context.Context, url string) (*Response, error)
	Request(ctx context.Context, url string, method string) (*Response, error)
}

// Response is a fully read, decompressed HTTP response
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports whether the server answered 200
func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// StatusError is returned by callers that require a 200 answer
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d for %s", e.StatusCode, e.URL)
}

type assetFetcherImpl struct {
	client      *http.Client
	rateLimiter ratelimit.Limiter
}

// NewAssetFetcher returns a fetcher allowing perMinute requests per minute.
// A nil client uses a client with a 30s timeout.
func NewAssetFetcher(perMinute int, client *http.Client) *assetFetcherImpl {
	if perMinute <= 0 {
		perMinute = DefaultRequestsPerMinute
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &assetFetcherImpl{
		client:      client,
		rateLimiter: ratelimit.New(perMinute, ratelimit.Per(time.Minute)),
	}
}

func (s *assetFetcherImpl) RateLimitedGet(ctx context.Context, url string) (*Response, error) {
	s.rateLimiter.Take()

	return s.Request(ctx, url, http.MethodGet)
}

// Request performs the request and handles gzip bodies, whether or not the
// server labelled them.
func (s *assetFetcherImpl) Request(ctx context.Context, url string, method string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("accept", "*/*")
	req.Header.Set("accept-encoding", "gzip")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}

	// If not marked as gzipped, check for gzip magic number
	isGzipped := strings.Contains(resp.Header.Get("Content-Encoding"), "gzip")
	if !isGzipped {
		isGzipped = len(body) > 2 && body[0] == 0x1f && body[1] == 0x8b
	}

	if isGzipped {
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip body of %s: %w", url, err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gunzip body of %s: %w", url, err)
		}
		body = decompressed
	}

	return &Response{
		URL:         url,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
