package stats

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/jsh-team/chunkbroker/internal/utils/fetch"
)

// Decode reads a stats snapshot from r
func Decode(r io.Reader) (*Stats, error) {
	var s Stats
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}

	// Drop null entries so callers never see nil chunks or modules
	chunks := s.Chunks[:0]
	for _, chunk := range s.Chunks {
		if chunk == nil {
			continue
		}
		modules := chunk.Modules[:0]
		for _, module := range chunk.Modules {
			if module != nil {
				modules = append(modules, module)
			}
		}
		chunk.Modules = modules
		chunks = append(chunks, chunk)
	}
	s.Chunks = chunks

	return &s, nil
}

// LoadFile reads a stats snapshot from disk
func LoadFile(path string) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats file: %w", err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Load reads a stats snapshot from a file path or, for http(s) sources, from
// a running dev server through fetcher
func Load(ctx context.Context, source string, fetcher fetch.AssetFetcher) (*Stats, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return LoadFile(source)
	}

	if fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured for remote stats %s", source)
	}

	resp, err := fetcher.RateLimitedGet(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stats: %w", err)
	}
	if !resp.OK() {
		return nil, &fetch.StatusError{URL: source, StatusCode: resp.StatusCode}
	}

	return Decode(bytes.NewReader(resp.Body))
}
