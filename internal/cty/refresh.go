package cty

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// DefaultURL is the Club Log download endpoint. It serves cty.xml gzipped
// and requires an API key.
const DefaultURL = "https://cdn.clublog.org/cty.php"

// Refresher periodically downloads a fresh country file and swaps it into a
// Holder. A failed download or parse leaves the current table in place.
type Refresher struct {
	URL      string
	APIKey   string
	Interval time.Duration
	// CachePath, when set, receives a copy of every successful download so
	// the next start can load it.
	CachePath string
	// OnSwap, if set, is called with each newly installed table.
	OnSwap func(*Table)

	holder *Holder
	client *http.Client
	logger *slog.Logger
}

// NewRefresher returns a refresher feeding holder.
func NewRefresher(holder *Holder, rawURL, apiKey string, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		URL:      rawURL,
		APIKey:   apiKey,
		Interval: interval,
		holder:   holder,
		client:   &http.Client{Timeout: 2 * time.Minute},
		logger:   logger,
	}
}

// Run refreshes every Interval until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	if r.Interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Warn("cty refresh failed, keeping current table", "error", err)
			}
		}
	}
}

// Refresh downloads and installs a new table.
func (r *Refresher) Refresh(ctx context.Context) error {
	endpoint, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("parse cty url: %w", err)
	}
	if r.APIKey != "" {
		q := endpoint.Query()
		q.Set("api", r.APIKey)
		endpoint.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build cty request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("download cty: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download cty: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read cty body: %w", err)
	}

	table, err := LoadCompressed(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse downloaded cty: %w", err)
	}

	r.holder.Swap(table)
	if r.OnSwap != nil {
		r.OnSwap(table)
	}
	r.logger.Info("cty table refreshed",
		"updated", table.Updated,
		"entities", len(table.Entities),
		"prefixes", len(table.Prefixes),
		"exceptions", len(table.Exceptions))

	if r.CachePath != "" {
		if err := writeFileAtomic(r.CachePath, body); err != nil {
			r.logger.Warn("cty cache write failed", "path", r.CachePath, "error", err)
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cty-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
