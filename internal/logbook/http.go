package logbook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPSource queries a Cloudlog-style API:
//
//	GET {base}/country_worked/{dxcc}/{scope}
//	GET {base}/gridsquare_worked/{grid}/{scope}
//
// Each answers with a bare non-negative integer.
type HTTPSource struct {
	base   string
	client *http.Client
}

// NewHTTPSource returns a source rooted at baseURL. A nil client gets a
// default with a 10 second timeout.
func NewHTTPSource(baseURL string, client *http.Client) (*HTTPSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse logbook url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("logbook url %q: scheme must be http or https", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSource{base: strings.TrimRight(baseURL, "/"), client: client}, nil
}

// CountContacts implements CountSource.
func (s *HTTPSource) CountContacts(ctx context.Context, scope Scope) (int, error) {
	endpoint := s.endpoint(scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build logbook request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("query logbook: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return 0, fmt.Errorf("read logbook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %s returned %s", ErrBadResponse, endpoint, resp.Status)
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(body)))
	if err != nil {
		return 0, fmt.Errorf("%w: %s returned %q", ErrBadResponse, endpoint, body)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s returned negative count %d", ErrBadResponse, endpoint, n)
	}
	return n, nil
}

func (s *HTTPSource) endpoint(scope Scope) string {
	op := "country_worked"
	if scope.Kind == KindGrid {
		op = "gridsquare_worked"
	}

	parts := []string{s.base, op, url.PathEscape(scope.Value())}
	if scope.Band <= 0 {
		parts = append(parts, "all")
	} else {
		parts = append(parts, BandName(scope.Band))
		if scope.Mode != "" {
			parts = append(parts, url.PathEscape(scope.Mode))
		}
	}
	return strings.Join(parts, "/")
}
