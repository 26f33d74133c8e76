package logbook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScopePath(t *testing.T) {
	assert.Equal(t, "all", CountryScope(291, 0, "FT8").Path())
	assert.Equal(t, "20m", CountryScope(291, 20, "").Path())
	assert.Equal(t, "20m/FT8", CountryScope(291, 20, "FT8").Path())
	assert.Equal(t, "291", CountryScope(291, 20, "FT8").Value())

	g := GridScope("io91wm", 40, "")
	assert.Equal(t, "IO91", g.Grid)
	assert.Equal(t, "IO91", g.Value())
	assert.Equal(t, "40m", g.Path())
	assert.Equal(t, "grid IO91 40m", g.String())
}

func TestHTTPSourcePaths(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		_, _ = w.Write([]byte("3\n"))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL+"/index.php/api/", nil)
	require.NoError(t, err)

	ctx := context.Background()
	for _, scope := range []Scope{
		CountryScope(291, 0, ""),
		CountryScope(291, 20, ""),
		CountryScope(291, 20, "FT8"),
		GridScope("JO01", 0, ""),
		GridScope("JO01", 20, "FT8"),
	} {
		n, err := src.CountContacts(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	}

	assert.Equal(t, []string{
		"/index.php/api/country_worked/291/all",
		"/index.php/api/country_worked/291/20m",
		"/index.php/api/country_worked/291/20m/FT8",
		"/index.php/api/gridsquare_worked/JO01/all",
		"/index.php/api/gridsquare_worked/JO01/20m/FT8",
	}, paths)
}

func TestHTTPSourceBadResponses(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"not a number": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>login</html>"))
		},
		"negative": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("-1"))
		},
	}

	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			src, err := NewHTTPSource(srv.URL, nil)
			require.NoError(t, err)

			_, err = src.CountContacts(context.Background(), CountryScope(1, 0, ""))
			assert.ErrorIs(t, err, ErrBadResponse)
		})
	}
}

func TestNewHTTPSourceRejectsBadURL(t *testing.T) {
	_, err := NewHTTPSource("ftp://example.com", nil)
	assert.Error(t, err)
	_, err = NewHTTPSource("://nope", nil)
	assert.Error(t, err)
}

func openTestLogbook(t *testing.T) *SQLiteSource {
	t.Helper()
	src, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "logbook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	require.NoError(t, src.InitSchema(context.Background()))
	return src
}

func TestSQLiteSourceCounts(t *testing.T) {
	src := openTestLogbook(t)
	ctx := context.Background()

	usa, spain := 291, 281
	for _, c := range []Contact{
		{Call: "K1ABC", Band: 20, Mode: "FT8", DXCC: &usa, Grid: "FN42"},
		{Call: "W1AW", Band: 40, Mode: "ft8", DXCC: &usa, Grid: "fn31pr"},
		{Call: "N0CALL", Band: 20, Mode: "SSB", DXCC: &usa},
		{Call: "EA1XX", Band: 20, Mode: "FT8", DXCC: &spain, Grid: "IN52"},
		{Call: "NODXCC", Band: 20, Mode: "FT8", Grid: "FN42aa"},
	} {
		require.NoError(t, src.InsertContact(ctx, c))
	}

	tests := []struct {
		scope Scope
		want  int
	}{
		{CountryScope(291, 0, ""), 3},
		{CountryScope(291, 20, ""), 2},
		{CountryScope(291, 20, "FT8"), 1},
		{CountryScope(291, 40, "FT8"), 1},
		{CountryScope(291, 80, ""), 0},
		{CountryScope(1, 0, ""), 0},
		{GridScope("FN42", 0, ""), 2},
		{GridScope("fn42", 20, "FT8"), 2},
		{GridScope("FN31", 0, ""), 1},
		{GridScope("FN31", 20, ""), 0},
		{GridScope("JO01", 0, ""), 0},
	}

	for _, tt := range tests {
		n, err := src.CountContacts(ctx, tt.scope)
		require.NoError(t, err, tt.scope.String())
		assert.Equal(t, tt.want, n, tt.scope.String())
	}
}

func TestSQLiteSourceUnknownKind(t *testing.T) {
	src := openTestLogbook(t)
	_, err := src.CountContacts(context.Background(), Scope{Kind: "zone"})
	assert.Error(t, err)
}

func TestRetryPolicySchedule(t *testing.T) {
	schedule := DefaultRetryPolicy().Schedule()

	var got []time.Duration
	for i := 0; i < 9; i++ {
		got = append(got, schedule.NextBackOff())
	}
	assert.Equal(t, []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		time.Minute,
		time.Minute,
		time.Minute,
	}, got)
}

type flakySource struct {
	failures int
	calls    int
	ctxs     []context.Context
}

func (f *flakySource) CountContacts(ctx context.Context, scope Scope) (int, error) {
	f.calls++
	f.ctxs = append(f.ctxs, ctx)
	if f.calls <= f.failures {
		return 0, errors.New("connection refused")
	}
	return 7, nil
}

func TestRetryingRetriesUntilSuccess(t *testing.T) {
	src := &flakySource{failures: 8}
	r := NewRetrying(src, DefaultRetryPolicy(), discardLogger())

	var waits []time.Duration
	r.Sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	var attempts []int
	r.OnRetry = func(scope Scope, attempt int, wait time.Duration, err error) {
		attempts = append(attempts, attempt)
	}

	n, err := r.CountContacts(context.Background(), CountryScope(291, 20, "FT8"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, 9, src.calls)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, attempts)
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 32 * time.Second, time.Minute, time.Minute,
	}, waits)
}

func TestRetryingScheduleIsPerQuery(t *testing.T) {
	src := &flakySource{failures: 1}
	r := NewRetrying(src, DefaultRetryPolicy(), discardLogger())
	var waits []time.Duration
	r.Sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	_, err := r.CountContacts(context.Background(), CountryScope(1, 0, ""))
	require.NoError(t, err)
	src.calls, src.failures = 0, 1
	_, err = r.CountContacts(context.Background(), CountryScope(1, 0, ""))
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{time.Second, time.Second}, waits)
}

func TestRetryingStopsBetweenAttempts(t *testing.T) {
	src := &flakySource{failures: 1000}
	r := NewRetrying(src, DefaultRetryPolicy(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	r.Sleep = func(ctx context.Context, d time.Duration) error {
		if src.calls == 3 {
			cancel()
		}
		return ctx.Err()
	}

	_, err := r.CountContacts(ctx, GridScope("JO01", 0, ""))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, src.calls)

	// Attempts never see the caller's cancellation.
	for _, c := range src.ctxs {
		assert.NoError(t, c.Err())
	}
}

func TestRetryingCancelledBeforeFirstAttempt(t *testing.T) {
	src := &flakySource{}
	r := NewRetrying(src, DefaultRetryPolicy(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.CountContacts(ctx, CountryScope(1, 0, ""))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.calls)
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleep(context.Background(), time.Millisecond))
}
