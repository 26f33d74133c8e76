// Package report delivers classified spots to their consumers.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"ft8spotter/go-spotter/internal/model"
	"ft8spotter/go-spotter/internal/need"
)

// Reporter receives every classified spot.
type Reporter interface {
	Report(ctx context.Context, spot model.Spot) error
}

// Multi fans a spot out to several reporters, reporting to all of them even
// when one fails.
type Multi []Reporter

// Report implements Reporter.
func (m Multi) Report(ctx context.Context, spot model.Spot) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, spot); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DefaultSeparatorGap is the quiet period after which the console prints a
// separator, roughly one FT8 receive cycle.
const DefaultSeparatorGap = 5 * time.Second

const separator = "------------------------------------------------------"

// Console writes one line per spot: "CALL - Entity [label]".
type Console struct {
	mu   sync.Mutex
	w    io.Writer
	gap  time.Duration
	last time.Time

	now func() time.Time
}

// NewConsole returns a console reporter writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, gap: DefaultSeparatorGap, now: time.Now}
}

// Report implements Reporter.
func (c *Console) Report(_ context.Context, spot model.Spot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var b strings.Builder
	if !c.last.IsZero() && now.Sub(c.last) > c.gap {
		b.WriteString(separator)
		b.WriteByte('\n')
	}
	c.last = now

	fmt.Fprintf(&b, "%s - %s", spot.Callsign, spot.EntityName())
	if spot.Label != "" && spot.Label != need.LabelNone {
		fmt.Fprintf(&b, " [%s]", spot.Label)
	}
	b.WriteByte('\n')

	if _, err := io.WriteString(c.w, b.String()); err != nil {
		return fmt.Errorf("write console: %w", err)
	}
	return nil
}
