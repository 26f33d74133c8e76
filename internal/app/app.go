package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/grandcat/zeroconf"

	"ft8spotter/go-spotter/internal/config"
	"ft8spotter/go-spotter/internal/cty"
	"ft8spotter/go-spotter/internal/logbook"
	"ft8spotter/go-spotter/internal/metrics"
	"ft8spotter/go-spotter/internal/model"
	"ft8spotter/go-spotter/internal/need"
	"ft8spotter/go-spotter/internal/report"
	"ft8spotter/go-spotter/internal/spot"
	"ft8spotter/go-spotter/internal/wsjtx"
)

// App wires together the spotter services and manages their lifecycle.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	table      *cty.Holder
	classifier *need.Classifier
	reporter   report.Reporter

	mu   sync.RWMutex
	band int
	mode string

	listening atomic.Bool
	mdns      *zeroconf.Server
}

// New constructs a new application instance.
func New(cfg config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		now:     time.Now,
		table:   cty.NewHolder(nil),
		band:    cfg.Band,
		mode:    cfg.Mode,
	}
}

// Run loads the country table, connects the logbook and reporters, and
// serves until the context is cancelled or a service fails. A country table
// that cannot be loaded is fatal.
func (a *App) Run(ctx context.Context) error {
	table, err := cty.LoadFile(a.cfg.CtyPath)
	if err != nil {
		return fmt.Errorf("load country table: %w", err)
	}
	a.installTable(table)

	counts, closeCounts, err := a.openLogbook(ctx)
	if err != nil {
		return err
	}
	defer closeCounts()

	retrying := logbook.NewRetrying(counts, logbook.RetryPolicy{
		Initial:    a.cfg.RetryInitial,
		Max:        a.cfg.RetryMax,
		Multiplier: 2,
	}, a.logger)
	retrying.OnRetry = func(scope logbook.Scope, _ int, _ time.Duration, _ error) {
		a.metrics.LogbookRetries.WithLabelValues(string(scope.Kind)).Inc()
	}
	a.classifier = need.New(retrying)

	reporters := report.Multi{report.NewConsole(os.Stdout)}
	if a.cfg.MQTTBroker != "" {
		pub, err := report.NewMQTTPublisher(a.cfg.MQTTBroker, a.cfg.MQTTTopic, a.logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		reporters = append(reporters, pub)
	}
	a.reporter = reporters

	refreshErrCh := make(chan error, 1)
	if a.cfg.CtyRefresh > 0 {
		refresher := cty.NewRefresher(a.table, a.cfg.CtyURL, a.cfg.CtyAPIKey, a.cfg.CtyRefresh, a.logger)
		refresher.CachePath = a.cfg.CtyPath
		refresher.OnSwap = a.recordTable
		go func() { refreshErrCh <- refresher.Run(ctx) }()
	}

	listener := wsjtx.NewListener(wsjtx.ListenerConfig{
		Address:        a.cfg.ListenAddress,
		MulticastGroup: a.cfg.MulticastGroup,
		Interface:      a.cfg.MulticastInterface,
	}, a.logger)

	udpErrCh := make(chan error, 1)
	go func() {
		a.listening.Store(true)
		defer a.listening.Store(false)
		udpErrCh <- listener.Run(ctx, a.HandleDatagram)
	}()

	httpErrCh := make(chan error, 1)
	var httpServer *http.Server
	if a.cfg.HTTPPort > 0 {
		httpServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.HTTPPort),
			Handler:           a.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			a.logger.Info("http server started", "addr", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				httpErrCh <- fmt.Errorf("http server: %w", err)
			}
		}()

		if a.cfg.MDNS {
			if err := a.startMDNS(a.cfg.HTTPPort); err != nil {
				a.logger.Warn("mDNS advertisement failed", "error", err)
			}
			defer a.stopMDNS()
		}
	}

	shutdownHTTP := func() {
		if httpServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown", "error", err)
			return
		}
		a.logger.Info("http server stopped")
	}

	for {
		select {
		case <-ctx.Done():
			shutdownHTTP()
			return nil
		case err := <-httpErrCh:
			return err
		case err := <-udpErrCh:
			shutdownHTTP()
			if err != nil {
				return fmt.Errorf("wsjtx listener: %w", err)
			}
			return nil
		case err := <-refreshErrCh:
			if err != nil {
				a.logger.Error("cty refresher stopped", "error", err)
			}
		}
	}
}

func (a *App) openLogbook(ctx context.Context) (logbook.CountSource, func(), error) {
	switch a.cfg.LogbookBackend {
	case config.BackendSQLite:
		src, err := logbook.OpenSQLite(a.cfg.LogbookPath)
		if err != nil {
			return nil, nil, err
		}
		if err := src.InitSchema(ctx); err != nil {
			_ = src.Close()
			return nil, nil, err
		}
		a.logger.Info("logbook opened", "backend", config.BackendSQLite, "path", a.cfg.LogbookPath)
		return src, func() {
			if err := src.Close(); err != nil {
				a.logger.Error("close logbook", "error", err)
			}
		}, nil
	case config.BackendHTTP:
		src, err := logbook.NewHTTPSource(a.cfg.LogbookURL, nil)
		if err != nil {
			return nil, nil, err
		}
		a.logger.Info("logbook opened", "backend", config.BackendHTTP, "url", a.cfg.LogbookURL)
		return src, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown logbook backend %q", a.cfg.LogbookBackend)
	}
}

func (a *App) installTable(t *cty.Table) {
	a.table.Swap(t)
	a.recordTable(t)
	a.logger.Info("country table loaded",
		"path", a.cfg.CtyPath,
		"updated", t.Updated,
		"entities", len(t.Entities),
		"prefixes", len(t.Prefixes),
		"exceptions", len(t.Exceptions))
}

func (a *App) recordTable(t *cty.Table) {
	a.metrics.TableEntries.WithLabelValues("entities").Set(float64(len(t.Entities)))
	a.metrics.TableEntries.WithLabelValues("exceptions").Set(float64(len(t.Exceptions)))
	a.metrics.TableEntries.WithLabelValues("prefixes").Set(float64(len(t.Prefixes)))
}

// HandleDatagram processes one WSJT-X datagram. Undecodable datagrams are
// logged and counted; they never stop the stream.
func (a *App) HandleDatagram(ctx context.Context, datagram []byte, from net.Addr) {
	a.metrics.Datagrams.Inc()

	typ, err := wsjtx.PeekType(datagram)
	if err != nil {
		a.decodeFailed(err, from)
		return
	}

	switch typ {
	case wsjtx.TypeStatus:
		status, err := wsjtx.DecodeStatus(datagram)
		if err != nil {
			a.decodeFailed(err, from)
			return
		}
		a.handleStatus(status)
	case wsjtx.TypeDecode:
		ev, err := wsjtx.Decode(datagram)
		if err != nil {
			a.decodeFailed(err, from)
			return
		}
		a.handleDecode(ctx, ev)
	default:
		a.logger.Debug("ignoring wsjtx message", "type", typ.String())
	}
}

func (a *App) decodeFailed(err error, from net.Addr) {
	reason := "other"
	switch {
	case errors.Is(err, wsjtx.ErrInvalidMagicNumber):
		reason = "invalid_magic"
	case errors.Is(err, wsjtx.ErrTruncated):
		reason = "truncated"
	case errors.Is(err, wsjtx.ErrNotADecodeMessage), errors.Is(err, wsjtx.ErrNotAStatusMessage):
		reason = "unexpected_type"
	}
	a.metrics.DecodeFailures.WithLabelValues(reason).Inc()

	addr := ""
	if from != nil {
		addr = from.String()
	}
	a.logger.Warn("datagram decode failed", "from", addr, "reason", reason, "error", err)
}

func (a *App) handleStatus(status wsjtx.Status) {
	band, ok := spot.BandForFrequency(status.DialFrequency)
	mode := status.Mode.Value

	a.mu.Lock()
	defer a.mu.Unlock()

	changed := false
	if ok && band != a.band {
		a.band = band
		changed = true
	}
	if mode != "" && mode != a.mode {
		a.mode = mode
		changed = true
	}
	if changed {
		a.logger.Info("operating band changed", "band", a.band, "mode", a.mode, "dial_hz", status.DialFrequency)
	}
}

// Operating returns the band and mode decodes are classified against.
func (a *App) Operating() (int, string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.band, a.mode
}

func (a *App) handleDecode(ctx context.Context, ev wsjtx.DecodeEvent) {
	message := ev.Message.Value
	heard := spot.Extract(message)
	if heard.Callsign == "" {
		a.metrics.Resolutions.WithLabelValues(metrics.OutcomeNoCallsign).Inc()
		a.logger.Debug("no callsign in decode", "message", message)
		return
	}
	if heard.Grid == "" {
		if stray, ok := spot.StrayGrid(message); ok {
			a.logger.Debug("grid-like word outside grid position", "message", message, "word", stray)
		}
	}

	s, err := a.classify(ctx, heard)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Error("classification failed", "callsign", heard.Callsign, "error", err)
		}
		return
	}

	s.Source = ev.ID.Value
	s.SNR = ev.SNR
	s.DeltaTime = ev.DeltaTime
	s.DeltaFrequency = ev.DeltaFrequency
	s.Message = message
	s.LowConfidence = ev.LowConfidence

	if err := a.reporter.Report(ctx, s); err != nil {
		a.logger.Warn("report spot failed", "callsign", s.Callsign, "error", err)
	}
}

// classify resolves and grades one heard station.
func (a *App) classify(ctx context.Context, heard spot.Heard) (model.Spot, error) {
	now := a.now().UTC()
	band, mode := a.Operating()

	s := model.Spot{
		ID:         uuid.NewString(),
		ReceivedAt: now,
		Callsign:   heard.Callsign,
		Grid:       heard.Grid,
		Band:       band,
		Mode:       mode,
	}

	if heard.Grid != "" {
		if lat, lon, err := spot.GridCenter(heard.Grid); err == nil {
			s.GridLocation = &model.Location{Latitude: lat, Longitude: lon}
		}
	}

	q := need.Query{Grid: heard.Grid, Band: band, Mode: mode}
	if entity, ok := a.table.Resolve(heard.Callsign, now); ok {
		a.metrics.Resolutions.WithLabelValues(metrics.OutcomeResolved).Inc()
		s.Entity = &entity
		q.DXCC = entity.ADIF
	} else {
		a.metrics.Resolutions.WithLabelValues(metrics.OutcomeUnresolved).Inc()
		a.logger.Debug("unknown entity", "callsign", heard.Callsign)
	}

	grade, err := a.classifier.Classify(ctx, q)
	if err != nil {
		return model.Spot{}, err
	}
	s.Need = grade
	s.Label = grade.Label()
	a.metrics.Classifications.WithLabelValues(string(s.Label)).Inc()

	return s, nil
}
