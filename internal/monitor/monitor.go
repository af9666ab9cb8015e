package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/acordao-extractor/internal/ingest"
	"github.com/joseph-ayodele/acordao-extractor/internal/ledger"
)

type (
	// Lister lists the documents of the batch.
	Lister interface {
		List() ([]string, error)
	}
	// HistoryLoader reads the ledger.
	HistoryLoader interface {
		Load(ctx context.Context) (*ledger.History, error)
	}
	// ErrorSource returns the most recent error block.
	ErrorSource interface {
		Last() (string, error)
	}
)

// Config wires a Monitor.
type Config struct {
	Settings Settings
	MaxGap   time.Duration
	// Watch refreshes early when one of these files changes.
	Watch  []string
	Clear  bool
	Plain  bool
	Out    io.Writer
	Logger *slog.Logger
}

// Monitor polls the run's files and redraws the dashboard.
type Monitor struct {
	docs     Lister
	history  HistoryLoader
	errors   ErrorSource
	cfg      Config
	renderer *Renderer
	now      func() time.Time
	logger   *slog.Logger
}

func New(docs Lister, history HistoryLoader, errs ErrorSource, cfg Config) *Monitor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxGap <= 0 {
		cfg.MaxGap = DefaultMaxGap
	}
	if cfg.Settings.Interval <= 0 {
		cfg.Settings.Interval = 5 * time.Second
	}
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	return &Monitor{
		docs:     docs,
		history:  history,
		errors:   errs,
		cfg:      cfg,
		renderer: NewRenderer(cfg.Plain),
		now:      time.Now,
		logger:   cfg.Logger,
	}
}

// Poll takes one snapshot.
func (m *Monitor) Poll(ctx context.Context) (Stats, error) {
	h, err := m.history.Load(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load ledger: %w", err)
	}
	listing, err := m.docs.List()
	if err != nil {
		return Stats{}, fmt.Errorf("list documents: %w", err)
	}
	lastErr, err := m.errors.Last()
	if err != nil {
		m.logger.Warn("monitor.errlog.read_failed", "error", err)
		lastErr = err.Error()
	}
	st := Compute(h, listing, lastErr, m.cfg.MaxGap)
	st.ComputedAt = m.now()
	return st, nil
}

// Draw polls once and writes the dashboard.
func (m *Monitor) Draw(ctx context.Context) error {
	st, err := m.Poll(ctx)
	if err != nil {
		return err
	}
	if m.cfg.Clear {
		_, _ = io.WriteString(m.cfg.Out, ClearScreen)
	}
	_, err = io.WriteString(m.cfg.Out, m.renderer.Render(m.cfg.Settings, st))
	return err
}

// Run redraws every interval until ctx is cancelled. A failed poll is logged
// and retried on the next tick.
func (m *Monitor) Run(ctx context.Context) error {
	var changes <-chan string
	if len(m.cfg.Watch) > 0 {
		ch, errs, err := ingest.WatchFiles(ctx, ingest.WatchConfig{
			Files:    m.cfg.Watch,
			Debounce: 500 * time.Millisecond,
			Logger:   m.logger,
		})
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		changes = ch
		go func() {
			for err := range errs {
				m.logger.Warn("monitor.watch.error", "error", err)
			}
		}()
	}

	ticker := time.NewTicker(m.cfg.Settings.Interval)
	defer ticker.Stop()
	var last time.Time
	for {
		if err := m.Draw(ctx); err != nil {
			m.logger.Error("monitor.poll.failed", "error", err)
		}
		last = time.Now()

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			// bounded by the interval so a busy ledger cannot spin the loop
			if wait := m.cfg.Settings.Interval - time.Since(last); wait > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(wait):
				}
			}
		}
	}
}
