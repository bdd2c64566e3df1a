package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skywatchlabs/go-squawk-alert/internal/config"
	"github.com/skywatchlabs/go-squawk-alert/internal/models"
	"github.com/skywatchlabs/go-squawk-alert/internal/notify"
	"github.com/skywatchlabs/go-squawk-alert/internal/repository"
)

// CycleSummary reports what one poll cycle did.
type CycleSummary struct {
	Fetched  int `json:"fetched"`
	Matched  int `json:"matched"`
	Notified int `json:"notified"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Manager runs the fetch -> filter -> dedupe -> notify cycle. Records are
// processed strictly in feed order and an aircraft is marked alerted only
// after its email went out, so an interrupted or failed cycle retries the
// send next time instead of losing it.
type Manager struct {
	cfg      *config.Config
	feed     FeedClient
	repo     repository.AlertedRepository
	notifier notify.Notifier
	cycleMu  sync.Mutex
	wg       sync.WaitGroup
}

func NewManager(cfg *config.Config, feed FeedClient, repo repository.AlertedRepository, notifier notify.Notifier) *Manager {
	return &Manager{
		cfg:      cfg,
		feed:     feed,
		repo:     repo,
		notifier: notifier,
	}
}

// RunCycle performs one poll. A fetch failure aborts the cycle before any
// state is touched; per-aircraft notify or persistence failures are logged
// and do not stop the remaining aircraft from being processed.
func (m *Manager) RunCycle(ctx context.Context) (CycleSummary, error) {
	// One cycle at a time: the ticker and the manual HTTP trigger can
	// overlap, and the dedup check-then-add is only safe sequentially.
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	var summary CycleSummary

	states, err := m.feed.Fetch(ctx)
	if err != nil {
		return summary, fmt.Errorf("error fetching feed: %w", err)
	}
	summary.Fetched = len(states)

	matched := FilterOperator(states, m.cfg.Feed.CallsignPrefixes)
	summary.Matched = len(matched)

	if len(matched) == 0 {
		// Episode over: nothing from the operator is broadcasting 7700
		// anymore, so clear the alerted set and let the same airframe
		// alert again on a future emergency.
		cleared, err := m.repo.ClearAll(ctx)
		if err != nil {
			slog.Warn("could not clear alerted set", "error", err)
		} else if cleared > 0 {
			slog.Info("emergency over, alerted set cleared", "cleared", cleared)
		}
		slog.Info("cycle complete", "fetched", summary.Fetched, "matched", 0)
		return summary, nil
	}

	for _, state := range matched {
		m.processAircraft(ctx, state, &summary)
	}

	slog.Info("cycle complete",
		"fetched", summary.Fetched,
		"matched", summary.Matched,
		"notified", summary.Notified,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)

	return summary, nil
}

func (m *Manager) processAircraft(ctx context.Context, state *models.AircraftState, summary *CycleSummary) {
	seen, err := m.repo.Contains(ctx, state.Hex)
	if err != nil {
		// Fail open: a duplicate email beats a missed emergency.
		slog.Warn("alerted set unreadable, treating aircraft as unseen", "hex", state.Hex, "error", err)
		seen = false
	}
	if seen {
		slog.Debug("already alerted", "hex", state.Hex, "callsign", state.TrimmedCallsign())
		summary.Skipped++
		return
	}

	slog.Info("new emergency detected", "hex", state.Hex, "callsign", state.TrimmedCallsign(), "squawk", state.Squawk)

	if err := m.notifier.Notify(ctx, state); err != nil {
		slog.Error("notification failed, will retry next cycle", "hex", state.Hex, "error", err)
		summary.Failed++
		return
	}
	summary.Notified++

	if err := m.repo.Add(ctx, models.NewAlertRecord(state)); err != nil {
		// The email already went out; a duplicate is possible next cycle.
		slog.Error("could not record alert", "hex", state.Hex, "error", err)
	}
}

// Start launches the poll loop: one cycle immediately, then one per
// configured interval until the context is cancelled.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.run(ctx)
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	slog.Info("starting poller", "url", m.cfg.Feed.URL, "interval", m.cfg.Feed.PollInterval)

	ticker := time.NewTicker(m.cfg.Feed.PollInterval)
	defer ticker.Stop()

	if _, err := m.RunCycle(ctx); err != nil {
		slog.Error("cycle failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("poller shutting down")
			return
		case <-ticker.C:
			if _, err := m.RunCycle(ctx); err != nil {
				slog.Error("cycle failed", "error", err)
			}
		}
	}
}

func (m *Manager) Stop() {
	m.wg.Wait()
	slog.Info("poller stopped")
}
