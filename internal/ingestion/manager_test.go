package ingestion

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/skywatchlabs/go-squawk-alert/internal/config"
	"github.com/skywatchlabs/go-squawk-alert/internal/models"
	"github.com/skywatchlabs/go-squawk-alert/internal/repository"
)

func TestMain(m *testing.M) {
	// httptest servers in this package leave keep-alive conns behind.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

// mockFeed implements FeedClient for testing
type mockFeed struct {
	states []*models.AircraftState
	err    error
	calls  int
}

func (f *mockFeed) Fetch(ctx context.Context) ([]*models.AircraftState, error) {
	f.calls++
	return f.states, f.err
}

// mockNotifier records sends, can fail selectively per hex, and can be
// slowed down to widen race windows
type mockNotifier struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]bool
	delay   time.Duration
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{failFor: make(map[string]bool)}
}

func (n *mockNotifier) Notify(ctx context.Context, state *models.AircraftState) error {
	if n.delay > 0 {
		time.Sleep(n.delay)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[state.Hex] {
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, state.Hex)
	return nil
}

// failingRepo wraps MemoryStore to force Contains errors
type failingRepo struct {
	*repository.MemoryStore
	containsErr error
}

func (f *failingRepo) Contains(ctx context.Context, hex string) (bool, error) {
	if f.containsErr != nil {
		return false, f.containsErr
	}
	return f.MemoryStore.Contains(ctx, hex)
}

func testConfig() *config.Config {
	return &config.Config{
		Feed: config.FeedConfig{
			URL:              "http://example.invalid/feed",
			Timeout:          time.Second,
			PollInterval:     time.Minute,
			CallsignPrefixes: []string{"AF", "AFR"},
		},
	}
}

func f64(v float64) *float64 { return &v }

func emergencyStates() []*models.AircraftState {
	return []*models.AircraftState{
		{
			Hex:          "abc123",
			Callsign:     "AFR1234",
			Registration: "F-GKXS",
			Type:         "A320",
			Squawk:       "7700",
			AltitudeFt:   f64(35000),
			GroundSpeed:  f64(450),
			Latitude:     f64(48.8566),
			Longitude:    f64(2.3522),
		},
		{
			Hex:      "xyz999",
			Callsign: "DLH456",
			Squawk:   "7700",
		},
	}
}

func TestRunCycle_NewEmergency(t *testing.T) {
	repo := repository.NewMemoryStore()
	notifier := newMockNotifier()
	feed := &mockFeed{states: emergencyStates()}
	mgr := NewManager(testConfig(), feed, repo, notifier)

	summary, err := mgr.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if summary.Fetched != 2 {
		t.Errorf("expected 2 fetched, got %d", summary.Fetched)
	}
	if summary.Matched != 1 {
		t.Errorf("expected 1 matched, got %d", summary.Matched)
	}
	if summary.Notified != 1 {
		t.Errorf("expected 1 notified, got %d", summary.Notified)
	}

	// Only the Air France aircraft triggers an email.
	if len(notifier.sent) != 1 || notifier.sent[0] != "abc123" {
		t.Fatalf("expected exactly one email for abc123, got %v", notifier.sent)
	}

	seen, err := repo.Contains(context.Background(), "abc123")
	if err != nil || !seen {
		t.Errorf("expected abc123 recorded as alerted (seen=%v, err=%v)", seen, err)
	}
	seen, _ = repo.Contains(context.Background(), "xyz999")
	if seen {
		t.Error("non-matching aircraft must not be recorded")
	}
}

func TestRunCycle_Idempotent(t *testing.T) {
	repo := repository.NewMemoryStore()
	notifier := newMockNotifier()
	feed := &mockFeed{states: emergencyStates()}
	mgr := NewManager(testConfig(), feed, repo, notifier)

	for i := 0; i < 2; i++ {
		if _, err := mgr.RunCycle(context.Background()); err != nil {
			t.Fatalf("RunCycle %d failed: %v", i, err)
		}
	}

	if len(notifier.sent) != 1 {
		t.Errorf("expected 1 email across both runs, got %d", len(notifier.sent))
	}
}

func TestRunCycle_SkipsAlreadyAlerted(t *testing.T) {
	repo := repository.NewMemoryStore()
	repo.Add(context.Background(), &models.AlertRecord{Hex: "abc123", AlertedAt: time.Now()})

	notifier := newMockNotifier()
	feed := &mockFeed{states: emergencyStates()}
	mgr := NewManager(testConfig(), feed, repo, notifier)

	summary, err := mgr.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if len(notifier.sent) != 0 {
		t.Errorf("expected 0 emails, got %d", len(notifier.sent))
	}
	if summary.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", summary.Skipped)
	}
}

func TestRunCycle_FetchErrorAbortsWithoutMutation(t *testing.T) {
	repo := repository.NewMemoryStore()
	repo.Add(context.Background(), &models.AlertRecord{Hex: "abc123", AlertedAt: time.Now()})

	notifier := newMockNotifier()
	feed := &mockFeed{err: errors.New("connection refused")}
	mgr := NewManager(testConfig(), feed, repo, notifier)

	if _, err := mgr.RunCycle(context.Background()); err == nil {
		t.Fatal("expected error from failed fetch")
	}

	if len(notifier.sent) != 0 {
		t.Errorf("no emails expected on fetch failure, got %d", len(notifier.sent))
	}
	// The alerted set must be untouched, including no episode reset.
	seen, _ := repo.Contains(context.Background(), "abc123")
	if !seen {
		t.Error("fetch failure must not mutate the alerted set")
	}
}

func TestRunCycle_PartialFailureIsolation(t *testing.T) {
	states := []*models.AircraftState{
		{Hex: "aaa111", Callsign: "AFR001", Squawk: "7700"},
		{Hex: "bbb222", Callsign: "AFR002", Squawk: "7700"},
	}

	repo := repository.NewMemoryStore()
	notifier := newMockNotifier()
	notifier.failFor["aaa111"] = true
	feed := &mockFeed{states: states}
	mgr := NewManager(testConfig(), feed, repo, notifier)

	summary, err := mgr.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if summary.Failed != 1 || summary.Notified != 1 {
		t.Errorf("expected 1 failed and 1 notified, got %+v", summary)
	}

	// B is marked seen, A is not, so A retries next cycle.
	seenA, _ := repo.Contains(context.Background(), "aaa111")
	seenB, _ := repo.Contains(context.Background(), "bbb222")
	if seenA {
		t.Error("failed send must leave the aircraft unmarked")
	}
	if !seenB {
		t.Error("successful send must mark the aircraft")
	}

	// Next cycle retries only A.
	notifier.failFor["aaa111"] = false
	if _, err := mgr.RunCycle(context.Background()); err != nil {
		t.Fatalf("second RunCycle failed: %v", err)
	}
	if len(notifier.sent) != 2 {
		t.Errorf("expected 2 total emails after retry, got %d", len(notifier.sent))
	}
}

func TestRunCycle_FailsOpenOnRepoError(t *testing.T) {
	repo := &failingRepo{
		MemoryStore: repository.NewMemoryStore(),
		containsErr: errors.New("disk error"),
	}
	notifier := newMockNotifier()
	feed := &mockFeed{states: emergencyStates()}
	mgr := NewManager(testConfig(), feed, repo, notifier)

	summary, err := mgr.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	// An unreadable store means "unseen": the email still goes out.
	if summary.Notified != 1 {
		t.Errorf("expected 1 notified despite repo error, got %d", summary.Notified)
	}
}

func TestRunCycle_EpisodeResetWhenClear(t *testing.T) {
	repo := repository.NewMemoryStore()
	repo.Add(context.Background(), &models.AlertRecord{Hex: "abc123", AlertedAt: time.Now()})

	notifier := newMockNotifier()
	feed := &mockFeed{states: nil}
	mgr := NewManager(testConfig(), feed, repo, notifier)

	if _, err := mgr.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	// No matching aircraft anymore: the episode is over and the same
	// airframe may alert again on a later emergency.
	seen, _ := repo.Contains(context.Background(), "abc123")
	if seen {
		t.Error("expected alerted set cleared after empty cycle")
	}

	// The aircraft shows up again: a fresh email goes out.
	feed.states = emergencyStates()
	if _, err := mgr.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("expected a fresh email after episode reset, got %d", len(notifier.sent))
	}
}

func TestRunCycle_ConcurrentCyclesSendOneEmail(t *testing.T) {
	repo := repository.NewMemoryStore()
	notifier := newMockNotifier()
	notifier.delay = 100 * time.Millisecond
	feed := &mockFeed{states: emergencyStates()}
	mgr := NewManager(testConfig(), feed, repo, notifier)

	// The ticker and the manual HTTP trigger can fire at the same time;
	// overlapping cycles must not both pass the dedup check.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := mgr.RunCycle(context.Background()); err != nil {
				t.Errorf("RunCycle failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(notifier.sent) != 1 {
		t.Errorf("expected exactly 1 email across concurrent cycles, got %v", notifier.sent)
	}
	seen, _ := repo.Contains(context.Background(), "abc123")
	if !seen {
		t.Error("expected abc123 recorded as alerted")
	}
}

func TestRunCycle_EndToEnd(t *testing.T) {
	srv := newFeedServer(t, http.StatusOK, samplePayload)
	defer srv.Close()

	feed := NewADSBXClient(srv.URL, 5*time.Second)
	db, err := repository.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}
	defer db.Close()
	notifier := newMockNotifier()
	mgr := NewManager(testConfig(), feed, db, notifier)

	summary, err := mgr.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if summary.Fetched != 2 || summary.Matched != 1 || summary.Notified != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != "abc123" {
		t.Fatalf("expected one email for abc123, got %v", notifier.sent)
	}

	seen, err := db.Contains(context.Background(), "abc123")
	if err != nil || !seen {
		t.Errorf("expected abc123 in the store (seen=%v, err=%v)", seen, err)
	}

	// Same feed again: nothing new to send.
	summary, err = mgr.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("second RunCycle failed: %v", err)
	}
	if summary.Notified != 0 || summary.Skipped != 1 {
		t.Errorf("expected re-run to skip, got %+v", summary)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("expected still 1 email, got %d", len(notifier.sent))
	}
}

func TestManager_StartStop(t *testing.T) {
	repo := repository.NewMemoryStore()
	notifier := newMockNotifier()
	feed := &mockFeed{states: nil}
	mgr := NewManager(testConfig(), feed, repo, notifier)

	ctx, cancel := context.WithCancel(context.Background())

	mgr.Start(ctx)

	// Give the initial poll a moment
	time.Sleep(50 * time.Millisecond)

	cancel()
	mgr.Stop()

	if feed.calls < 1 {
		t.Error("expected at least the initial poll")
	}
}
