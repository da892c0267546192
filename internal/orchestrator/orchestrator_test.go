package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"socialbot/internal/config"
	"socialbot/internal/platform"
	"socialbot/internal/recorder"
	"socialbot/internal/reply"

	"github.com/sirupsen/logrus"
)

type fakeAdapter struct {
	posts []platform.Post
	notes []platform.Notification

	// replyResult maps item id to the outcome of posting a reply.
	replyResult func(id string) (bool, error)

	replied        []string
	commentReplied []string
	refreshes      int
}

func (f *fakeAdapter) Name() string                { return "fake" }
func (f *fakeAdapter) Login(context.Context) error { return nil }
func (f *fakeAdapter) Feed(context.Context) ([]platform.Post, error) {
	return f.posts, nil
}
func (f *fakeAdapter) Notifications(context.Context) ([]platform.Notification, error) {
	return f.notes, nil
}
func (f *fakeAdapter) Reply(_ context.Context, post *platform.Post, _ string) (bool, error) {
	f.replied = append(f.replied, post.ID)
	if f.replyResult != nil {
		return f.replyResult(post.ID)
	}
	return true, nil
}
func (f *fakeAdapter) ReplyToComment(_ context.Context, n *platform.Notification, _ string) (bool, error) {
	f.commentReplied = append(f.commentReplied, n.ID)
	if f.replyResult != nil {
		return f.replyResult(n.ID)
	}
	return true, nil
}
func (f *fakeAdapter) RefreshFeed(context.Context) error {
	f.refreshes++
	return nil
}

type fakeGenerator struct {
	calls int
	err   error
}

func (g *fakeGenerator) Generate(_ context.Context, _, _, _ string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return "nice post!", nil
}

type memLedger struct {
	seen map[string]bool
}

func newMemLedger(ids ...string) *memLedger {
	m := &memLedger{seen: make(map[string]bool)}
	for _, id := range ids {
		m.seen[id] = true
	}
	return m
}

func (m *memLedger) Replied(id string) (bool, error) { return m.seen[id], nil }
func (m *memLedger) Record(id, _ string) error {
	m.seen[id] = true
	return nil
}

type captureTracer struct {
	events []string
}

func (c *captureTracer) Log(eventType, itemID, _, _ string) {
	c.events = append(c.events, eventType+":"+itemID)
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Safety.MinDelaySeconds = 0
	cfg.Safety.MaxDelaySeconds = 0
	cfg.Safety.EmptyFeedBackoffSeconds = 0
	cfg.Safety.PenaltySeconds = 0
	return cfg
}

func newTestOrchestrator(a *fakeAdapter, l Ledger, g reply.Generator, tr Tracer, cfg config.Config) *Orchestrator {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	o := New(a, l, g, tr, cfg, logger)
	o.sleep = func(context.Context, time.Duration) error { return nil }
	return o
}

func posts(ids ...string) []platform.Post {
	ps := make([]platform.Post, 0, len(ids))
	for _, id := range ids {
		ps = append(ps, platform.Post{ID: id, Content: "content for " + id})
	}
	return ps
}

func TestRepliedItemsAreSkipped(t *testing.T) {
	adapter := &fakeAdapter{posts: posts("a", "b")}
	ledger := newMemLedger("a", "b")
	gen := &fakeGenerator{}
	tracer := &captureTracer{}

	o := newTestOrchestrator(adapter, ledger, gen, tracer, testConfig())
	state := SessionState{}
	if err := o.runCycle(context.Background(), &state); err != nil {
		t.Fatalf("runCycle: %v", err)
	}

	if gen.calls != 0 {
		t.Errorf("generator invoked %d times for deduped items", gen.calls)
	}
	if len(adapter.replied) != 0 {
		t.Errorf("reply attempted for deduped items: %v", adapter.replied)
	}
	skips := 0
	for _, ev := range tracer.events {
		if ev == recorder.EventSkip+":a" || ev == recorder.EventSkip+":b" {
			skips++
		}
	}
	if skips != 2 {
		t.Errorf("want 2 skip events, got %d (%v)", skips, tracer.events)
	}
}

func TestErrorCeilingStopsCycle(t *testing.T) {
	adapter := &fakeAdapter{
		posts:       posts("a", "b", "c", "d", "e"),
		replyResult: func(string) (bool, error) { return false, nil },
	}
	cfg := testConfig()
	cfg.Safety.MaxConsecutiveErrors = 3

	o := newTestOrchestrator(adapter, newMemLedger(), &fakeGenerator{}, nil, cfg)
	state := SessionState{}
	if err := o.runCycle(context.Background(), &state); err != nil {
		t.Fatalf("runCycle: %v", err)
	}

	if len(adapter.replied) != 3 {
		t.Errorf("want 3 attempts before ceiling, got %d", len(adapter.replied))
	}
	if state.ConsecutiveErrors != 3 {
		t.Errorf("want 3 consecutive errors, got %d", state.ConsecutiveErrors)
	}
}

func TestErrorBudgetSurvivesCycleBoundary(t *testing.T) {
	adapter := &fakeAdapter{
		posts:       posts("a"),
		replyResult: func(string) (bool, error) { return false, nil },
	}
	cfg := testConfig()
	cfg.Safety.MaxConsecutiveErrors = 3

	o := newTestOrchestrator(adapter, newMemLedger(), &fakeGenerator{}, nil, cfg)
	state := SessionState{}
	for i := 0; i < 4; i++ {
		if err := o.runCycle(context.Background(), &state); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}

	// Three failures accumulate across cycles; the fourth cycle hits the
	// ceiling before attempting anything.
	if len(adapter.replied) != 3 {
		t.Errorf("want 3 attempts total, got %d", len(adapter.replied))
	}
}

func TestSuccessResetsErrorBudget(t *testing.T) {
	calls := 0
	adapter := &fakeAdapter{
		posts: posts("a", "b"),
		replyResult: func(string) (bool, error) {
			calls++
			return calls > 1, nil
		},
	}
	o := newTestOrchestrator(adapter, newMemLedger(), &fakeGenerator{}, nil, testConfig())
	state := SessionState{}
	if err := o.runCycle(context.Background(), &state); err != nil {
		t.Fatalf("runCycle: %v", err)
	}

	if state.ConsecutiveErrors != 0 {
		t.Errorf("want counter reset after success, got %d", state.ConsecutiveErrors)
	}
	if state.PostsRepliedThisCycle != 1 {
		t.Errorf("want 1 reply, got %d", state.PostsRepliedThisCycle)
	}
}

func TestQuotaErrorAbortsSession(t *testing.T) {
	adapter := &fakeAdapter{posts: posts("a", "b")}
	gen := &fakeGenerator{err: errors.New("openai: insufficient_quota, please check your plan")}
	tracer := &captureTracer{}

	o := newTestOrchestrator(adapter, newMemLedger(), gen, tracer, testConfig())
	state := SessionState{}
	err := o.runCycle(context.Background(), &state)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("want ErrQuotaExceeded, got %v", err)
	}
	if len(adapter.replied) != 0 {
		t.Errorf("no reply should be posted after quota error")
	}
	if gen.calls != 1 {
		t.Errorf("session should abort on first quota error, generator called %d times", gen.calls)
	}
	found := false
	for _, ev := range tracer.events {
		if ev == recorder.EventAbort+":a" {
			found = true
		}
	}
	if !found {
		t.Errorf("want abort event, got %v", tracer.events)
	}
}

func TestRefreshOnlyAfterProductiveCycle(t *testing.T) {
	// All items already replied: cycle is idle, no refresh.
	adapter := &fakeAdapter{posts: posts("a")}
	o := newTestOrchestrator(adapter, newMemLedger("a"), &fakeGenerator{}, nil, testConfig())
	state := SessionState{}
	if err := o.runCycle(context.Background(), &state); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if adapter.refreshes != 0 {
		t.Errorf("idle cycle must not refresh, got %d", adapter.refreshes)
	}

	// One new item: exactly one refresh.
	adapter = &fakeAdapter{posts: posts("a")}
	o = newTestOrchestrator(adapter, newMemLedger(), &fakeGenerator{}, nil, testConfig())
	state = SessionState{}
	if err := o.runCycle(context.Background(), &state); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if adapter.refreshes != 1 {
		t.Errorf("productive cycle must refresh once, got %d", adapter.refreshes)
	}
}

func TestReplyCapStopsCycle(t *testing.T) {
	adapter := &fakeAdapter{posts: posts("a", "b", "c")}
	cfg := testConfig()
	cfg.Safety.MaxRepliesPerCycle = 1

	o := newTestOrchestrator(adapter, newMemLedger(), &fakeGenerator{}, nil, cfg)
	state := SessionState{}
	if err := o.runCycle(context.Background(), &state); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if len(adapter.replied) != 1 {
		t.Errorf("want 1 reply under cap, got %d", len(adapter.replied))
	}
}

func TestMixedOutcomeCycle(t *testing.T) {
	// a is new and succeeds, b was already replied, c is new and fails.
	adapter := &fakeAdapter{
		posts: posts("a", "b", "c"),
		replyResult: func(id string) (bool, error) {
			return id != "c", nil
		},
	}
	ledger := newMemLedger("b")
	tracer := &captureTracer{}

	o := newTestOrchestrator(adapter, ledger, &fakeGenerator{}, tracer, testConfig())
	state := SessionState{}
	if err := o.runCycle(context.Background(), &state); err != nil {
		t.Fatalf("runCycle: %v", err)
	}

	if state.PostsRepliedThisCycle != 1 {
		t.Errorf("want 1 reply, got %d", state.PostsRepliedThisCycle)
	}
	if state.ConsecutiveErrors != 1 {
		t.Errorf("want 1 consecutive error, got %d", state.ConsecutiveErrors)
	}
	if ok, _ := ledger.Replied("a"); !ok {
		t.Error("successful reply to a not recorded")
	}
	if ok, _ := ledger.Replied("c"); ok {
		t.Error("failed reply to c must not be recorded")
	}
	if adapter.refreshes != 1 {
		t.Errorf("want exactly one refresh, got %d", adapter.refreshes)
	}
}

func TestNotificationsPass(t *testing.T) {
	adapter := &fakeAdapter{
		posts: posts("p1"),
		notes: []platform.Notification{
			{ID: "n1", Content: "someone replied to you", Kind: platform.KindReply},
		},
	}
	cfg := testConfig()
	cfg.Safety.ProcessNotifications = true

	o := newTestOrchestrator(adapter, newMemLedger(), &fakeGenerator{}, nil, cfg)
	state := SessionState{}
	if err := o.runCycle(context.Background(), &state); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if len(adapter.commentReplied) != 1 {
		t.Errorf("want 1 comment reply, got %d", len(adapter.commentReplied))
	}
	if state.PostsRepliedThisCycle != 2 {
		t.Errorf("want 2 total replies, got %d", state.PostsRepliedThisCycle)
	}
}

func TestUnproductiveCycleIdles(t *testing.T) {
	adapter := &fakeAdapter{posts: posts("a")}
	cfg := testConfig()
	cfg.Safety.EmptyFeedBackoffSeconds = 10

	o := newTestOrchestrator(adapter, newMemLedger("a"), &fakeGenerator{}, nil, cfg)
	var slept []time.Duration
	o.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	state := SessionState{}
	if err := o.runCycle(context.Background(), &state); err != nil {
		t.Fatalf("runCycle: %v", err)
	}

	if adapter.refreshes != 0 {
		t.Errorf("unproductive cycle must not refresh, got %d", adapter.refreshes)
	}
	if len(slept) != 1 || slept[0] != 10*time.Second {
		t.Errorf("want one idle pause of the empty-feed backoff, got %v", slept)
	}
}

func TestCancelledContextStopsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	adapter := &fakeAdapter{posts: posts("a")}
	o := newTestOrchestrator(adapter, newMemLedger(), &fakeGenerator{}, nil, testConfig())
	if err := o.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if len(adapter.replied) != 0 {
		t.Errorf("no replies after cancellation, got %v", adapter.replied)
	}
}
