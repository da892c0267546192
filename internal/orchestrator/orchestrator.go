// Package orchestrator drives the poll → dedup → generate → post →
// record cycle against one platform adapter.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"socialbot/internal/config"
	"socialbot/internal/platform"
	"socialbot/internal/recorder"
	"socialbot/internal/reply"

	"github.com/sirupsen/logrus"
)

// ErrQuotaExceeded aborts the whole session: polling stops immediately to
// avoid runaway billing or platform bans.
var ErrQuotaExceeded = errors.New("api quota or rate limit exceeded")

// Ledger is the dedup record set the orchestrator consults before any
// reply attempt.
type Ledger interface {
	Replied(itemID string) (bool, error)
	Record(itemID, replyText string) error
}

// Tracer receives flight-recorder events. *recorder.Recorder satisfies
// it; a nil-safe no-op is used when tracing is disabled.
type Tracer interface {
	Log(eventType, itemID, outcome, detail string)
}

type nopTracer struct{}

func (nopTracer) Log(string, string, string, string) {}

// SessionState carries the two loop counters explicitly so the error
// budget logic is testable without a browser. ConsecutiveErrors resets
// only on success and therefore survives cycle boundaries;
// PostsRepliedThisCycle resets every poll.
type SessionState struct {
	ConsecutiveErrors     int
	PostsRepliedThisCycle int
}

// Orchestrator owns the polling loop and its failure policy.
type Orchestrator struct {
	adapter platform.Adapter
	ledger  Ledger
	gen     reply.Generator
	trace   Tracer
	cfg     config.Config
	log     *logrus.Entry

	// sleep is injectable so tests run without real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New wires an orchestrator. trace may be nil.
func New(adapter platform.Adapter, ledger Ledger, gen reply.Generator, trace Tracer, cfg config.Config, log *logrus.Logger) *Orchestrator {
	if trace == nil {
		trace = nopTracer{}
	}
	return &Orchestrator{
		adapter: adapter,
		ledger:  ledger,
		gen:     gen,
		trace:   trace,
		cfg:     cfg,
		log:     log.WithField("platform", adapter.Name()),
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run polls until the context is cancelled or a session-fatal error
// occurs. Cancellation is cooperative: it is honored between items and
// between cycles, never mid-reply.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.log.Info("starting feed monitor loop")

	state := SessionState{}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.runCycle(ctx, &state); err != nil {
			return err
		}
	}
}

// runCycle executes one poll → process → maybe-refresh pass.
func (o *Orchestrator) runCycle(ctx context.Context, state *SessionState) error {
	state.PostsRepliedThisCycle = 0

	posts, err := o.adapter.Feed(ctx)
	if err != nil {
		// Adapters swallow transient failures; an error here is already
		// unusual, but it is still not worth counting against the budget.
		o.log.WithError(err).Warn("feed fetch failed")
	}

	if len(posts) == 0 {
		o.log.Warn("no posts found in this scan, backing off")
		return o.sleep(ctx, o.cfg.Safety.EmptyFeedBackoff())
	}

	o.trace.Log(recorder.EventCycleStart, "", "", fmt.Sprintf("posts=%d", len(posts)))

	if err := o.processPosts(ctx, posts, state); err != nil {
		return err
	}

	if o.cfg.Safety.ProcessNotifications {
		if err := o.processNotifications(ctx, state); err != nil {
			return err
		}
	}

	o.trace.Log(recorder.EventCycleEnd, "", "", fmt.Sprintf("replied=%d errors=%d", state.PostsRepliedThisCycle, state.ConsecutiveErrors))

	// Refresh only after a productive cycle: zero replies usually means
	// "nothing new", and a reload would waste work and lose scroll state.
	if state.PostsRepliedThisCycle > 0 {
		o.log.WithField("replied", state.PostsRepliedThisCycle).Info("cycle complete, refreshing feed")
		if err := o.adapter.RefreshFeed(ctx); err != nil {
			o.log.WithError(err).Warn("feed refresh failed")
		}
		return o.sleep(ctx, 5*time.Second)
	}

	// An unproductive cycle idles like an empty feed, so a pinned error
	// budget or a fully deduped feed cannot trigger back-to-back scrapes.
	return o.sleep(ctx, o.cfg.Safety.EmptyFeedBackoff())
}

func (o *Orchestrator) processPosts(ctx context.Context, posts []platform.Post, state *SessionState) error {
	for i := range posts {
		post := &posts[i]
		stop, err := o.processItem(ctx, state, post.ID, post.Content, firstImage(post.Images), func(ctx context.Context, text string) (bool, error) {
			return o.adapter.Reply(ctx, post, text)
		})
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

func (o *Orchestrator) processNotifications(ctx context.Context, state *SessionState) error {
	items, err := o.adapter.Notifications(ctx)
	if err != nil {
		o.log.WithError(err).Warn("notification fetch failed")
		return nil
	}
	for i := range items {
		n := &items[i]
		stop, err := o.processItem(ctx, state, n.ID, n.Content, "", func(ctx context.Context, text string) (bool, error) {
			return o.adapter.ReplyToComment(ctx, n, text)
		})
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

// processItem runs the dedup → generate → post → record pipeline for one
// item. It returns stop=true when the cycle should end early (error
// ceiling or reply cap), and a non-nil error only for session-fatal
// conditions.
func (o *Orchestrator) processItem(ctx context.Context, state *SessionState, id, content, image string, post func(context.Context, string) (bool, error)) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if state.ConsecutiveErrors >= o.cfg.Safety.MaxConsecutiveErrors {
		o.log.WithField("errors", state.ConsecutiveErrors).Error("too many consecutive errors, stopping this cycle")
		return true, nil
	}
	if o.cfg.Safety.MaxRepliesPerCycle > 0 && state.PostsRepliedThisCycle >= o.cfg.Safety.MaxRepliesPerCycle {
		o.log.Info("reply cap reached for this cycle")
		return true, nil
	}

	log := o.log.WithField("item", id)

	replied, err := o.ledger.Replied(id)
	if err != nil {
		return false, fmt.Errorf("dedup check for %s: %w", id, err)
	}
	if replied {
		log.Info("skipping already replied item")
		o.trace.Log(recorder.EventSkip, id, "skipped", "")
		return false, nil
	}

	log.Info("analyzing item")
	if image != "" {
		log.Info("image detected, sending visual data to the generator")
	}

	text, err := o.gen.Generate(ctx, o.cfg.Persona.SystemPrompt, content, image)
	if err != nil {
		return o.handleItemFailure(ctx, state, id, fmt.Errorf("generate: %w", err))
	}

	ok, err := post(ctx, text)
	if err != nil {
		return o.handleItemFailure(ctx, state, id, fmt.Errorf("post: %w", err))
	}
	if !ok {
		return o.handleItemFailure(ctx, state, id, errors.New("adapter reported failed reply"))
	}

	if err := o.ledger.Record(id, text); err != nil {
		// The reply is already live; a ledger failure must not re-post it
		// later this session, so log loudly instead of failing the item.
		log.WithError(err).Error("failed to record reply in ledger")
	}
	state.PostsRepliedThisCycle++
	state.ConsecutiveErrors = 0
	o.trace.Log(recorder.EventReply, id, "ok", text)
	log.Info("reply recorded")

	return false, o.sleep(ctx, o.humanizingDelay())
}

// handleItemFailure applies the failure taxonomy: quota errors are
// session-fatal, everything else costs one unit of the error budget and
// a penalty pause.
func (o *Orchestrator) handleItemFailure(ctx context.Context, state *SessionState, id string, cause error) (bool, error) {
	if reply.IsQuotaError(cause) {
		o.log.WithField("item", id).WithError(cause).Error("quota exceeded, stopping session to prevent billing issues")
		o.trace.Log(recorder.EventAbort, id, "quota", cause.Error())
		return false, fmt.Errorf("%w: %v", ErrQuotaExceeded, cause)
	}

	state.ConsecutiveErrors++
	o.log.WithFields(logrus.Fields{
		"item":               id,
		"consecutive_errors": state.ConsecutiveErrors,
	}).WithError(cause).Error("error processing item, skipping to next")
	o.trace.Log(recorder.EventFailure, id, "error", cause.Error())

	return false, ignoreCancel(o.sleep(ctx, o.cfg.Safety.Penalty()))
}

// ignoreCancel drops context cancellation from a sleep: the loop notices
// it at the next boundary check instead.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (o *Orchestrator) humanizingDelay() time.Duration {
	min := o.cfg.Safety.MinDelay()
	max := o.cfg.Safety.MaxDelay()
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

func firstImage(images []string) string {
	if len(images) == 0 {
		return ""
	}
	return images[0]
}
