package platform

import (
	"context"
	"time"

	"socialbot/internal/browser"
	"socialbot/internal/config"
	"socialbot/internal/resolver"

	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

const (
	xBaseURL   = "https://www.x.com"
	xLoginWait = 5 * time.Minute
	xScanLimit = 5
)

// x drives x.com. The reply composer always opens as a modal, and the
// data-testid attributes are stable enough that the chains rarely need
// text fallbacks.
type x struct {
	base
}

func newX(session *browser.Session, cfg config.Config, log *logrus.Logger) *x {
	return &x{base: newBase("x", session, cfg, log)}
}

func (a *x) Name() string { return "x" }

func (a *x) Login(ctx context.Context) error {
	if err := a.session.Navigate(xBaseURL); err != nil {
		a.log.WithError(err).Error("login navigation failed")
		return nil
	}

	a.log.Info("waiting for login; please log in in the browser window")
	page := a.session.Page()
	deadline := time.Now().Add(xLoginWait)
	for time.Now().Before(deadline) {
		if _, err := resolver.Resolve(resolver.PageScope(page, probeTimeout), xChains[resolver.IntentLoginMarker]); err == nil {
			a.log.Info("login detected")
			if err := a.session.SaveState(); err != nil {
				a.log.WithError(err).Warn("could not persist cookie state")
			}
			return nil
		}
		if err := sleepCtx(ctx, 2*time.Second); err != nil {
			return nil
		}
	}
	a.log.Warn("login timeout; continuing, may fail")
	return nil
}

func (a *x) Feed(ctx context.Context) ([]Post, error) {
	page := a.session.Page()
	a.log.Info("fetching timeline")

	containers, err := resolver.ResolveAll(resolver.PageScope(page, 10*time.Second), xChains[resolver.IntentPostContainer])
	if err != nil {
		a.log.Warn("no tweets found")
		return nil, nil
	}
	if len(containers) > xScanLimit {
		containers = containers[:xScanLimit]
	}

	var posts []Post
	for i, el := range containers {
		match, err := resolver.Resolve(resolver.ElementScope(el, probeTimeout), xChains[resolver.IntentContentText])
		if err != nil {
			continue
		}
		raw, err := match.Element.Text()
		if err != nil {
			continue
		}
		content := NormalizeContent(raw)
		if len(content) <= 10 {
			continue
		}

		posts = append(posts, Post{
			ID:      ItemID("x", content, i),
			Content: content,
			Ref:     browser.NewElementRef(a.session, el),
		})
	}

	a.log.WithField("tweets", len(posts)).Info("timeline scan complete")
	return posts, nil
}

func (a *x) Notifications(ctx context.Context) ([]Notification, error) {
	return nil, nil
}

func (a *x) Reply(ctx context.Context, post *Post, text string) (bool, error) {
	log := a.log.WithField("item", post.ID)

	el, err := post.Ref.Resolve()
	if err != nil {
		log.Warn("element reference is stale; item must be re-scraped")
		return false, nil
	}

	trigger, err := resolver.Resolve(resolver.ElementScope(el, probeTimeout), xChains[resolver.IntentReplyTrigger])
	if err != nil {
		log.Warn("reply button not found on tweet")
		return false, nil
	}
	if err := trigger.Element.Click(proto.InputMouseButtonLeft, 1); err != nil {
		log.WithError(err).Warn("reply trigger click failed")
		return false, nil
	}
	humanDelay(ctx, time.Second, 1500*time.Millisecond)

	// The composer opens in a modal; resolve against the whole page.
	probe := pageProbe{page: a.session.Page(), chains: xChains, log: log}
	replyCtx, err := DetectContext(probe, resolver.ElementScope(el, probeTimeout))
	if err != nil {
		log.WithError(err).Warn("context detection failed")
		return false, nil
	}

	input, err := resolver.Resolve(replyCtx.Scope, xChains[resolver.IntentComposerInput])
	if err != nil {
		log.Warn("reply text area not found")
		return false, nil
	}
	if err := input.Element.Click(proto.InputMouseButtonLeft, 1); err != nil {
		log.WithError(err).Warn("composer focus failed")
		return false, nil
	}
	if err := input.Element.Input(text); err != nil {
		log.WithError(err).Warn("typing failed")
		return false, nil
	}
	humanDelay(ctx, 500*time.Millisecond, time.Second)

	submit, err := resolver.Resolve(replyCtx.Scope, xChains[resolver.IntentSubmitControl])
	if err != nil {
		log.Warn("send button not found")
		return false, nil
	}
	if err := submit.Element.Click(proto.InputMouseButtonLeft, 1); err != nil {
		log.WithError(err).Warn("send click failed")
		return false, nil
	}

	// Wait for the modal to close.
	humanDelay(ctx, 1500*time.Millisecond, 2*time.Second)
	log.Info("reply sent")
	return true, nil
}

func (a *x) ReplyToComment(ctx context.Context, n *Notification, text string) (bool, error) {
	a.log.WithField("item", n.ID).Info("comment replies not implemented for x")
	return false, nil
}
