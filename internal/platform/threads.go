package platform

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"socialbot/internal/browser"
	"socialbot/internal/config"
	"socialbot/internal/resolver"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

const (
	threadsBaseURL     = "https://www.threads.net/"
	threadsActivityURL = "https://www.threads.net/activity"
	// How long to wait for a human to complete a manual login.
	threadsLoginWait = 45 * time.Second
	// Only the first few posts of a scan are considered; deeper scrolling
	// happens across cycles, not within one.
	threadsScanLimit = 3
)

// threads drives threads.net. The composer usually opens as a modal
// overlay, with the "new thread" composer as the known misfire surface.
type threads struct {
	base
}

func newThreads(session *browser.Session, cfg config.Config, log *logrus.Logger) *threads {
	return &threads{base: newBase("threads", session, cfg, log)}
}

func (t *threads) Name() string { return "threads" }

// Login checks for a logged-out marker and, when present, blocks waiting
// for a manual login. Timeouts are logged, never raised: the per-item
// pipeline fails visibly instead.
func (t *threads) Login(ctx context.Context) error {
	if err := t.session.Navigate(threadsBaseURL); err != nil {
		t.log.WithError(err).Error("login navigation failed")
		return nil
	}
	humanDelay(ctx, 2*time.Second, 4*time.Second)

	page := t.session.Page()
	if _, err := resolver.Resolve(resolver.PageScope(page, probeTimeout), threadsChains[resolver.IntentLoginMarker]); err != nil {
		t.log.Info("login check passed")
		return nil
	}

	t.log.Warn("not logged in; please log in manually in the browser window")
	deadline := time.Now().Add(threadsLoginWait)
	for time.Now().Before(deadline) {
		if err := sleepCtx(ctx, time.Second); err != nil {
			return nil
		}
		if _, err := resolver.Resolve(resolver.PageScope(page, probeTimeout), threadsChains[resolver.IntentLoginMarker]); err != nil {
			t.log.Info("login detected, saving state")
			if err := t.session.SaveState(); err != nil {
				t.log.WithError(err).Warn("could not persist cookie state")
			}
			return nil
		}
	}
	t.log.Warn("login wait elapsed; proceeding anyway")
	return nil
}

func (t *threads) Feed(ctx context.Context) ([]Post, error) {
	page := t.session.Page()
	t.ensureSurface(threadsBaseURL, threadsActivityURL)
	t.log.Info("scanning feed")

	// Small scroll to settle lazy-loaded content and look human.
	if _, err := page.Eval(`(px) => window.scrollBy(0, px)`, 300+rand.Intn(300)); err != nil {
		t.log.WithError(err).Debug("scroll failed")
	}
	humanDelay(ctx, 2*time.Second, 3*time.Second)

	containers, err := resolver.ResolveAll(resolver.PageScope(page, probeTimeout), threadsChains[resolver.IntentPostContainer])
	if err != nil {
		t.log.Warn("no post containers found")
		return nil, nil
	}
	if len(containers) > threadsScanLimit {
		containers = containers[:threadsScanLimit]
	}

	var posts []Post
	for i, el := range containers {
		// A container without a reply trigger is a header or some other
		// structural block, not a post.
		if _, err := resolver.Resolve(resolver.ElementScope(el, probeTimeout), threadsChains[resolver.IntentReplyTrigger]); err != nil {
			continue
		}

		raw, err := el.Text()
		if err != nil {
			continue
		}
		content := NormalizeContent(raw)

		image := t.captureImage(el)
		imageCount := 0
		if image != "" {
			imageCount = 1
		}
		if !HasSignal(content, imageCount) {
			continue
		}

		post := Post{
			ID:      ItemID("threads", content, i),
			Content: content,
			Ref:     browser.NewElementRef(t.session, el),
		}
		if image != "" {
			post.Images = []string{image}
		}
		posts = append(posts, post)
	}

	t.log.WithField("posts", len(posts)).Info("feed scan complete")
	return posts, nil
}

// captureImage grabs the first real content image of a post as base64.
// The first <img> is almost always the avatar, so it is skipped, and tiny
// images (badges, icons) are filtered by width.
func (t *threads) captureImage(el *rod.Element) string {
	imgs, err := el.Elements("img")
	if err != nil || len(imgs) < 2 {
		return ""
	}
	img := imgs[1]

	shape, err := img.Shape()
	if err != nil || shape == nil {
		return ""
	}
	box := shape.Box()
	if box == nil || box.Width <= 100 {
		return ""
	}

	src, err := img.Attribute("src")
	if err != nil || src == nil || *src == "" {
		return ""
	}

	result, err := t.session.Page().Eval(`async (src) => {
		const response = await fetch(src);
		const blob = await response.blob();
		return await new Promise((resolve) => {
			const reader = new FileReader();
			reader.onloadend = () => resolve(reader.result);
			reader.readAsDataURL(blob);
		});
	}`, *src)
	if err != nil {
		return ""
	}
	data := result.Value.Str()
	if idx := strings.Index(data, ","); idx >= 0 {
		data = data[idx+1:]
	}
	return data
}

// Notifications scrapes the activity surface. It leaves the page there so
// the returned element refs stay live for ReplyToComment; the next Feed
// call navigates back.
func (t *threads) Notifications(ctx context.Context) ([]Notification, error) {
	if err := t.session.Navigate(threadsActivityURL); err != nil {
		t.log.WithError(err).Warn("activity navigation failed")
		return nil, nil
	}
	humanDelay(ctx, 2*time.Second, 3*time.Second)

	page := t.session.Page()
	containers, err := resolver.ResolveAll(resolver.PageScope(page, probeTimeout), threadsChains[resolver.IntentPostContainer])
	if err != nil {
		return nil, nil
	}
	if len(containers) > threadsScanLimit {
		containers = containers[:threadsScanLimit]
	}

	var items []Notification
	for i, el := range containers {
		raw, err := el.Text()
		if err != nil {
			continue
		}
		content := NormalizeContent(raw)
		if !HasSignal(content, 0) {
			continue
		}

		kind := ClassifyKind(content)
		if !kind.Actionable() {
			continue
		}

		items = append(items, Notification{
			ID:      ItemID("threads_activity", content, i),
			Content: content,
			Kind:    kind,
			Ref:     browser.NewElementRef(t.session, el),
		})
	}

	t.log.WithField("notifications", len(items)).Info("activity scan complete")
	return items, nil
}

func (t *threads) Reply(ctx context.Context, post *Post, text string) (bool, error) {
	return t.replyWithin(ctx, post.ID, post.Ref, text)
}

func (t *threads) ReplyToComment(ctx context.Context, n *Notification, text string) (bool, error) {
	return t.replyWithin(ctx, n.ID, n.Ref, text)
}

// replyWithin runs the full reply sequence against one item container:
// trigger, safety net, context detection, type, submit.
func (t *threads) replyWithin(ctx context.Context, id string, ref *browser.ElementRef, text string) (bool, error) {
	log := t.log.WithField("item", id)

	el, err := ref.Resolve()
	if err != nil {
		log.Warn("element reference is stale; item must be re-scraped")
		return false, nil
	}

	if err := el.ScrollIntoView(); err != nil {
		log.WithError(err).Warn("scroll into view failed")
		return false, nil
	}

	trigger, err := resolver.Resolve(resolver.ElementScope(el, probeTimeout), threadsChains[resolver.IntentReplyTrigger])
	if err != nil {
		log.Warn("reply trigger not found in item")
		return false, nil
	}
	if err := trigger.Element.Click(proto.InputMouseButtonLeft, 1); err != nil {
		log.WithError(err).Warn("reply trigger click failed")
		return false, nil
	}
	humanDelay(ctx, 1500*time.Millisecond, 2500*time.Millisecond)

	probe := pageProbe{page: t.session.Page(), chains: threadsChains, log: log}
	replyCtx, err := DetectContext(probe, resolver.ElementScope(el, probeTimeout))
	if err != nil {
		if errors.Is(err, ErrWrongSurface) {
			log.Error("wrong compose surface opened; attempt cancelled")
		} else {
			log.WithError(err).Warn("context detection failed")
		}
		return false, nil
	}
	log.WithField("surface", replyCtx.Surface).Info("reply context detected")

	input, err := resolver.Resolve(replyCtx.Scope, threadsChains[resolver.IntentComposerInput])
	if err != nil {
		log.WithField("surface", replyCtx.Surface).Warn("composer input not found")
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
	humanDelay(ctx, 1500*time.Millisecond, 2*time.Second)

	submit, err := resolver.Resolve(replyCtx.Scope, threadsChains[resolver.IntentSubmitControl])
	if err != nil {
		log.Warn("submit control not found")
		return false, nil
	}
	if disabled, _ := submit.Element.Attribute("aria-disabled"); disabled != nil && *disabled == "true" {
		log.Warn("submit control disabled; text input may have failed")
		return false, nil
	}
	if err := submit.Element.Click(proto.InputMouseButtonLeft, 1); err != nil {
		log.WithError(err).Warn("submit click failed")
		return false, nil
	}

	humanDelay(ctx, 3*time.Second, 4*time.Second)
	log.Info("reply sequence completed")
	return true, nil
}

// RefreshFeed navigates back to the feed root instead of a raw reload;
// it resets scroll position and skips re-running whatever surface the
// page happens to be on.
func (t *threads) RefreshFeed(ctx context.Context) error {
	return t.session.Navigate(threadsBaseURL)
}

// ensureSurface navigates home when the page is parked on a different
// surface (e.g., activity after a notification pass).
func (t *threads) ensureSurface(home string, elsewhere ...string) {
	page := t.session.Page()
	info, err := page.Info()
	if err != nil {
		return
	}
	for _, u := range elsewhere {
		if strings.HasPrefix(info.URL, u) {
			if err := t.session.Navigate(home); err != nil {
				t.log.WithError(err).Warn("navigation home failed")
			}
			return
		}
	}
}
