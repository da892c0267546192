package platform

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"socialbot/internal/browser"
	"socialbot/internal/config"
	"socialbot/internal/resolver"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

const (
	instagramBaseURL = "https://www.instagram.com"
	// Instagram logins routinely involve 2FA; give the human a long
	// window before giving up.
	instagramLoginWait = 10 * time.Minute
	instagramScanLimit = 5
	// Captions are capped in characters, not bytes, so CJK text stays
	// valid UTF-8 for the id hash and the vision prompt.
	instagramContentCap = 200
)

// instagram drives instagram.com. Posts are screenshotted whole for the
// vision model because caption markup is too unstable to pick apart.
type instagram struct {
	base
}

func newInstagram(session *browser.Session, cfg config.Config, log *logrus.Logger) *instagram {
	return &instagram{base: newBase("instagram", session, cfg, log)}
}

func (a *instagram) Name() string { return "instagram" }

// Login requires authentication: failing to detect it within the wait
// ceiling aborts the session, since nothing on Instagram renders without
// a logged-in account.
func (a *instagram) Login(ctx context.Context) error {
	if err := a.session.Navigate(instagramBaseURL); err != nil {
		return err
	}
	humanDelay(ctx, 2*time.Second, 4*time.Second)

	page := a.session.Page()
	marker := instagramChains[resolver.IntentLoginMarker]
	if _, err := resolver.Resolve(resolver.PageScope(page, 5*time.Second), marker); err == nil {
		a.log.Info("session valid, logged in")
		return nil
	}

	if a.cfg.Browser.IsHeadless() {
		return errors.New("instagram login requires a visible browser window")
	}

	a.log.Warn("login required; please log in manually in the browser window")
	deadline := time.Now().Add(instagramLoginWait)
	for time.Now().Before(deadline) {
		if err := sleepCtx(ctx, 2*time.Second); err != nil {
			return err
		}
		if _, err := resolver.Resolve(resolver.PageScope(page, probeTimeout), marker); err == nil {
			a.log.Info("login detected, saving state")
			if err := a.session.SaveState(); err != nil {
				a.log.WithError(err).Warn("could not persist cookie state")
			}
			return nil
		}
	}
	return errors.New("instagram login timeout")
}

func (a *instagram) Feed(ctx context.Context) ([]Post, error) {
	page := a.session.Page()
	a.log.Info("scanning feed")

	for i := 0; i < 3; i++ {
		if err := page.Mouse.Scroll(0, 800, 4); err != nil {
			break
		}
		humanDelay(ctx, time.Second, 2*time.Second)
	}

	containers, err := resolver.ResolveAll(resolver.PageScope(page, probeTimeout), instagramChains[resolver.IntentPostContainer])
	if err != nil {
		a.log.Warn("no post containers found")
		return nil, nil
	}
	if len(containers) > instagramScanLimit {
		containers = containers[:instagramScanLimit]
	}

	var posts []Post
	for i, el := range containers {
		raw, err := el.Text()
		if err != nil {
			continue
		}
		content := truncateRunes(NormalizeContent(raw), instagramContentCap)

		image := a.screenshotPost(el)
		imageCount := 0
		if image != "" {
			imageCount = 1
		}
		if !HasSignal(content, imageCount) {
			continue
		}

		post := Post{
			ID:      ItemID("instagram", content, i),
			Content: content,
			Ref:     browser.NewElementRef(a.session, el),
		}
		if image != "" {
			post.Images = []string{image}
		}
		posts = append(posts, post)
	}

	a.log.WithField("posts", len(posts)).Info("feed scan complete")
	return posts, nil
}

// screenshotPost captures the whole post card as low-quality JPEG for
// vision analysis; cheaper than untangling Instagram's media markup.
func (a *instagram) screenshotPost(el *rod.Element) string {
	quality := 70
	shot, err := el.Screenshot(proto.PageCaptureScreenshotFormatJpeg, quality)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(shot)
}

// Notifications is not implemented for Instagram; the feed pass is the
// only surface driven today.
func (a *instagram) Notifications(ctx context.Context) ([]Notification, error) {
	return nil, nil
}

func (a *instagram) Reply(ctx context.Context, post *Post, text string) (bool, error) {
	log := a.log.WithField("item", post.ID)

	el, err := post.Ref.Resolve()
	if err != nil {
		log.Warn("element reference is stale; item must be re-scraped")
		return false, nil
	}
	if err := el.ScrollIntoView(); err != nil {
		log.WithError(err).Warn("scroll into view failed")
		return false, nil
	}
	humanDelay(ctx, time.Second, 2*time.Second)

	// Clicking the comment bubble usually focuses the composer; when the
	// bubble is missing the textarea is sometimes already inline.
	if trigger, err := resolver.Resolve(resolver.ElementScope(el, probeTimeout), instagramChains[resolver.IntentReplyTrigger]); err == nil {
		if err := trigger.Element.Click(proto.InputMouseButtonLeft, 1); err != nil {
			log.WithError(err).Warn("reply trigger click failed")
			return false, nil
		}
		humanDelay(ctx, time.Second, 2*time.Second)
	} else {
		log.Info("reply bubble not found, checking for composer directly")
	}

	probe := pageProbe{page: a.session.Page(), chains: instagramChains, log: log}
	replyCtx, err := DetectContext(probe, resolver.ElementScope(el, probeTimeout))
	if err != nil {
		log.WithError(err).Warn("context detection failed")
		return false, nil
	}

	input, err := resolver.Resolve(replyCtx.Scope, instagramChains[resolver.IntentComposerInput])
	if err != nil {
		// Article-scoped search failed; fall back to the whole page.
		input, err = resolver.Resolve(resolver.PageScope(a.session.Page(), probeTimeout), instagramChains[resolver.IntentComposerInput])
		if err != nil {
			log.Warn("composer input not found")
			return false, nil
		}
	}
	if err := input.Element.Click(proto.InputMouseButtonLeft, 1); err != nil {
		log.WithError(err).Warn("composer focus failed")
		return false, nil
	}
	if err := input.Element.Input(text); err != nil {
		log.WithError(err).Warn("typing failed")
		return false, nil
	}
	humanDelay(ctx, time.Second, 2*time.Second)

	submit, err := resolver.Resolve(replyCtx.Scope, instagramChains[resolver.IntentSubmitControl])
	if err != nil {
		submit, err = resolver.Resolve(resolver.PageScope(a.session.Page(), probeTimeout), instagramChains[resolver.IntentSubmitControl])
		if err != nil {
			log.Warn("submit control not found, reply not sent")
			return false, nil
		}
	}
	if err := submit.Element.Click(proto.InputMouseButtonLeft, 1); err != nil {
		log.WithError(err).Warn("submit click failed")
		return false, nil
	}

	humanDelay(ctx, 3*time.Second, 5*time.Second)
	log.Info("reply sequence completed")
	return true, nil
}

func (a *instagram) ReplyToComment(ctx context.Context, n *Notification, text string) (bool, error) {
	a.log.WithField("item", n.ID).Info("comment replies not implemented for instagram")
	return false, nil
}
