package platform

import (
	"context"
	"strings"
	"time"

	"socialbot/internal/browser"
	"socialbot/internal/config"
	"socialbot/internal/resolver"

	"github.com/go-rod/rod"
	rodinput "github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

const (
	facebookBaseURL   = "https://www.facebook.com"
	facebookLoginWait = 5 * time.Minute
	facebookScanLimit = 5
	// Facebook feeds are noisy; text-only items below this length are
	// reshares, reactions summaries, or chrome.
	facebookMinContent = 30
)

// facebook drives facebook.com. Composition is inline within the post
// container; Enter submits from the comment box.
type facebook struct {
	base
}

func newFacebook(session *browser.Session, cfg config.Config, log *logrus.Logger) *facebook {
	return &facebook{base: newBase("facebook", session, cfg, log)}
}

func (f *facebook) Name() string { return "facebook" }

func (f *facebook) Login(ctx context.Context) error {
	if err := f.session.Navigate(facebookBaseURL); err != nil {
		f.log.WithError(err).Error("login navigation failed")
		return nil
	}

	f.log.Info("waiting for login; please log in in the browser window")
	page := f.session.Page()
	deadline := time.Now().Add(facebookLoginWait)
	for time.Now().Before(deadline) {
		if _, err := resolver.Resolve(resolver.PageScope(page, probeTimeout), facebookChains[resolver.IntentLoginMarker]); err == nil {
			f.log.Info("login detected")
			if err := f.session.SaveState(); err != nil {
				f.log.WithError(err).Warn("could not persist cookie state")
			}
			return nil
		}
		if err := sleepCtx(ctx, 2*time.Second); err != nil {
			return nil
		}
	}
	f.log.Warn("login timeout or not detected; proceeding anyway")
	return nil
}

func (f *facebook) Feed(ctx context.Context) ([]Post, error) {
	page := f.session.Page()
	f.log.Info("fetching feed")

	containers, err := resolver.ResolveAll(resolver.PageScope(page, 10*time.Second), facebookChains[resolver.IntentPostContainer])
	if err != nil {
		f.log.Warn("no articles found")
		return nil, nil
	}
	if len(containers) > facebookScanLimit {
		containers = containers[:facebookScanLimit]
	}

	var posts []Post
	for i, el := range containers {
		content := f.extractContent(el)
		images := f.extractImages(el)

		// Min-signal: substantial text or at least one image.
		if len(content) < facebookMinContent && len(images) == 0 {
			continue
		}

		posts = append(posts, Post{
			ID:      ItemID("facebook", content, i),
			Content: content,
			Images:  images,
			Ref:     browser.NewElementRef(f.session, el),
		})
		if len(images) > 0 {
			f.log.WithFields(logrus.Fields{"post": i, "images": len(images)}).Info("found images in post")
		}
	}

	f.log.WithField("posts", len(posts)).Info("feed scan complete")
	return posts, nil
}

// extractContent prefers the dedicated message selector so comment text
// under the post does not leak into the content.
func (f *facebook) extractContent(el *rod.Element) string {
	if match, err := resolver.Resolve(resolver.ElementScope(el, probeTimeout), facebookChains[resolver.IntentContentText]); err == nil {
		if text, err := match.Element.Text(); err == nil {
			return NormalizeContent(text)
		}
	}
	if text, err := el.Text(); err == nil {
		return NormalizeContent(text)
	}
	return ""
}

// extractImages collects up to two content image URLs, skipping emoji
// sprites and badges.
func (f *facebook) extractImages(el *rod.Element) []string {
	imgs, err := el.Elements("img")
	if err != nil {
		return nil
	}
	var out []string
	for _, img := range imgs {
		src, err := img.Attribute("src")
		if err != nil || src == nil || *src == "" {
			continue
		}
		if strings.Contains(*src, "emoji") {
			continue
		}
		out = append(out, *src)
		if len(out) == maxImagesPerPost {
			break
		}
	}
	return out
}

func (f *facebook) Notifications(ctx context.Context) ([]Notification, error) {
	return nil, nil
}

func (f *facebook) Reply(ctx context.Context, post *Post, text string) (bool, error) {
	log := f.log.WithField("item", post.ID)

	el, err := post.Ref.Resolve()
	if err != nil {
		log.Warn("element reference is stale; item must be re-scraped")
		return false, nil
	}
	if err := el.ScrollIntoView(); err != nil {
		log.WithError(err).Warn("scroll into view failed")
		return false, nil
	}

	// The trigger chain leads with exact-text matches so "Comment" can
	// never hit "Block this comment".
	if trigger, err := resolver.Resolve(resolver.ElementScope(el, probeTimeout), facebookChains[resolver.IntentReplyTrigger]); err == nil {
		if err := trigger.Element.Click(proto.InputMouseButtonLeft, 1); err != nil {
			log.WithError(err).Warn("comment trigger click failed")
			return false, nil
		}
		humanDelay(ctx, 1500*time.Millisecond, 2*time.Second)
	}

	probe := pageProbe{page: f.session.Page(), chains: facebookChains, log: log}
	replyCtx, err := DetectContext(probe, resolver.ElementScope(el, probeTimeout))
	if err != nil {
		log.WithError(err).Warn("context detection failed")
		return false, nil
	}

	input, err := resolver.Resolve(replyCtx.Scope, facebookChains[resolver.IntentComposerInput])
	if err != nil {
		log.Warn("comment box not found even after clicking trigger")
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
	humanDelay(ctx, 800*time.Millisecond, 1200*time.Millisecond)

	// Desktop Facebook submits on Enter. The Post icon is clicked only
	// when the composer still holds the text; after a successful Enter a
	// second click would post a duplicate comment.
	if err := input.Element.Type(rodinput.Enter); err != nil {
		log.WithError(err).Warn("enter key failed")
	}
	humanDelay(ctx, 800*time.Millisecond, 1200*time.Millisecond)
	remaining, readErr := input.Element.Text()
	if submitPending(remaining, readErr, text) {
		log.Info("enter did not submit, clicking post control")
		if submit, err := resolver.Resolve(replyCtx.Scope, facebookChains[resolver.IntentSubmitControl]); err == nil {
			_ = submit.Element.Click(proto.InputMouseButtonLeft, 1)
		}
	}

	humanDelay(ctx, 2*time.Second, 3*time.Second)
	log.Info("reply sequence completed")
	return true, nil
}

// submitPending reports whether the typed text is still sitting in the
// composer, meaning Enter did not submit. A read error counts as
// submitted: the composer usually detaches once the comment posts.
func submitPending(remaining string, readErr error, text string) bool {
	return readErr == nil && strings.Contains(remaining, text)
}

func (f *facebook) ReplyToComment(ctx context.Context, n *Notification, text string) (bool, error) {
	f.log.WithField("item", n.ID).Info("comment replies not implemented for facebook")
	return false, nil
}
