// Package platform implements the per-site adapters that let one
// orchestration loop drive structurally different web UIs uniformly.
package platform

import (
	"context"
	"fmt"

	"socialbot/internal/browser"
	"socialbot/internal/config"

	"github.com/sirupsen/logrus"
)

// Adapter is the capability contract every platform implements. Platforms
// without an implementation yet satisfy it with logged no-ops returning
// empty results, so the orchestrator runs unmodified against a stub.
//
// Failure policy at this boundary: transient UI failures (element not
// found, click missed, selector timeout) are caught and logged inside the
// adapter and surfaced as empty slices or (false, nil). Only Login on a
// platform that cannot proceed unauthenticated may return an error.
type Adapter interface {
	Name() string

	// Login establishes an authenticated page state. It either detects an
	// existing session quickly or blocks waiting for a human-completed
	// login up to a platform-specific ceiling, then proceeds regardless:
	// the rest of the pipeline fails visibly per item instead.
	Login(ctx context.Context) error

	// Feed re-scrapes the current DOM and returns visible posts with
	// enough signal. The result is finite and non-restartable; a fresh
	// call reflects whatever the page renders now.
	Feed(ctx context.Context) ([]Post, error)

	// Notifications returns actionable activity items. Reaction and like
	// kinds never appear in the result.
	Notifications(ctx context.Context) ([]Notification, error)

	// Reply posts text as a top-level comment on the post. The boolean is
	// best-effort: true means the UI sequence completed, not that the
	// platform accepted the comment.
	Reply(ctx context.Context, post *Post, text string) (bool, error)

	// ReplyToComment is Reply scoped to one notification's thread.
	ReplyToComment(ctx context.Context, n *Notification, text string) (bool, error)

	// RefreshFeed reloads or lightly refreshes the feed surface. The
	// orchestrator calls it only after a cycle that replied at least once.
	RefreshFeed(ctx context.Context) error
}

// base carries the pieces every concrete adapter shares and the default
// refresh behavior (full page reload).
type base struct {
	session *browser.Session
	cfg     config.Config
	log     *logrus.Entry
}

func newBase(name string, session *browser.Session, cfg config.Config, log *logrus.Logger) base {
	return base{
		session: session,
		cfg:     cfg,
		log:     log.WithField("platform", name),
	}
}

// RefreshFeed reloads the page. Adapters override this when the platform
// has a lighter-weight refresh.
func (b base) RefreshFeed(ctx context.Context) error {
	if err := b.session.Reload(); err != nil {
		return fmt.Errorf("refresh feed: %w", err)
	}
	return nil
}

// New returns the adapter for a platform name. Planned platforms return
// the no-op stub; unknown names are an error.
func New(name string, session *browser.Session, cfg config.Config, log *logrus.Logger) (Adapter, error) {
	switch name {
	case "threads":
		return newThreads(session, cfg, log), nil
	case "instagram":
		return newInstagram(session, cfg, log), nil
	case "facebook":
		return newFacebook(session, cfg, log), nil
	case "x":
		return newX(session, cfg, log), nil
	case "line", "whatsapp":
		return newStub(name, log), nil
	default:
		return nil, fmt.Errorf("unknown platform %q", name)
	}
}
