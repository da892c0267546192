package platform

import (
	"errors"
	"time"

	"socialbot/internal/resolver"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// Surface is where the reply composer lives for one attempt.
type Surface string

const (
	// SurfaceModal: the platform opened a dedicated composition overlay.
	SurfaceModal Surface = "MODAL"
	// SurfaceInline: the composer expanded in place inside the item.
	SurfaceInline Surface = "INLINE"
)

// ErrWrongSurface reports that the UI opened an unrelated top-level
// compose surface instead of a reply composer. The attempt is failed, not
// retried; the misfired surface has already been cancelled.
var ErrWrongSurface = errors.New("compose surface opened instead of reply composer")

// ReplyContext is the transient result of context detection: the surface
// kind plus the scope all subsequent element resolution must use.
// Computed fresh on every reply attempt, never persisted.
type ReplyContext struct {
	Surface Surface
	Scope   resolver.Scope
}

// SurfaceProbe abstracts the page-level checks the detector needs, so
// the state machine is testable without a browser.
type SurfaceProbe interface {
	// ModalScope returns the active modal-dialog scope when one is
	// visible.
	ModalScope() (resolver.Scope, bool)
	// ComposeMisfire reports whether a "new top-level post" surface is
	// open. A known misfire when a generic trigger is ambiguous.
	ComposeMisfire() bool
	// CancelCompose closes the misfired surface and confirms any
	// "discard draft" prompt.
	CancelCompose() error
}

// DetectContext runs the two-state machine: modal wins when visible,
// otherwise the item's own container is the scope. The safety-net check
// runs after scope selection; on a misfire the surface is cancelled and
// ErrWrongSurface returned.
func DetectContext(probe SurfaceProbe, itemScope resolver.Scope) (ReplyContext, error) {
	ctx := ReplyContext{Surface: SurfaceInline, Scope: itemScope}
	if modal, ok := probe.ModalScope(); ok {
		ctx = ReplyContext{Surface: SurfaceModal, Scope: modal}
	}

	if probe.ComposeMisfire() {
		if err := probe.CancelCompose(); err != nil {
			return ReplyContext{}, errors.Join(ErrWrongSurface, err)
		}
		return ReplyContext{}, ErrWrongSurface
	}

	return ctx, nil
}

// pageProbe is the Rod-backed SurfaceProbe shared by the concrete
// adapters, driven by each platform's chain catalogue.
type pageProbe struct {
	page   *rod.Page
	chains map[resolver.Intent]resolver.Chain
	log    *logrus.Entry
}

// Misfire detection must be quick; these probes run on every reply.
const probeTimeout = 1500 * time.Millisecond

func (p pageProbe) ModalScope() (resolver.Scope, bool) {
	chain, ok := p.chains[resolver.IntentModalSurface]
	if !ok {
		return nil, false
	}
	match, err := resolver.Resolve(resolver.PageScope(p.page, probeTimeout), chain)
	if err != nil {
		return nil, false
	}
	return resolver.ElementScope(match.Element, probeTimeout), true
}

func (p pageProbe) ComposeMisfire() bool {
	chain, ok := p.chains[resolver.IntentComposeMisfire]
	if !ok {
		return false
	}
	_, err := resolver.Resolve(resolver.PageScope(p.page, probeTimeout), chain)
	return err == nil
}

func (p pageProbe) CancelCompose() error {
	scope := resolver.PageScope(p.page, probeTimeout)

	closeMatch, err := resolver.Resolve(scope, p.chains[resolver.IntentModalClose])
	if err != nil {
		return errors.New("misfired compose surface has no close control")
	}
	if err := closeMatch.Element.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	p.log.Warn("closed misfired compose surface")

	// The close may raise a "discard draft?" prompt; confirm it if so.
	time.Sleep(600 * time.Millisecond)
	if discard, err := resolver.Resolve(scope, p.chains[resolver.IntentDiscardConfirm]); err == nil {
		if err := discard.Element.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
		p.log.Info("confirmed discard of misfired draft")
	}
	return nil
}
