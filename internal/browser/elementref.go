package browser

import (
	"errors"

	"github.com/go-rod/rod"
)

// ErrStaleRef is returned when an element reference is resolved after the
// page that produced it has navigated or reloaded.
var ErrStaleRef = errors.New("stale element reference")

// GenerationSource reports the current render generation of a page.
// *Session implements it; tests use a fake.
type GenerationSource interface {
	Generation() uint64
}

// ElementRef is a weak, non-owning handle into the live page's render
// tree. It is stamped with the page generation at creation time and fails
// closed once the page has moved on, rather than silently resolving to an
// unrelated element.
type ElementRef struct {
	el     *rod.Element
	gen    uint64
	source GenerationSource
}

// NewElementRef stamps el with the source's current generation.
func NewElementRef(source GenerationSource, el *rod.Element) *ElementRef {
	return &ElementRef{
		el:     el,
		gen:    source.Generation(),
		source: source,
	}
}

// Resolve returns the underlying element, or ErrStaleRef if the page has
// navigated or reloaded since the ref was taken.
func (r *ElementRef) Resolve() (*rod.Element, error) {
	if r == nil {
		return nil, ErrStaleRef
	}
	if r.source.Generation() != r.gen {
		return nil, ErrStaleRef
	}
	return r.el, nil
}

// Stale reports whether the ref would fail to resolve.
func (r *ElementRef) Stale() bool {
	_, err := r.Resolve()
	return err != nil
}

// Stamp returns the generation the ref was taken at.
func (r *ElementRef) Stamp() uint64 { return r.gen }
