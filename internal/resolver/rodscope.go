package resolver

import (
	"time"

	"github.com/go-rod/rod"
)

// queryable is the slice of the Rod API shared by *rod.Page and
// *rod.Element that chain evaluation needs.
type queryable interface {
	Element(selector string) (*rod.Element, error)
	ElementR(selector, jsRegex string) (*rod.Element, error)
	Elements(selector string) (rod.Elements, error)
}

// RodScope evaluates strategies against a live Rod page or element.
// Each probe is bounded by the configured timeout, so a miss costs at
// most one timeout instead of hanging the chain.
type RodScope struct {
	q       queryable
	timeout time.Duration
}

const defaultProbeTimeout = 2 * time.Second

// PageScope wraps a whole page as a resolution scope.
func PageScope(page *rod.Page, timeout time.Duration) RodScope {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return RodScope{q: page.Timeout(timeout), timeout: timeout}
}

// ElementScope wraps a single container element as a resolution scope.
func ElementScope(el *rod.Element, timeout time.Duration) RodScope {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return RodScope{q: el.Timeout(timeout), timeout: timeout}
}

func (s RodScope) FirstVisible(selector string) (*rod.Element, bool) {
	el, err := s.q.Element(selector)
	if err != nil {
		return nil, false
	}
	return visibleOrNone(el)
}

func (s RodScope) FirstVisibleByText(selector, jsRegex string) (*rod.Element, bool) {
	el, err := s.q.ElementR(selector, jsRegex)
	if err != nil {
		return nil, false
	}
	return visibleOrNone(el)
}

func (s RodScope) AllVisible(selector string) []*rod.Element {
	els, err := s.q.Elements(selector)
	if err != nil {
		return nil
	}
	out := make([]*rod.Element, 0, len(els))
	for _, el := range els {
		if visible, err := el.Visible(); err == nil && visible {
			out = append(out, el)
		}
	}
	return out
}

func visibleOrNone(el *rod.Element) (*rod.Element, bool) {
	visible, err := el.Visible()
	if err != nil || !visible {
		return nil, false
	}
	return el, true
}
