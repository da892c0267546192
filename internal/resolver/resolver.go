// Package resolver evaluates ordered selector fallback chains against a
// page or container scope. The "what to try first" policy lives in chain
// data curated per platform, not in adapter control flow.
package resolver

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-rod/rod"
)

// ErrNotFound is the sentinel for "no candidate matched". Callers decide
// whether that is fatal for the current operation; the resolver never
// panics or wraps lower-level errors into it.
var ErrNotFound = errors.New("no matching element")

// Intent names a locator's purpose. Chains are registered per (platform,
// intent) pair.
type Intent string

const (
	IntentLoginMarker    Intent = "login-marker"
	IntentPostContainer  Intent = "post-container"
	IntentContentText    Intent = "content-text"
	IntentReplyTrigger   Intent = "reply-trigger"
	IntentComposerInput  Intent = "composer-input"
	IntentSubmitControl  Intent = "submit-control"
	IntentModalSurface   Intent = "modal-surface"
	IntentComposeMisfire Intent = "compose-misfire"
	IntentModalClose     Intent = "modal-close"
	IntentDiscardConfirm Intent = "discard-confirm"
)

// Kind selects the matching mechanism for one strategy.
type Kind int

const (
	// KindCSS matches a plain CSS selector.
	KindCSS Kind = iota
	// KindTextIs matches Selector nodes whose text equals Text exactly.
	// Preferred over KindTextContains for the same intent so "Comment"
	// never collides with "Block this comment".
	KindTextIs
	// KindTextContains matches Selector nodes whose text contains Text.
	KindTextContains
	// KindAriaLabel matches Selector nodes carrying aria-label=Text.
	KindAriaLabel
)

// Strategy is one candidate in a fallback chain.
type Strategy struct {
	Kind     Kind
	Selector string
	Text     string
}

func (s Strategy) String() string {
	switch s.Kind {
	case KindTextIs:
		return fmt.Sprintf("text-is(%s, %q)", s.Selector, s.Text)
	case KindTextContains:
		return fmt.Sprintf("text-contains(%s, %q)", s.Selector, s.Text)
	case KindAriaLabel:
		return fmt.Sprintf("aria-label(%s, %q)", s.Selector, s.Text)
	default:
		return fmt.Sprintf("css(%s)", s.Selector)
	}
}

// Chain is an ordered list of strategies, most specific first.
type Chain []Strategy

// Normalize returns the chain with every text-is strategy ahead of the
// first text-contains strategy, preserving relative order within each
// group. Other kinds keep their positions relative to the text groups.
func (c Chain) Normalize() Chain {
	firstContains := -1
	for i, s := range c {
		if s.Kind == KindTextContains {
			firstContains = i
			break
		}
	}
	if firstContains == -1 {
		return c
	}

	out := make(Chain, 0, len(c))
	var deferred Chain
	for i, s := range c {
		if i >= firstContains && s.Kind != KindTextIs {
			deferred = append(deferred, s)
			continue
		}
		out = append(out, s)
	}
	return append(out, deferred...)
}

// Scope is the surface a chain is evaluated against: the whole page or a
// single post/notification container. Implementations perform existence
// and visibility checks; the resolver only owns ordering.
type Scope interface {
	// FirstVisible returns the first visible node matching a CSS selector.
	FirstVisible(selector string) (*rod.Element, bool)
	// FirstVisibleByText returns the first visible node matching selector
	// whose rendered text matches the JS regex.
	FirstVisibleByText(selector, jsRegex string) (*rod.Element, bool)
}

// Match carries the winning element and the strategy that found it.
type Match struct {
	Element  *rod.Element
	Strategy Strategy
}

// Resolve walks the chain in order and returns the first visible match,
// or ErrNotFound. Evaluation short-circuits on the first hit.
func Resolve(scope Scope, chain Chain) (Match, error) {
	for _, s := range chain.Normalize() {
		el, ok := evaluate(scope, s)
		if ok {
			return Match{Element: el, Strategy: s}, nil
		}
	}
	return Match{}, ErrNotFound
}

// ListScope enumerates every visible match for a selector. Used for
// container discovery (posts, notifications), where the first strategy
// that yields anything wins the whole chain.
type ListScope interface {
	AllVisible(selector string) []*rod.Element
}

// ResolveAll walks the chain and returns the matches of the first
// strategy that finds at least one visible element. Text strategies are
// skipped: containers are located structurally.
func ResolveAll(scope ListScope, chain Chain) ([]*rod.Element, error) {
	for _, s := range chain {
		if s.Kind != KindCSS && s.Kind != KindAriaLabel {
			continue
		}
		sel := s.Selector
		if s.Kind == KindAriaLabel {
			sel = fmt.Sprintf(`%s[aria-label=%q]`, s.Selector, s.Text)
		}
		if els := scope.AllVisible(sel); len(els) > 0 {
			return els, nil
		}
	}
	return nil, ErrNotFound
}

func evaluate(scope Scope, s Strategy) (*rod.Element, bool) {
	switch s.Kind {
	case KindTextIs:
		return scope.FirstVisibleByText(selectorOrAny(s), exactTextRegex(s.Text))
	case KindTextContains:
		return scope.FirstVisibleByText(selectorOrAny(s), containsTextRegex(s.Text))
	case KindAriaLabel:
		sel := fmt.Sprintf(`%s[aria-label=%q]`, s.Selector, s.Text)
		return scope.FirstVisible(sel)
	default:
		return scope.FirstVisible(s.Selector)
	}
}

func selectorOrAny(s Strategy) string {
	if s.Selector == "" {
		return "*"
	}
	return s.Selector
}

// exactTextRegex builds a JS regex matching the whole trimmed text.
func exactTextRegex(text string) string {
	return "/^\\s*" + regexp.QuoteMeta(text) + "\\s*$/"
}

func containsTextRegex(text string) string {
	return "/" + regexp.QuoteMeta(text) + "/"
}
