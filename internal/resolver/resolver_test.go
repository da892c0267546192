package resolver

import (
	"errors"
	"testing"

	"github.com/go-rod/rod"
)

// fakeScope records probes and answers true for configured selectors.
// Elements are nil; the resolver never dereferences a match itself.
type fakeScope struct {
	visible     map[string]bool
	textVisible map[string]bool
	probes      []string
}

func (f *fakeScope) FirstVisible(selector string) (*rod.Element, bool) {
	f.probes = append(f.probes, selector)
	return nil, f.visible[selector]
}

func (f *fakeScope) FirstVisibleByText(selector, jsRegex string) (*rod.Element, bool) {
	key := selector + " " + jsRegex
	f.probes = append(f.probes, key)
	return nil, f.textVisible[key]
}

func TestResolveReturnsFirstVisibleMatch(t *testing.T) {
	scope := &fakeScope{visible: map[string]bool{"div.second": true, "div.third": true}}
	chain := Chain{
		{Kind: KindCSS, Selector: "div.first"},
		{Kind: KindCSS, Selector: "div.second"},
		{Kind: KindCSS, Selector: "div.third"},
	}

	match, err := Resolve(scope, chain)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if match.Strategy.Selector != "div.second" {
		t.Errorf("expected div.second to win, got %v", match.Strategy)
	}
	// Short-circuit: div.third must never be probed.
	for _, p := range scope.probes {
		if p == "div.third" {
			t.Error("resolution did not short-circuit on first match")
		}
	}
}

func TestResolveNotFoundSentinel(t *testing.T) {
	scope := &fakeScope{}
	chain := Chain{{Kind: KindCSS, Selector: "div.missing"}}

	_, err := Resolve(scope, chain)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveEmptyChain(t *testing.T) {
	if _, err := Resolve(&fakeScope{}, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty chain, got %v", err)
	}
}

func TestNormalizePutsExactTextAheadOfContains(t *testing.T) {
	chain := Chain{
		{Kind: KindCSS, Selector: "button.exact"},
		{Kind: KindTextContains, Selector: "div", Text: "Comment"},
		{Kind: KindTextIs, Selector: "div", Text: "Comment"},
	}

	norm := chain.Normalize()
	var isIdx, containsIdx int
	for i, s := range norm {
		switch s.Kind {
		case KindTextIs:
			isIdx = i
		case KindTextContains:
			containsIdx = i
		}
	}
	if isIdx > containsIdx {
		t.Errorf("text-is must precede text-contains, got order %v", norm)
	}
	if norm[0].Selector != "button.exact" {
		t.Errorf("leading non-text strategy should keep its slot, got %v", norm[0])
	}
	if len(norm) != len(chain) {
		t.Fatalf("normalize must not drop strategies: %d != %d", len(norm), len(chain))
	}
}

func TestNormalizeNoContainsIsIdentity(t *testing.T) {
	chain := Chain{
		{Kind: KindTextIs, Selector: "div", Text: "Reply"},
		{Kind: KindCSS, Selector: "svg"},
	}
	norm := chain.Normalize()
	for i := range chain {
		if norm[i] != chain[i] {
			t.Errorf("expected identity normalize, diverged at %d", i)
		}
	}
}

func TestExactTextMatchPreferredOverContains(t *testing.T) {
	// Both "Comment" (exact) and a contains-matching control exist; the
	// exact strategy must be probed and win before the contains one sees
	// anything.
	exactKey := "div[role='button'] " + exactTextRegex("Comment")
	scope := &fakeScope{textVisible: map[string]bool{exactKey: true}}

	chain := Chain{
		{Kind: KindTextContains, Selector: "div[role='button']", Text: "Comment"},
		{Kind: KindTextIs, Selector: "div[role='button']", Text: "Comment"},
	}

	match, err := Resolve(scope, chain)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if match.Strategy.Kind != KindTextIs {
		t.Errorf("expected exact-text strategy to win, got %v", match.Strategy)
	}
}

func TestExactTextRegexAnchorsAndEscapes(t *testing.T) {
	got := exactTextRegex("Post (new)")
	want := `/^\s*Post \(new\)\s*$/`
	if got != want {
		t.Errorf("exactTextRegex = %q, want %q", got, want)
	}
}

func TestAriaLabelStrategySelector(t *testing.T) {
	scope := &fakeScope{visible: map[string]bool{`svg[aria-label="Reply"]`: true}}
	chain := Chain{{Kind: KindAriaLabel, Selector: "svg", Text: "Reply"}}

	match, err := Resolve(scope, chain)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if match.Strategy.Kind != KindAriaLabel {
		t.Errorf("expected aria-label win, got %v", match.Strategy)
	}
}
