package platform

import (
	"fmt"
	"hash/fnv"
	"strings"

	"socialbot/internal/browser"
)

// maxImagesPerPost caps how many image references a single post carries.
const maxImagesPerPost = 2

// minSignalLength is the minimum content length for a text-only item to
// count as a real post rather than structural noise (headers, placeholders,
// ads without captions).
const minSignalLength = 5

// Post is one feed item. Ref is a weak handle into the live page; the
// producing adapter is the only component allowed to resolve it, and it
// fails closed after any navigation or refresh.
type Post struct {
	ID      string
	Content string
	// Images holds base64-encoded captures or source URLs, at most two.
	Images []string
	Ref    *browser.ElementRef
}

// Kind classifies a notification by what produced it.
type Kind string

const (
	KindComment  Kind = "comment"
	KindReply    Kind = "reply"
	KindMention  Kind = "mention"
	KindReaction Kind = "reaction"
	KindLike     Kind = "like"
	KindUnknown  Kind = "unknown"
)

// Actionable reports whether a notification of this kind is worth
// replying to. Reactions and likes are dropped before they ever reach
// the orchestrator.
func (k Kind) Actionable() bool {
	return k != KindReaction && k != KindLike
}

// Notification is one activity item.
type Notification struct {
	ID      string
	Content string
	Kind    Kind
	Ref     *browser.ElementRef
}

// NormalizeContent collapses all whitespace runs (including newlines from
// DOM inner text) into single spaces.
func NormalizeContent(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// ItemID derives a content-addressed identity for an item: FNV-1a over
// normalized text plus the item's ordinal within the scan, prefixed with
// the platform name. Identity is deliberately weak: it is stable within
// one session only, and a re-rendered identical post collides by design.
// Cross-session dedup relies on the scrape producing the same normalized
// text, which is not guaranteed.
func ItemID(platformName, content string, ordinal int) string {
	h := fnv.New64a()
	h.Write([]byte(NormalizeContent(content)))
	return fmt.Sprintf("%s_%d_%x", platformName, ordinal, h.Sum64())
}

// truncateRunes caps s at n characters, never splitting a multi-byte rune.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// HasSignal reports whether an item carries enough content to be worth
// engaging: some text above the noise floor, or at least one image.
func HasSignal(content string, imageCount int) bool {
	if imageCount > 0 {
		return true
	}
	return len(NormalizeContent(content)) >= minSignalLength
}

// kindMarkers maps rendered-text fragments to notification kinds. Order
// matters: the more specific fragments are checked first so "replied to
// your comment" classifies as reply and "liked your comment" as like,
// never as comment. The bare comment fragments must stay last.
var kindMarkers = []struct {
	fragment string
	kind     Kind
}{
	{"replied to", KindReply},
	{"回覆了", KindReply},
	{"mentioned you", KindMention},
	{"提及了你", KindMention},
	{"liked your", KindLike},
	{"按讚", KindLike},
	{"liked", KindLike},
	{"reacted to", KindReaction},
	{"心情", KindReaction},
	{"commented on", KindComment},
	{"留言", KindComment},
	{"comment", KindComment},
}

// ClassifyKind maps a notification's rendered text to a Kind using
// substring heuristics over the active UI languages.
func ClassifyKind(text string) Kind {
	lower := strings.ToLower(text)
	for _, m := range kindMarkers {
		if strings.Contains(lower, m.fragment) {
			return m.kind
		}
	}
	return KindUnknown
}
