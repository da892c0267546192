package platform

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeContent(t *testing.T) {
	got := NormalizeContent("  hello\n\tworld  \n again ")
	if got != "hello world again" {
		t.Errorf("NormalizeContent = %q", got)
	}
}

func TestItemIDStableForSameContent(t *testing.T) {
	a := ItemID("threads", "some post text", 0)
	b := ItemID("threads", "some  post\ntext", 0) // same after normalization
	if a != b {
		t.Errorf("ids should match for whitespace-equivalent content: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "threads_0_") {
		t.Errorf("id should carry platform and ordinal: %q", a)
	}
}

func TestItemIDVariesByOrdinalAndContent(t *testing.T) {
	base := ItemID("threads", "text", 0)
	if ItemID("threads", "text", 1) == base {
		t.Error("ordinal should distinguish ids")
	}
	if ItemID("threads", "other", 0) == base {
		t.Error("content should distinguish ids")
	}
}

func TestHasSignal(t *testing.T) {
	cases := []struct {
		content string
		images  int
		want    bool
	}{
		{"a real post with text", 0, true},
		{"", 1, true},
		{"", 0, false},
		{"hi", 0, false},
		{"  \n\t ", 0, false},
	}
	for _, c := range cases {
		if got := HasSignal(c.content, c.images); got != c.want {
			t.Errorf("HasSignal(%q, %d) = %v, want %v", c.content, c.images, got, c.want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	long := strings.Repeat("這是一篇很長的貼文", 30)
	got := truncateRunes(long, 200)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got[len(got)-6:])
	}
	if n := utf8.RuneCountInString(got); n != 200 {
		t.Errorf("want 200 runes, got %d", n)
	}

	if got := truncateRunes("short", 200); got != "short" {
		t.Errorf("short input must pass through, got %q", got)
	}
	if got := truncateRunes("anything", 0); got != "" {
		t.Errorf("zero cap must return empty, got %q", got)
	}
}

func TestClassifyKind(t *testing.T) {
	cases := []struct {
		text string
		want Kind
	}{
		{"alice replied to your post", KindReply},
		{"bob commented on your photo", KindComment},
		{"carol mentioned you in a comment", KindMention},
		{"dave liked your post", KindLike},
		{"eve reacted to your story", KindReaction},
		{"小明回覆了你的串文", KindReply},
		{"小華按讚你的貼文", KindLike},
		{"something unrecognizable", KindUnknown},
		// Likes that mention a comment are still likes, never actionable.
		{"alice liked your comment", KindLike},
		{"小美對你的留言按讚", KindLike},
		{"frank reacted to your comment", KindReaction},
	}
	for _, c := range cases {
		if got := ClassifyKind(c.text); got != c.want {
			t.Errorf("ClassifyKind(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestReactionAndLikeNotActionable(t *testing.T) {
	for _, k := range []Kind{KindReaction, KindLike} {
		if k.Actionable() {
			t.Errorf("%v must not be actionable", k)
		}
	}
	for _, k := range []Kind{KindComment, KindReply, KindMention, KindUnknown} {
		if !k.Actionable() {
			t.Errorf("%v should be actionable", k)
		}
	}
	for _, text := range []string{"alice liked your comment", "小美對你的留言按讚"} {
		if ClassifyKind(text).Actionable() {
			t.Errorf("like notification %q must not be actionable", text)
		}
	}
}
