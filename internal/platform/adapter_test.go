package platform

import (
	"context"
	"io"
	"testing"

	"socialbot/internal/config"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestNewKnownPlatforms(t *testing.T) {
	cfg := config.DefaultConfig()
	log := testLogger()

	for _, name := range []string{"threads", "instagram", "facebook", "x", "line", "whatsapp"} {
		a, err := New(name, nil, cfg, log)
		if err != nil {
			t.Errorf("New(%q): %v", name, err)
			continue
		}
		if a.Name() != name {
			t.Errorf("New(%q).Name() = %q", name, a.Name())
		}
	}
}

func TestNewUnknownPlatform(t *testing.T) {
	if _, err := New("myspace", nil, config.DefaultConfig(), testLogger()); err == nil {
		t.Error("expected error for unknown platform")
	}
}

func TestStubRunsTheFullContract(t *testing.T) {
	a, err := New("line", nil, config.DefaultConfig(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := a.Login(ctx); err != nil {
		t.Errorf("stub login must not fail: %v", err)
	}
	posts, err := a.Feed(ctx)
	if err != nil || len(posts) != 0 {
		t.Errorf("stub feed should be empty and error-free: %v, %v", posts, err)
	}
	ns, err := a.Notifications(ctx)
	if err != nil || len(ns) != 0 {
		t.Errorf("stub notifications should be empty and error-free: %v, %v", ns, err)
	}
	ok, err := a.Reply(ctx, &Post{ID: "p1"}, "hi")
	if err != nil || ok {
		t.Errorf("stub reply should be (false, nil), got (%v, %v)", ok, err)
	}
	ok, err = a.ReplyToComment(ctx, &Notification{ID: "n1"}, "hi")
	if err != nil || ok {
		t.Errorf("stub reply-to-comment should be (false, nil), got (%v, %v)", ok, err)
	}
	if err := a.RefreshFeed(ctx); err != nil {
		t.Errorf("stub refresh must not fail: %v", err)
	}
}
