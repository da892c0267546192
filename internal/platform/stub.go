package platform

import (
	"context"

	"github.com/sirupsen/logrus"
)

// stub satisfies the capability contract for platforms that are planned
// but not implemented. Every operation is a logged no-op returning empty
// results, so the orchestrator runs unmodified against it.
type stub struct {
	name string
	log  *logrus.Entry
}

func newStub(name string, log *logrus.Logger) *stub {
	return &stub{name: name, log: log.WithField("platform", name)}
}

func (s *stub) Name() string { return s.name }

func (s *stub) Login(ctx context.Context) error {
	s.log.Info("login not implemented yet")
	return nil
}

func (s *stub) Feed(ctx context.Context) ([]Post, error) {
	s.log.Info("feed not implemented yet")
	return nil, nil
}

func (s *stub) Notifications(ctx context.Context) ([]Notification, error) {
	return nil, nil
}

func (s *stub) Reply(ctx context.Context, post *Post, text string) (bool, error) {
	s.log.WithField("item", post.ID).Info("reply not implemented yet")
	return false, nil
}

func (s *stub) ReplyToComment(ctx context.Context, n *Notification, text string) (bool, error) {
	s.log.WithField("item", n.ID).Info("reply not implemented yet")
	return false, nil
}

func (s *stub) RefreshFeed(ctx context.Context) error {
	return nil
}
