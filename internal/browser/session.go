package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"socialbot/internal/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Session owns the single Chrome instance and the single page driving a
// platform. There is exactly one Session per process; all access is from
// one logical thread, the mutex only guards Stop racing a signal handler.
type Session struct {
	cfg config.BrowserConfig
	log *logrus.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	runID    string

	// generation advances on every navigation or reload. Element
	// references stamped with an older generation fail closed.
	generation atomic.Uint64
}

// NewSession prepares a session; the browser is not launched until Start.
func NewSession(cfg config.BrowserConfig, log *logrus.Logger) *Session {
	return &Session{
		cfg:   cfg,
		log:   log,
		runID: uuid.NewString(),
	}
}

// RunID identifies this process's browser session in logs and traces.
func (s *Session) RunID() string { return s.runID }

// Start launches Chrome through Rod's launcher, restores persisted cookie
// state, and opens the driving page.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return nil
	}

	if s.cfg.UserDataDir != "" {
		if err := os.MkdirAll(s.cfg.UserDataDir, 0o755); err != nil {
			return fmt.Errorf("create user data dir: %w", err)
		}
	}

	launch := launcher.New().
		Headless(s.cfg.IsHeadless()).
		Set("disable-blink-features", "AutomationControlled").
		Set("no-sandbox").
		Set("disable-infobars").
		Set("disable-dev-shm-usage")
	if s.cfg.Bin != "" {
		launch = launch.Bin(s.cfg.Bin)
	}
	if s.cfg.UserDataDir != "" {
		launch = launch.UserDataDir(s.cfg.UserDataDir)
	}

	controlURL, err := launch.Launch()
	if err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	s.browser = browser
	s.launcher = launch

	if err := s.restoreCookies(); err != nil {
		// A corrupt or missing state file is not fatal; login recovers.
		s.log.WithError(err).Warn("could not restore cookie state")
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		s.browser = nil
		return fmt.Errorf("open page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.GetViewportWidth(),
		Height:            s.cfg.GetViewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		s.log.WithError(err).Warn("failed to set viewport")
	}

	if s.cfg.UserAgent != "" || s.cfg.Locale != "" {
		override := proto.NetworkSetUserAgentOverride{UserAgent: s.cfg.UserAgent}
		if s.cfg.Locale != "" {
			override.AcceptLanguage = s.cfg.Locale
		}
		if err := override.Call(page); err != nil {
			s.log.WithError(err).Warn("failed to set user agent")
		}
	}

	s.page = page
	s.log.WithField("run_id", s.runID).Info("browser session started")
	return nil
}

// Page returns the driving page. Nil before Start / after Stop.
func (s *Session) Page() *rod.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Generation returns the current render generation of the driving page.
func (s *Session) Generation() uint64 {
	return s.generation.Load()
}

// Navigate loads a URL and invalidates all outstanding element references.
func (s *Session) Navigate(url string) error {
	page := s.Page()
	if page == nil {
		return errors.New("session not started")
	}
	s.generation.Add(1)
	if err := page.Timeout(s.cfg.NavigationTimeout()).Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	// Best-effort settle; slow third-party pages never fully idle.
	_ = page.Timeout(s.cfg.NavigationTimeout()).WaitLoad()
	return nil
}

// Reload refreshes the current page and invalidates all outstanding
// element references.
func (s *Session) Reload() error {
	page := s.Page()
	if page == nil {
		return errors.New("session not started")
	}
	s.generation.Add(1)
	if err := page.Reload(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	_ = page.Timeout(s.cfg.NavigationTimeout()).WaitLoad()
	return nil
}

// SaveState persists browser cookies to the configured storage-state path.
// Called after a detected login and again on shutdown.
func (s *Session) SaveState() error {
	s.mu.Lock()
	browser := s.browser
	s.mu.Unlock()

	if browser == nil || s.cfg.StorageState == "" {
		return nil
	}

	cookies, err := browser.GetCookies()
	if err != nil {
		return fmt.Errorf("get cookies: %w", err)
	}

	raw, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.cfg.StorageState), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(s.cfg.StorageState, raw, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

func (s *Session) restoreCookies() error {
	if s.cfg.StorageState == "" {
		return nil
	}
	raw, err := os.ReadFile(s.cfg.StorageState)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return fmt.Errorf("parse state file: %w", err)
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
			Expires:  c.Expires,
		})
	}
	if len(params) == 0 {
		return nil
	}
	if err := s.browser.SetCookies(params); err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}
	s.log.WithField("cookies", len(params)).Info("restored cookie state")
	return nil
}

// Stop flushes cookie state and closes the page and browser. Safe to call
// more than once; runs on every exit path.
func (s *Session) Stop() error {
	if err := s.SaveState(); err != nil {
		s.log.WithError(err).Warn("failed to flush cookie state")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}

	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
		s.launcher = nil
	}
	s.log.Info("browser session stopped")
	return err
}
