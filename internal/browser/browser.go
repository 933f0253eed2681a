package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/example/gym-scheduler/internal/logger"
)

// quietPeriod is how long the network must stay silent before a
// WaitNetworkIdle call resolves.
const quietPeriod = 500 * time.Millisecond

type Options struct {
	Headless bool
	Devtools bool

	// IdentityHost is the identity provider's hostname; responses from it are
	// classified separately by the passive observer.
	IdentityHost string

	Log logger.Logger
}

// Session is a single headless Chrome page implementing portal.Page. One
// session exists per run; it is driven serially and closed exactly once.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	log         logger.Logger

	mu        sync.Mutex
	inflight  map[network.RequestID]struct{}
	lastEvent time.Time
}

// New launches the browser and opens the page. The passive response observer
// and network bookkeeping are installed before any navigation happens.
func New(parent context.Context, o Options) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	if o.Devtools {
		opts = append(opts, chromedp.Flag("auto-open-devtools-for-tabs", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			o.Log.Debugf("browser: "+format, args...)
		}),
	)

	s := &Session{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		log:         o.Log,
		inflight:    make(map[network.RequestID]struct{}),
		lastEvent:   time.Now(),
	}
	s.listen(o.IdentityHost)

	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		s.Close()
		return nil, fmt.Errorf("browser: start: %w", err)
	}
	return s, nil
}

// listen installs the network event hooks: in-flight request tracking for the
// idle wait, and the diagnostic response classifier. Neither alters control
// flow.
func (s *Session) listen(identityHost string) {
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			s.mu.Lock()
			s.inflight[e.RequestID] = struct{}{}
			s.lastEvent = time.Now()
			s.mu.Unlock()
		case *network.EventLoadingFinished:
			s.settle(e.RequestID)
		case *network.EventLoadingFailed:
			s.settle(e.RequestID)
		case *network.EventResponseReceived:
			s.classify(e, identityHost)
		}
	})
}

func (s *Session) settle(id network.RequestID) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.lastEvent = time.Now()
	s.mu.Unlock()
}

func (s *Session) classify(e *network.EventResponseReceived, identityHost string) {
	status := int(e.Response.Status)
	switch {
	case status >= 300 && status < 400:
		s.log.Debug("redirect", logger.Int("status", status), logger.String("url", e.Response.URL))
	case identityHost != "" && hostOf(e.Response.URL) == identityHost && status != 200:
		s.log.Warn("identity provider anomaly",
			logger.Int("status", status), logger.String("url", e.Response.URL))
	case status >= 400:
		s.log.Warn("http error", logger.Int("status", status), logger.String("url", e.Response.URL))
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

func (s *Session) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (s *Session) Navigate(u string, timeout time.Duration) error {
	if err := s.run(timeout, chromedp.Navigate(u)); err != nil {
		return fmt.Errorf("navigate %s: %w", u, err)
	}
	return s.WaitNetworkIdle(timeout)
}

func (s *Session) WaitVisible(sel string, timeout time.Duration) error {
	if err := s.run(timeout, chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait visible %s: %w", sel, err)
	}
	return nil
}

func (s *Session) Click(sel string, timeout time.Duration) error {
	err := s.run(timeout,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("click %s: %w", sel, err)
	}
	return nil
}

func (s *Session) Type(sel, text string, timeout time.Duration) error {
	err := s.run(timeout,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, text, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("type into %s: %w", sel, err)
	}
	return nil
}

func (s *Session) Evaluate(js string, out any) error {
	if out == nil {
		out = new(json.RawMessage)
	}
	if err := s.run(10*time.Second, chromedp.Evaluate(js, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

// WaitNetworkIdle resolves once no request has been in flight and no network
// event has arrived for quietPeriod, or fails when timeout elapses first.
func (s *Session) WaitNetworkIdle(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		s.mu.Lock()
		idle := len(s.inflight) == 0 && time.Since(s.lastEvent) >= quietPeriod
		s.mu.Unlock()
		if idle {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("network not idle after %s", timeout)
		}
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case <-tick.C:
		}
	}
}

func (s *Session) Screenshot() ([]byte, error) {
	var buf []byte
	ctx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

func (s *Session) Location() (string, error) {
	var loc string
	if err := s.run(5*time.Second, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Close tears the browser down. Safe to call on every exit path.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}
