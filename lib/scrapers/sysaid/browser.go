package sysaid

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Launcher starts an isolated browser, every call yields a fresh profile.
type Launcher interface {
	Launch(ctx context.Context) (BrowserSession, error)
}

// BrowserSession is a single page in a launched browser. every method
// blocks until ctx is done at the latest. Close releases the browser
// process and must be safe to call more than once.
type BrowserSession interface {
	Navigate(ctx context.Context, url string) error
	// Type waits for `selector` to become visible then replaces its value.
	Type(ctx context.Context, selector, text string) error
	// ClickAndWaitNavigation clicks `selector` and waits for the main
	// frame to navigate and finish loading.
	ClickAndWaitNavigation(ctx context.Context, selector string) error
	HTML(ctx context.Context) (string, error)
	Cookies(ctx context.Context) ([]Cookie, error)
	Close() error
}

type BrowserOptions struct {
	// path to a chrome/chromium executable, chromedp looks one up when empty.
	ExecPath string `json:"exec_path"`
	// devtools endpoint of an already running browser (ex. ws://127.0.0.1:9222),
	// when set no local process is spawned.
	RemoteUrl string `json:"remote_url"`
	// show the browser window, for debugging logins locally.
	Headful   bool   `json:"headful"`
	UserAgent string `json:"user_agent"`
}

type ChromeLauncher struct {
	opts BrowserOptions

	// shared connection to the browser at opts.RemoteUrl
	mu           sync.Mutex
	remote       context.Context
	remoteCancel context.CancelFunc
	allocCancel  context.CancelFunc
}

func NewChromeLauncher(opts BrowserOptions) *ChromeLauncher {
	return &ChromeLauncher{opts: opts}
}

func chromedpLogf(format string, args ...any) {
	slog.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
}

func (l *ChromeLauncher) execAllocator() (context.Context, context.CancelFunc) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}
	if l.opts.Headful {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if l.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.opts.UserAgent))
	}
	return chromedp.NewExecAllocator(context.Background(), opts...)
}

// remoteBrowser connects to the remote browser once and reconnects after
// the connection is lost.
func (l *ChromeLauncher) remoteBrowser(ctx context.Context) (context.Context, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.remote != nil && l.remote.Err() == nil {
		return l.remote, nil
	}
	l.closeRemote()

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), l.opts.RemoteUrl)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(chromedpLogf))

	stop := context.AfterFunc(ctx, browserCancel)
	err := chromedp.Run(browserCtx)
	stop()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		browserCancel()
		allocCancel()
		return nil, err
	}

	l.remote = browserCtx
	l.remoteCancel = browserCancel
	l.allocCancel = allocCancel
	return browserCtx, nil
}

func (l *ChromeLauncher) closeRemote() {
	if l.remote == nil {
		return
	}
	l.remoteCancel()
	l.allocCancel()
	l.remote = nil
}

// Close drops the connection to a remote browser, it never closes the
// remote browser itself.
func (l *ChromeLauncher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeRemote()
	return nil
}

// local browsers are rooted at context.Background() so that they live
// until Close, ctx only bounds the startup. on a remote browser every
// launch gets its own browser context (an incognito profile) that is
// disposed on Close.
func (l *ChromeLauncher) Launch(ctx context.Context) (BrowserSession, error) {
	var pageCtx context.Context
	var pageCancel, allocCancel context.CancelFunc

	if l.opts.RemoteUrl != "" {
		parent, err := l.remoteBrowser(ctx)
		if err != nil {
			return nil, err
		}
		pageCtx, pageCancel = chromedp.NewContext(parent, chromedp.WithNewBrowserContext())
		allocCancel = func() {}
	} else {
		var allocCtx context.Context
		allocCtx, allocCancel = l.execAllocator()
		pageCtx, pageCancel = chromedp.NewContext(allocCtx, chromedp.WithLogf(chromedpLogf))
	}

	stop := context.AfterFunc(ctx, pageCancel)
	// the first Run allocates the browser (or browser context) and opens the page
	err := chromedp.Run(pageCtx)
	stop()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		pageCancel()
		allocCancel()
		return nil, err
	}

	return &chromeSession{
		ctx:           pageCtx,
		browserCancel: pageCancel,
		allocCancel:   allocCancel,
	}, nil
}

type chromeSession struct {
	ctx           context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// run executes actions on the page, aborting when either the caller's ctx
// or the browser ends.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) Type(ctx context.Context, selector, text string) error {
	return s.run(
		ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (s *chromeSession) ClickAndWaitNavigation(ctx context.Context, selector string) error {
	loaded := make(chan struct{})
	var once sync.Once
	var navigated atomic.Bool

	listenCtx, stopListening := context.WithCancel(s.ctx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev any) {
		switch e := ev.(type) {
		case *page.EventFrameNavigated:
			if e.Frame != nil && e.Frame.ParentID == "" {
				navigated.Store(true)
			}
		case *page.EventLoadEventFired:
			if navigated.Load() {
				once.Do(func() { close(loaded) })
			}
		}
	})

	err := s.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
	if err != nil {
		return err
	}

	select {
	case <-loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return fmt.Errorf("browser closed while waiting for navigation: %w", s.ctx.Err())
	}
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	var out string
	err := s.run(ctx, chromedp.OuterHTML("html", &out, chromedp.ByQuery))
	return out, err
}

func (s *chromeSession) Cookies(ctx context.Context) ([]Cookie, error) {
	var cookies []Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		result, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		cookies = make([]Cookie, len(result))
		for i, c := range result {
			cookies[i] = Cookie{Name: c.Name, Value: c.Value}
		}
		return nil
	}))
	return cookies, err
}

func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		// for a local browser this waits for the process to exit, for a
		// remote one it closes the page and disposes its browser context
		s.closeErr = chromedp.Cancel(s.ctx)
		s.browserCancel()
		s.allocCancel()
	})
	return s.closeErr
}
