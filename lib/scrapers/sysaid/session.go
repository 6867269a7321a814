package sysaid

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sysaid-bridge/lib/htmlutil"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// LoginForm locates the login page and its controls.
type LoginForm struct {
	Path             string   `json:"path"`
	UsernameSelector string   `json:"username_selector"`
	PasswordSelector string   `json:"password_selector"`
	SubmitSelector   string   `json:"submit_selector"`
	ErrorSelectors   []string `json:"error_selectors"`
}

var DefaultLoginForm = LoginForm{
	Path:             "/Login.jsp?manual=true",
	UsernameSelector: `input[name="userName"]`,
	PasswordSelector: `input[name="password"]`,
	SubmitSelector:   "#loginBtn",
	ErrorSelectors:   []string{"#errorMessage", ".errorMessage", ".loginError", ".error"},
}

type SessionOptions struct {
	BaseUrl string
	Form    LoginForm
	// bounds the whole login, including browser startup and the post-login navigation
	LoginTimeout time.Duration
	// bounds the wait for each form field to appear
	FieldTimeout time.Duration
}

type SessionAcquirer struct {
	launcher Launcher
	opts     SessionOptions
	loginUrl string
}

func NewSessionAcquirer(launcher Launcher, opts SessionOptions) (*SessionAcquirer, error) {
	if opts.Form.Path == "" {
		opts.Form = DefaultLoginForm
	}
	if opts.LoginTimeout <= 0 {
		opts.LoginTimeout = time.Minute
	}
	if opts.FieldTimeout <= 0 {
		opts.FieldTimeout = 15 * time.Second
	}

	base, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseUrl)
	}
	loginUrl, err := base.Parse(opts.Form.Path)
	if err != nil {
		return nil, fmt.Errorf("parse login path: %w", err)
	}

	return &SessionAcquirer{
		launcher: launcher,
		opts:     opts,
		loginUrl: loginUrl.String(),
	}, nil
}

func (a *SessionAcquirer) LoginUrl() string {
	return a.loginUrl
}

// Acquire logs into sysaid in a fresh browser and returns the session
// cookies. the browser is closed exactly once before returning, on every path.
func (a *SessionAcquirer) Acquire(ctx context.Context, creds Credentials) (jar CookieJar, err error) {
	ctx, span := tracer.Start(ctx, "Acquire")
	defer span.End()

	fail := func(stage string, cause error) (CookieJar, error) {
		span.RecordError(cause)
		span.SetStatus(codes.Error, "login failed at "+stage)
		return nil, &AuthenticationError{Stage: stage, Err: cause}
	}

	if creds.Username == "" || creds.Password == "" {
		return fail(StageCredentials, ErrMissingCredentials)
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.LoginTimeout)
	defer cancel()

	started := time.Now()
	browser, err := a.launcher.Launch(ctx)
	if err != nil {
		return fail(StageLaunch, err)
	}
	defer func() {
		closeErr := browser.Close()
		if closeErr != nil {
			slog.WarnContext(ctx, "failed to close browser", "err", closeErr)
		}
	}()
	span.AddEvent("browser launched")

	err = browser.Navigate(ctx, a.loginUrl)
	if err != nil {
		return fail(StageNavigate, err)
	}

	err = a.fill(ctx, browser, a.opts.Form.UsernameSelector, creds.Username)
	if err != nil {
		return fail(StageFill, err)
	}
	err = a.fill(ctx, browser, a.opts.Form.PasswordSelector, creds.Password)
	if err != nil {
		return fail(StageFill, err)
	}

	err = browser.ClickAndWaitNavigation(ctx, a.opts.Form.SubmitSelector)
	if err != nil {
		if ctx.Err() != nil {
			return fail(StageNavigation, err)
		}
		return fail(StageSubmit, err)
	}
	span.AddEvent("navigated after submit")

	rejected, message, err := a.stillOnLoginForm(ctx, browser)
	if err != nil {
		return fail(StageRejected, err)
	}
	if rejected {
		span.SetStatus(codes.Error, "credentials rejected")
		return nil, &AuthenticationError{
			Stage:   StageRejected,
			Message: message,
			Err:     ErrLoginRejected,
		}
	}

	cookies, err := browser.Cookies(ctx)
	if err != nil {
		return fail(StageCookies, err)
	}
	if len(cookies) == 0 {
		return fail(StageCookies, ErrNoCookies)
	}
	jar = NewCookieJar(cookies)

	span.SetAttributes(attribute.StringSlice("cookie_names", jar.Names()))
	slog.DebugContext(
		ctx, "acquired sysaid session",
		"username", creds.Username,
		"cookies", jar,
		"duration", time.Since(started),
	)
	return jar, nil
}

func (a *SessionAcquirer) fill(ctx context.Context, browser BrowserSession, selector, value string) error {
	fieldCtx, cancel := context.WithTimeout(ctx, a.opts.FieldTimeout)
	defer cancel()

	err := browser.Type(fieldCtx, selector, value)
	if err != nil {
		return fmt.Errorf("locate %s: %w", selector, err)
	}
	return nil
}

// sysaid re-renders the login page with an error message when the
// credentials are wrong, that still counts as a navigation.
func (a *SessionAcquirer) stillOnLoginForm(ctx context.Context, browser BrowserSession) (bool, string, error) {
	contents, err := browser.HTML(ctx)
	if err != nil {
		return false, "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contents))
	if err != nil {
		return false, "", err
	}

	if doc.Find(a.opts.Form.UsernameSelector).Length() == 0 ||
		doc.Find(a.opts.Form.PasswordSelector).Length() == 0 {
		return false, "", nil
	}
	return true, htmlutil.FirstText(doc, a.opts.Form.ErrorSelectors...), nil
}
