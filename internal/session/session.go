// Package session implements the authenticated HTTP session against the
// password-protected members area.
package session

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/crawler"
)

// Config controls session behavior.
type Config struct {
	Password  string
	UserAgent string
	Timeout   time.Duration
	// Both markers must be present for a body to count as a login form.
	// Pages merely referencing login CSS/JS contain at most one of them.
	LoginMarker    string
	PasswordMarker string
}

// Session holds the cookie-backed HTTP client shared by all fetches in a
// run. The cookie jar is mutated only by Authenticate; it must complete
// before any concurrent FetchPage calls.
type Session struct {
	client *resty.Client
	cfg    Config
	logger *zap.Logger
}

// New builds a Session with a fresh cookie jar.
func New(cfg Config, logger *zap.Logger) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetCookieJar(jar).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent)
	return &Session{client: client, cfg: cfg, logger: logger}, nil
}

// Client exposes the underlying resty client so transfers reuse the
// authenticated cookie state.
func (s *Session) Client() *resty.Client {
	return s.client
}

// Close releases idle connections held by the session.
func (s *Session) Close() {
	s.client.GetClient().CloseIdleConnections()
}

// Authenticate performs the two-step login handshake against targetURL.
// The login endpoint is the protected page itself: the server sets the
// session cookie in response to a form POST on that URL.
func (s *Session) Authenticate(ctx context.Context, targetURL string) error {
	s.logger.Info("establishing session", zap.String("url", targetURL))
	resp, err := s.client.R().SetContext(ctx).Get(targetURL)
	if err != nil {
		return &crawler.AuthError{Message: "initial GET failed", Err: err}
	}

	if !s.isLoginForm(resp.String()) {
		s.logger.Info("already authenticated")
		return nil
	}

	s.logger.Info("submitting password", zap.String("url", targetURL))
	resp, err = s.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"password": s.cfg.Password,
			"do_login": "yes",
		}).
		Post(targetURL)
	if err != nil {
		return &crawler.AuthError{Message: "login POST failed", Err: err}
	}

	body := resp.String()
	if strings.Contains(body, "<form") && s.isLoginForm(body) {
		return &crawler.AuthError{Message: "login form still present, wrong password?"}
	}
	s.logger.Info("authentication successful")
	return nil
}

// FetchPage GETs one page on the authenticated session and returns its body.
func (s *Session) FetchPage(ctx context.Context, url string) (string, error) {
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", &crawler.NetworkError{URL: url, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return "", &crawler.NetworkError{URL: url, Status: resp.StatusCode()}
	}
	s.logger.Debug("fetched page",
		zap.String("url", url),
		zap.Int("bytes", len(resp.Body())),
	)
	return resp.String(), nil
}

func (s *Session) isLoginForm(body string) bool {
	return strings.Contains(body, s.cfg.LoginMarker) &&
		strings.Contains(body, s.cfg.PasswordMarker)
}
