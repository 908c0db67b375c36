// Package oauth implements the Yandex ID login flow.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/iliyamo/community-events/internal/config"
	"github.com/iliyamo/community-events/internal/metrics"
)

var ErrNotConfigured = errors.New("yandex oauth is not configured")

var yandexEndpoint = oauth2.Endpoint{
	AuthURL:   "https://oauth.yandex.ru/authorize",
	TokenURL:  "https://oauth.yandex.ru/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

const yandexInfoURL = "https://login.yandex.ru/info"

// Profile is the subset of the Yandex account we use.
type Profile struct {
	ID           string   `json:"id"`
	Login        string   `json:"login"`
	DisplayName  string   `json:"display_name"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	DefaultEmail string   `json:"default_email"`
	Emails       []string `json:"emails"`
}

// Email picks the default email, then the first listed one, then the
// login at yandex.ru.
func (p Profile) Email() string {
	switch {
	case p.DefaultEmail != "":
		return p.DefaultEmail
	case len(p.Emails) > 0:
		return p.Emails[0]
	default:
		return p.Login + "@yandex.ru"
	}
}

// FullName prefers the display name, then first and last name, then login.
func (p Profile) FullName() string {
	if n := strings.TrimSpace(p.DisplayName); len(n) >= 2 {
		return n
	}
	if n := strings.TrimSpace(p.FirstName + " " + p.LastName); len(n) >= 2 {
		return n
	}
	return p.Login
}

type Yandex struct {
	cfg     *oauth2.Config
	infoURL string
	http    *http.Client
	enabled bool
}

func NewYandex(c config.YandexConfig) *Yandex {
	return &Yandex{
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURI,
			Endpoint:     yandexEndpoint,
		},
		infoURL: yandexInfoURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		enabled: c.Configured(),
	}
}

func (y *Yandex) Configured() bool { return y.enabled }

// AuthURL is where the browser is sent to grant access.
func (y *Yandex) AuthURL(state string) string {
	return y.cfg.AuthCodeURL(state)
}

// Profile exchanges the authorization code and fetches the account.
func (y *Yandex) Profile(ctx context.Context, code string) (*Profile, error) {
	if !y.enabled {
		return nil, ErrNotConfigured
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, y.http)

	start := time.Now()
	tok, err := y.cfg.Exchange(ctx, code)
	metrics.ExternalAPIDuration.WithLabelValues("yandex", "oauth_token").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.infoURL+"?format=json", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+tok.AccessToken)

	start = time.Now()
	resp, err := y.http.Do(req)
	metrics.ExternalAPIDuration.WithLabelValues("yandex", "userinfo").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch profile: status %d", resp.StatusCode)
	}
	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if p.ID == "" {
		return nil, errors.New("profile without id")
	}
	return &p, nil
}
