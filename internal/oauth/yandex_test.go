package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/oauth2"

	"github.com/iliyamo/community-events/internal/config"
)

func TestAuthURL(t *testing.T) {
	y := NewYandex(config.YandexConfig{ClientID: "cid", ClientSecret: "s", RedirectURI: "http://app/cb"})
	u, err := url.Parse(y.AuthURL("st"))
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if u.Host != "oauth.yandex.ru" || q.Get("client_id") != "cid" || q.Get("state") != "st" ||
		q.Get("redirect_uri") != "http://app/cb" || q.Get("response_type") != "code" {
		t.Fatalf("auth url = %s", u)
	}
}

func TestProfileFlow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "abc" || r.Form.Get("client_secret") != "s" {
			t.Errorf("token form = %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer"}`))
	})
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "OAuth tok" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"id":"42","login":"ivan","display_name":"Ivan P","emails":["ivan@ya.ru"]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	y := NewYandex(config.YandexConfig{ClientID: "cid", ClientSecret: "s"})
	y.cfg.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}
	y.infoURL = srv.URL + "/info"

	p, err := y.Profile(context.Background(), "abc")
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != "42" || p.Email() != "ivan@ya.ru" || p.FullName() != "Ivan P" {
		t.Fatalf("profile = %+v", p)
	}
}

func TestProfileNotConfigured(t *testing.T) {
	if _, err := NewYandex(config.YandexConfig{}).Profile(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}

func TestProfileFallbacks(t *testing.T) {
	p := Profile{Login: "neo"}
	if p.Email() != "neo@yandex.ru" || p.FullName() != "neo" {
		t.Fatalf("fallbacks: %s %s", p.Email(), p.FullName())
	}
	p = Profile{Login: "neo", FirstName: "Thomas", LastName: "Anderson", DefaultEmail: "t@a.io"}
	if p.Email() != "t@a.io" || p.FullName() != "Thomas Anderson" {
		t.Fatalf("names: %s %s", p.Email(), p.FullName())
	}
}
