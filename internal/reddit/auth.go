package reddit

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// userAgentTransport stamps every outgoing request, including token
// requests, with the configured User-Agent.
type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// passwordTokenSource obtains script-app tokens with the resource owner
// password grant. Reddit issues no refresh token for this flow, so every
// refresh is a fresh grant.
type passwordTokenSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	return s.conf.PasswordCredentialsToken(s.ctx, s.username, s.password)
}

func newAuthedClient(cfg Config) *http.Client {
	base := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &userAgentTransport{userAgent: cfg.UserAgent, base: http.DefaultTransport},
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	src := oauth2.ReuseTokenSource(nil, &passwordTokenSource{
		ctx:      ctx,
		conf:     conf,
		username: cfg.Username,
		password: cfg.Password,
	})

	client := oauth2.NewClient(ctx, src)
	client.Timeout = cfg.Timeout
	return client
}
