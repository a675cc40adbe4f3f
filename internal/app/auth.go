package app

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gh "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// tokenType makes oauth2.Transport send "Authorization: token <value>".
const tokenType = "token"

// newTokenSource returns the credential used for the dispatch call: the PAT,
// or an installation token minted from the GitHub App key and cached until
// it expires.
func newTokenSource(cfg *Config, base http.RoundTripper) (oauth2.TokenSource, error) {
	if !cfg.UsesApp() {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.PAT, TokenType: tokenType}), nil
	}
	key, err := parsePrivateKey(cfg.AppPrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("app private key: %w", err)
	}
	src := &installationTokenSource{cfg: cfg, key: key, base: base, now: time.Now}
	return oauth2.ReuseTokenSource(nil, src), nil
}

type installationTokenSource struct {
	cfg  *Config
	key  *rsa.PrivateKey
	base http.RoundTripper
	now  func() time.Time
}

func (s *installationTokenSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	signed, err := s.appJWT()
	if err != nil {
		return nil, err
	}

	// App-level client using JWT (Bearer)
	appTS := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: signed, TokenType: "Bearer"})
	appClient, err := newGitHubClient(&http.Client{Transport: &oauth2.Transport{Source: appTS, Base: s.base}}, s.cfg.APIURL, s.cfg.UserAgent)
	if err != nil {
		return nil, err
	}

	inst, _, err := appClient.Apps.FindRepositoryInstallation(ctx, s.cfg.RepoOwner, s.cfg.RepoName)
	if err != nil {
		return nil, fmt.Errorf("find installation for %s/%s: %w", s.cfg.RepoOwner, s.cfg.RepoName, err)
	}
	tok, _, err := appClient.Apps.CreateInstallationToken(ctx, inst.GetID(), &gh.InstallationTokenOptions{})
	if err != nil {
		return nil, fmt.Errorf("create installation token: %w", err)
	}
	return &oauth2.Token{
		AccessToken: tok.GetToken(),
		TokenType:   tokenType,
		Expiry:      tok.GetExpiresAt().Time,
	}, nil
}

func (s *installationTokenSource) appJWT() (string, error) {
	now := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iat": now.Add(-time.Minute).Unix(),
		"exp": now.Add(9 * time.Minute).Unix(),
		"iss": s.cfg.AppID,
	})
	return token.SignedString(s.key)
}

func parsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("pem decode failed")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err == nil {
		return key, nil
	}
	k2, err2 := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err2 != nil {
		return nil, err
	}
	rk, ok := k2.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("not rsa key")
	}
	return rk, nil
}

func newGitHubClient(hc *http.Client, apiURL, userAgent string) (*gh.Client, error) {
	cli := gh.NewClient(hc)
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		u, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("api url: %w", err)
		}
		cli.BaseURL = u
	}
	if userAgent != "" {
		cli.UserAgent = userAgent
	}
	return cli, nil
}
