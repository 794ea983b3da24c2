package oauth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/crowd-dev/crowd-api/pkg/configuration"
)

const (
	Discord = "discord"
	Slack   = "slack"
	GitHub  = "github"
	Twitter = "twitter"
)

var (
	discordEndpoint = oauth2.Endpoint{
		AuthURL:   "https://discord.com/oauth2/authorize",
		TokenURL:  "https://discord.com/api/v10/oauth2/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	slackEndpoint = oauth2.Endpoint{
		AuthURL:  "https://slack.com/oauth/v2/authorize",
		TokenURL: "https://slack.com/api/oauth.v2.access",
	}
	twitterEndpoint = oauth2.Endpoint{
		AuthURL:   "https://twitter.com/i/oauth2/authorize",
		TokenURL:  "https://api.twitter.com/2/oauth2/token",
		AuthStyle: oauth2.AuthStyleInHeader,
	}
)

var scopes = map[string][]string{
	Discord: {"bot", "guilds", "messages.read"},
	Slack:   {"channels:history", "channels:read", "users:read", "users:read.email", "team:read"},
	GitHub:  {"read:org", "repo"},
	Twitter: {"tweet.read", "users.read", "follows.read", "offline.access"},
}

var endpoints = map[string]oauth2.Endpoint{
	Discord: discordEndpoint,
	Slack:   slackEndpoint,
	GitHub:  github.Endpoint,
	Twitter: twitterEndpoint,
}

// Exchanger swaps an authorization code for a token.
type Exchanger interface {
	AuthCodeURL(platform, state, verifier string) (string, error)
	Exchange(ctx context.Context, platform, code, verifier string) (*oauth2.Token, error)
}

// Providers holds one oauth2.Config per configured platform.
type Providers struct {
	configs map[string]*oauth2.Config
}

// NewProviders builds configs for every platform with a client id set.
func NewProviders(opts *configuration.OAuthOptions) *Providers {
	p := &Providers{configs: map[string]*oauth2.Config{}}
	base := strings.TrimRight(opts.RedirectBase, "/")
	for platform, endpoint := range endpoints {
		client, ok := opts.Client(platform)
		if !ok {
			continue
		}
		p.configs[platform] = &oauth2.Config{
			ClientID:     client.ClientID,
			ClientSecret: client.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  base + "/" + platform + "/callback",
			Scopes:       scopes[platform],
		}
	}
	return p
}

func (p *Providers) Enabled(platform string) bool {
	_, ok := p.configs[platform]
	return ok
}

func (p *Providers) config(platform string) (*oauth2.Config, error) {
	c, ok := p.configs[platform]
	if !ok {
		return nil, fmt.Errorf("oauth: platform %q is not configured", platform)
	}
	return c, nil
}

func (p *Providers) AuthCodeURL(platform, state, verifier string) (string, error) {
	c, err := p.config(platform)
	if err != nil {
		return "", err
	}
	opts := []oauth2.AuthCodeOption{}
	if platform == Twitter {
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	return c.AuthCodeURL(state, opts...), nil
}

func (p *Providers) Exchange(ctx context.Context, platform, code, verifier string) (*oauth2.Token, error) {
	c, err := p.config(platform)
	if err != nil {
		return nil, err
	}
	opts := []oauth2.AuthCodeOption{}
	if platform == Twitter {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	tok, err := c.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("oauth: %s exchange: %w", platform, err)
	}
	return tok, nil
}
