// Package github implements the forge contract against the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/Tubbz-alt/skara/internal/forge"
	"github.com/cenkalti/backoff/v4"
	gh "github.com/google/go-github/v68/github"
	"go.uber.org/zap"
)

const (
	defaultHostname = "github.com"
	readMaxElapsed  = 30 * time.Second
	forkMaxElapsed  = 2 * time.Minute
	perPage         = 100
)

// Options configures the client.
type Options struct {
	Token string
	// BaseURL selects a GitHub Enterprise API endpoint; empty means github.com.
	BaseURL string
	// Hostname qualifies repository names; derived from BaseURL when empty.
	Hostname string
	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
	// RetryMaxElapsed bounds retries of read calls.
	RetryMaxElapsed time.Duration
}

// Client is a forge.Forge backed by go-github.
type Client struct {
	log        *zap.SugaredLogger
	api        *gh.Client
	token      string
	hostname   string
	maxElapsed time.Duration
}

var _ forge.Forge = (*Client)(nil)

// New constructs a Client.
func New(log *zap.SugaredLogger, opts Options) (*Client, error) {
	api := gh.NewClient(opts.HTTPClient)
	if opts.Token != "" {
		api = api.WithAuthToken(opts.Token)
	}
	hostname := opts.Hostname
	if opts.BaseURL != "" {
		var err error
		api, err = api.WithEnterpriseURLs(opts.BaseURL, opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("github base url: %w", err)
		}
		if hostname == "" {
			u, err := url.Parse(opts.BaseURL)
			if err != nil {
				return nil, fmt.Errorf("github base url: %w", err)
			}
			hostname = u.Host
		}
	}
	if hostname == "" {
		hostname = defaultHostname
	}
	maxElapsed := opts.RetryMaxElapsed
	if maxElapsed <= 0 {
		maxElapsed = readMaxElapsed
	}
	return &Client{
		log:        log.Named("forge.github"),
		api:        api,
		token:      opts.Token,
		hostname:   hostname,
		maxElapsed: maxElapsed,
	}, nil
}

// Hostname implements forge.Forge.
func (c *Client) Hostname() string { return c.hostname }

// CurrentUser implements forge.Forge.
func (c *Client) CurrentUser(ctx context.Context) (entities.User, error) {
	var u *gh.User
	err := c.read(ctx, func() (*gh.Response, error) {
		var resp *gh.Response
		var err error
		u, resp, err = c.api.Users.Get(ctx, "")
		return resp, err
	})
	if err != nil {
		return entities.User{}, fmt.Errorf("current user: %w", err)
	}
	return toUser(u), nil
}

// Repository implements forge.Forge.
func (c *Client) Repository(ctx context.Context, name string) (forge.HostedRepository, error) {
	owner, repo, ok := strings.Cut(name, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("%w: %s", entities.ErrRepositoryNotFound, name)
	}
	var r *gh.Repository
	err := c.read(ctx, func() (*gh.Response, error) {
		var resp *gh.Response
		var err error
		r, resp, err = c.api.Repositories.Get(ctx, owner, repo)
		return resp, err
	})
	if isNotFound(err) {
		return nil, fmt.Errorf("%w: %s", entities.ErrRepositoryNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get repository %s: %w", name, err)
	}
	return c.wrap(r), nil
}

func (c *Client) wrap(r *gh.Repository) *hostedRepository {
	return &hostedRepository{
		client: c,
		owner:  r.GetOwner().GetLogin(),
		name:   r.GetName(),
		clone:  r.GetCloneURL(),
		web:    r.GetHTMLURL(),
	}
}

// authenticated embeds the token into an https clone URL so git can push.
func (c *Client) authenticated(cloneURL string) string {
	if c.token == "" {
		return cloneURL
	}
	u, err := url.Parse(cloneURL)
	if err != nil || u.Scheme != "https" {
		return cloneURL
	}
	u.User = url.UserPassword("x-access-token", c.token)
	return u.String()
}

// read runs an idempotent API call, retrying transient failures.
func (c *Client) read(ctx context.Context, op func() (*gh.Response, error)) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed
	return backoff.Retry(func() error {
		resp, err := op()
		if err == nil {
			return nil
		}
		if !isRetryable(resp, err) {
			return backoff.Permanent(err)
		}
		c.log.Debugw("retrying forge call", "error", err)
		return err
	}, backoff.WithContext(bo, ctx))
}

func isRetryable(resp *gh.Response, err error) bool {
	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return true
	}
	if resp == nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return resp.StatusCode >= http.StatusInternalServerError
}

func isNotFound(err error) bool {
	var errResp *gh.ErrorResponse
	return errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound
}

func toUser(u *gh.User) entities.User {
	return entities.User{Login: u.GetLogin(), Name: u.GetName(), Email: u.GetEmail()}
}
