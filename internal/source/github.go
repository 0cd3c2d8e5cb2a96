package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	domainerrors "contribs/internal/core/errors"
	"contribs/internal/core/config"
	"contribs/internal/shared/observability"
	"contribs/internal/shared/util"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

const publicCloneBase = "https://github.com/"

// RepoInfo is what a crawl needs to know about a repository.
type RepoInfo struct {
	Owner         string
	Name          string
	CloneURL      string
	DefaultBranch string
	License       string
}

// GitHub looks repositories up through the GitHub REST API, sharing one
// rate limiter across all callers.
type GitHub struct {
	client        *github.Client
	limiter       *util.Limiter
	authenticated bool
}

// NewGitHub builds a client authenticated with the token found in the
// environment variable cfg.TokenEnv. Without a token no API calls are made
// and clone URLs are derived from the repository name.
func NewGitHub(ctx context.Context, cfg config.GitHub) (*GitHub, error) {
	var httpClient *http.Client
	token := os.Getenv(cfg.TokenEnv)
	if token != "" {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}

	client := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("github base url %q: %w", cfg.BaseURL, err)
		}
	}

	return &GitHub{
		client:        client,
		limiter:       util.NewLimiter(cfg.Rate, cfg.Burst),
		authenticated: token != "",
	}, nil
}

func (g *GitHub) Authenticated() bool {
	return g.authenticated
}

func (g *GitHub) Lookup(ctx context.Context, owner, name string) (RepoInfo, error) {
	if !g.authenticated {
		return RepoInfo{
			Owner:    owner,
			Name:     name,
			CloneURL: publicCloneBase + owner + "/" + name + ".git",
		}, nil
	}

	if !g.limiter.Allow(1) {
		observability.GitHubThrottledTotal.Inc()
		if err := g.limiter.Wait(ctx, 1); err != nil {
			return RepoInfo{}, err
		}
	}

	repo, _, err := g.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		observability.GitHubRequestsTotal.WithLabelValues("error").Inc()
		var errResp *github.ErrorResponse
		if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound {
			err = domainerrors.Wrap(err, domainerrors.CodeNotFound, "repository not found")
			return RepoInfo{}, domainerrors.AddContext(err, domainerrors.CtxRepo, owner+"/"+name)
		}
		return RepoInfo{}, fmt.Errorf("get repository %s/%s: %w", owner, name, err)
	}
	observability.GitHubRequestsTotal.WithLabelValues("ok").Inc()

	return RepoInfo{
		Owner:         repo.GetOwner().GetLogin(),
		Name:          repo.GetName(),
		CloneURL:      repo.GetCloneURL(),
		DefaultBranch: repo.GetDefaultBranch(),
		License:       repo.GetLicense().GetSPDXID(),
	}, nil
}
