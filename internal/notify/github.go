// Package notify records releases as GitHub deployments.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

// Deployment states reported to GitHub
const (
	StateSuccess = "success"
	StateFailure = "failure"
)

// Deployment is the result of a notification
type Deployment struct {
	ID          int64
	Ref         string
	Environment string
	State       string
	URL         string
}

// String describes the deployment for console output
func (d *Deployment) String() string {
	return fmt.Sprintf("Deployment %d of %s to %s marked %s", d.ID, shortRef(d.Ref), d.Environment, d.State)
}

func shortRef(ref string) string {
	if len(ref) == 40 && !strings.ContainsAny(ref, "/.") {
		return ref[:7]
	}
	return ref
}

// NewClient creates a GitHub client authenticated with token. A non-empty
// baseURL points the client at a GitHub Enterprise API root.
func NewClient(ctx context.Context, token, baseURL string) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse GitHub base URL %s: %w", baseURL, err)
		}
		client.BaseURL = parsed
		client.UploadURL = parsed
	}

	return client, nil
}

// Deployer creates GitHub deployments for a repository
type Deployer struct {
	client      *github.Client
	owner       string
	repo        string
	environment string
}

// NewDeployer creates a deployer for owner/repo. An empty environment means "production".
func NewDeployer(client *github.Client, owner, repo, environment string) *Deployer {
	if environment == "" {
		environment = "production"
	}
	return &Deployer{
		client:      client,
		owner:       owner,
		repo:        repo,
		environment: environment,
	}
}

// Environment returns the deployment environment name
func (d *Deployer) Environment() string {
	return d.environment
}

// Notify creates a deployment for ref and sets its status to state
func (d *Deployer) Notify(ctx context.Context, ref, state, description string) (*Deployment, error) {
	if ref == "" {
		return nil, fmt.Errorf("deployment ref is required")
	}

	deployment, _, err := d.client.Repositories.CreateDeployment(ctx, d.owner, d.repo, &github.DeploymentRequest{
		Ref:              github.String(ref),
		Environment:      github.String(d.environment),
		Description:      github.String(description),
		AutoMerge:        github.Bool(false),
		RequiredContexts: &[]string{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create deployment for %s: %w", ref, err)
	}

	status, _, err := d.client.Repositories.CreateDeploymentStatus(ctx, d.owner, d.repo, deployment.GetID(), &github.DeploymentStatusRequest{
		State:       github.String(state),
		Environment: github.String(d.environment),
		Description: github.String(description),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set status of deployment %d: %w", deployment.GetID(), err)
	}

	return &Deployment{
		ID:          deployment.GetID(),
		Ref:         ref,
		Environment: d.environment,
		State:       status.GetState(),
		URL:         deployment.GetURL(),
	}, nil
}
