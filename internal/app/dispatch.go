package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

const triggeredBody = "GitHub Actions triggered."

// GitHubDispatcher posts repository_dispatch events through go-github.
// It makes exactly one request per call and never retries.
type GitHubDispatcher struct {
	client *gh.Client
	owner  string
	repo   string
	logger *log.Logger
}

// NewGitHubDispatcher builds a dispatcher authenticated from cfg. base is the
// transport under the auth layer; nil means http.DefaultTransport.
func NewGitHubDispatcher(cfg *Config, base http.RoundTripper, logger *log.Logger) (*GitHubDispatcher, error) {
	ts, err := newTokenSource(cfg, base)
	if err != nil {
		return nil, err
	}
	hc := &http.Client{Transport: &oauth2.Transport{Source: ts, Base: base}}
	cli, err := newGitHubClient(hc, cfg.APIURL, cfg.UserAgent)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = NewLogger("dispatch")
	}
	return &GitHubDispatcher{client: cli, owner: cfg.RepoOwner, repo: cfg.RepoName, logger: logger}, nil
}

func (d *GitHubDispatcher) Dispatch(ctx context.Context, req DispatchRequest) Result {
	payload, err := json.Marshal(req.ClientPayload)
	if err != nil {
		return Result{StatusCode: http.StatusInternalServerError, Body: fmt.Sprintf("encode client payload: %v", err)}
	}
	raw := json.RawMessage(payload)

	// Every accepted event gets its own request, even after GitHub has
	// reported the rate limit as exhausted.
	ctx = context.WithValue(ctx, gh.BypassRateLimitCheck, true)
	_, resp, err := d.client.Repositories.Dispatch(ctx, d.owner, d.repo, gh.DispatchRequestOptions{
		EventType:     req.EventType,
		ClientPayload: &raw,
	})

	// A response means GitHub answered; anything else is a transport failure.
	if resp == nil || resp.Response == nil {
		if err == nil {
			err = errors.New("no response")
		}
		d.logger.Printf("problem with GitHub API request: %v", err)
		return Result{StatusCode: http.StatusInternalServerError, Body: fmt.Sprintf("GitHub API request error: %v", err)}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		d.logger.Printf("GitHub Actions triggered for %s/%s (status %d)", d.owner, d.repo, resp.StatusCode)
		return Result{StatusCode: http.StatusOK, Body: triggeredBody}
	}

	body := downstreamBody(resp.Response)
	if body == "" && err != nil {
		body = err.Error()
	}
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Message != "" {
		d.logger.Printf("failed to trigger GitHub Actions: %d - %s", resp.StatusCode, ghErr.Message)
	} else {
		d.logger.Printf("failed to trigger GitHub Actions: %d - %s", resp.StatusCode, body)
	}
	return Result{StatusCode: resp.StatusCode, Body: body}
}

// downstreamBody reads the error body go-github leaves on the response after
// decoding it.
func downstreamBody(resp *http.Response) string {
	if resp.Body == nil {
		return ""
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return string(data)
}
