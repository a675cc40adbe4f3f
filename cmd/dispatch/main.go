package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/initify/giteehook/internal/app"
)

// dispatch sends one gitee_push event by hand, through the same relay the
// webhook uses. Handy for re-running a sync that a missed webhook never
// triggered.
func main() {
	var (
		event      string
		ref        string
		repository string
		timeoutStr string
		jsonOut    bool
	)

	flag.StringVar(&event, "event", app.PushHook, "Gitee event name to report")
	flag.StringVar(&ref, "ref", "", "Git ref to forward (e.g., refs/heads/main)")
	flag.StringVar(&repository, "repository", "", "Gitee repository full name (e.g., acme/widgets)")
	flag.StringVar(&timeoutStr, "timeout", "30s", "Timeout for the GitHub API call")
	flag.BoolVar(&jsonOut, "json", false, "Print the result as JSON")
	flag.Parse()

	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid timeout: %v\n", err)
		os.Exit(2)
	}

	cfg, err := app.LoadConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}
	d, err := app.NewGitHubDispatcher(cfg, nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dispatcher: %v\n", err)
		os.Exit(2)
	}
	relay := app.NewRelay(cfg, d)

	body, err := pushBody(ref, repository)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode body: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	res := relay.Handle(ctx, app.InboundEvent{
		Method:    http.MethodPost,
		EventType: event,
		Token:     cfg.WebhookSecret,
		Body:      body,
	})

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(struct {
			StatusCode int    `json:"status_code"`
			Body       string `json:"body"`
		}{res.StatusCode, res.Body})
	} else {
		fmt.Printf("%d %s\n", res.StatusCode, res.Body)
	}
	if res.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}

// pushBody builds the subset of a Gitee push payload the relay forwards.
func pushBody(ref, repository string) ([]byte, error) {
	m := map[string]any{}
	if ref != "" {
		m["ref"] = ref
	}
	if repository != "" {
		m["repository"] = map[string]string{"full_name": repository}
	}
	return json.Marshal(m)
}
