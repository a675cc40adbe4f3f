package app

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

const (
	// PushHook is the only Gitee event that gets forwarded.
	PushHook = "Push Hook"
	// DispatchEventType must match the repository_dispatch types in the
	// receiving workflow.
	DispatchEventType = "gitee_push"

	HeaderGiteeToken = "X-Gitee-Token"
	HeaderGiteeEvent = "X-Gitee-Event"

	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// InboundEvent is one webhook call, already lifted out of its host's
// request shape.
type InboundEvent struct {
	Method    string
	EventType string
	Token     string
	Body      []byte
}

// Result is what goes back to the caller.
type Result struct {
	StatusCode int
	Body       string
}

// DispatchRequest is the repository_dispatch body.
type DispatchRequest struct {
	EventType     string        `json:"event_type"`
	ClientPayload ClientPayload `json:"client_payload"`
}

type ClientPayload struct {
	GiteeEvent string  `json:"gitee_event"`
	Timestamp  string  `json:"timestamp"`
	Ref        *string `json:"ref,omitempty"`
	Repository *string `json:"repository,omitempty"`
}

// pushPayload is the subset of a Gitee push body that is forwarded.
type pushPayload struct {
	Ref        *string `json:"ref"`
	Repository *struct {
		FullName *string `json:"full_name"`
	} `json:"repository"`
}

// Dispatcher sends one repository_dispatch request.
type Dispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) Result
}

// Relay validates Gitee push notifications and forwards them as
// repository_dispatch events. It holds no per-request state.
type Relay struct {
	cfg        *Config
	dispatcher Dispatcher
	logger     *log.Logger
	now        func() time.Time
}

type RelayOption func(*Relay)

func WithLogger(l *log.Logger) RelayOption {
	return func(r *Relay) { r.logger = l }
}

func WithClock(now func() time.Time) RelayOption {
	return func(r *Relay) { r.now = now }
}

func NewRelay(cfg *Config, d Dispatcher, opts ...RelayOption) *Relay {
	r := &Relay{
		cfg:        cfg,
		dispatcher: d,
		logger:     NewLogger("relay"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if cfg.WebhookSecret == "" {
		r.logger.Printf("warning: GITEE_WEBHOOK_SECRET not set, inbound token check disabled")
	}
	return r
}

// Handle runs one event through validation, translation and dispatch.
func (r *Relay) Handle(ctx context.Context, ev InboundEvent) Result {
	if ev.Method != http.MethodPost {
		return Result{StatusCode: http.StatusMethodNotAllowed, Body: "Method Not Allowed"}
	}

	if r.cfg.WebhookSecret == "" {
		r.logger.Printf("warning: no webhook secret configured, skipping token check")
	} else if subtle.ConstantTimeCompare([]byte(ev.Token), []byte(r.cfg.WebhookSecret)) != 1 {
		r.logger.Printf("invalid Gitee webhook token")
		return Result{StatusCode: http.StatusForbidden, Body: "Forbidden: Invalid Gitee Token"}
	}

	if ev.EventType != PushHook {
		r.logger.Printf("ignoring Gitee event: %s", ev.EventType)
		return Result{StatusCode: http.StatusOK, Body: fmt.Sprintf("Ignoring Gitee event: %s", ev.EventType)}
	}

	var push *pushPayload
	if r.cfg.ParseBody {
		// A JSON null leaves push nil and is rejected like any other non-object.
		if err := json.Unmarshal(ev.Body, &push); err != nil || push == nil {
			r.logger.Printf("failed to parse Gitee payload: %v", err)
			return Result{StatusCode: http.StatusBadRequest, Body: "Bad Request: Invalid JSON payload"}
		}
	}

	r.logger.Printf("received Gitee push event, triggering GitHub Actions")
	return r.dispatcher.Dispatch(ctx, r.translate(ev, push))
}

func (r *Relay) translate(ev InboundEvent, push *pushPayload) DispatchRequest {
	req := DispatchRequest{
		EventType: DispatchEventType,
		ClientPayload: ClientPayload{
			GiteeEvent: ev.EventType,
			Timestamp:  r.now().UTC().Format(timestampLayout),
		},
	}
	if push != nil {
		req.ClientPayload.Ref = push.Ref
		if push.Repository != nil {
			req.ClientPayload.Repository = push.Repository.FullName
		}
	}
	return req
}

// NewLogger returns a stdout logger prefixed with the component name.
func NewLogger(component string) *log.Logger {
	prefix := "gitee-relay"
	if component != "" {
		prefix = prefix + "/" + component
	}
	return log.New(os.Stdout, prefix+" ", log.LstdFlags|log.Lmicroseconds)
}
