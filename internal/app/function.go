package app

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// FunctionHandler adapts the async function model (Netlify Functions,
// API Gateway proxy events) to the relay.
type FunctionHandler struct {
	relay *Relay
}

func NewFunctionHandler(relay *Relay) *FunctionHandler { return &FunctionHandler{relay: relay} }

// FunctionHandlerFromEnv wires config, dispatcher and relay from the environment.
func FunctionHandlerFromEnv() (*FunctionHandler, error) {
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	d, err := NewGitHubDispatcher(cfg, nil, nil)
	if err != nil {
		return nil, err
	}
	return NewFunctionHandler(NewRelay(cfg, d)), nil
}

// Handle never returns an error: every failure is expressed as a status code.
func (h *FunctionHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return proxyResponse(Result{StatusCode: http.StatusBadRequest, Body: "Bad Request: invalid base64 body"}), nil
		}
		body = b
	}
	res := h.relay.Handle(ctx, InboundEvent{
		Method:    strings.ToUpper(req.HTTPMethod),
		EventType: headerValue(req.Headers, HeaderGiteeEvent),
		Token:     headerValue(req.Headers, HeaderGiteeToken),
		Body:      body,
	})
	return proxyResponse(res), nil
}

func proxyResponse(res Result) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: res.StatusCode,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       res.Body,
	}
}

// headerValue looks a header up case-insensitively; function hosts differ in
// how they normalise names.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
