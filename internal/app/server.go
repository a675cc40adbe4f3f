package app

import (
	"io"
	"net/http"
)

// maxBodyBytes caps what is read from an inbound webhook.
const maxBodyBytes = 10 << 20

// Server adapts net/http requests to the relay.
type Server struct {
	relay *Relay
}

func NewServer(relay *Relay) *Server { return &Server{relay: relay} }

// ServerFromEnv wires config, dispatcher and relay from the environment.
func ServerFromEnv() (*Server, error) {
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	d, err := NewGitHubDispatcher(cfg, nil, nil)
	if err != nil {
		return nil, err
	}
	return NewServer(NewRelay(cfg, d)), nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Method == http.MethodPost && r.Body != nil {
		b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "Bad Request: unreadable body", http.StatusBadRequest)
			return
		}
		body = b
	}
	res := s.relay.Handle(r.Context(), InboundEvent{
		Method:    r.Method,
		EventType: r.Header.Get(HeaderGiteeEvent),
		Token:     r.Header.Get(HeaderGiteeToken),
		Body:      body,
	})
	writeResult(w, res)
}

func writeResult(w http.ResponseWriter, res Result) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(res.StatusCode)
	_, _ = io.WriteString(w, res.Body)
}
