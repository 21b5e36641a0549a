// Package trigger feeds inbound events into the dispatch router. Two sources
// exist: a webhook HTTP handler for GitHub issue/comment payloads, and a
// cron-style queue watcher for scheduled or file-dropped work. Transport
// concerns like signature verification belong to the deployment proxy, not
// here.
package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"ipe/pkg/dispatch"
)

// Router is the slice of the dispatcher the triggers need.
type Router interface {
	Route(ctx context.Context, text string) (dispatch.Outcome, error)
}

// webhookPayload is the subset of a GitHub issue/comment event we read.
type webhookPayload struct {
	Action string `json:"action"`
	Issue  struct {
		Number int    `json:"number"`
		Body   string `json:"body"`
	} `json:"issue"`
	Comment struct {
		Body string `json:"body"`
	} `json:"comment"`
}

// text returns the payload body to classify: the comment wins when present,
// otherwise the issue body.
func (p webhookPayload) text() string {
	if p.Comment.Body != "" {
		return p.Comment.Body
	}
	return p.Issue.Body
}

// Webhook is the HTTP trigger.
type Webhook struct {
	router Router
}

// NewWebhook creates a webhook trigger backed by the given router.
func NewWebhook(r Router) *Webhook {
	return &Webhook{router: r}
}

// Handler returns the mux serving POST / (event intake) and GET /healthz.
func (w *Webhook) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /", w.handleEvent)
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})
	return mux
}

// handleEvent parses the payload, routes its text, and answers with the
// structured outcome. Ignored and blocked are 200s — they are defined
// results, not transport failures.
func (w *Webhook) handleEvent(rw http.ResponseWriter, req *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		http.Error(rw, fmt.Sprintf("parse payload: %v", err), http.StatusBadRequest)
		return
	}

	text := payload.text()
	if text == "" {
		writeOutcome(rw, dispatch.Outcome{Status: dispatch.StatusIgnored, Reason: "empty payload body"})
		return
	}

	out, err := w.router.Route(req.Context(), text)
	if err != nil {
		// Fatal setup failure: the workflow instance aborted.
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	writeOutcome(rw, out)
}

func writeOutcome(rw http.ResponseWriter, out dispatch.Outcome) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(rw).Encode(out)
}

// Serve runs the webhook server until ctx is cancelled.
func (w *Webhook) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           w.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("warning: webhook shutdown: %v", err)
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("webhook listen %s: %w", addr, err)
	}
}
