//nolint:testpackage
package trigger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ipe/pkg/dispatch"
)

// stubRouter records routed text and returns a canned outcome.
type stubRouter struct {
	texts   []string
	outcome dispatch.Outcome
	err     error
}

func (s *stubRouter) Route(_ context.Context, text string) (dispatch.Outcome, error) {
	s.texts = append(s.texts, text)
	return s.outcome, s.err
}

func postJSON(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookRoutesIssueBody(t *testing.T) {
	router := &stubRouter{outcome: dispatch.Outcome{Status: dispatch.StatusDispatched, Command: "ipe_plan_iso"}}
	h := NewWebhook(router).Handler()

	rec := postJSON(t, h, `{"action":"opened","issue":{"number":7,"body":"run ipe_plan_iso on the vpc module"}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(router.texts) != 1 || router.texts[0] != "run ipe_plan_iso on the vpc module" {
		t.Fatalf("routed texts = %v", router.texts)
	}

	var out dispatch.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if out.Status != dispatch.StatusDispatched || out.Command != "ipe_plan_iso" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestWebhookCommentWinsOverIssue(t *testing.T) {
	router := &stubRouter{outcome: dispatch.Outcome{Status: dispatch.StatusIgnored}}
	h := NewWebhook(router).Handler()

	postJSON(t, h, `{"action":"created","issue":{"body":"issue text"},"comment":{"body":"comment text"}}`)

	if len(router.texts) != 1 || router.texts[0] != "comment text" {
		t.Fatalf("routed texts = %v, want comment body", router.texts)
	}
}

func TestWebhookEmptyBodyIsIgnoredNotRouted(t *testing.T) {
	router := &stubRouter{}
	h := NewWebhook(router).Handler()

	rec := postJSON(t, h, `{"action":"labeled"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(router.texts) != 0 {
		t.Fatalf("router called with %v, want no calls", router.texts)
	}

	var out dispatch.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if out.Status != dispatch.StatusIgnored {
		t.Errorf("status = %q, want ignored", out.Status)
	}
}

func TestWebhookBadJSON(t *testing.T) {
	router := &stubRouter{}
	h := NewWebhook(router).Handler()

	rec := postJSON(t, h, `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(router.texts) != 0 {
		t.Fatal("router should not run on a malformed payload")
	}
}

func TestWebhookRouterErrorIs500(t *testing.T) {
	router := &stubRouter{err: context.DeadlineExceeded}
	h := NewWebhook(router).Handler()

	rec := postJSON(t, h, `{"issue":{"body":"adw_sdlc_iso please"}}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestWebhookHealthz(t *testing.T) {
	h := NewWebhook(&stubRouter{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
