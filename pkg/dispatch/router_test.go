package dispatch //nolint:testpackage // white-box tests for the router

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"ipe/pkg/agent"
	"ipe/pkg/cache"
	"ipe/pkg/workflow"
	"ipe/pkg/worktree"
)

// fakeRunner satisfies worktree.CommandRunner without touching git.
type fakeRunner struct {
	calls int
	err   error
}

func (f *fakeRunner) Run(_ context.Context, _ string, _ ...string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

// fakeInvoker records prompts and returns success.
type fakeInvoker struct {
	requests []agent.Request
	fail     bool
}

func (f *fakeInvoker) Invoke(_ context.Context, req agent.Request) (agent.Response, error) {
	f.requests = append(f.requests, req)
	return agent.Response{Output: "ok", Success: !f.fail}, nil
}

// fakePhases records which phase methods ran.
type fakePhases struct {
	ran      []string
	failTest bool
}

func (p *fakePhases) SetupEnvironment(context.Context, Instance) error {
	p.ran = append(p.ran, "setup")
	return nil
}

func (p *fakePhases) RunValidationTests(context.Context, Instance) error {
	p.ran = append(p.ran, "test")
	if p.failTest {
		return fmt.Errorf("tests failed")
	}
	return nil
}

func (p *fakePhases) ReviewChanges(context.Context, Instance) (string, error) {
	p.ran = append(p.ran, "review")
	return "looks good", nil
}

func (p *fakePhases) PrepareForShip(context.Context, Instance) error {
	p.ran = append(p.ran, "ship")
	return nil
}

func newTestRouter(t *testing.T, inv agent.Invoker, phases Phases) (*Router, *fakeRunner) {
	t.Helper()
	runner := &fakeRunner{}
	wt := worktree.NewManager(t.TempDir(), worktree.ManagedDir, runner)
	store := cache.NewStore(t.TempDir(), time.Hour)
	r := New(Config{}, nil, wt, store, inv, map[workflow.Type]Phases{
		workflow.TypeApp:   phases,
		workflow.TypeInfra: phases,
	})
	return r, runner
}

func TestRoute_NoWorkflowIsIgnored(t *testing.T) {
	r, runner := newTestRouter(t, &fakeInvoker{}, &fakePhases{})

	out, err := r.Route(context.Background(), "Fix the CSS styling issue")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if out.Status != StatusIgnored {
		t.Fatalf("status: got %q, want ignored", out.Status)
	}
	if runner.calls != 0 {
		t.Fatal("ignored events must not touch git")
	}
}

func TestRoute_DependentWithoutIDIsBlocked(t *testing.T) {
	inv := &fakeInvoker{}
	r, runner := newTestRouter(t, inv, &fakePhases{})

	out, err := r.Route(context.Background(), "adw_build_iso")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if out.Status != StatusBlocked {
		t.Fatalf("status: got %q, want blocked", out.Status)
	}
	if !strings.Contains(out.Reason, "instance id") {
		t.Fatalf("reason should name the missing id, got %q", out.Reason)
	}
	if runner.calls != 0 || len(inv.requests) != 0 {
		t.Fatal("blocked requests must not execute anything")
	}
}

func TestRoute_DependentWithIDDispatches(t *testing.T) {
	inv := &fakeInvoker{}
	phases := &fakePhases{}
	r, _ := newTestRouter(t, inv, phases)

	out, err := r.Route(context.Background(), "adw_build_iso adw-12345678")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if out.Status != StatusDispatched || !out.Success {
		t.Fatalf("outcome: %+v", out)
	}
	if out.InstanceID != "adw-12345678" {
		t.Fatalf("instance id: got %q", out.InstanceID)
	}
	if len(phases.ran) != 1 || phases.ran[0] != "setup" {
		t.Fatalf("build should run setup before the agent, ran: %v", phases.ran)
	}
	if len(inv.requests) != 1 || inv.requests[0].SlashCommand != "/build_iso" {
		t.Fatalf("agent requests: %+v", inv.requests)
	}
}

func TestRoute_EntryCommandMintsInstance(t *testing.T) {
	inv := &fakeInvoker{}
	r, _ := newTestRouter(t, inv, &fakePhases{})

	out, err := r.Route(context.Background(), "Run adw_plan_iso")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if out.Status != StatusDispatched {
		t.Fatalf("status: %q", out.Status)
	}
	if !strings.HasPrefix(out.InstanceID, "adw-") {
		t.Fatalf("minted instance id: %q", out.InstanceID)
	}
	if !strings.Contains(out.Worktree, worktree.ManagedDir) {
		t.Fatalf("worktree should live under the managed root: %q", out.Worktree)
	}
}

func TestRoute_WorktreeFailureIsFatal(t *testing.T) {
	inv := &fakeInvoker{}
	runner := &fakeRunner{err: fmt.Errorf("fatal: base branch missing")}
	wt := worktree.NewManager(t.TempDir(), worktree.ManagedDir, runner)
	store := cache.NewStore(t.TempDir(), time.Hour)
	r := New(Config{}, nil, wt, store, inv, map[workflow.Type]Phases{
		workflow.TypeApp: &fakePhases{},
	})

	if _, err := r.Route(context.Background(), "adw_plan_iso"); err == nil {
		t.Fatal("worktree creation failure must propagate")
	}
	if len(inv.requests) != 0 {
		t.Fatal("agent must not be invoked when setup fails")
	}
}

func TestRoute_PhaseFailureIsDispatchedNotError(t *testing.T) {
	phases := &fakePhases{failTest: true}
	r, _ := newTestRouter(t, &fakeInvoker{}, phases)

	out, err := r.Route(context.Background(), "adw_test_iso adw-12345678")
	if err != nil {
		t.Fatalf("phase failures are outcomes, not errors: %v", err)
	}
	if out.Status != StatusDispatched || out.Success {
		t.Fatalf("outcome: %+v", out)
	}
	if !strings.Contains(out.Reason, "tests failed") {
		t.Fatalf("reason: %q", out.Reason)
	}
}

func TestRoute_SDLCRunsAllPhasesInOrder(t *testing.T) {
	inv := &fakeInvoker{}
	phases := &fakePhases{}
	r, _ := newTestRouter(t, inv, phases)

	out, err := r.Route(context.Background(), "ipe_sdlc_iso")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if !out.Success {
		t.Fatalf("outcome: %+v", out)
	}

	wantPhases := []string{"setup", "test", "review", "ship"}
	if len(phases.ran) != len(wantPhases) {
		t.Fatalf("phases ran: %v, want %v", phases.ran, wantPhases)
	}
	for i, p := range phases.ran {
		if p != wantPhases[i] {
			t.Fatalf("phase[%d]: got %q, want %q", i, p, wantPhases[i])
		}
	}

	var slash []string
	for _, req := range inv.requests {
		slash = append(slash, req.SlashCommand)
	}
	wantSlash := []string{"/plan_iso", "/build_iso", "/document_iso"}
	if len(slash) != len(wantSlash) {
		t.Fatalf("agent calls: %v, want %v", slash, wantSlash)
	}
	for i, s := range slash {
		if s != wantSlash[i] {
			t.Fatalf("agent call[%d]: got %q, want %q", i, s, wantSlash[i])
		}
	}
}

func TestRoute_RepeatedAgentCallsAreMemoized(t *testing.T) {
	inv := &fakeInvoker{}
	r, _ := newTestRouter(t, inv, &fakePhases{})

	text := "adw_document_iso adw-12345678"
	if _, err := r.Route(context.Background(), text); err != nil {
		t.Fatalf("first Route: %v", err)
	}
	if _, err := r.Route(context.Background(), text); err != nil {
		t.Fatalf("second Route: %v", err)
	}

	// Same instance, same prompt, same model: the second run must be served
	// from the response cache.
	if len(inv.requests) != 1 {
		t.Fatalf("agent calls: got %d, want 1 (second served from cache)", len(inv.requests))
	}
}

func TestCommandVerb(t *testing.T) {
	tests := []struct{ cmd, want string }{
		{"adw_plan_iso", "plan"},
		{"ipe_sdlc_iso", "sdlc"},
		{"adw_ship_iso", "ship"},
		{"garbage", ""},
	}
	for _, tt := range tests {
		if got := commandVerb(tt.cmd); got != tt.want {
			t.Fatalf("commandVerb(%q) = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}
