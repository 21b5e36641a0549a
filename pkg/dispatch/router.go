// Package dispatch implements the request router — the component that takes
// a classified workflow request and either ignores it, blocks it, or executes
// it against an isolated worktree with agent calls memoized through the
// response cache. Routing decisions and phase transitions are recorded in a
// SQLite event log consumed by KPI reporting.
package dispatch

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ipe/pkg/agent"
	"ipe/pkg/cache"
	"ipe/pkg/workflow"
	"ipe/pkg/worktree"
)

// Status classifies a routing outcome.
type Status string

// Routing outcome constants. Ignored and Blocked are defined no-ops, not
// errors; only setup failures surface as errors from Route.
const (
	StatusIgnored    Status = "ignored"    // no workflow detected in the payload
	StatusBlocked    Status = "blocked"    // dependent command without an instance id
	StatusDispatched Status = "dispatched" // executed; Success carries the result
)

// Outcome is the structured result the transport layer reports back.
type Outcome struct {
	Status     Status `json:"status"`
	Reason     string `json:"reason,omitempty"`
	InstanceID string `json:"instance_id,omitempty"`
	Command    string `json:"command,omitempty"`
	Worktree   string `json:"worktree,omitempty"`
	Success    bool   `json:"success"`
	Output     string `json:"output,omitempty"`
}

// Config holds Router configuration.
type Config struct {
	BaseBranch string // branch workflow worktrees are cut from (default "main")
	DefaultTTL time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseBranch == "" {
		out.BaseBranch = "main"
	}
	return out
}

// Router validates classified requests and drives their execution.
type Router struct {
	cfg       Config
	db        *sql.DB
	worktrees *worktree.Manager
	store     *cache.Store
	invoker   agent.Invoker
	phases    map[workflow.Type]Phases
}

// New creates a Router. db may be nil, in which case event logging is off
// (used by one-shot CLI invocations without a state database).
func New(cfg Config, db *sql.DB, wt *worktree.Manager, store *cache.Store, inv agent.Invoker, phases map[workflow.Type]Phases) *Router {
	return &Router{
		cfg:       cfg.withDefaults(),
		db:        db,
		worktrees: wt,
		store:     store,
		invoker:   inv,
		phases:    phases,
	}
}

// InitSchema creates the runtime tables. Call once before Route.
func (r *Router) InitSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, SchemaDDL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Route classifies text and executes the resulting request. Ignored and
// blocked requests return a structured Outcome with a nil error; only fatal
// setup failures (worktree creation, unknown workflow type) return an error.
func (r *Router) Route(ctx context.Context, text string) (Outcome, error) {
	req := workflow.Parse(text)

	if req.Type == workflow.TypeNone {
		return Outcome{Status: StatusIgnored, Reason: "no workflow command detected"}, nil
	}

	if workflow.IsDependentCommand(req.Command) && req.InstanceID == "" {
		r.logEvent(ctx, "blocked", "router", "", req.Command, `{"reason":"requires instance id"}`)
		return Outcome{
			Status:  StatusBlocked,
			Command: req.Command,
			Reason:  fmt.Sprintf("%s requires an instance id", req.Command),
		}, nil
	}

	return r.dispatch(ctx, req)
}

// dispatch executes an actionable request in its isolated worktree.
func (r *Router) dispatch(ctx context.Context, req workflow.Request) (Outcome, error) {
	phases, ok := r.phases[req.Type]
	if !ok {
		return Outcome{}, fmt.Errorf("no phase implementation for workflow type %q", req.Type)
	}

	// Worktree creation failure is fatal for the instance.
	wtPath, branch, err := r.worktrees.CreateFromBase(ctx, req.InstanceID, r.cfg.BaseBranch)
	if err != nil {
		r.logEvent(ctx, "worktree_error", "router", req.InstanceID, req.Command, err.Error())
		return Outcome{}, fmt.Errorf("create worktree for %s: %w", req.InstanceID, err)
	}
	r.createInstance(ctx, req, wtPath)
	r.logEvent(ctx, "dispatch", "router", req.InstanceID, req.Command,
		fmt.Sprintf(`{"worktree":%q,"branch":%q,"e2b":%v}`, wtPath, branch, req.E2B))

	cached := agent.NewCached(r.invoker, r.store, req.InstanceID)
	cached.Observer = func(hit bool) {
		evType := "cache_miss"
		if hit {
			evType = "cache_hit"
		}
		r.logEvent(ctx, evType, "cache", req.InstanceID, req.Command, "")
	}

	inst := Instance{
		ID:       req.InstanceID,
		Worktree: wtPath,
		Model:    req.Model,
		Agent:    cached,
		Text:     req.Text,
	}

	output, runErr := r.runCommand(ctx, req.Command, phases, inst)

	out := Outcome{
		Status:     StatusDispatched,
		InstanceID: req.InstanceID,
		Command:    req.Command,
		Worktree:   wtPath,
		Success:    runErr == nil,
		Output:     output,
	}
	if runErr != nil {
		out.Reason = runErr.Error()
		r.logEvent(ctx, "failed", "router", req.InstanceID, req.Command, runErr.Error())
		r.finishInstance(ctx, req.InstanceID, "failed")
		return out, nil
	}

	r.logEvent(ctx, "completed", "router", req.InstanceID, req.Command, "")

	// The worktree's job is done once the instance ships; removal is
	// best-effort and never blocks the outcome.
	if isTerminalCommand(req.Command) {
		r.worktrees.Cleanup(ctx, req.InstanceID)
		r.finishInstance(ctx, req.InstanceID, "completed")
	}
	return out, nil
}

// runCommand maps a workflow command to its phase sequence.
func (r *Router) runCommand(ctx context.Context, cmd string, phases Phases, inst Instance) (string, error) {
	switch commandVerb(cmd) {
	case "plan":
		return invokePhase(ctx, inst, "/plan_iso")
	case "build":
		if err := phases.SetupEnvironment(ctx, inst); err != nil {
			return "", err
		}
		return invokePhase(ctx, inst, "/build_iso")
	case "test":
		return "", phases.RunValidationTests(ctx, inst)
	case "review":
		return phases.ReviewChanges(ctx, inst)
	case "document":
		return invokePhase(ctx, inst, "/document_iso")
	case "ship":
		return "", phases.PrepareForShip(ctx, inst)
	case "sdlc":
		return r.runSDLC(ctx, phases, inst)
	default:
		return "", fmt.Errorf("unknown workflow command %q", cmd)
	}
}

// runSDLC executes the full plan→ship pipeline, stopping at the first
// failing phase.
func (r *Router) runSDLC(ctx context.Context, phases Phases, inst Instance) (string, error) {
	if _, err := invokePhase(ctx, inst, "/plan_iso"); err != nil {
		return "", err
	}
	if err := phases.SetupEnvironment(ctx, inst); err != nil {
		return "", err
	}
	if _, err := invokePhase(ctx, inst, "/build_iso"); err != nil {
		return "", err
	}
	if err := phases.RunValidationTests(ctx, inst); err != nil {
		return "", err
	}
	review, err := phases.ReviewChanges(ctx, inst)
	if err != nil {
		return "", err
	}
	if _, err := invokePhase(ctx, inst, "/document_iso"); err != nil {
		return "", err
	}
	if err := phases.PrepareForShip(ctx, inst); err != nil {
		return "", err
	}
	return review, nil
}

// commandVerb extracts the phase verb from a command token, e.g.
// "adw_build_iso" → "build".
func commandVerb(cmd string) string {
	parts := strings.Split(cmd, "_")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// isTerminalCommand reports whether cmd ends the instance's lifecycle.
func isTerminalCommand(cmd string) bool {
	verb := commandVerb(cmd)
	return verb == "ship" || verb == "sdlc"
}

// --- SQLite helpers ---

func (r *Router) logEvent(ctx context.Context, evType, source, instanceID, command, payload string) {
	if r.db == nil {
		return
	}
	_, _ = r.db.ExecContext(ctx,
		`INSERT INTO events (type, source, instance_id, command, payload) VALUES (?, ?, ?, ?, ?)`,
		evType, source, instanceID, command, payload)
}

func (r *Router) createInstance(ctx context.Context, req workflow.Request, wtPath string) {
	if r.db == nil {
		return
	}
	_, _ = r.db.ExecContext(ctx,
		`INSERT INTO instances (instance_id, workflow_type, command, worktree) VALUES (?, ?, ?, ?)`,
		req.InstanceID, string(req.Type), req.Command, wtPath)
}

func (r *Router) finishInstance(ctx context.Context, instanceID, status string) {
	if r.db == nil {
		return
	}
	_, _ = r.db.ExecContext(ctx,
		`UPDATE instances SET status=?, finished_at=datetime('now') WHERE instance_id=? AND status='active'`,
		status, instanceID)
}
