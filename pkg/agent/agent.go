// Package agent defines the boundary to the external AI coding agent. The
// agent is a black box: a command that takes a prompt and produces text
// output plus a success flag. Everything else in the system treats it through
// the Invoker interface so tests can substitute fakes and the cache can wrap
// real calls transparently.
package agent

import "context"

// Request describes a single agent invocation.
type Request struct {
	Prompt       string
	Model        string
	WorkingDir   string
	SlashCommand string // optional command template name, e.g. "/plan_iso"
}

// Response is what an agent call produced.
type Response struct {
	Output    string
	Success   bool
	SessionID string // optional; empty when the agent reports none
}

// Invoker runs an agent request to completion. Implementations block until
// the agent finishes; cancellation happens through ctx.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}
