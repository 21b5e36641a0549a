package agent

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ClaudeInvoker implements Invoker by spawning the claude CLI.
type ClaudeInvoker struct{}

// Invoke runs `claude -p <prompt> --model <model>` in the request's working
// directory and waits for it to exit. A nonzero exit is not an error — it is
// a failed response; errors are reserved for the process not starting at all.
func (c *ClaudeInvoker) Invoke(ctx context.Context, req Request) (Response, error) {
	prompt := req.Prompt
	if req.SlashCommand != "" {
		prompt = req.SlashCommand + " " + prompt
	}

	cmd := exec.CommandContext(ctx, "claude", "-p", prompt, "--model", req.Model)
	cmd.Dir = req.WorkingDir

	var out strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return Response{}, fmt.Errorf("spawn claude: %w", err)
	}

	err := cmd.Wait()
	return Response{
		Output:  out.String(),
		Success: err == nil,
	}, nil
}
