// Package infra wraps the Terraform, Packer, and AWS CLIs behind thin
// subprocess calls. These are collaborator boundaries: no retries, no output
// interpretation beyond success/failure, errors wrapped with the failing
// command.
package infra

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner abstracts command execution for testability.
// Production implementation uses os/exec; tests provide a mock.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecCommandRunner implements CommandRunner using os/exec.
type ExecCommandRunner struct{}

// Run executes a command and returns its stdout as bytes.
func (r *ExecCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if ok := errors.As(err, &exitErr); ok {
			return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// Terraform shells out to the terraform CLI within a module directory.
type Terraform struct {
	Dir    string
	Runner CommandRunner
}

// Init runs `terraform init -input=false`.
func (t *Terraform) Init(ctx context.Context) error {
	_, err := t.Runner.Run(ctx, "terraform", "-chdir="+t.Dir, "init", "-input=false")
	if err != nil {
		return fmt.Errorf("terraform init: %w", err)
	}
	return nil
}

// Validate runs `terraform validate` and returns its output.
func (t *Terraform) Validate(ctx context.Context) (string, error) {
	out, err := t.Runner.Run(ctx, "terraform", "-chdir="+t.Dir, "validate", "-no-color")
	if err != nil {
		return "", fmt.Errorf("terraform validate: %w", err)
	}
	return string(out), nil
}

// Plan runs `terraform plan` without applying and returns the plan text.
func (t *Terraform) Plan(ctx context.Context) (string, error) {
	out, err := t.Runner.Run(ctx, "terraform", "-chdir="+t.Dir, "plan", "-input=false", "-no-color")
	if err != nil {
		return "", fmt.Errorf("terraform plan: %w", err)
	}
	return string(out), nil
}

// Packer shells out to the packer CLI for a template file.
type Packer struct {
	Template string
	Runner   CommandRunner
}

// Validate runs `packer validate` on the template.
func (p *Packer) Validate(ctx context.Context) error {
	_, err := p.Runner.Run(ctx, "packer", "validate", p.Template)
	if err != nil {
		return fmt.Errorf("packer validate %s: %w", p.Template, err)
	}
	return nil
}

// Build runs `packer build` and returns the build log.
func (p *Packer) Build(ctx context.Context) (string, error) {
	out, err := p.Runner.Run(ctx, "packer", "build", "-machine-readable", p.Template)
	if err != nil {
		return string(out), fmt.Errorf("packer build %s: %w", p.Template, err)
	}
	return string(out), nil
}

// AWS shells out to the aws CLI.
type AWS struct {
	Region string
	Runner CommandRunner
}

// AMIExists reports whether an AMI with the given id is visible. An empty
// Region defers to the CLI's own region configuration.
func (a *AWS) AMIExists(ctx context.Context, amiID string) (bool, error) {
	args := []string{"ec2", "describe-images"}
	if a.Region != "" {
		args = append(args, "--region", a.Region)
	}
	args = append(args,
		"--image-ids", amiID,
		"--query", "Images[].ImageId",
		"--output", "text",
	)

	out, err := a.Runner.Run(ctx, "aws", args...)
	if err != nil {
		return false, fmt.Errorf("aws describe-images %s: %w", amiID, err)
	}
	return strings.TrimSpace(string(out)) == amiID, nil
}
