package dispatch

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"

	"ipe/pkg/agent"
	"ipe/pkg/infra"
	"ipe/pkg/skill"
	"ipe/pkg/worktree"
)

// Instance carries the execution context for one workflow instance through
// the phase methods: its id, isolated worktree, resolved model, and the
// (cache-wrapped) agent handle.
type Instance struct {
	ID       string
	Worktree string
	Model    string
	Agent    agent.Invoker
	Text     string // original event payload, passed to agent prompts
}

// Phases is the per-workflow-type phase contract. The router holds a Phases
// value selected by type tag; variants differ in behavior, not inheritance.
type Phases interface {
	SetupEnvironment(ctx context.Context, inst Instance) error
	RunValidationTests(ctx context.Context, inst Instance) error
	ReviewChanges(ctx context.Context, inst Instance) (string, error)
	PrepareForShip(ctx context.Context, inst Instance) error
}

// invokePhase runs one slash-command agent call and turns an unsuccessful
// response into an error.
func invokePhase(ctx context.Context, inst Instance, slashCommand string) (string, error) {
	resp, err := inst.Agent.Invoke(ctx, agent.Request{
		Prompt:       inst.Text,
		Model:        inst.Model,
		WorkingDir:   inst.Worktree,
		SlashCommand: slashCommand,
	})
	if err != nil {
		return "", fmt.Errorf("agent %s: %w", slashCommand, err)
	}
	if !resp.Success {
		return resp.Output, fmt.Errorf("agent %s reported failure", slashCommand)
	}
	return resp.Output, nil
}

// AppPhases implements Phases for application-code workflows. Every phase is
// an agent call against the instance worktree.
type AppPhases struct{}

// SetupEnvironment installs project dependencies in the worktree.
func (AppPhases) SetupEnvironment(ctx context.Context, inst Instance) error {
	_, err := invokePhase(ctx, inst, "/install_iso")
	return err
}

// RunValidationTests runs the project test suite through the agent.
func (AppPhases) RunValidationTests(ctx context.Context, inst Instance) error {
	_, err := invokePhase(ctx, inst, "/test_iso")
	return err
}

// ReviewChanges asks the agent to review the worktree diff.
func (AppPhases) ReviewChanges(ctx context.Context, inst Instance) (string, error) {
	return invokePhase(ctx, inst, "/review_iso")
}

// PrepareForShip finalizes the branch: commit, changelog, push readiness.
func (AppPhases) PrepareForShip(ctx context.Context, inst Instance) error {
	_, err := invokePhase(ctx, inst, "/ship_iso")
	return err
}

// InfraPhases implements Phases for Terraform/Packer workflows. Validation
// shells out to the infra CLIs directly; review feeds the plan output to the
// agent with the Terraform analysis skill.
type InfraPhases struct {
	Runner infra.CommandRunner
}

// terraformDir returns the module directory expected inside a managed
// worktree.
func (p InfraPhases) terraformDir(inst Instance) string {
	return filepath.Join(inst.Worktree, filepath.FromSlash(worktree.InfraSubdir))
}

// SetupEnvironment runs terraform init in the worktree's module directory.
func (p InfraPhases) SetupEnvironment(ctx context.Context, inst Instance) error {
	tf := &infra.Terraform{Dir: p.terraformDir(inst), Runner: p.Runner}
	return tf.Init(ctx)
}

// RunValidationTests validates the Terraform configuration.
func (p InfraPhases) RunValidationTests(ctx context.Context, inst Instance) error {
	tf := &infra.Terraform{Dir: p.terraformDir(inst), Runner: p.Runner}
	if _, err := tf.Validate(ctx); err != nil {
		return err
	}
	return nil
}

// ReviewChanges produces a terraform plan and has the agent analyze the
// module with the plan attached.
func (p InfraPhases) ReviewChanges(ctx context.Context, inst Instance) (string, error) {
	tf := &infra.Terraform{Dir: p.terraformDir(inst), Runner: p.Runner}
	plan, err := tf.Plan(ctx)
	if err != nil {
		return "", err
	}

	prompt := skill.TerraformModuleAnalysis(p.terraformDir(inst), nil) +
		"\n## Pending plan\n```\n" + plan + "\n```\n"
	resp, err := inst.Agent.Invoke(ctx, agent.Request{
		Prompt:       prompt,
		Model:        inst.Model,
		WorkingDir:   inst.Worktree,
		SlashCommand: "/review_iso",
	})
	if err != nil {
		return "", fmt.Errorf("agent /review_iso: %w", err)
	}
	if !resp.Success {
		return resp.Output, fmt.Errorf("agent /review_iso reported failure")
	}
	return resp.Output, nil
}

// amiIDPattern matches an AMI id referenced in the event payload.
var amiIDPattern = regexp.MustCompile(`\bami-[0-9a-f]{8,17}\b`)

// PrepareForShip confirms the image template still validates and any AMI the
// payload references actually exists, then lets the agent finalize the branch.
func (p InfraPhases) PrepareForShip(ctx context.Context, inst Instance) error {
	pk := &infra.Packer{
		Template: filepath.Join(p.terraformDir(inst), "..", "packer", "ami.pkr.hcl"),
		Runner:   p.Runner,
	}
	if err := pk.Validate(ctx); err != nil {
		return err
	}

	if amiID := amiIDPattern.FindString(inst.Text); amiID != "" {
		aws := &infra.AWS{Runner: p.Runner}
		exists, err := aws.AMIExists(ctx, amiID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("AMI %s not found", amiID)
		}
	}

	_, err := invokePhase(ctx, inst, "/ship_iso")
	return err
}
