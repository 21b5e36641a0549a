// Package skill builds prompts for specialized analysis tasks the agent runs
// inside a workflow: Terraform module analysis and Packer build log analysis.
// Prompts are assembled the same way throughout — section headers, explicit
// output contract, no free-form fluff.
package skill

import (
	"strings"
)

// TerraformModuleAnalysis builds the prompt for analyzing a Terraform module.
// files lists relative paths within moduleDir the agent should read.
func TerraformModuleAnalysis(moduleDir string, files []string) string {
	var b strings.Builder
	b.WriteString("You are analyzing a Terraform module for correctness and drift risk.\n\n")

	b.WriteString("## Module\n")
	b.WriteString(moduleDir)
	b.WriteString("\n\n")

	if len(files) > 0 {
		b.WriteString("## Files to read\n")
		for _, f := range files {
			b.WriteString("- ")
			b.WriteString(f)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Checks\n")
	b.WriteString("1. Required variables without defaults that callers can miss\n")
	b.WriteString("2. Resources missing lifecycle/prevent_destroy where state loss is destructive\n")
	b.WriteString("3. Provider version constraints: pinned vs floating\n")
	b.WriteString("4. Outputs that leak secrets (keys, tokens, connection strings)\n")
	b.WriteString("5. Hardcoded region/account values that belong in variables\n\n")

	writeOutputContract(&b, "finding")
	return b.String()
}

// PackerLogAnalysis builds the prompt for diagnosing a failed or slow Packer
// build from its machine-readable log.
func PackerLogAnalysis(buildLog string) string {
	var b strings.Builder
	b.WriteString("You are diagnosing a Packer image build from its log.\n\n")

	b.WriteString("## Build log\n```\n")
	b.WriteString(tail(buildLog, 200))
	b.WriteString("\n```\n\n")

	b.WriteString("## Checks\n")
	b.WriteString("1. The first error line and its proximate cause\n")
	b.WriteString("2. Provisioner steps that failed or were skipped\n")
	b.WriteString("3. AMI registration outcome (id present or missing)\n")
	b.WriteString("4. Steps dominating build time\n\n")

	writeOutputContract(&b, "diagnosis")
	return b.String()
}

// writeOutputContract appends the standard machine-parseable output section.
func writeOutputContract(b *strings.Builder, noun string) {
	b.WriteString("## Output\n")
	b.WriteString("End with exactly one line:\n")
	b.WriteString("RESULT: ok — no actionable " + noun + "\n")
	b.WriteString("or\n")
	b.WriteString("RESULT: action_required — <one-line summary>\n")
}

// tail returns at most n trailing lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
