package main

import "testing"

func TestRootCmdHasAllSubcommands(t *testing.T) {
	root := newRootCmd()

	want := []string{"init", "run", "serve", "status", "stop", "worktree", "cache", "kpi", "skill"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestRootCmdSilencesUsageOnError(t *testing.T) {
	root := newRootCmd()
	if !root.SilenceUsage {
		t.Error("SilenceUsage should be set")
	}
	if !root.SilenceErrors {
		t.Error("SilenceErrors should be set")
	}
}
