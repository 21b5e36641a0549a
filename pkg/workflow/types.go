// Package workflow classifies free-text event payloads (issue bodies, comment
// bodies) into structured workflow requests. It knows two command
// vocabularies — application workflows ("adw") and infrastructure workflows
// ("ipe") — and extracts the instance id, model override, and sandboxed
// execution flag that accompany a command.
package workflow

import (
	"strings"

	"github.com/google/uuid"
)

// Type tags a classified request.
type Type string

// Workflow type constants.
const (
	TypeApp   Type = "adw"  // application code workflows
	TypeInfra Type = "ipe"  // infrastructure (Terraform/Packer) workflows
	TypeNone  Type = "none" // no workflow detected
)

// Model constants for agent routing.
const (
	ModelOpus   = "claude-opus-4-6"
	ModelSonnet = "claude-sonnet-4-5-20250929"
	ModelHaiku  = "claude-haiku-4-5-20251001"
)

// DefaultModel is used when the payload carries no override.
const DefaultModel = ModelSonnet

// Command vocabularies, in scan order. Infra commands are scanned before app
/// commands: when both appear in one payload, infra wins. Entry-point commands
// start a new workflow instance; dependent commands require an instance id
// already present in the text.
var (
	infraEntryCommands = []string{"ipe_sdlc_iso", "ipe_plan_iso"}
	infraDepCommands   = []string{"ipe_build_iso", "ipe_test_iso", "ipe_review_iso", "ipe_document_iso", "ipe_ship_iso"}

	appEntryCommands = []string{"adw_sdlc_iso", "adw_plan_iso"}
	appDepCommands   = []string{"adw_build_iso", "adw_test_iso", "adw_review_iso", "adw_document_iso", "adw_ship_iso"}
)

// IsEntryCommand reports whether cmd starts a new workflow instance.
func IsEntryCommand(cmd string) bool {
	for _, c := range infraEntryCommands {
		if c == cmd {
			return true
		}
	}
	for _, c := range appEntryCommands {
		if c == cmd {
			return true
		}
	}
	return false
}

// IsDependentCommand reports whether cmd requires a resolved instance id.
func IsDependentCommand(cmd string) bool {
	for _, c := range infraDepCommands {
		if c == cmd {
			return true
		}
	}
	for _, c := range appDepCommands {
		if c == cmd {
			return true
		}
	}
	return false
}

// Request is a classified inbound event. Immutable after classification.
type Request struct {
	Text       string
	Type       Type
	Command    string
	InstanceID string
	Model      string // resolved model; never empty after classification
	E2B        bool   // sandboxed execution requested
}

// Info is the tagged result of ExtractInfo. Optional fields are explicit,
// never dynamic key lookups.
type Info struct {
	InstanceID string
	Model      string
	E2B        bool
}

// NewInstanceID mints a fresh instance id for an entry-point workflow:
// the type prefix plus the first eight hex characters of a UUID.
func NewInstanceID(typ Type) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return string(typ) + "-" + raw[:8]
}
