// Package fingerprint computes content-addressed cache keys for agent
// requests. A key is a pure function of the request's semantic identity:
// prompt text, model, working directory, and slash command template.
// Workflow instance ids and agent labels are deliberately excluded so the
// same request hashes identically across instances.
package fingerprint

import (
	"crypto/md5" //nolint:gosec // cache key, not a security boundary
	"encoding/hex"
	"encoding/json"
)

// Key returns the hex fingerprint for a request. Optional fields normalize
// to the empty string rather than being omitted, so a request with no slash
// command is distinguishable from one whose command happens to be empty only
// through the canonical encoding itself.
func Key(prompt, model, workingDir, slashCommand string) string {
	// encoding/json sorts map keys, which gives us a canonical form that is
	// independent of field ordering at every call site.
	canonical, err := json.Marshal(map[string]string{
		"prompt":        prompt,
		"model":         model,
		"working_dir":   workingDir,
		"slash_command": slashCommand,
	})
	if err != nil {
		// Marshaling a map[string]string cannot fail; keep the signature
		// simple and fall back to hashing the raw fields.
		canonical = []byte(prompt + "\x00" + model + "\x00" + workingDir + "\x00" + slashCommand)
	}

	sum := md5.Sum(canonical) //nolint:gosec // cache key, not a security boundary
	return hex.EncodeToString(sum[:])
}
