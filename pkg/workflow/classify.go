package workflow

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Classify scans text for a workflow command token. The scan is
// case-insensitive and word-bounded; infra commands take precedence over app
// commands, and within a vocabulary entry-point commands are tried before
// dependent ones. The first match wins — no multi-command extraction.
func Classify(text string) (Type, string) {
	for _, cmd := range infraEntryCommands {
		if containsToken(text, cmd) {
			return TypeInfra, cmd
		}
	}
	for _, cmd := range infraDepCommands {
		if containsToken(text, cmd) {
			return TypeInfra, cmd
		}
	}
	for _, cmd := range appEntryCommands {
		if containsToken(text, cmd) {
			return TypeApp, cmd
		}
	}
	for _, cmd := range appDepCommands {
		if containsToken(text, cmd) {
			return TypeApp, cmd
		}
	}
	return TypeNone, ""
}

// tokenPatterns caches the compiled word-boundary pattern per command token.
var tokenPatterns sync.Map

// containsToken reports whether text contains tok as a whole word,
// case-insensitively.
func containsToken(text, tok string) bool {
	if cached, ok := tokenPatterns.Load(tok); ok {
		return cached.(*regexp.Regexp).MatchString(text)
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(tok) + `\b`)
	tokenPatterns.Store(tok, re)
	return re.MatchString(text)
}

// Extraction patterns. The e2b flag form requires one or two leading dashes
// and a trailing word boundary; the key=value form tolerates whitespace
// around the equals sign. Both are case-insensitive, and neither matches
// the letters e2b buried inside a longer word.
var (
	e2bKVPattern   = regexp.MustCompile(`(?i)\be2b\s*=\s*(true|false)\b`)
	e2bFlagPattern = regexp.MustCompile(`(?i)(^|\s)--?e2b\b`)

	modelKVPattern   = regexp.MustCompile(`(?i)\bmodel\s*=\s*([a-z0-9.-]+)`)
	modelNamePattern = regexp.MustCompile(`(?i)\b(opus|sonnet|haiku)\b`)
)

// ExtractInfo pulls the instance id, model override, and sandboxed-execution
// flag out of text for an already-classified type. When no id appears in the
// text, tempID is used — the router only accepts that fallback for
// entry-point commands.
func ExtractInfo(text string, typ Type, tempID string) Info {
	info := Info{InstanceID: tempID}

	if id := extractInstanceID(text, typ); id != "" {
		info.InstanceID = id
	}
	info.Model = extractModel(text)
	info.E2B = extractE2B(text)
	return info
}

// extractInstanceID finds an id matching the type's prefix pattern, e.g.
// adw-12345678 or ipe-87654321.
func extractInstanceID(text string, typ Type) string {
	if typ == TypeNone {
		return ""
	}
	re := regexp.MustCompile(fmt.Sprintf(`(?i)\b%s-[a-z0-9]{8}\b`, string(typ)))
	return strings.ToLower(re.FindString(text))
}

// extractModel resolves a model override from either a model=<name> token or
// a bare tier name (opus, sonnet, haiku). Unknown model= values pass through
// verbatim so full model ids work too.
func extractModel(text string) string {
	if m := modelKVPattern.FindStringSubmatch(text); m != nil {
		return resolveModelName(m[1])
	}
	if m := modelNamePattern.FindStringSubmatch(text); m != nil {
		return resolveModelName(m[1])
	}
	return ""
}

// resolveModelName maps tier shorthands to full model ids.
func resolveModelName(name string) string {
	switch strings.ToLower(name) {
	case "opus":
		return ModelOpus
	case "sonnet":
		return ModelSonnet
	case "haiku":
		return ModelHaiku
	default:
		return name
	}
}

// extractE2B detects the sandboxed-execution flag. The key=value form wins
// over the bare flag form when both appear.
func extractE2B(text string) bool {
	if m := e2bKVPattern.FindStringSubmatch(text); m != nil {
		return strings.EqualFold(m[1], "true")
	}
	return e2bFlagPattern.MatchString(text)
}

// Parse classifies text and extracts its companion info in one step,
// producing an immutable Request. A fresh instance id is minted only for
// entry-point commands with no id in the text; dependent commands keep an
// empty id for the router to reject.
func Parse(text string) Request {
	typ, cmd := Classify(text)
	if typ == TypeNone {
		return Request{Text: text, Type: TypeNone}
	}

	tempID := ""
	if IsEntryCommand(cmd) {
		tempID = NewInstanceID(typ)
	}
	info := ExtractInfo(text, typ, tempID)

	model := info.Model
	if model == "" {
		model = DefaultModel
	}

	return Request{
		Text:       text,
		Type:       typ,
		Command:    cmd,
		InstanceID: info.InstanceID,
		Model:      model,
		E2B:        info.E2B,
	}
}
