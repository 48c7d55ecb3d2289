package contract

import (
	"fmt"
	"sort"
	"strings"
)

// BuiltinPrefix selects a built-in ABI instead of an artifact file, as in
// "builtin:erc20".
const BuiltinPrefix = "builtin:"

// DefaultBuiltin is used when no artifact is configured.
const DefaultBuiltin = "erc20"

// BuiltinKind describes a contract type whose ABI is embedded in the binary.
// Built-ins carry no deployments, so the address must come from config.
type BuiltinKind struct {
	ID          string // machine key, e.g. "erc20"
	Name        string // human label
	Description string
	ABI         string // JSON ABI array
}

var builtinRegistry = map[string]BuiltinKind{}

// RegisterBuiltin adds a built-in ABI to the registry. Call it from init().
func RegisterBuiltin(b BuiltinKind) {
	builtinRegistry[b.ID] = b
}

// GetBuiltin returns a built-in by ID. ok is false if not found.
func GetBuiltin(id string) (BuiltinKind, bool) {
	b, ok := builtinRegistry[id]
	return b, ok
}

// AllBuiltins returns all registered built-ins sorted by ID.
func AllBuiltins() []BuiltinKind {
	out := make([]BuiltinKind, 0, len(builtinRegistry))
	for _, b := range builtinRegistry {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Builtin parses the built-in ABI registered under id.
func Builtin(id string) (*Artifact, error) {
	b, ok := builtinRegistry[id]
	if !ok {
		ids := make([]string, 0, len(builtinRegistry))
		for _, k := range AllBuiltins() {
			ids = append(ids, k.ID)
		}
		return nil, fmt.Errorf("unknown built-in %q (available: %s)", id, strings.Join(ids, ", "))
	}
	art, err := ParseArtifact([]byte(b.ABI))
	if err != nil {
		return nil, fmt.Errorf("built-in %s: %w", id, err)
	}
	art.Name = b.Name
	return art, nil
}

// Load resolves an artifact reference: empty means the default built-in,
// "builtin:<id>" a named built-in, anything else a file path.
func Load(ref string) (*Artifact, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return Builtin(DefaultBuiltin)
	case strings.HasPrefix(ref, BuiltinPrefix):
		return Builtin(strings.TrimPrefix(ref, BuiltinPrefix))
	default:
		return LoadArtifact(ref)
	}
}
