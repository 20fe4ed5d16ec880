// Package validate is the launch-parameter sanitization boundary. The engine
// rejects a launch before spawning when any of these checks fail; nothing in
// here ever touches a live process.
package validate

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gamesup/gamesup/internal/proc"
)

// shellMeta are characters that would change meaning if the argument ever
// reached a shell. Arguments are passed as an argv vector, but elevated
// launches are assembled into a helper command line, so they are screened here.
const shellMeta = "|&;<>`$\"'\n\r"

// ID checks a logical process identifier.
func ID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &proc.ValidationError{Field: "id", Reason: "empty"}
	}
	if len(id) > 128 {
		return &proc.ValidationError{Field: "id", Reason: "longer than 128 characters"}
	}
	if strings.ContainsAny(id, " \t\n\r/\\<>:\"|?*") {
		return &proc.ValidationError{Field: "id", Reason: "contains path separators or shell-special characters"}
	}
	return nil
}

// ExecutablePath normalizes and checks the target executable path.
func ExecutablePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", &proc.ValidationError{Field: "executable", Reason: "empty"}
	}
	if strings.ContainsAny(path, "\x00\n\r") {
		return "", &proc.ValidationError{Field: "executable", Reason: "contains control characters"}
	}
	if strings.Contains(path, "..") {
		return "", &proc.ValidationError{Field: "executable", Reason: "path traversal is not allowed"}
	}
	return filepath.Clean(path), nil
}

// Arguments screens launch arguments for shell metacharacters and NULs.
func Arguments(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i, a := range args {
		if strings.ContainsRune(a, 0) {
			return nil, &proc.ValidationError{Field: "args", Reason: "argument contains NUL byte"}
		}
		if strings.ContainsAny(a, shellMeta) {
			return nil, &proc.ValidationError{
				Field:  "args",
				Reason: "argument " + strconv.Itoa(i) + " contains shell metacharacters",
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// Environment checks KEY=VALUE shape and rejects reserved keys.
func Environment(env []string) ([]string, error) {
	out := make([]string, 0, len(env))
	for i, kv := range env {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			return nil, &proc.ValidationError{
				Field:  "env",
				Reason: "entry " + strconv.Itoa(i) + " is not in KEY=VALUE form",
			}
		}
		key := kv[:eq]
		if strings.ContainsAny(key, " \t\n\r") {
			return nil, &proc.ValidationError{Field: "env", Reason: "key contains whitespace"}
		}
		if strings.HasPrefix(key, "GAMESUP_") {
			return nil, &proc.ValidationError{Field: "env", Reason: "key " + key + " is reserved"}
		}
		out = append(out, kv)
	}
	return out, nil
}
