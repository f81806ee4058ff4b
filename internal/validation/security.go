// Package validation provides security validation functions for preventing
// command injection and path traversal in externally-invoked tool commands.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultAllowedCommands is the allowlist of external tools the pipeline may
// invoke: the environment manager, the test/coverage toolchain, the upload
// client, and the shells used for project lint/integration scripts.
func DefaultAllowedCommands() map[string]bool {
	return map[string]bool{
		"conda":     true,
		"coverage":  true,
		"coveralls": true,
		"nosetests": true,
		"python":    true,
		"bash":      true,
		"sh":        true,
	}
}

// ValidateArgument validates a command line argument to prevent injection attacks
func ValidateArgument(arg string) error {
	// Check for shell metacharacters that could be used for command injection
	dangerous := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\\", "\"", "'"}
	for _, char := range dangerous {
		if strings.Contains(arg, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	// Check for path traversal attempts
	if strings.Contains(arg, "..") {
		return fmt.Errorf("contains path traversal: %s", arg)
	}

	return nil
}

// ValidateCommand validates a command name against an allowlist
func ValidateCommand(command string, allowedCommands map[string]bool) error {
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}

	// The allowlist matches on the binary name so that an absolute conda
	// path from config still validates.
	if !allowedCommands[filepath.Base(command)] {
		return fmt.Errorf("command '%s' is not allowed", command)
	}

	return nil
}

// ValidateScriptPath validates a configured script path (lint script,
// integration test script) to keep it inside the project tree.
func ValidateScriptPath(path string) error {
	if path == "" {
		return fmt.Errorf("script path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal detected: %s", path)
	}

	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("script path must be relative to the project root: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">"}
	for _, char := range dangerousChars {
		if strings.Contains(path, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

// ValidateEnvName validates a conda environment name. Environment names end
// up in every provisioning command line, so they are restricted to a
// conservative character set.
func ValidateEnvName(name string) error {
	if name == "" {
		return fmt.Errorf("environment name cannot be empty")
	}

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return fmt.Errorf("environment name contains invalid character %q", r)
		}
	}

	return nil
}
