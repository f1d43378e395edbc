package process

import (
	"fmt"
	"strings"
)

// ManifestFile is required in the project directory for package-manager launchers.
const ManifestFile = "package.json"

// packageManagers are launchers that refuse to run without a manifest.
var packageManagers = map[string]struct{}{
	"npm":  {},
	"npx":  {},
	"yarn": {},
	"pnpm": {},
	"bun":  {},
}

// NeedsManifest reports whether the launcher requires package.json in the
// project directory.
func NeedsManifest(launcher string) bool {
	_, ok := packageManagers[launcher]
	return ok
}

// ParseCommand parses a command string into arguments.
// Handles quoted strings and basic escaping.
func ParseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	command = strings.TrimSpace(command)
	runes := []rune(command)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoteChar = r
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		case r == '\\' && i+1 < len(runes):
			// Handle escape sequences
			i++ // Skip the backslash
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}

	// Add final argument
	if current.Len() > 0 {
		args = append(args, current.String())
	}

	if inQuote {
		return nil, fmt.Errorf("unclosed quote in command")
	}

	return args, nil
}
