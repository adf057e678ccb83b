// Package knowledge holds the biography the chat assistant answers from.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed profile.txt
var profile string

// Default returns the embedded knowledge base.
func Default() string {
	return strings.TrimSpace(profile)
}

// Load returns the contents of path, or the embedded knowledge base when path
// is empty.
func Load(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("knowledge: read %q: %w", path, err)
	}
	kb := strings.TrimSpace(string(b))
	if kb == "" {
		return "", fmt.Errorf("knowledge: %q is empty", path)
	}
	return kb, nil
}
