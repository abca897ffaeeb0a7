// Package output renders command results for terminals, markdown consumers
// and scripts.
package output

import (
	"fmt"
	"strings"
)

// Mode selects how results are rendered.
type Mode string

// OutputMode is an alias kept for call sites that spell the type in full.
type OutputMode = Mode

// Output modes.
const (
	// ModeAuto renders text on a terminal and markdown otherwise.
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Modes returns the accepted mode names.
func Modes() []string {
	return []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON)}
}

// ParseMode converts a name to a Mode. An empty name means auto; "md" is
// accepted for markdown.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "text":
		return ModeText, nil
	case "markdown", "md":
		return ModeMarkdown, nil
	case "json":
		return ModeJSON, nil
	}
	return "", fmt.Errorf("invalid output format %q (expected one of: %s)", s, strings.Join(Modes(), ", "))
}
