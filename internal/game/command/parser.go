package command

import (
	"strings"
	"unicode"
)

// ParseResult holds the parsed command name and arguments from a text line.
type ParseResult struct {
	// Command is the first word of the input, lowercased.
	Command string
	// Args are the remaining words after the command, case kept.
	Args []string
	// RawArgs is the raw text after the command, with inner spacing preserved.
	RawArgs string
	// Target is RawArgs in content id form: lowercased, with each run of
	// spaces or hyphens folded into one underscore. Skill ids, item ids and
	// emotion tags are all matched against it.
	Target string
}

// Parse splits a text line into a command and arguments.
//
// Postcondition: Returns a ParseResult. If line is blank, Command is empty.
// Target is empty exactly when Args is.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if line == "" {
		return ParseResult{}
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	result := ParseResult{Command: strings.ToLower(cmd), RawArgs: rest}
	if rest != "" {
		result.Args = strings.Fields(rest)
		result.Target = targetID(result.Args)
	}
	return result
}

// targetID joins words into one lowercase id.
func targetID(words []string) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, strings.FieldsFunc(strings.ToLower(w), func(r rune) bool {
			return r == '-' || r == '_' || unicode.IsSpace(r)
		})...)
	}
	return strings.Join(parts, "_")
}
