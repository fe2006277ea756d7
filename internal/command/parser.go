// Package command tokenizes chat commands into verb, optional 1-based
// index and free-text payload. A command token begins with "/", with the
// numeric argument either glued to the verb ("/l3") or whitespace separated
// ("/l 3").
package command

import (
	"strings"
	"unicode"
)

const (
	VerbHelp    = "/h"
	VerbList    = "/l"
	VerbSearch  = "/s"
	VerbAppend  = "/a"
	VerbPrepend = "/f"
	VerbEdit    = "/e"
	VerbDelete  = "/d"
	VerbBind    = "/b"
	VerbUnbind  = "/nobb"
)

type verbSpec struct {
	takesIndex   bool
	takesPayload bool
}

var verbs = map[string]verbSpec{
	VerbHelp:    {},
	VerbList:    {takesIndex: true},
	VerbSearch:  {takesPayload: true},
	VerbAppend:  {takesIndex: true, takesPayload: true},
	VerbPrepend: {takesIndex: true, takesPayload: true},
	VerbEdit:    {takesIndex: true, takesPayload: true},
	VerbDelete:  {takesIndex: true},
	VerbBind:    {takesPayload: true},
	VerbUnbind:  {},
}

// Command is one parsed chat command. Index is 1-based; HasIndex
// distinguishes "/a text" from "/a 0 text". Known is false for an
// unrecognized verb, which callers answer with a help hint.
type Command struct {
	Verb     string
	Index    uint
	HasIndex bool
	Payload  string
	Known    bool
}

// IsCommand reports whether the text looks like a command at all.
func IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// Parse tokenizes text. The compact numeric form is tried first, then the
// whitespace separated form; anything else is a zero-argument command.
func Parse(text string) (Command, bool) {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "/") {
		return Command{}, false
	}
	if cmd, ok := parseCompact(s); ok {
		return cmd, true
	}
	return parseSpaced(s), true
}

// parseCompact handles "/l3", "/a3 text": a single-letter verb immediately
// followed by digits.
func parseCompact(s string) (Command, bool) {
	if len(s) < 3 || !isDigit(rune(s[2])) {
		return Command{}, false
	}
	verb := s[:2]
	spec, ok := verbs[verb]
	if !ok {
		return Command{}, false
	}
	rest := s[2:]
	if !spec.takesIndex {
		// "/s3" searches for the literal text after the verb
		return Command{Verb: verb, Payload: strings.TrimSpace(rest), Known: true}, true
	}
	i := 0
	for i < len(rest) && isDigit(rune(rest[i])) {
		i++
	}
	index := parseUint(rest[:i])
	payload := strings.TrimSpace(rest[i:])
	return Command{Verb: verb, Index: index, HasIndex: true, Payload: payload, Known: true}, true
}

func parseSpaced(s string) Command {
	verb := s
	rest := ""
	if idx := strings.IndexFunc(s, unicode.IsSpace); idx >= 0 {
		verb = s[:idx]
		rest = strings.TrimSpace(s[idx:])
	}
	spec, ok := verbs[verb]
	if !ok {
		return Command{Verb: verb, Payload: rest}
	}
	cmd := Command{Verb: verb, Known: true}
	if spec.takesIndex && rest != "" {
		digits := rest
		if idx := strings.IndexFunc(rest, unicode.IsSpace); idx >= 0 {
			digits = rest[:idx]
		}
		if isAllDigits(digits) {
			cmd.Index = parseUint(digits)
			cmd.HasIndex = true
			rest = strings.TrimSpace(rest[len(digits):])
		}
	}
	cmd.Payload = rest
	return cmd
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isDigit(r) {
			return false
		}
	}
	return true
}

func parseUint(s string) uint {
	var n uint
	for _, r := range s {
		n = n*10 + uint(r-'0')
	}
	return n
}
