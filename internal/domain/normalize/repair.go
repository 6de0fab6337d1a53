// Package normalize turns free-text LLM replies into prose or well-formed
// JSON. Repair is an ordered pipeline of pure text steps, each handling one
// defect class, followed by a strict encoding/json parse.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when a reply carries no object or array at all.
var ErrNoJSON = errors.New("no JSON object or array found")

// Step is one text transform of the repair pipeline.
type Step struct {
	Name  string
	Apply func(string) string
}

// Cleanup is the list of steps applied to an extracted JSON candidate, in order.
var Cleanup = []Step{
	{Name: "fix_placeholders", Apply: FixPlaceholders},
	{Name: "fix_single_quotes", Apply: FixSingleQuotes},
	{Name: "fix_literals", Apply: FixLiterals},
	{Name: "remove_trailing_commas", Apply: RemoveTrailingCommas},
}

// Repair strips fences, extracts the first top-level JSON value and runs the
// cleanup steps on it.
func Repair(raw string) (string, error) {
	candidates := Candidates(StripFences(raw))
	if len(candidates) == 0 {
		return "", ErrNoJSON
	}
	return clean(candidates[0]), nil
}

// Decode repairs raw and unmarshals it into v, which must be a non-nil
// pointer. Every top-level candidate is tried in order so a stray "[1]" in
// leading prose does not hide the payload. Each candidate decodes into a fresh
// value; a rejected candidate leaves v untouched.
func Decode(raw string, v any) error {
	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return errors.New("decode target must be a non-nil pointer")
	}
	candidates := Candidates(StripFences(raw))
	if len(candidates) == 0 {
		return ErrNoJSON
	}
	var lastErr error
	for _, c := range candidates {
		fresh := reflect.New(target.Type().Elem())
		if err := json.Unmarshal([]byte(clean(c)), fresh.Interface()); err != nil {
			lastErr = err
			continue
		}
		target.Elem().Set(fresh.Elem())
		return nil
	}
	return fmt.Errorf("parsing repaired JSON: %w", lastErr)
}

// Text is the prose pass-through: trimmed, with a fence wrapping the whole
// reply removed.
func Text(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		return StripFences(s)
	}
	return s
}

func clean(s string) string {
	for _, step := range Cleanup {
		s = step.Apply(s)
	}
	return strings.TrimSpace(s)
}

var fenceRe = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n?(.*?)```")

// StripFences returns the content of the first fenced code block, preferring
// one that looks structured. Text without fences is returned trimmed.
func StripFences(s string) string {
	matches := fenceRe.FindAllStringSubmatch(s, -1)
	for _, m := range matches {
		if strings.ContainsAny(m[1], "{[") {
			return strings.TrimSpace(m[1])
		}
	}
	if len(matches) > 0 {
		return strings.TrimSpace(matches[0][1])
	}

	// Unterminated fence: drop the opening line.
	if idx := strings.Index(s, "```"); idx != -1 {
		rest := s[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl != -1 && !strings.ContainsAny(rest[:nl], "{[") {
			rest = rest[nl+1:]
		}
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(s)
}

// ExtractJSON returns the first balanced top-level object or array in s, or
// "" when there is none.
func ExtractJSON(s string) string {
	if c := Candidates(s); len(c) > 0 {
		return c[0]
	}
	return ""
}

// Candidates lists every top-level {...} or [...] span in s, scanning with
// awareness of double-quoted strings. An unbalanced tail is returned as the
// last candidate so later steps still get a chance at it.
func Candidates(s string) []string {
	var out []string
	var stack []byte
	start := -1
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if start != -1 {
				inString = true
			}
		case '{', '[':
			if start == -1 {
				start = i
			}
			stack = append(stack, c)
		case '}', ']':
			if start == -1 {
				continue
			}
			open := stack[len(stack)-1]
			if (open == '{' && c != '}') || (open == '[' && c != ']') {
				// Mismatched close: abandon this candidate and rescan after its opener.
				i = start
				start = -1
				stack = stack[:0]
				continue
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				out = append(out, s[start:i+1])
				start = -1
			}
		}
	}
	if start != -1 {
		out = append(out, s[start:])
	}
	return out
}

var placeholderRe = regexp.MustCompile(`:(\s*)(?:true|false|null)(?:\s*[/|]\s*(?:true|false|null))+`)

// FixPlaceholders replaces an enumeration copied from a prompt example, such
// as `"agrees": true/false`, with `true`.
func FixPlaceholders(s string) string {
	return mapOutsideStrings(s, func(seg string) string {
		return placeholderRe.ReplaceAllString(seg, ":${1}true")
	})
}

var (
	singleKeyRe   = regexp.MustCompile(`'([^'"\n]*)'(\s*:)`)
	singleValueRe = regexp.MustCompile(`([:\[,]\s*)'([^'\n]*)'`)
)

// FixSingleQuotes rewrites single-quoted keys and values as JSON strings.
func FixSingleQuotes(s string) string {
	return mapOutsideStrings(s, func(seg string) string {
		seg = singleKeyRe.ReplaceAllString(seg, `"$1"$2`)
		return singleValueRe.ReplaceAllStringFunc(seg, func(m string) string {
			parts := singleValueRe.FindStringSubmatch(m)
			quoted, _ := json.Marshal(parts[2])
			return parts[1] + string(quoted)
		})
	})
}

var literalRe = regexp.MustCompile(`\b(True|TRUE|False|FALSE|None|NONE|Null|NULL)\b`)

// FixLiterals lower-cases capitalized booleans and maps None/NULL to null.
func FixLiterals(s string) string {
	return mapOutsideStrings(s, func(seg string) string {
		return literalRe.ReplaceAllStringFunc(seg, func(m string) string {
			switch strings.ToLower(m) {
			case "true":
				return "true"
			case "false":
				return "false"
			default:
				return "null"
			}
		})
	})
}

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// RemoveTrailingCommas drops commas directly before a closing brace or bracket.
func RemoveTrailingCommas(s string) string {
	return mapOutsideStrings(s, func(seg string) string {
		return trailingCommaRe.ReplaceAllString(seg, "$1")
	})
}

// mapOutsideStrings applies fn to every run of s that is not inside a
// double-quoted string. String literals are copied through unchanged.
func mapOutsideStrings(s string, fn func(string) string) string {
	var b strings.Builder
	b.Grow(len(s))
	runStart := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '"' {
			continue
		}
		b.WriteString(fn(s[runStart:i]))
		end := closingQuote(s, i)
		b.WriteString(s[i:end])
		runStart = end
		i = end - 1
	}
	b.WriteString(fn(s[runStart:]))
	return b.String()
}

// closingQuote returns the index just past the string literal opening at
// s[open], or len(s) when it is unterminated.
func closingQuote(s string, open int) int {
	for i := open + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}
	return len(s)
}
