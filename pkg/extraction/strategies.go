package extraction

import (
	"regexp"
	"strings"
)

// TextStrategy proposes candidate JSON documents found in free text.
// Candidates are tried in the order returned.
type TextStrategy struct {
	Name       string
	Candidates func(text string) []string
}

// maxBraceCandidates bounds the balanced-brace scan on very large payloads.
const maxBraceCandidates = 64

var (
	taggedFence = regexp.MustCompile("(?is)```json[ \t]*\\r?\\n?(.*?)```")
	anyFence    = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\\r?\\n?(.*?)```")
)

// WholeText treats the entire text as one document.
var WholeText = TextStrategy{
	Name: "whole_text",
	Candidates: func(text string) []string {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	},
}

// TaggedFence extracts the bodies of ```json fenced blocks.
var TaggedFence = TextStrategy{
	Name: "json_fence",
	Candidates: func(text string) []string {
		return fenceBodies(taggedFence, text)
	},
}

// AnyFence extracts the bodies of any fenced block, language tag stripped.
var AnyFence = TextStrategy{
	Name: "any_fence",
	Candidates: func(text string) []string {
		return fenceBodies(anyFence, text)
	},
}

// BraceScan returns every balanced {...} region that mentions a signature
// field, in order of its opening brace.
var BraceScan = TextStrategy{
	Name:       "brace_scan",
	Candidates: braceCandidates,
}

// DefaultTextStrategies is the order the Engine applies to free text.
var DefaultTextStrategies = []TextStrategy{WholeText, TaggedFence, AnyFence, BraceScan}

func fenceBodies(re *regexp.Regexp, text string) []string {
	matches := re.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if body := strings.TrimSpace(m[1]); body != "" {
			out = append(out, body)
		}
	}
	return out
}

func braceCandidates(text string) []string {
	var out []string
	for i := 0; i < len(text) && len(out) < maxBraceCandidates; i++ {
		if text[i] != '{' {
			continue
		}
		end, ok := matchBrace(text, i)
		if !ok {
			continue
		}
		region := text[i : end+1]
		if mentionsSignature(region) {
			out = append(out, region)
		}
	}
	return out
}

// matchBrace finds the brace closing the one at start, skipping braces that
// appear inside JSON strings.
func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func mentionsSignature(region string) bool {
	for _, f := range SignatureFields {
		if strings.Contains(region, `"`+f+`"`) {
			return true
		}
	}
	return false
}
