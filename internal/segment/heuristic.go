package segment

import (
	"regexp"
	"strings"
	"unicode"
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// SplitHeuristic splits text without a language model:
//
//  1. blocks are paragraphs separated by blank lines
//  2. a block that fits in maxLen characters is kept whole
//  3. longer blocks are split into sentences that are packed, space-joined,
//     while they fit
//  4. a sentence longer than maxLen is hard-wrapped
//
// Lengths are counted in characters, not bytes.
func SplitHeuristic(text string, maxLen int) []string {
	if maxLen <= 0 {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var out []string
	for _, block := range blocks(text) {
		if runeLen(block) <= maxLen {
			out = append(out, block)
			continue
		}

		var cur string
		for _, sentence := range sentences(block) {
			switch {
			case cur == "" && runeLen(sentence) <= maxLen:
				cur = sentence
			case cur != "" && runeLen(cur)+1+runeLen(sentence) <= maxLen:
				cur = cur + " " + sentence
			default:
				if cur != "" {
					out = append(out, cur)
				}
				chunks := wrap(sentence, maxLen)
				out = append(out, chunks[:len(chunks)-1]...)
				cur = chunks[len(chunks)-1]
			}
		}
		if cur != "" {
			out = append(out, cur)
		}
	}
	return out
}

func blocks(text string) []string {
	var out []string
	for _, b := range paragraphBreak.Split(text, -1) {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// sentences splits after '.', '!' or '?' when followed by whitespace.
func sentences(block string) []string {
	var out []string
	runes := []rune(block)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !strings.ContainsRune(".!?", runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		out = append(out, string(runes[start:i+1]))
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

// wrap cuts s into maxLen-character chunks. The last chunk may be shorter.
func wrap(s string, maxLen int) []string {
	runes := []rune(s)
	var out []string
	for len(runes) > maxLen {
		out = append(out, string(runes[:maxLen]))
		runes = runes[maxLen:]
	}
	return append(out, string(runes))
}

func runeLen(s string) int {
	return len([]rune(s))
}
