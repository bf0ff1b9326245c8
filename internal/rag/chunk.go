package rag

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\S+\s*`)

// Tokens splits text into runs of non-space characters, each carrying its trailing whitespace.
func Tokens(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}

// SplitTokens groups the tokens of text into chunks of at most maxTokens tokens. Tokens are
// joined back verbatim, so concatenating the chunks yields text minus any leading whitespace.
func SplitTokens(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = 1
	}
	tokens := Tokens(text)
	if len(tokens) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(tokens)+maxTokens-1)/maxTokens)
	for i := 0; i < len(tokens); i += maxTokens {
		end := i + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.Join(tokens[i:end], ""))
	}
	return chunks
}
