package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTokensKeepsWhitespace(t *testing.T) {
	chunks := SplitTokens("alpha  beta\ngamma delta epsilon", 2)
	assert.Equal(t, []string{"alpha  beta\n", "gamma delta ", "epsilon"}, chunks)
}

func TestSplitTokensChunkCount(t *testing.T) {
	tests := []struct {
		tokens int
		max    int
		want   int
	}{
		{tokens: 1, max: 256, want: 1},
		{tokens: 256, max: 256, want: 1},
		{tokens: 257, max: 256, want: 2},
		{tokens: 600, max: 256, want: 3},
		{tokens: 10, max: 3, want: 4},
	}

	for _, tt := range tests {
		text := strings.Repeat("word ", tt.tokens)
		chunks := SplitTokens(text, tt.max)
		require.Len(t, chunks, tt.want, "tokens=%d max=%d", tt.tokens, tt.max)
		assert.Equal(t, text, strings.Join(chunks, ""))
	}
}

func TestSplitTokensEmpty(t *testing.T) {
	assert.Empty(t, SplitTokens("", 4))
	assert.Empty(t, SplitTokens(" \n\t ", 4))
}

func TestFileTypeFromMIME(t *testing.T) {
	assert.Equal(t, FileTypePlain, FileTypeFromMIME("text/plain; charset=utf-8"))
	assert.Equal(t, FileTypePDF, FileTypeFromMIME("application/pdf"))
	assert.Equal(t, FileType("png"), FileTypeFromMIME("image/png"))
	assert.False(t, FileTypeFromMIME("image/png").IsSupported())
	assert.True(t, FileTypePDF.IsSupported())
}
