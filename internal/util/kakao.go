package util

import (
	"strings"
	"unicode/utf8"
)

const (
	KakaoSeeMorePadding = 500
	KakaoZeroWidthSpace = "\u200b"

	// Replies longer than either limit are folded behind KakaoTalk's "see more".
	SeeMoreLineLimit = 12
	SeeMoreRuneLimit = 400
)

// NeedsSeeMore reports whether text is long enough to fold.
func NeedsSeeMore(text string) bool {
	return strings.Count(text, "\n")+1 > SeeMoreLineLimit || utf8.RuneCountInString(text) > SeeMoreRuneLimit
}

// FoldSeeMore keeps the first line visible and hides the rest behind zero-width padding.
// Short text is returned unchanged; fallback is the visible line when text has only one.
func FoldSeeMore(text, fallback string) string {
	if !NeedsSeeMore(text) {
		return text
	}
	header, body, found := strings.Cut(text, "\n")
	if !found || strings.TrimSpace(header) == "" {
		return ApplyKakaoSeeMorePadding(text, fallback)
	}
	return ApplyKakaoSeeMorePadding(body, header)
}

// ApplyKakaoSeeMorePadding puts instruction on the first line, then the padding, then text.
func ApplyKakaoSeeMorePadding(text, instruction string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	message := strings.TrimSpace(instruction)

	var builder strings.Builder
	builder.Grow(len(text) + KakaoSeeMorePadding*len(KakaoZeroWidthSpace) + len(message) + 1)
	builder.WriteString(message)
	builder.WriteString(strings.Repeat(KakaoZeroWidthSpace, KakaoSeeMorePadding))
	if !strings.HasPrefix(text, "\n") {
		builder.WriteByte('\n')
	}
	builder.WriteString(text)
	return builder.String()
}
