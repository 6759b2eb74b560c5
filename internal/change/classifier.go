package change

import (
	"regexp"
	"strings"
)

// Heuristic patterns for code-shaped text. These are deliberately loose:
// classification is a guess about origin, not a parse.
var (
	declRe         = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:async\s+)?(?:function|class|interface|func|def)\b`)
	constRe        = regexp.MustCompile(`(?m)^\s*(?:const|let|var)\s+\w+\s*[:=]`)
	importRe       = regexp.MustCompile(`(?m)^\s*(?:import|from)\b`)
	blockCommentRe = regexp.MustCompile(`/\*`)
	lineCommentRe  = regexp.MustCompile(`(?m)^\s*//`)
)

// Classify guesses whether a text blob was typed by a human or produced by an
// automated agent. Pure and deterministic.
//
// The decision procedure: fewer than three lines is always manual. Otherwise
// the text is agent-authored when it looks like code (a declaration, binding,
// import, or comment), its braces balance, and it either contains at least
// two statement-terminated lines or is five or more lines long. False
// positives and negatives are expected; this is a heuristic, not ground
// truth.
func Classify(text string) Source {
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return SourceManual
	}

	hasCodePattern := declRe.MatchString(text) ||
		constRe.MatchString(text) ||
		importRe.MatchString(text) ||
		blockCommentRe.MatchString(text) ||
		lineCommentRe.MatchString(text)

	isBalanced := strings.Count(text, "{") == strings.Count(text, "}")

	statements := 0
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if strings.HasSuffix(trimmed, ";") ||
			strings.HasSuffix(trimmed, "{") ||
			strings.HasSuffix(trimmed, "}") {
			statements++
		}
	}
	hasMultipleStatements := statements >= 2

	if hasCodePattern && isBalanced && (hasMultipleStatements || len(lines) >= 5) {
		return SourceAgent
	}
	return SourceManual
}
