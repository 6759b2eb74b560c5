package tracker

import (
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// policyLines is the fixed ignore policy for edit tracking: dependency and
// VCS directories, build output, the codewalk storage directory, lockfiles,
// minified files, and source maps.
var policyLines = []string{
	"node_modules/",
	"vendor/",
	".git/",
	".hg/",
	".svn/",
	"dist/",
	"build/",
	"out/",
	"target/",
	".codewalk/",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"go.sum",
	"Cargo.lock",
	"*.min.*",
	"*.map",
}

// Policy decides which paths are excluded from edit tracking.
type Policy struct {
	workDir string
	matcher *ignore.GitIgnore
}

// NewPolicy compiles the fixed policy plus any user-configured extra
// patterns. workDir is used to relativize absolute paths before matching.
func NewPolicy(workDir string, extra []string) *Policy {
	lines := make([]string, 0, len(policyLines)+len(extra))
	lines = append(lines, policyLines...)
	lines = append(lines, extra...)
	return &Policy{
		workDir: workDir,
		matcher: ignore.CompileIgnoreLines(lines...),
	}
}

// Ignored reports whether path is excluded from tracking.
func (p *Policy) Ignored(path string) bool {
	rel := path
	if p.workDir != "" && filepath.IsAbs(path) {
		if r, err := filepath.Rel(p.workDir, path); err == nil {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return true
	}
	return p.matcher.MatchesPath(rel)
}
