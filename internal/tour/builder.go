package tour

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fakeyudi/codewalk/internal/explain"
)

const maxSummaryLen = 72

// GitRunner executes a git command and returns its output.
// This abstraction allows mocking in tests.
type GitRunner func(workDir string, args ...string) (string, error)

// defaultGitRunner runs git as a real subprocess.
func defaultGitRunner(workDir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = workDir
	out, err := cmd.Output()
	return string(out), err
}

// Builder turns a code selection into a tour: the selection is split into
// scenes at blank lines and each scene becomes a step with a generated
// default explanation.
type Builder struct {
	WorkDir string
	Gen     explain.Generator
	Runner  GitRunner // if nil, uses the real git subprocess
}

// Build reads lines startLine..endLine (1-based, inclusive) of path and
// produces a tour. Title defaults to "<base> <start>-<end>" when empty.
// Explanation generation is per scene at the general level; a generation
// failure fails the build since a tour without narration is useless.
func (b *Builder) Build(ctx context.Context, path string, startLine, endLine int, title string) (*Tour, error) {
	if startLine < 1 || endLine < startLine {
		return nil, fmt.Errorf("invalid line range %d-%d", startLine, endLine)
	}

	lines, err := readFileLines(filepath.Join(b.WorkDir, path))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if startLine > len(lines) {
		return nil, fmt.Errorf("%s has only %d lines", path, len(lines))
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}

	scenes := splitScenes(lines, startLine, endLine)
	if len(scenes) == 0 {
		return nil, fmt.Errorf("selection %d-%d of %s is empty", startLine, endLine, path)
	}

	if title == "" {
		title = fmt.Sprintf("%s %d-%d", filepath.Base(path), startLine, endLine)
	}

	t := &Tour{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: time.Now(),
		Source:    b.sourceContext(),
	}

	for i, sc := range scenes {
		resp, err := b.Gen.Explain(ctx, explain.Request{
			Code:      sc.text,
			FilePath:  path,
			StartLine: sc.start,
			EndLine:   sc.end,
			Detail:    explain.LevelGeneral,
		})
		if err != nil {
			return nil, fmt.Errorf("explaining step %d: %w", i+1, err)
		}
		t.Steps = append(t.Steps, &Step{
			Index:    i,
			FilePath: path,
			Range:    Range{StartLine: sc.start, EndLine: sc.end},
			Content: StepContent{
				Summary:     summarize(sc.text),
				Explanation: resp.Explanation,
			},
			CodeSnippet: sc.text,
		})
	}
	return t, nil
}

type scene struct {
	start int // 1-based line of the scene's first line
	end   int
	text  string
}

// splitScenes groups the selected lines into blank-line-delimited blocks.
// Line numbers stay absolute so each step's range points into the file.
func splitScenes(lines []string, startLine, endLine int) []scene {
	var scenes []scene
	var cur []string
	curStart := 0

	flush := func(endAt int) {
		if len(cur) == 0 {
			return
		}
		scenes = append(scenes, scene{
			start: curStart,
			end:   endAt,
			text:  strings.Join(cur, "\n"),
		})
		cur = nil
	}

	for n := startLine; n <= endLine; n++ {
		line := lines[n-1]
		if strings.TrimSpace(line) == "" {
			flush(n - 1)
			continue
		}
		if len(cur) == 0 {
			curStart = n
		}
		cur = append(cur, line)
	}
	flush(endLine)
	return scenes
}

// summarize derives a one-line step summary from the scene's first line.
func summarize(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimSpace(line)
	if len(line) > maxSummaryLen {
		line = line[:maxSummaryLen-3] + "..."
	}
	return line
}

// sourceContext captures repository and branch, best-effort. A missing git
// binary or non-repo directory simply yields no source context.
func (b *Builder) sourceContext() *SourceContext {
	runner := b.Runner
	if runner == nil {
		runner = defaultGitRunner
	}

	branch, err := runner(b.WorkDir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil
	}
	repo, err := runner(b.WorkDir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil
	}
	return &SourceContext{
		Repository: filepath.Base(strings.TrimSpace(repo)),
		Branch:     strings.TrimSpace(branch),
	}
}

func readFileLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

// ReadRange returns lines startLine..endLine of a file as text, or "" when
// the file cannot be read. It backs the player's file read capability.
func ReadRange(workDir string) FileReader {
	return func(path string, startLine, endLine int) string {
		lines, err := readFileLines(filepath.Join(workDir, path))
		if err != nil || startLine < 1 || startLine > len(lines) {
			return ""
		}
		if endLine > len(lines) {
			endLine = len(lines)
		}
		return strings.Join(lines[startLine-1:endLine], "\n")
	}
}
