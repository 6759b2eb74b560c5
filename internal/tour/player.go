package tour

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fakeyudi/codewalk/internal/explain"
)

// ErrNoTour is returned by operations that need a loaded tour.
var ErrNoTour = errors.New("no tour loaded")

// ErrDeepenFailed is the generic retriable signal for a failed explanation
// fetch. The cache is left untouched so the same request can be retried.
var ErrDeepenFailed = errors.New("explanation failed, try again")

// PlaybackState is the UI-facing snapshot of the player. It is only ever
// written by the Player in response to commands and generator responses.
type PlaybackState struct {
	ActiveTourID     string
	CurrentStepIndex int
	IsPlaying        bool
	PlaybackSpeed    float64
	IsLoadingDeepen  bool
	DetailLevel      explain.DetailLevel
}

// FileReader resolves a path and reads a line range as text. Failures yield
// an empty string, never an error.
type FileReader func(path string, startLine, endLine int) string

// Navigator focuses a step's file and range in whatever surface hosts the
// player. Best-effort; failures are the navigator's problem.
type Navigator func(step *Step)

// Player owns the active tour, the current step pointer, the per-step
// per-detail-level explanation cache, and play/pause state. All mutating
// operations serialize on one mutex; generator calls are the only
// asynchronous boundary. In-flight deepen requests are tracked per step so a
// slow response for a stale step cannot clear the loading state of a newly
// selected one.
type Player struct {
	mu       sync.Mutex
	gen      explain.Generator
	store    *Store // optional; persists deepen results
	readFile FileReader
	navigate Navigator

	tour     *Tour
	idx      int
	playing  bool
	speed    float64
	detail   explain.DetailLevel
	cache    map[int]map[explain.DetailLevel]string
	inflight map[int]bool
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithTourStore persists the tour after each successful deepen.
func WithTourStore(s *Store) PlayerOption {
	return func(p *Player) { p.store = s }
}

// WithFileReader supplies the file read capability used when a step carries
// no embedded snippet.
func WithFileReader(r FileReader) PlayerOption {
	return func(p *Player) { p.readFile = r }
}

// WithNavigator registers the focus-and-highlight side effect fired on step
// changes. It runs outside the player lock.
func WithNavigator(n Navigator) PlayerOption {
	return func(p *Player) { p.navigate = n }
}

// NewPlayer builds a Player with no tour loaded.
func NewPlayer(gen explain.Generator, opts ...PlayerOption) *Player {
	p := &Player{
		gen:      gen,
		speed:    1.0,
		detail:   explain.LevelGeneral,
		cache:    make(map[int]map[explain.DetailLevel]string),
		inflight: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoadTour replaces the active tour and resets playback: step pointer to 0,
// cache cleared, not playing, nothing loading.
func (p *Player) LoadTour(t *Tour) {
	p.mu.Lock()
	p.tour = t
	p.idx = 0
	p.playing = false
	p.cache = make(map[int]map[explain.DetailLevel]string)
	p.inflight = make(map[int]bool)
	nav, step := p.navigate, p.currentStepLocked()
	p.mu.Unlock()

	if nav != nil && step != nil {
		nav(step)
	}
}

// State returns a snapshot of the playback state. IsLoadingDeepen reports
// only the current step's in-flight request.
func (p *Player) State() PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := PlaybackState{
		CurrentStepIndex: p.idx,
		IsPlaying:        p.playing,
		PlaybackSpeed:    p.speed,
		IsLoadingDeepen:  p.inflight[p.idx],
		DetailLevel:      p.detail,
	}
	if p.tour != nil {
		st.ActiveTourID = p.tour.ID
	}
	return st
}

// Tour returns the active tour, or nil.
func (p *Player) Tour() *Tour {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tour
}

// Step returns the current step, or nil when no tour is loaded.
func (p *Player) Step() *Step {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentStepLocked()
}

func (p *Player) currentStepLocked() *Step {
	if p.tour == nil || len(p.tour.Steps) == 0 {
		return nil
	}
	return p.tour.Steps[p.idx]
}

// GoToStep moves the step pointer. Out-of-range indexes are clamped, never
// an error. Returns the index actually applied.
func (p *Player) GoToStep(index int) int {
	p.mu.Lock()
	if p.tour == nil || len(p.tour.Steps) == 0 {
		p.mu.Unlock()
		return 0
	}
	if index < 0 {
		index = 0
	}
	if max := len(p.tour.Steps) - 1; index > max {
		index = max
	}
	p.idx = index
	nav, step := p.navigate, p.currentStepLocked()
	p.mu.Unlock()

	if nav != nil && step != nil {
		nav(step)
	}
	return index
}

// Play starts auto-advancing playback. It does not move the step pointer;
// the presentation timer drives Advance.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tour != nil {
		p.playing = true
	}
}

// Pause stops playback.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

// Advance moves to the next step during playback. At the last step it
// pauses instead. Returns false when playback did not move.
func (p *Player) Advance() bool {
	p.mu.Lock()
	if p.tour == nil || !p.playing {
		p.mu.Unlock()
		return false
	}
	if p.idx >= len(p.tour.Steps)-1 {
		p.playing = false
		p.mu.Unlock()
		return false
	}
	p.idx++
	nav, step := p.navigate, p.currentStepLocked()
	p.mu.Unlock()

	if nav != nil && step != nil {
		nav(step)
	}
	return true
}

// SetSpeed updates the playback speed multiplier. Non-positive values are
// ignored.
func (p *Player) SetSpeed(speed float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if speed > 0 {
		p.speed = speed
	}
}

// StepInterval scales a base per-step duration by the current speed.
func (p *Player) StepInterval(base time.Duration) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Duration(float64(base) / p.speed)
}

// SetDetailLevel updates the preferred detail level. It does not fetch
// anything; pair it with Deepen to generate text at the new level.
func (p *Player) SetDetailLevel(level explain.DetailLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if level.Valid() {
		p.detail = level
	}
}

// Deepen returns the explanation for a step at the target level,
// cache-first. A cache hit returns immediately and never touches the
// loading state. On a miss the generator is called with the step's snippet
// (re-read from the source file when none was embedded); the result is
// cached, the tour persisted, and the text returned. On failure the cache
// is left unmodified and ErrDeepenFailed is returned so a retry is always
// possible.
func (p *Player) Deepen(ctx context.Context, stepIndex int, level explain.DetailLevel) (string, error) {
	p.mu.Lock()
	if p.tour == nil {
		p.mu.Unlock()
		return "", ErrNoTour
	}
	if stepIndex < 0 || stepIndex >= len(p.tour.Steps) {
		p.mu.Unlock()
		return "", fmt.Errorf("no step %d", stepIndex)
	}
	if text, ok := p.cache[stepIndex][level]; ok {
		p.mu.Unlock()
		return text, nil
	}

	active := p.tour
	step := p.tour.Steps[stepIndex]
	code := step.CodeSnippet
	readFile := p.readFile
	p.inflight[stepIndex] = true
	p.mu.Unlock()

	if code == "" && readFile != nil {
		code = readFile(step.FilePath, step.Range.StartLine, step.Range.EndLine)
	}

	resp, err := p.gen.Explain(ctx, explain.Request{
		Code:      code,
		FilePath:  step.FilePath,
		StartLine: step.Range.StartLine,
		EndLine:   step.Range.EndLine,
		Detail:    level,
	})

	p.mu.Lock()
	delete(p.inflight, stepIndex)
	if err != nil {
		p.mu.Unlock()
		return "", ErrDeepenFailed
	}
	// A response for a since-replaced tour completes harmlessly: the cache
	// it would have written to was already cleared by LoadTour.
	if p.tour == active {
		if p.cache[stepIndex] == nil {
			p.cache[stepIndex] = make(map[explain.DetailLevel]string)
		}
		p.cache[stepIndex][level] = resp.Explanation
		p.persistLocked()
	}
	p.mu.Unlock()
	return resp.Explanation, nil
}

// CurrentExplanation resolves the text to show for the current step at the
// preferred detail level. The order is strict: a locally cached deepen
// result wins over pre-shipped per-level content, and both win over the
// step's default explanation.
func (p *Player) CurrentExplanation() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	step := p.currentStepLocked()
	if step == nil {
		return ""
	}
	if text, ok := p.cache[p.idx][p.detail]; ok {
		return text
	}
	if text, ok := step.Content.Explanations[p.detail]; ok {
		return text
	}
	return step.Content.Explanation
}

// CachedLevels lists the detail levels cached for a step, in level order.
func (p *Player) CachedLevels(stepIndex int) []explain.DetailLevel {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []explain.DetailLevel
	for _, l := range explain.Levels {
		if _, ok := p.cache[stepIndex][l]; ok {
			out = append(out, l)
		}
	}
	return out
}

// persistLocked saves the tour with cached levels merged into step content.
// Failures are swallowed; the cache itself stays authoritative in memory.
func (p *Player) persistLocked() {
	if p.store == nil || p.tour == nil {
		return
	}
	clone := *p.tour
	clone.Steps = make([]*Step, len(p.tour.Steps))
	for i, s := range p.tour.Steps {
		sc := *s
		merged := make(map[explain.DetailLevel]string, len(s.Content.Explanations)+len(p.cache[i]))
		for l, text := range s.Content.Explanations {
			merged[l] = text
		}
		for l, text := range p.cache[i] {
			merged[l] = text
		}
		if len(merged) > 0 {
			sc.Content.Explanations = merged
		}
		clone.Steps[i] = &sc
	}
	_ = p.store.Save(&clone)
}
