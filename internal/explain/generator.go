// Package explain provides the text-generation boundary used by the change
// tracker and the tour player. Callers always get a usable generator: with an
// API key configured they get the OpenAI-backed one, otherwise a deterministic
// placeholder so the tool works with no credentials.
package explain

import (
	"context"
	"os"
)

// Request describes one explanation to generate.
type Request struct {
	Code          string
	FilePath      string
	StartLine     int
	EndLine       int
	Detail        DetailLevel
	Language      string // optional hint, e.g. "go"
	AgentAuthored bool   // the excerpt was attributed to an automated agent
	ExtraContext  string // optional surrounding context
}

// Response is the result of a generation call.
type Response struct {
	Explanation string
	Tokens      int // 0 when the backend doesn't report usage
}

// Generator produces explanation text for a code excerpt. Implementations
// may fail (network, auth, rate limit); callers translate failures into
// soft, retriable states and never let them escape to the user as a crash.
type Generator interface {
	Explain(ctx context.Context, req Request) (Response, error)
}

// NewFromEnv returns the OpenAI generator when OPENAI_API_KEY is set and the
// placeholder generator otherwise.
func NewFromEnv(model string) Generator {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return &PlaceholderGenerator{}
	}
	return NewOpenAIGenerator(key, model)
}
