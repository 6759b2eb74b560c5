package explain

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// levelInstructions maps each detail level to the register the model should
// answer in.
var levelInstructions = map[DetailLevel]string{
	LevelTLDR:     "Answer in one or two sentences. State only what the code accomplishes.",
	LevelGeneral:  "Answer in a short paragraph. Cover what the code does and the key moving parts, without line-by-line commentary.",
	LevelDetailed: "Walk through the code section by section. Name the functions and data involved and how control flows between them.",
	LevelExtreme:  "Explain line by line. Cover every declaration, branch, and side effect, including edge cases the code handles or misses.",
}

// OpenAIGenerator generates explanations through the OpenAI Responses API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator builds a generator for the given API key and model.
func NewOpenAIGenerator(apiKey, model string) *OpenAIGenerator {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIGenerator{client: &client, model: model}
}

// Explain implements Generator.
func (g *OpenAIGenerator) Explain(ctx context.Context, req Request) (Response, error) {
	if g.client == nil {
		return Response{}, fmt.Errorf("openai generator: client is nil")
	}

	level := req.Detail
	if !level.Valid() {
		level = LevelGeneral
	}

	instructions := "You are a senior engineer narrating a code walkthrough for a teammate. " +
		levelInstructions[level] +
		" Do not restate the code verbatim and do not use markdown headings."
	if req.AgentAuthored {
		instructions += " The excerpt was written by an automated coding agent; note anything a human reviewer should double-check."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "File: %s (lines %d-%d)\n", req.FilePath, req.StartLine, req.EndLine)
	if lang := languageFor(req); lang != "" {
		fmt.Fprintf(&sb, "Language: %s\n", lang)
	}
	if req.ExtraContext != "" {
		fmt.Fprintf(&sb, "Context: %s\n", req.ExtraContext)
	}
	sb.WriteString("\n")
	sb.WriteString(req.Code)

	params := responses.ResponseNewParams{
		Model:           g.model,
		MaxOutputTokens: openai.Int(maxTokensFor(level)),
		Instructions:    openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(sb.String(), responses.EasyInputMessageRoleUser),
			},
		},
	}

	resp, err := g.callWithRetry(ctx, params)
	if err != nil {
		return Response{}, err
	}

	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return Response{}, fmt.Errorf("openai generator: empty response")
	}
	return Response{
		Explanation: text,
		Tokens:      int(resp.Usage.TotalTokens),
	}, nil
}

// callWithRetry retries rate-limit and server errors with increasing waits.
func (g *OpenAIGenerator) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	const maxRetries = 3
	rateLimitWaits := []time.Duration{20 * time.Second, 45 * time.Second, 90 * time.Second}
	serverErrorWaits := []time.Duration{2 * time.Second, 10 * time.Second, 30 * time.Second}

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := g.client.Responses.New(ctx, params)
		if err != nil {
			var wait time.Duration
			switch {
			case isRateLimitError(err):
				wait = rateLimitWaits[attempt]
			case isServerError(err):
				wait = serverErrorWaits[attempt]
			default:
				return nil, err
			}
			if attempt < maxRetries-1 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(wait):
				}
				continue
			}
			return nil, err
		}
		return resp, nil
	}
	return nil, fmt.Errorf("openai generator: gave up after %d attempts", maxRetries)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "500") ||
		strings.Contains(s, "internal server error") ||
		strings.Contains(s, "server_error")
}

func maxTokensFor(level DetailLevel) int64 {
	switch level {
	case LevelTLDR:
		return 150
	case LevelGeneral:
		return 400
	case LevelDetailed:
		return 900
	default:
		return 2000
	}
}

// languageFor returns the explicit language hint, falling back to the file
// extension.
func languageFor(req Request) string {
	if req.Language != "" {
		return req.Language
	}
	ext := strings.TrimPrefix(filepath.Ext(req.FilePath), ".")
	return ext
}
