package explain

import (
	"context"
	"fmt"
	"strings"
)

// PlaceholderGenerator produces deterministic explanation text without any
// network access. It keeps the tool usable when no API key is configured.
type PlaceholderGenerator struct{}

// Explain implements Generator. The output depends only on the request, so
// repeated calls for the same excerpt and level yield identical text.
func (p *PlaceholderGenerator) Explain(_ context.Context, req Request) (Response, error) {
	lines := strings.Split(strings.TrimRight(req.Code, "\n"), "\n")
	first := ""
	for _, l := range lines {
		if s := strings.TrimSpace(l); s != "" {
			first = s
			break
		}
	}
	if len(first) > 60 {
		first = first[:60] + "…"
	}

	origin := "manually written"
	if req.AgentAuthored {
		origin = "agent-generated"
	}

	var text string
	switch req.Detail {
	case LevelTLDR:
		text = fmt.Sprintf("%d %s of %s code starting with %q.",
			len(lines), plural("line", len(lines)), origin, first)
	case LevelDetailed, LevelExtreme:
		text = fmt.Sprintf(
			"This %s excerpt spans lines %d-%d of %s (%d %s), beginning with %q. "+
				"Configure an API key to generate a %s walkthrough of each section.",
			origin, req.StartLine, req.EndLine, req.FilePath,
			len(lines), plural("line", len(lines)), first, req.Detail)
	default:
		text = fmt.Sprintf(
			"This %s excerpt covers lines %d-%d of %s and begins with %q. "+
				"Configure an API key for a generated explanation.",
			origin, req.StartLine, req.EndLine, req.FilePath, first)
	}
	return Response{Explanation: text}, nil
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
