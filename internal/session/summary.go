package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/armanbance/TwinMind/pkg/provider/llm"
)

// summaryPrompt is the system prompt sent to the LLM when summarising a
// completed meeting transcript.
const summaryPrompt = `You summarise meeting transcripts.
First output a single short headline naming the meeting topic, on a line of its own.
Then output the summary: key decisions, action items with owners, open questions,
and any dates or deadlines mentioned. Be concise but keep every concrete commitment.`

// summaryHeader prefixes every stored summary document.
const summaryHeader = "## Summary"

// Summarizer produces a title and summary for a completed transcript.
type Summarizer interface {
	// Summarize returns a short title and a summary document for the
	// transcript.
	Summarize(ctx context.Context, transcript string) (title, summary string, err error)
}

// Compile-time assertion that LLMSummarizer implements Summarizer.
var _ Summarizer = (*LLMSummarizer)(nil)

// LLMSummarizer uses an LLM provider to summarise transcripts.
type LLMSummarizer struct {
	llm llm.Provider
}

// NewLLMSummarizer creates a new LLMSummarizer backed by the given provider.
func NewLLMSummarizer(provider llm.Provider) *LLMSummarizer {
	return &LLMSummarizer{llm: provider}
}

// Summarize implements Summarizer. The first non-empty line of the model
// output becomes the title; the remainder becomes the summary body under a
// "## Summary" header.
func (s *LLMSummarizer) Summarize(ctx context.Context, transcript string) (string, string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", "", nil
	}

	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: summaryPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: transcript},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", "", fmt.Errorf("summarize: %w", err)
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", "", nil
	}

	title := headline(content)
	if !strings.HasPrefix(content, summaryHeader) {
		content = summaryHeader + "\n\n" + content
	}
	return title, content, nil
}

// headline returns the first non-empty line, stripped of markdown heading
// markers, for use as the session title.
func headline(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(strings.TrimLeft(line, "# "))
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
