package anthropic

import (
	"context"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/flemzord/phrasecue/pkg/analysis"
)

// Stream implements analysis.Analyzer. It sends one streaming Messages API
// request built from the analysis prompt, invokes onChunk for every text
// delta, and returns the accumulated response text.
func (a *Anthropic) Stream(ctx context.Context, p analysis.Params, onChunk analysis.ChunkFunc) (string, error) {
	params := sdkanthropic.MessageNewParams{
		Model:     sdkanthropic.Model(a.config.Model),
		MaxTokens: int64(a.config.MaxTokens),
		System: []sdkanthropic.TextBlockParam{
			{Text: analysis.SystemPrompt},
		},
		Messages: []sdkanthropic.MessageParam{
			sdkanthropic.NewUserMessage(sdkanthropic.NewTextBlock(analysis.Prompt(p))),
		},
	}

	stream := a.client.Messages.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	var full strings.Builder
	for stream.Next() {
		if ctx.Err() != nil {
			return full.String(), ctx.Err()
		}
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case sdkanthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(sdkanthropic.TextDelta); ok && delta.Text != "" {
				full.WriteString(delta.Text)
				if onChunk != nil {
					onChunk(delta.Text)
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		return full.String(), mapError(err)
	}
	return full.String(), nil
}
