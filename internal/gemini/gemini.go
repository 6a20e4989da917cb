package gemini

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/lehigh-university-libraries/solarscan/internal/providers"
	"google.golang.org/genai"
)

// streamer is the slice of the genai Models service this provider uses.
type streamer interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Gemini is a provider for Google Gemini
type Gemini struct {
	models streamer
}

// New returns a new Gemini provider bound to apiKey.
func New(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	return &Gemini{models: client.Models}, nil
}

// GenerateStream sends the prompt and image as a single user turn and yields
// one providers.Chunk per streamed response.
func (g *Gemini) GenerateStream(ctx context.Context, req providers.Request) iter.Seq2[providers.Chunk, error] {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(req.Prompt),
			genai.NewPartFromBytes(req.Image, req.MIMEType),
		}, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: req.ResponseModalities,
		ResponseMIMEType:   "text/plain",
	}

	return func(yield func(providers.Chunk, error) bool) {
		for resp, err := range g.models.GenerateContentStream(ctx, req.Model, contents, config) {
			if err != nil {
				yield(providers.Chunk{}, fmt.Errorf("failed to generate content: %w", err))
				return
			}
			if !yield(chunkFromResponse(resp), nil) {
				return
			}
		}
	}
}

// chunkFromResponse classifies a streamed response. Only the first part is
// inspected for inline data; text is taken from every text part.
func chunkFromResponse(resp *genai.GenerateContentResponse) providers.Chunk {
	if resp == nil {
		return providers.Chunk{Kind: providers.ChunkEmpty}
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		reason := string(fb.BlockReason)
		if fb.BlockReasonMessage != "" {
			reason += ": " + fb.BlockReasonMessage
		}
		return providers.Chunk{Kind: providers.ChunkBlocked, BlockReason: reason}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return providers.Chunk{Kind: providers.ChunkEmpty}
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0] == nil {
		return providers.Chunk{Kind: providers.ChunkEmpty}
	}

	if blob := content.Parts[0].InlineData; blob != nil && len(blob.Data) > 0 {
		return providers.ImageChunk(blob.MIMEType, blob.Data)
	}

	var text strings.Builder
	for _, part := range content.Parts {
		if part != nil && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	return providers.TextChunk(text.String())
}
