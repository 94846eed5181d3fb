package transform

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
	"github.com/art-solutions/nanobana-gen/modules/common/config"
	"github.com/art-solutions/nanobana-gen/modules/common/model"
)

var _ Client = (*GeminiClient)(nil)

// GeminiClient calls the Gemini API with an API key.
type GeminiClient struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiClient - Gemini-backed transform client.
func NewGeminiClient(ctx context.Context, cfg *config.Config) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:       client,
		defaultModel: cfg.GeminiModel,
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, req *Request) (*Result, error) {
	parts := []*genai.Part{
		{
			InlineData: &genai.Blob{
				MIMEType: req.ImageMIME,
				Data:     req.Image,
			},
		},
	}
	if len(req.Logo) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: req.LogoMIME,
				Data:     req.Logo,
			},
		})
	}
	parts = append(parts, genai.NewPartFromText(req.Instruction))

	content := &genai.Content{
		Parts: parts,
	}

	modelName := req.Model
	if modelName == "" {
		modelName = c.defaultModel
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature: floatPtr(0.4),
	}
	if req.AspectRatio != "" {
		genConfig.ImageConfig = &genai.ImageConfig{
			AspectRatio: req.AspectRatio,
		}
	}

	log.Printf("📤 Calling Gemini API (model=%s, image=%d bytes, logo=%d bytes)",
		modelName, len(req.Image), len(req.Logo))

	result, err := c.client.Models.GenerateContent(
		ctx,
		modelName,
		[]*genai.Content{content},
		genConfig,
	)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	return resultFromResponse(result)
}

// resultFromResponse - response policy over the first candidate. The
// ordering matters: a blocked generation is reported as blocked even when it
// also carries no parts.
func resultFromResponse(resp *genai.GenerateContentResponse) (*Result, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: response carried no candidates", apperr.ErrUpstreamEmpty)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason != "" && candidate.FinishReason != genai.FinishReasonStop {
		return nil, fmt.Errorf("%w: generation stopped with reason %s", apperr.ErrUpstreamBlocked, candidate.FinishReason)
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: candidate carried no content parts", apperr.ErrUpstreamEmpty)
	}

	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			log.Printf("📥 Received image from Gemini: %d bytes (%s)", len(part.InlineData.Data), mime)
			return &Result{
				Data:     part.InlineData.Data,
				MIMEType: mime,
				Usage:    usageFromMetadata(resp.UsageMetadata),
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: no inline image in response parts", apperr.ErrUpstreamNoImage)
}

func usageFromMetadata(md *genai.GenerateContentResponseUsageMetadata) model.TokenUsage {
	if md == nil {
		return model.TokenUsage{}
	}
	return model.TokenUsage{
		PromptTokens:    int(md.PromptTokenCount),
		CandidateTokens: int(md.CandidatesTokenCount),
		TotalTokens:     int(md.TotalTokenCount),
	}
}

func floatPtr(f float32) *float32 {
	return &f
}
