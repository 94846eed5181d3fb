package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
	"github.com/art-solutions/nanobana-gen/modules/common/config"
	"github.com/art-solutions/nanobana-gen/modules/common/model"
)

var _ Client = (*VertexClient)(nil)

// VertexClient calls the same models through Vertex AI with service-account
// credentials. The aspect ratio hint is not supported on this path and is
// ignored.
type VertexClient struct {
	client       *genai.Client
	defaultModel string
}

// NewVertexClient - Vertex-backed transform client. Credentials resolve in
// order: VERTEXAI_CREDENTIALS_JSON, VERTEXAI_CREDENTIALS_PATH, then
// Application Default Credentials.
func NewVertexClient(ctx context.Context, cfg *config.Config) (*VertexClient, error) {
	var opts []option.ClientOption

	if credsJSON := os.Getenv("VERTEXAI_CREDENTIALS_JSON"); credsJSON != "" {
		log.Println("✅ [Vertex] Using VERTEXAI_CREDENTIALS_JSON from environment")
		opts = append(opts, option.WithCredentialsJSON([]byte(credsJSON)))
	} else if credsPath := os.Getenv("VERTEXAI_CREDENTIALS_PATH"); credsPath != "" {
		log.Printf("✅ [Vertex] Using credentials from file: %s", credsPath)
		credsData, err := os.ReadFile(credsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		var creds map[string]interface{}
		if err := json.Unmarshal(credsData, &creds); err != nil {
			return nil, fmt.Errorf("invalid JSON credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(credsData))
	} else {
		log.Println("⚠️  [Vertex] No explicit credentials found, using Application Default Credentials")
	}

	client, err := genai.NewClient(ctx, cfg.VertexProject, cfg.VertexLocation, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	log.Printf("✅ [Vertex] Client initialized for project=%s, location=%s", cfg.VertexProject, cfg.VertexLocation)
	return &VertexClient{
		client:       client,
		defaultModel: cfg.GeminiModel,
	}, nil
}

func (c *VertexClient) Generate(ctx context.Context, req *Request) (*Result, error) {
	parts := []genai.Part{
		genai.Blob{
			MIMEType: req.ImageMIME,
			Data:     req.Image,
		},
	}
	if len(req.Logo) > 0 {
		parts = append(parts, genai.Blob{
			MIMEType: req.LogoMIME,
			Data:     req.Logo,
		})
	}
	parts = append(parts, genai.Text(req.Instruction))

	modelName := req.Model
	if modelName == "" {
		modelName = c.defaultModel
	}

	gm := c.client.GenerativeModel(modelName)
	gm.SetTemperature(0.4)

	log.Printf("📤 Calling Vertex AI (model=%s, image=%d bytes, logo=%d bytes)",
		modelName, len(req.Image), len(req.Logo))

	result, err := gm.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("Vertex AI error: %w", err)
	}

	return vertexResultFromResponse(result)
}

// vertexResultFromResponse - same response policy as the Gemini path, over
// the older SDK's part interface.
func vertexResultFromResponse(resp *genai.GenerateContentResponse) (*Result, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: response carried no candidates", apperr.ErrUpstreamEmpty)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason != genai.FinishReasonUnspecified && candidate.FinishReason != genai.FinishReasonStop {
		return nil, fmt.Errorf("%w: generation stopped with reason %s", apperr.ErrUpstreamBlocked, candidate.FinishReason)
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: candidate carried no content parts", apperr.ErrUpstreamEmpty)
	}

	for _, part := range candidate.Content.Parts {
		if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
			mime := blob.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			log.Printf("📥 Received image from Vertex: %d bytes (%s)", len(blob.Data), mime)
			return &Result{
				Data:     blob.Data,
				MIMEType: mime,
				Usage:    vertexUsage(resp.UsageMetadata),
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: no inline image in response parts", apperr.ErrUpstreamNoImage)
}

func vertexUsage(md *genai.UsageMetadata) model.TokenUsage {
	if md == nil {
		return model.TokenUsage{}
	}
	return model.TokenUsage{
		PromptTokens:    int(md.PromptTokenCount),
		CandidateTokens: int(md.CandidatesTokenCount),
		TotalTokens:     int(md.TotalTokenCount),
	}
}
