package transform

import (
	"context"
	"log"

	"github.com/art-solutions/nanobana-gen/modules/common/config"
	"github.com/art-solutions/nanobana-gen/modules/common/model"
)

// Request - one localization transform call. The instruction text carries the
// full task; the primary image is the creative to localize and the optional
// logo rides along as a second inline image.
type Request struct {
	Instruction string
	Image       []byte
	ImageMIME   string
	Logo        []byte
	LogoMIME    string
	Model       string
	AspectRatio string
}

// Result - the generated image plus whatever token counters the upstream
// reported. Counters are zero when the upstream omits them.
type Result struct {
	Data     []byte
	MIMEType string
	Usage    model.TokenUsage
}

// Client - a transform backend. Implementations validate the upstream
// response themselves: no candidates or no parts is ErrUpstreamEmpty, an
// abnormal finish reason is ErrUpstreamBlocked, parts without an inline
// image is ErrUpstreamNoImage.
type Client interface {
	Generate(ctx context.Context, req *Request) (*Result, error)
}

// NewFromConfig - Vertex AI when a project is configured, Gemini API
// otherwise.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Client, error) {
	if cfg.UseVertex() {
		log.Printf("🚀 Transform backend: Vertex AI (project=%s, location=%s)", cfg.VertexProject, cfg.VertexLocation)
		return NewVertexClient(ctx, cfg)
	}

	log.Printf("🚀 Transform backend: Gemini API (model=%s)", cfg.GeminiModel)
	return NewGeminiClient(ctx, cfg)
}
