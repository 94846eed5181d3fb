package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
)

func TestResultFromResponse_NoCandidates(t *testing.T) {
	_, err := resultFromResponse(&genai.GenerateContentResponse{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUpstreamEmpty))

	_, err = resultFromResponse(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUpstreamEmpty))
}

func TestResultFromResponse_BlockedFinishReason(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{FinishReason: genai.FinishReasonSafety},
		},
	}

	_, err := resultFromResponse(resp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUpstreamBlocked))
	assert.Contains(t, err.Error(), "SAFETY", "the finish reason must survive into the message")
}

func TestResultFromResponse_NoParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{FinishReason: genai.FinishReasonStop, Content: &genai.Content{}},
		},
	}

	_, err := resultFromResponse(resp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUpstreamEmpty))
}

func TestResultFromResponse_TextOnlyParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				FinishReason: genai.FinishReasonStop,
				Content: &genai.Content{
					Parts: []*genai.Part{
						{Text: "I cannot edit this image."},
					},
				},
			},
		},
	}

	_, err := resultFromResponse(resp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUpstreamNoImage))
}

func TestResultFromResponse_InlineImage(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				FinishReason: genai.FinishReasonStop,
				Content: &genai.Content{
					Parts: []*genai.Part{
						{Text: "here is the localized creative"},
						{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
					},
				},
			},
		},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     11,
			CandidatesTokenCount: 22,
			TotalTokenCount:      33,
		},
	}

	result, err := resultFromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, result.Data)
	assert.Equal(t, "image/png", result.MIMEType)
	assert.Equal(t, 11, result.Usage.PromptTokens)
	assert.Equal(t, 22, result.Usage.CandidateTokens)
	assert.Equal(t, 33, result.Usage.TotalTokens)
}

func TestResultFromResponse_MissingUsageDefaultsToZero(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{
						{InlineData: &genai.Blob{Data: []byte{9}}},
					},
				},
			},
		},
	}

	result, err := resultFromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Usage.TotalTokens)
	assert.Equal(t, "image/png", result.MIMEType, "missing MIME falls back to PNG")
}
