// ABOUTME: Gemini-backed classification gateway using the Google GenAI SDK
// ABOUTME: Requests JSON output constrained by a response schema per request kind
package classify

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiGateway classifies through the Gemini API.
type GeminiGateway struct {
	client *genai.Client
	model  string
}

// NewGeminiGateway creates a Gemini gateway. An empty model uses DefaultGeminiModel.
func NewGeminiGateway(ctx context.Context, apiKey, model string) (*GeminiGateway, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiGateway{client: client, model: model}, nil
}

func (g *GeminiGateway) Classify(ctx context.Context, req Request) ([]byte, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResponseSchema(req.Kind),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(Prompt(req)), config)
	if err != nil {
		return nil, AsFailure(fmt.Errorf("gemini generate: %w", err))
	}

	text := trimFence(resp.Text())
	if text == "" {
		return nil, schemaFailure("received empty response from Gemini")
	}
	return []byte(text), nil
}

func ptr[T any](v T) *T { return &v }

func yesNo() *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Enum: []string{"yes", "no"}}
}

// ResponseSchema describes the JSON shape Gemini must produce for kind.
func ResponseSchema(kind Kind) *genai.Schema {
	if kind == KindDealHealth {
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"health_score": {
					Type:    genai.TypeInteger,
					Minimum: ptr(0.0),
					Maximum: ptr(100.0),
				},
			},
			Required: []string{"health_score"},
		}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":               {Type: genai.TypeString},
			"potential_score":    {Type: genai.TypeString, Enum: []string{"high", "medium", "low"}},
			"suggested_status":   {Type: genai.TypeString, Enum: []string{"in_progress", "done"}},
			"suggested_category": {Type: genai.TypeString},
			"auto_reply":         {Type: genai.TypeString},
			"human_required":     {Type: genai.TypeBoolean},
			"google_action": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"calendar_event":     yesNo(),
					"sheet_log":          yesNo(),
					"create_doc_summary": yesNo(),
					"share_drive_folder": yesNo(),
					"notes":              {Type: genai.TypeString},
				},
				Required: []string{"calendar_event", "sheet_log", "create_doc_summary", "share_drive_folder", "notes"},
			},
		},
		Required: []string{"name", "potential_score", "suggested_status", "suggested_category", "auto_reply", "human_required", "google_action"},
	}
}

// trimFence strips a markdown code fence some models wrap around JSON.
func trimFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
