package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cropplanner/internal/config"
	"cropplanner/internal/model"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiModelRole is the role Gemini uses for its own turns
const geminiModelRole = "model"

var errNoContent = errors.New("no content generated")

// Generator produces text from a generative model
type Generator interface {
	Chat(ctx context.Context, history []model.ChatMessage, message string) (string, error)
	DescribeImage(ctx context.Context, prompt, format string, image []byte) (string, error)
}

// GeminiClient talks to the Gemini API
type GeminiClient struct {
	client  *genai.Client
	chat    *genai.GenerativeModel
	vision  *genai.GenerativeModel
	timeout time.Duration
}

// NewGeminiClient creates a client for the configured chat and vision models
func NewGeminiClient(ctx context.Context, cfg *config.GeminiConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	chat := client.GenerativeModel(cfg.ChatModel)
	chat.SetTemperature(float32(cfg.ChatTemperature))
	chat.SetTopP(float32(cfg.ChatTopP))
	chat.SetMaxOutputTokens(int32(cfg.ChatMaxTokens))
	chat.SystemInstruction = genai.NewUserContent(genai.Text(
		"You are a farming assistant. Give practical, concise advice about crops, soil, fertilizers, pests and weather."))

	vision := client.GenerativeModel(cfg.VisionModel)
	vision.SetTemperature(0.2)
	vision.ResponseMIMEType = "application/json"

	return &GeminiClient{
		client:  client,
		chat:    chat,
		vision:  vision,
		timeout: time.Duration(cfg.Timeout) * time.Second,
	}, nil
}

// Close releases the underlying connection
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// Chat continues a conversation seeded with history
func (g *GeminiClient) Chat(ctx context.Context, history []model.ChatMessage, message string) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	cs := g.chat.StartChat()
	cs.History = chatHistory(history)

	// Gemini rejects two user turns in a row; fold a trailing question into
	// the new message
	parts := []genai.Part{genai.Text(message)}
	if n := len(cs.History); n > 0 && cs.History[n-1].Role == model.RoleUser {
		parts = append(cs.History[n-1].Parts, parts...)
		cs.History = cs.History[:n-1]
	}

	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return responseText(resp)
}

// chatHistory converts stored turns to Gemini contents, merging adjacent
// turns from the same role and skipping empty ones
func chatHistory(history []model.ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := model.RoleUser
		if m.Role == model.RoleAssistant {
			role = geminiModelRole
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, genai.Text(m.Content))
			continue
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return out
}

// DescribeImage sends an image with a prompt; format is "png" or "jpeg"
func (g *GeminiClient) DescribeImage(ctx context.Context, prompt, format string, image []byte) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.vision.GenerateContent(ctx, genai.ImageData(format, image), genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return responseText(resp)
}

func (g *GeminiClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errNoContent
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", errNoContent
	}
	return strings.TrimSpace(b.String()), nil
}
