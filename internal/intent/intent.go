// Package intent classifies free-text messages into bot intents so agents
// can type "je veux souscrire un pass" instead of navigating the menu.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ndomo/agentline/internal/engine"
)

const systemPrompt = `Tu classifies des messages d'agents d'assurance envoyés à un chatbot WhatsApp.
Réponds UNIQUEMENT avec un objet JSON de la forme {"intent": "...", "confidence": 0.0}.
Intents possibles :
- SUBSCRIBE_PASS : l'agent veut souscrire un produit PASS pour un client
- CHECK_COMMISSIONS : l'agent veut consulter ses commissions ou statistiques
- RUN_SIMULATION : l'agent veut simuler un produit d'assurance
- NONE : aucun des intents ci-dessus
confidence est ta certitude entre 0 et 1.`

// messagesAPI abstracts the Anthropic messages endpoint, enabling test mocks.
type messagesAPI interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Classifier asks Claude to map free text onto the bot's three flows.
type Classifier struct {
	messages messagesAPI
	model    string
}

var _ engine.Classifier = (*Classifier)(nil)

// Opts holds parameters for creating a Classifier.
type Opts struct {
	APIKey string
	Model  string
	// For testing: inject a mock messages API instead of the real client.
	Messages messagesAPI
}

func New(opts Opts) (*Classifier, error) {
	if opts.Messages == nil && opts.APIKey == "" {
		return nil, errors.New("intent: API key is required")
	}
	if opts.Model == "" {
		return nil, errors.New("intent: model is required")
	}
	c := &Classifier{messages: opts.Messages, model: opts.Model}
	if c.messages == nil {
		client := anthropic.NewClient(option.WithAPIKey(opts.APIKey))
		c.messages = &client.Messages
	}
	return c, nil
}

type classification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Classify returns the detected intent, or nil when the model answers NONE
// or with something unparseable.
func (c *Classifier) Classify(ctx context.Context, text string) (*engine.Intent, error) {
	resp, err := c.messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 64,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("intent: classify: %w", err)
	}

	var raw strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			raw.WriteString(block.Text)
		}
	}

	parsed, err := parseClassification(raw.String())
	if err != nil {
		return nil, err
	}
	if parsed.Intent == "" || parsed.Intent == "NONE" {
		return nil, nil
	}
	return &engine.Intent{Name: parsed.Intent, Confidence: parsed.Confidence}, nil
}

// parseClassification extracts the JSON object from the model's reply,
// tolerating surrounding prose or code fences.
func parseClassification(raw string) (*classification, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("intent: no JSON object in reply %q", raw)
	}
	var parsed classification
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("intent: decode reply: %w", err)
	}
	return &parsed, nil
}
