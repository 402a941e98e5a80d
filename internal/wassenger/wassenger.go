// Package wassenger sends WhatsApp messages through the Wassenger REST API.
package wassenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ndomo/agentline/internal/engine"
)

// maxButtons is the WhatsApp interactive-message limit.
const maxButtons = 3

// Opts configures a Sender.
type Opts struct {
	APIURL   string
	APIKey   string
	DeviceID string
	Timeout  time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Sender is the Wassenger implementation of engine.Messenger.
type Sender struct {
	apiURL   string
	apiKey   string
	deviceID string
	http     *http.Client
}

var _ engine.Messenger = (*Sender)(nil)

func New(opts Opts) (*Sender, error) {
	if opts.APIURL == "" {
		return nil, errors.New("wassenger: API URL is required")
	}
	if opts.APIKey == "" {
		return nil, errors.New("wassenger: API key is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Sender{
		apiURL:   opts.APIURL,
		apiKey:   opts.APIKey,
		deviceID: opts.DeviceID,
		http:     httpClient,
	}, nil
}

type buttonPayload struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

type rowPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type sectionPayload struct {
	Title string       `json:"title"`
	Rows  []rowPayload `json:"rows"`
}

type listPayload struct {
	Button   string           `json:"button"`
	Sections []sectionPayload `json:"sections"`
}

type messagePayload struct {
	Phone   string          `json:"phone"`
	Message string          `json:"message"`
	Device  string          `json:"device,omitempty"`
	Buttons []buttonPayload `json:"buttons,omitempty"`
	List    *listPayload    `json:"list,omitempty"`
}

func (s *Sender) SendText(ctx context.Context, phone, text string) error {
	return s.send(ctx, messagePayload{Phone: phone, Message: text})
}

func (s *Sender) SendButtons(ctx context.Context, phone, text string, buttons []engine.Button) error {
	if len(buttons) > maxButtons {
		buttons = buttons[:maxButtons]
	}
	payload := messagePayload{Phone: phone, Message: text}
	for _, b := range buttons {
		payload.Buttons = append(payload.Buttons, buttonPayload{ID: b.ID, Text: b.Title})
	}
	return s.send(ctx, payload)
}

func (s *Sender) SendList(ctx context.Context, phone, text, buttonLabel string, sections []engine.ListSection) error {
	list := &listPayload{Button: buttonLabel}
	for _, sec := range sections {
		ps := sectionPayload{Title: sec.Title}
		for _, row := range sec.Rows {
			ps.Rows = append(ps.Rows, rowPayload{ID: row.ID, Title: row.Title, Description: row.Description})
		}
		list.Sections = append(list.Sections, ps)
	}
	return s.send(ctx, messagePayload{Phone: phone, Message: text, List: list})
}

func (s *Sender) send(ctx context.Context, payload messagePayload) error {
	payload.Device = s.deviceID
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("wassenger: marshal message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("wassenger: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("wassenger: send to %s: %w", payload.Phone, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("wassenger: send to %s: status %d: %s", payload.Phone, resp.StatusCode, detail)
	}
	return nil
}
