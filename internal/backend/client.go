// Package backend implements the insurance core API client. It translates
// the engine's gateway calls into REST requests and classifies failures:
// refusals become *engine.DeclinedError, everything transport-shaped
// becomes engine.ErrUnavailable.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ndomo/agentline/internal/engine"
)

// Opts configures a Client.
type Opts struct {
	BaseURL string
	Timeout time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client is the HTTP implementation of engine.Gateway.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ engine.Gateway = (*Client)(nil)

func New(opts Opts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("backend: base URL is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
	}, nil
}

type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	SessionType  string `json:"session_type"`
	Agent        struct {
		ID             int     `json:"id"`
		FullName       string  `json:"nom_complet"`
		Matricule      string  `json:"matricule"`
		Agency         string  `json:"agence"`
		Phone          string  `json:"telephone"`
		Position       string  `json:"fonction"`
		CommissionRate float64 `json:"taux_commission"`
	} `json:"agent"`
	Stats struct {
		Total     int `json:"total_souscriptions"`
		Active    int `json:"souscriptions_actives"`
		ThisMonth int `json:"souscriptions_mois"`
	} `json:"statistiques"`
}

func (c *Client) Authenticate(ctx context.Context, matricule, secret string) (*engine.AuthResult, error) {
	// The auth endpoint reuses the customer login's field name for the
	// password slot.
	payload := map[string]string{
		"matricule": matricule,
		"telephone": secret,
	}
	var res authResponse
	if err := c.post(ctx, "/api/v1/auth/agent/login/", "", payload, &res); err != nil {
		return nil, err
	}
	return &engine.AuthResult{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    res.ExpiresIn,
		SessionType:  res.SessionType,
		Agent: engine.AgentProfile{
			ID:             res.Agent.ID,
			FullName:       res.Agent.FullName,
			Matricule:      res.Agent.Matricule,
			Agency:         res.Agent.Agency,
			Phone:          res.Agent.Phone,
			Position:       res.Agent.Position,
			CommissionRate: res.Agent.CommissionRate,
		},
		Stats: engine.AgentStats{
			Total:     res.Stats.Total,
			Active:    res.Stats.Active,
			ThisMonth: res.Stats.ThisMonth,
		},
	}, nil
}

type subscriptionResponse struct {
	PolicyNumber   string  `json:"numero_police"`
	ProductLabel   string  `json:"produit"`
	Amount         float64 `json:"montant"`
	ClientPhone    string  `json:"telephone_client"`
	TransactionRef string  `json:"reference_transaction"`
}

func (c *Client) CreateSubscription(ctx context.Context, token string, req engine.SubscriptionRequest) (*engine.SubscriptionResult, error) {
	payload := map[string]any{
		"produit_pass_id": req.ProductID,
		"type_recurrence": req.Recurrence,
		"operateur":       req.Operator,
		"client": map[string]string{
			"nom":            req.ClientLastName,
			"prenom":         req.ClientFirstName,
			"telephone":      req.ClientPhone,
			"date_naissance": req.ClientBirthdate,
		},
	}
	var res subscriptionResponse
	if err := c.post(ctx, "/api/v1/paiements/nouvelle-souscription/", token, payload, &res); err != nil {
		return nil, err
	}
	return &engine.SubscriptionResult{
		PolicyNumber:   res.PolicyNumber,
		ProductLabel:   res.ProductLabel,
		Amount:         res.Amount,
		ClientPhone:    res.ClientPhone,
		TransactionRef: res.TransactionRef,
	}, nil
}

type statsResponse struct {
	FullName          string             `json:"nom_complet"`
	Matricule         string             `json:"matricule"`
	Agency            string             `json:"agence"`
	Subscriptions     int                `json:"total_souscriptions"`
	ActiveCount       int                `json:"souscriptions_actives"`
	MonthCount        int                `json:"souscriptions_mois"`
	Revenue           float64            `json:"chiffre_affaires"`
	RevenueByProduct  map[string]float64 `json:"ca_par_produit"`
	CommissionRate    float64            `json:"taux_commission"`
	CommissionBalance float64            `json:"solde_commission"`
}

func (c *Client) AgentStats(ctx context.Context, token string, agentID int) (*engine.CommissionStats, error) {
	var res statsResponse
	if err := c.get(ctx, fmt.Sprintf("/api/v1/agents/%d/stats/", agentID), token, &res); err != nil {
		return nil, err
	}
	return &engine.CommissionStats{
		FullName:          res.FullName,
		Matricule:         res.Matricule,
		Agency:            res.Agency,
		Subscriptions:     res.Subscriptions,
		ActiveCount:       res.ActiveCount,
		MonthCount:        res.MonthCount,
		Revenue:           res.Revenue,
		RevenueByProduct:  res.RevenueByProduct,
		CommissionRate:    res.CommissionRate,
		CommissionBalance: res.CommissionBalance,
	}, nil
}

// calculatorFamily maps product codes to calculator endpoint segments. The
// three pension variants share one calculator.
func calculatorFamily(product string) string {
	if strings.HasPrefix(product, "pension_") {
		return "pensions"
	}
	return product
}

func (c *Client) CalculateSimulation(ctx context.Context, token, product string, params map[string]any) (*engine.SimulationResult, error) {
	payload := map[string]any{"parametres_simulation": params}
	var res struct {
		Results map[string]any `json:"resultats"`
	}
	path := fmt.Sprintf("/api/v1/simulateur/calculateur/%s/calculer/", calculatorFamily(product))
	if err := c.post(ctx, path, token, payload, &res); err != nil {
		return nil, err
	}
	return &engine.SimulationResult{Results: res.Results}, nil
}

func (c *Client) SaveSimulation(ctx context.Context, token string, save engine.SimulationSave) (*engine.SavedSimulation, error) {
	payload := map[string]any{
		"produit":       save.Product,
		"nom_client":    save.ClientLastName,
		"prenom_client": save.ClientFirstName,
		"telephone":     save.ClientPhone,
		"parametres":    save.Parameters,
		"resultats":     save.Results,
	}
	var res struct {
		ID     int    `json:"id"`
		Number string `json:"numero_simulation"`
	}
	if err := c.post(ctx, "/api/v1/simulateur/simulations/", token, payload, &res); err != nil {
		return nil, err
	}
	return &engine.SavedSimulation{ID: res.ID, Number: res.Number}, nil
}

func (c *Client) post(ctx context.Context, path, token string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("backend: marshal %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("backend: build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, token, out)
}

func (c *Client) get(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("backend: build request %s: %w", path, err)
	}
	return c.do(req, token, out)
}

func (c *Client) do(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", engine.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", engine.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized:
		return &engine.DeclinedError{Reason: declineReason(data, "session expirée ou identifiants invalides")}
	case resp.StatusCode >= 400:
		return &engine.DeclinedError{Reason: declineReason(data, fmt.Sprintf("requête refusée (code %d)", resp.StatusCode))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", engine.ErrUnavailable, err)
	}
	return nil
}

// declineReason pulls a human-readable reason from an error body, trying
// the field names the backend actually uses.
func declineReason(data []byte, fallback string) string {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return fallback
	}
	for _, key := range []string{"error", "detail", "message"} {
		if v, ok := body[key].(string); ok && v != "" {
			return v
		}
	}
	return fallback
}
