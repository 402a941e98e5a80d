package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ndomo/agentline/internal/engine"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Opts{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(Opts{}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
}

func TestAuthenticate(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "tok-1",
			"refresh_token": "ref-1",
			"expires_in":    3600,
			"session_type":  "agent",
			"agent": map[string]any{
				"id":              7,
				"nom_complet":     "Jean Mavoungou",
				"matricule":       "AG-2025-001",
				"agence":          "Brazzaville Centre",
				"taux_commission": 12.5,
			},
			"statistiques": map[string]any{
				"total_souscriptions":   42,
				"souscriptions_actives": 30,
				"souscriptions_mois":    5,
			},
		})
	}))

	res, err := c.Authenticate(context.Background(), "AG-2025-001", "secret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if gotPath != "/api/v1/auth/agent/login/" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["matricule"] != "AG-2025-001" || gotBody["telephone"] != "secret" {
		t.Errorf("request body = %v", gotBody)
	}
	if res.AccessToken != "tok-1" || res.Agent.ID != 7 {
		t.Errorf("result = %+v", res)
	}
	if res.Stats.Total != 42 || res.Stats.ThisMonth != 5 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestAuthenticate_Unauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "identifiants invalides"})
	}))

	_, err := c.Authenticate(context.Background(), "AG-2025-001", "wrong")
	var declined *engine.DeclinedError
	if !errors.As(err, &declined) {
		t.Fatalf("want DeclinedError, got %v", err)
	}
	if declined.Reason != "identifiants invalides" {
		t.Errorf("Reason = %q", declined.Reason)
	}
}

func TestCreateSubscription(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"numero_police":         "POL-1",
			"produit":               "PASS BATELA",
			"montant":               6000,
			"telephone_client":      "+24261234567",
			"reference_transaction": "TXN-9",
		})
	}))

	res, err := c.CreateSubscription(context.Background(), "tok-1", engine.SubscriptionRequest{
		ProductID:       1,
		Recurrence:      "mensuel",
		Operator:        "mtn_money",
		ClientLastName:  "MAKOSSO",
		ClientFirstName: "Jean",
		ClientPhone:     "+24261234567",
		ClientBirthdate: "1990-03-15",
	})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["produit_pass_id"] != float64(1) || gotBody["type_recurrence"] != "mensuel" {
		t.Errorf("body = %v", gotBody)
	}
	client, _ := gotBody["client"].(map[string]any)
	if client["nom"] != "MAKOSSO" || client["date_naissance"] != "1990-03-15" {
		t.Errorf("client payload = %v", client)
	}
	if res.PolicyNumber != "POL-1" || res.Amount != 6000 {
		t.Errorf("result = %+v", res)
	}
}

func TestCreateSubscription_DeclinedWithReason(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Plafond de souscription atteint"})
	}))

	_, err := c.CreateSubscription(context.Background(), "tok-1", engine.SubscriptionRequest{})
	var declined *engine.DeclinedError
	if !errors.As(err, &declined) {
		t.Fatalf("want DeclinedError, got %v", err)
	}
	if declined.Reason != "Plafond de souscription atteint" {
		t.Errorf("Reason = %q", declined.Reason)
	}
}

func TestServerError_IsUnavailable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.AgentStats(context.Background(), "tok-1", 7)
	if !errors.Is(err, engine.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}

func TestNetworkError_IsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c, err := New(Opts{BaseURL: url})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Authenticate(context.Background(), "m", "s")
	if !errors.Is(err, engine.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}

func TestAgentStats_Path(t *testing.T) {
	var gotPath, gotMethod string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		json.NewEncoder(w).Encode(map[string]any{
			"nom_complet":      "Jean Mavoungou",
			"chiffre_affaires": 1500000,
			"ca_par_produit":   map[string]float64{"BATELA": 900000},
		})
	}))

	res, err := c.AgentStats(context.Background(), "tok-1", 7)
	if err != nil {
		t.Fatalf("AgentStats: %v", err)
	}
	if gotPath != "/api/v1/agents/7/stats/" || gotMethod != http.MethodGet {
		t.Errorf("%s %s", gotMethod, gotPath)
	}
	if res.Revenue != 1500000 || res.RevenueByProduct["BATELA"] != 900000 {
		t.Errorf("result = %+v", res)
	}
}

func TestCalculateSimulation_FamilyRouting(t *testing.T) {
	tests := []struct {
		product  string
		wantPath string
	}{
		{"retraite", "/api/v1/simulateur/calculateur/retraite/calculer/"},
		{"pension_securite", "/api/v1/simulateur/calculateur/pensions/calculer/"},
		{"pension_confort", "/api/v1/simulateur/calculateur/pensions/calculer/"},
		{"prevoyance", "/api/v1/simulateur/calculateur/prevoyance/calculer/"},
		{"etudes", "/api/v1/simulateur/calculateur/etudes/calculer/"},
	}
	for _, tt := range tests {
		var gotPath string
		var gotBody map[string]any
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			json.NewDecoder(r.Body).Decode(&gotBody)
			json.NewEncoder(w).Encode(map[string]any{
				"resultats": map[string]any{"prime_totale": 52000},
			})
		}))

		res, err := c.CalculateSimulation(context.Background(), "tok-1", tt.product, map[string]any{"age": 40})
		if err != nil {
			t.Fatalf("CalculateSimulation(%s): %v", tt.product, err)
		}
		if gotPath != tt.wantPath {
			t.Errorf("%s: path = %q, want %q", tt.product, gotPath, tt.wantPath)
		}
		params, _ := gotBody["parametres_simulation"].(map[string]any)
		if params["age"] != float64(40) {
			t.Errorf("%s: params = %v", tt.product, params)
		}
		if res.Results["prime_totale"] != float64(52000) {
			t.Errorf("%s: results = %v", tt.product, res.Results)
		}
	}
}

func TestSaveSimulation(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/simulateur/simulations/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 9, "numero_simulation": "SIM-2025-009"})
	}))

	saved, err := c.SaveSimulation(context.Background(), "tok-1", engine.SimulationSave{Product: "retraite"})
	if err != nil {
		t.Fatalf("SaveSimulation: %v", err)
	}
	if saved.ID != 9 || saved.Number != "SIM-2025-009" {
		t.Errorf("saved = %+v", saved)
	}
}
