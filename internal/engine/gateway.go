package engine

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable reports that the backend could not be reached or answered
// with a server error. Timeouts are classified the same way.
var ErrUnavailable = errors.New("backend unavailable")

// DeclinedError reports that the backend understood the request and refused
// it. The reason is surfaced verbatim to the user where the flow allows it.
type DeclinedError struct {
	Reason string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("backend declined: %s", e.Reason)
}

// AgentProfile is the subset of the backend agent record the bot displays.
type AgentProfile struct {
	ID             int
	FullName       string
	Matricule      string
	Agency         string
	Phone          string
	Position       string
	CommissionRate float64
}

// AgentStats is the subscription summary returned at login.
type AgentStats struct {
	Total     int
	Active    int
	ThisMonth int
}

// AuthResult is a successful login response.
type AuthResult struct {
	AccessToken    string
	RefreshToken   string
	ExpiresIn      int
	SessionType    string
	Agent          AgentProfile
	Stats          AgentStats
}

// SubscriptionRequest carries the accumulated PASS form to the backend.
type SubscriptionRequest struct {
	ProductID       int
	Recurrence      string
	Operator        string
	ClientLastName  string
	ClientFirstName string
	ClientPhone     string
	ClientBirthdate string
}

// SubscriptionResult is a successful subscription creation.
type SubscriptionResult struct {
	PolicyNumber   string
	ProductLabel   string
	Amount         float64
	ClientPhone    string
	TransactionRef string
}

// CommissionStats is the commission summary for an agent.
type CommissionStats struct {
	FullName          string
	Matricule         string
	Agency            string
	Subscriptions     int
	ActiveCount       int
	MonthCount        int
	Revenue           float64
	RevenueByProduct  map[string]float64
	CommissionRate    float64
	CommissionBalance float64
}

// SimulationResult holds the calculator's result set. Keys vary per product.
type SimulationResult struct {
	Results map[string]any
}

// SimulationSave is the payload persisted after a successful calculation.
type SimulationSave struct {
	Product         string
	ClientLastName  string
	ClientFirstName string
	ClientPhone     string
	Parameters      map[string]any
	Results         map[string]any
}

// SavedSimulation identifies a persisted simulation.
type SavedSimulation struct {
	ID     int
	Number string
}

// Gateway is the backend business API the engine depends on. Implementations
// classify failures: a *DeclinedError for refusals carrying a reason, and
// ErrUnavailable for network errors, timeouts and server errors.
type Gateway interface {
	Authenticate(ctx context.Context, matricule, secret string) (*AuthResult, error)
	CreateSubscription(ctx context.Context, token string, req SubscriptionRequest) (*SubscriptionResult, error)
	AgentStats(ctx context.Context, token string, agentID int) (*CommissionStats, error)
	CalculateSimulation(ctx context.Context, token, product string, params map[string]any) (*SimulationResult, error)
	SaveSimulation(ctx context.Context, token string, save SimulationSave) (*SavedSimulation, error)
}
