package engine

import (
	"encoding/json"
	"fmt"
)

// Context is the typed flow context serialized into the session's JSON
// context column. Auth holds the login result and survives flow entry and
// flow completion; the Pass and Sim pointers are flow-scoped scratch space,
// rebuilt empty when a flow starts and nilled when it completes or is
// cancelled. Keys can therefore never leak from an aborted flow into the
// next one.
type Context struct {
	Auth AuthContext `json:"auth"`
	Pass *PassFlow   `json:"pass,omitempty"`
	Sim  *SimFlow    `json:"sim,omitempty"`
}

// AuthContext carries the whitelisted fields copied from a successful login.
type AuthContext struct {
	AccessToken    string  `json:"access_token,omitempty"`
	RefreshToken   string  `json:"refresh_token,omitempty"`
	TokenExpiresIn int     `json:"token_expires_in,omitempty"`
	SessionType    string  `json:"session_type,omitempty"`
	AgentID        int     `json:"agent_id,omitempty"`
	AgentName      string  `json:"agent_name,omitempty"`
	AgentMatricule string  `json:"agent_matricule,omitempty"`
	AgentAgency    string  `json:"agent_agency,omitempty"`
	AgentPhone     string  `json:"agent_phone,omitempty"`
	AgentPosition  string  `json:"agent_position,omitempty"`
	CommissionRate float64 `json:"commission_rate,omitempty"`
	StatsTotal     int     `json:"stats_total,omitempty"`
	StatsActive    int     `json:"stats_active,omitempty"`
	StatsMonth     int     `json:"stats_month,omitempty"`
}

// LoggedIn reports whether the session holds a usable access token.
func (a AuthContext) LoggedIn() bool {
	return a.AccessToken != ""
}

// PassFlow accumulates the PASS subscription form across collection states.
type PassFlow struct {
	ProductID       int    `json:"product_id,omitempty"`
	ProductName     string `json:"product_name,omitempty"`
	Recurrence      string `json:"recurrence,omitempty"`
	ClientLastName  string `json:"client_last_name,omitempty"`
	ClientFirstName string `json:"client_first_name,omitempty"`
	ClientPhone     string `json:"client_phone,omitempty"`
	ClientBirthdate string `json:"client_birthdate,omitempty"` // ISO yyyy-mm-dd
}

// SimFlow accumulates the simulator form. Field is the collection cursor:
// the name of the field the next inbound message must fill, or
// simFieldConfirmation once the product's ordered list is exhausted.
type SimFlow struct {
	Product string `json:"product"`
	Field   string `json:"field"`

	LastName  string `json:"last_name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	Phone     string `json:"phone,omitempty"`

	Age       int `json:"age"`
	ParentAge int `json:"parent_age"`
	ChildAge  int `json:"child_age"` // 0 is a valid value

	MonthlyPremium float64 `json:"monthly_premium"`
	MonthlyPension float64 `json:"monthly_pension"`
	DeathCapital   float64 `json:"death_capital"`
	AnnualRent     float64 `json:"annual_rent"`

	Years        int `json:"years"`
	CoverYears   int `json:"cover_years"`
	PaymentYears int `json:"payment_years"`
	ServiceYears int `json:"service_years"`
}

// decodeContext parses the stored JSON context. An empty or corrupt value
// yields a fresh context rather than an error that would poison the session.
func decodeContext(raw string) *Context {
	cx := &Context{}
	if raw == "" || raw == "{}" {
		return cx
	}
	if err := json.Unmarshal([]byte(raw), cx); err != nil {
		return &Context{}
	}
	return cx
}

// encode serializes the context for storage.
func (c *Context) encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("engine: encode context: %w", err)
	}
	return string(data), nil
}

// clearFlows drops all flow-scoped scratch space, keeping Auth.
func (c *Context) clearFlows() {
	c.Pass = nil
	c.Sim = nil
}
