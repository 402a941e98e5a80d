package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// handleLogin authenticates an agent from a MATRICULE:PASSWORD message.
// "0" reprints the welcome card with the instructions; anything else
// without a colon is a format error.
func (e *Engine) handleLogin(ctx context.Context, conv *conversation) {
	if conv.choice == "0" {
		conv.text(msgWelcome)
		return
	}
	if !strings.Contains(conv.raw, ":") {
		conv.text(msgLoginFormatHelp)
		return
	}

	matricule, secret, _ := strings.Cut(conv.raw, ":")
	matricule = strings.TrimSpace(matricule)
	secret = strings.TrimSpace(secret)
	if matricule == "" || secret == "" {
		conv.text(msgLoginFormat)
		return
	}

	bctx, cancel := e.backendCtx(ctx)
	defer cancel()
	res, err := e.gateway.Authenticate(bctx, matricule, secret)
	if err != nil {
		var declined *DeclinedError
		if errors.As(err, &declined) {
			conv.text(msgLoginFailed)
			return
		}
		log.Printf("engine: authenticate %s: %v", matricule, err)
		conv.text(msgTechnicalError)
		return
	}

	conv.ctx.Auth = AuthContext{
		AccessToken:    res.AccessToken,
		RefreshToken:   res.RefreshToken,
		TokenExpiresIn: res.ExpiresIn,
		SessionType:    res.SessionType,
		AgentID:        res.Agent.ID,
		AgentName:      res.Agent.FullName,
		AgentMatricule: res.Agent.Matricule,
		AgentAgency:    res.Agent.Agency,
		AgentPhone:     res.Agent.Phone,
		AgentPosition:  res.Agent.Position,
		CommissionRate: res.Agent.CommissionRate,
		StatsTotal:     res.Stats.Total,
		StatsActive:    res.Stats.Active,
		StatsMonth:     res.Stats.ThisMonth,
	}

	e.notify(ctx, Event{
		Title:    "Connexion agent",
		Body:     fmt.Sprintf("%s (%s) connecté", res.Agent.FullName, res.Agent.Matricule),
		Severity: "info",
	})
	e.showMainMenu(conv)
}
