package engine

import (
	"context"
	"log"
)

// enterCommissions fetches fresh commission stats and shows them. A fetch
// failure keeps the session at the main menu.
func (e *Engine) enterCommissions(ctx context.Context, conv *conversation) {
	stats, ok := e.fetchCommissions(ctx, conv)
	if !ok {
		return
	}
	conv.setState(StateCommissionsMenu)
	conv.text(promptCommissions(stats))
}

// handleCommissionsMenu goes back on "0"; any other input re-fetches and
// redisplays the summary.
func (e *Engine) handleCommissionsMenu(ctx context.Context, conv *conversation) {
	if conv.choice == "0" {
		e.showMainMenu(conv)
		return
	}
	stats, ok := e.fetchCommissions(ctx, conv)
	if !ok {
		return
	}
	conv.text(promptCommissions(stats))
}

// fetchCommissions calls the backend and reports the error to the user on
// failure. The session state is left unchanged so the user can retry.
func (e *Engine) fetchCommissions(ctx context.Context, conv *conversation) (*CommissionStats, bool) {
	bctx, cancel := e.backendCtx(ctx)
	defer cancel()
	stats, err := e.gateway.AgentStats(bctx, conv.ctx.Auth.AccessToken, conv.ctx.Auth.AgentID)
	if err != nil {
		log.Printf("engine: agent stats for %d: %v", conv.ctx.Auth.AgentID, err)
		conv.text(msgTechnicalError)
		return nil, false
	}
	return stats, true
}
