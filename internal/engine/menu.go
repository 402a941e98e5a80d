package engine

import (
	"context"
	"strings"
)

// handleMainMenu routes the three flows, matching the menu number, the
// button ID or a keyword in free text. "0" reprints the menu.
func (e *Engine) handleMainMenu(ctx context.Context, conv *conversation) {
	switch {
	case conv.choice == "1" || conv.choice == "menu_1" || strings.Contains(conv.choice, "souscrire"):
		e.enterPassFlow(conv)
	case conv.choice == "2" || conv.choice == "menu_2" || strings.Contains(conv.choice, "commission"):
		e.enterCommissions(ctx, conv)
	case conv.choice == "3" || conv.choice == "menu_3" ||
		strings.Contains(conv.choice, "simulateur") || strings.Contains(conv.choice, "simulation"):
		e.enterSimulator(conv)
	case conv.choice == "0":
		e.showMainMenu(conv)
	default:
		conv.text(msgInvalidMenuOption)
	}
}

// enterPassFlow starts the subscription flow with a fresh scratch context.
func (e *Engine) enterPassFlow(conv *conversation) {
	conv.ctx.Pass = &PassFlow{}
	conv.setState(StatePassChooseProduct)
	conv.list(msgPassListBody, msgPassListButton, passProductSections())
}

// enterSimulator starts the simulator flow with a fresh scratch context.
func (e *Engine) enterSimulator(conv *conversation) {
	conv.ctx.Sim = &SimFlow{}
	conv.setState(StateSimulatorChoice)
	conv.list(msgSimListBody, msgSimListButton, simProductSections())
}
