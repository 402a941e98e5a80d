package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// passFlow returns the flow scratch space, reissuing the main menu if it is
// missing (corrupt context or direct state edit).
func (e *Engine) passFlow(conv *conversation) *PassFlow {
	if conv.ctx.Pass == nil {
		conv.ctx.clearFlows()
		e.showMainMenu(conv)
		return nil
	}
	return conv.ctx.Pass
}

func (e *Engine) handlePassChooseProduct(conv *conversation) {
	flow := e.passFlow(conv)
	if flow == nil {
		return
	}
	if conv.choice == "0" {
		conv.ctx.clearFlows()
		e.showMainMenu(conv)
		return
	}
	product, ok := passProducts[conv.choice]
	if !ok {
		conv.text(msgInvalidMenuOption)
		return
	}
	flow.ProductID = product.ID
	flow.ProductName = product.Name
	conv.setState(StatePassChooseRecurrence)
	conv.text(promptRecurrence(product.Name))
}

func (e *Engine) handlePassChooseRecurrence(conv *conversation) {
	flow := e.passFlow(conv)
	if flow == nil {
		return
	}
	if conv.choice == "0" {
		conv.setState(StatePassChooseProduct)
		conv.list(msgPassListBody, msgPassListButton, passProductSections())
		return
	}
	rec, ok := recurrences[conv.choice]
	if !ok {
		conv.text(msgInvalidMenuOption)
		return
	}
	flow.Recurrence = rec
	conv.setState(StatePassCollectLastName)
	conv.text(msgPassLastName)
}

func (e *Engine) handlePassCollectLastName(conv *conversation) {
	flow := e.passFlow(conv)
	if flow == nil {
		return
	}
	if conv.choice == "0" {
		conv.setState(StatePassChooseRecurrence)
		conv.text(promptRecurrence(flow.ProductName))
		return
	}
	if conv.raw == "" {
		conv.text(msgPassLastName)
		return
	}
	flow.ClientLastName = strings.ToUpper(conv.raw)
	conv.setState(StatePassCollectFirstName)
	conv.text(fmt.Sprintf("✅ Nom : %s\n\n%s", flow.ClientLastName, msgPassFirstName))
}

func (e *Engine) handlePassCollectFirstName(conv *conversation) {
	flow := e.passFlow(conv)
	if flow == nil {
		return
	}
	if conv.choice == "0" {
		conv.setState(StatePassCollectLastName)
		conv.text(msgPassLastName)
		return
	}
	if conv.raw == "" {
		conv.text(msgPassFirstName)
		return
	}
	flow.ClientFirstName = capitalize(conv.raw)
	conv.setState(StatePassCollectPhone)
	conv.text(fmt.Sprintf("✅ Prénom : %s\n\n%s", flow.ClientFirstName, msgPassPhone))
}

func (e *Engine) handlePassCollectPhone(conv *conversation) {
	flow := e.passFlow(conv)
	if flow == nil {
		return
	}
	if conv.choice == "0" {
		conv.setState(StatePassCollectFirstName)
		conv.text(msgPassFirstName)
		return
	}
	if conv.raw == "" {
		conv.text(msgPassPhone)
		return
	}
	flow.ClientPhone = NormalizePhone(conv.raw)
	conv.setState(StatePassCollectBirthdate)
	conv.text(fmt.Sprintf("✅ Téléphone : %s\n\n%s", flow.ClientPhone, msgPassBirthdate))
}

func (e *Engine) handlePassCollectBirthdate(conv *conversation) {
	flow := e.passFlow(conv)
	if flow == nil {
		return
	}
	if conv.choice == "0" {
		conv.setState(StatePassCollectPhone)
		conv.text(msgPassPhone)
		return
	}
	iso, err := ParseBirthdate(conv.raw)
	if err != nil {
		conv.text(msgInvalidDate)
		return
	}
	flow.ClientBirthdate = iso
	conv.setState(StatePassConfirm)
	conv.text(promptPassConfirm(flow))
}

func (e *Engine) handlePassConfirm(ctx context.Context, conv *conversation) {
	flow := e.passFlow(conv)
	if flow == nil {
		return
	}
	switch conv.choice {
	case "0", "n", "non":
		conv.text(msgPassCancelled)
		conv.ctx.clearFlows()
		e.showMainMenu(conv)
		return
	case "o", "oui":
	default:
		conv.text(msgYesNoOnly)
		return
	}

	bctx, cancel := e.backendCtx(ctx)
	defer cancel()
	res, err := e.gateway.CreateSubscription(bctx, conv.ctx.Auth.AccessToken, SubscriptionRequest{
		ProductID:       flow.ProductID,
		Recurrence:      flow.Recurrence,
		Operator:        "mtn_money",
		ClientLastName:  flow.ClientLastName,
		ClientFirstName: flow.ClientFirstName,
		ClientPhone:     flow.ClientPhone,
		ClientBirthdate: flow.ClientBirthdate,
	})
	if err != nil {
		var declined *DeclinedError
		if errors.As(err, &declined) {
			conv.text(msgPassDeclined(declined.Reason))
		} else {
			log.Printf("engine: create subscription: %v", err)
			conv.text(msgTechnicalError)
			e.notify(ctx, Event{
				Title:    "Backend indisponible",
				Body:     "Échec création souscription (erreur technique)",
				Severity: "error",
			})
		}
		conv.ctx.clearFlows()
		e.showMainMenu(conv)
		return
	}

	conv.text(msgPassSuccess(res))
	e.notify(ctx, Event{
		Title: "Nouvelle souscription",
		Body: fmt.Sprintf("PASS %s (%s) par %s, police %s",
			flow.ProductName, flow.Recurrence, conv.ctx.Auth.AgentName, res.PolicyNumber),
		Severity: "success",
	})
	conv.ctx.clearFlows()
	e.showMainMenu(conv)
}
