package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// simFlow returns the simulator scratch space, reissuing the main menu if
// it is missing.
func (e *Engine) simFlow(conv *conversation) *SimFlow {
	if conv.ctx.Sim == nil {
		conv.ctx.clearFlows()
		e.showMainMenu(conv)
		return nil
	}
	return conv.ctx.Sim
}

func (e *Engine) handleSimulatorChoice(conv *conversation) {
	flow := e.simFlow(conv)
	if flow == nil {
		return
	}
	if conv.choice == "0" {
		conv.ctx.clearFlows()
		e.showMainMenu(conv)
		return
	}
	code, ok := simProductChoices[conv.choice]
	if !ok {
		conv.text(msgInvalidMenuOption)
		return
	}
	product := simProducts[code]
	flow.Product = code
	flow.Field = product.Fields[0].Name
	conv.setState(StateSimulatorCollect)
	conv.text(fmt.Sprintf("🧮 %s\n\n%s", product.Title, product.Fields[0].Prompt))
}

// handleSimulatorCollect walks the product's ordered field list, one field
// per message, then asks for confirmation before calculating.
func (e *Engine) handleSimulatorCollect(ctx context.Context, conv *conversation) {
	flow := e.simFlow(conv)
	if flow == nil {
		return
	}
	product, ok := simProducts[flow.Product]
	if !ok {
		conv.ctx.clearFlows()
		e.showMainMenu(conv)
		return
	}

	if flow.Field == simFieldConfirmation {
		e.handleSimConfirm(ctx, conv, product, flow)
		return
	}

	idx := product.fieldIndex(flow.Field)
	if idx < 0 {
		conv.ctx.clearFlows()
		e.showMainMenu(conv)
		return
	}
	field := product.Fields[idx]

	if conv.choice == "0" {
		if idx == 0 {
			conv.setState(StateSimulatorChoice)
			conv.list(msgSimListBody, msgSimListButton, simProductSections())
			return
		}
		flow.Field = product.Fields[idx-1].Name
		conv.text(product.Fields[idx-1].Prompt)
		return
	}

	switch field.Kind {
	case fieldText:
		if conv.raw == "" {
			conv.text(field.Prompt)
			return
		}
		value := conv.raw
		switch field.Name {
		case "nom":
			value = strings.ToUpper(value)
		case "prenom":
			value = capitalize(value)
		case "telephone":
			value = NormalizePhone(value)
		}
		flow.setValue(field, value, 0)
	case fieldInt:
		n, err := ParseBoundedInt(conv.raw, field.Min, field.Max)
		if err != nil {
			if errors.Is(err, ErrOutOfRange) {
				conv.text(msgIntBounds(field))
			} else {
				conv.text(msgInvalidAmount)
			}
			return
		}
		flow.setValue(field, "", float64(n))
	case fieldMoney:
		v, err := ParseMoney(conv.raw)
		if err != nil || v <= 0 {
			conv.text(msgInvalidAmount)
			return
		}
		flow.setValue(field, "", v)
	}

	ack := fmt.Sprintf("✅ %s : %s", field.Label, flow.ackValue(field))
	if idx+1 < len(product.Fields) {
		flow.Field = product.Fields[idx+1].Name
		conv.text(fmt.Sprintf("%s\n\n%s", ack, product.Fields[idx+1].Prompt))
		return
	}
	flow.Field = simFieldConfirmation
	conv.text(fmt.Sprintf("%s\n\n%s", ack, promptSimConfirm(product, flow)))
}

func (e *Engine) handleSimConfirm(ctx context.Context, conv *conversation, product simProduct, flow *SimFlow) {
	switch conv.choice {
	case "0", "n", "non":
		conv.text(msgSimCancelled)
		conv.ctx.clearFlows()
		e.showMainMenu(conv)
		return
	case "o", "oui":
	default:
		conv.text(msgYesNoOnly)
		return
	}

	params := simulationParams(product, flow)
	bctx, cancel := e.backendCtx(ctx)
	defer cancel()
	res, err := e.gateway.CalculateSimulation(bctx, conv.ctx.Auth.AccessToken, product.Code, params)
	if err != nil {
		var declined *DeclinedError
		if errors.As(err, &declined) {
			conv.text(msgPassDeclined(declined.Reason))
		} else {
			log.Printf("engine: calculate %s: %v", product.Code, err)
			conv.text(msgTechnicalError)
		}
		conv.ctx.clearFlows()
		e.showMainMenu(conv)
		return
	}

	// Persisting the simulation is best-effort: a failure must not cost
	// the agent the result they just computed.
	number := "N/A"
	saveCtx, saveCancel := e.backendCtx(ctx)
	defer saveCancel()
	saved, err := e.gateway.SaveSimulation(saveCtx, conv.ctx.Auth.AccessToken, SimulationSave{
		Product:         product.Code,
		ClientLastName:  flow.LastName,
		ClientFirstName: flow.FirstName,
		ClientPhone:     flow.Phone,
		Parameters:      params,
		Results:         res.Results,
	})
	if err != nil {
		log.Printf("engine: save simulation %s: %v", product.Code, err)
	} else {
		number = saved.Number
	}

	conv.text(simulationResultText(product, res.Results, number))
	conv.ctx.clearFlows()
	e.showMainMenu(conv)
}

// simulationParams builds the calculator payload for a product.
func simulationParams(product simProduct, flow *SimFlow) map[string]any {
	switch product.Code {
	case "retraite":
		return map[string]any{
			"prime_periodique_commerciale": flow.MonthlyPremium,
			"capital_deces":                flow.DeathCapital,
			"duree":                        flow.Years,
			"age":                          flow.Age,
			"periodicite":                  "Mensuelle",
		}
	case "prevoyance":
		return map[string]any{
			"age":           flow.Age,
			"capital_deces": flow.DeathCapital,
			"duree":         flow.CoverYears,
		}
	case "etudes":
		return map[string]any{
			"age_parent":     flow.ParentAge,
			"age_enfant":     flow.ChildAge,
			"montant_rente":  flow.AnnualRent,
			"duree_paiement": flow.PaymentYears,
			"duree_service":  flow.ServiceYears,
		}
	default:
		return map[string]any{
			"type_pension":            strings.TrimPrefix(product.Code, "pension_"),
			"age":                     flow.Age,
			"montant_mensuel_pension": flow.MonthlyPension,
			"duree_couverture":        flow.CoverYears,
			"periodicite":             "Mensuelle",
		}
	}
}
