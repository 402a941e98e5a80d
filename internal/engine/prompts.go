package engine

import "fmt"

const (
	msgWelcome = "🏦 NSIA VIE ASSURANCES\n" +
		"Chatbot Commercial WhatsApp\n\n" +
		"📱 Pour vous connecter :\n" +
		"MATRICULE:MOTDEPASSE\n\n" +
		"Exemple:\n" +
		"AG-2025-001:monmotdepasse"

	msgLoginFormatHelp = "❌ Format incorrect.\n\n" +
		"Utilisez : MATRICULE:MOTDEPASSE\n" +
		"Exemple : AG-2025-001:monmotdepasse\n\n" +
		"0 - Aide"

	msgLoginFormat = "❌ Format incorrect.\n\n" +
		"Envoyez vos identifiants sous la forme :\n" +
		"MATRICULE:MOTDEPASSE"

	msgLoginFailed = "❌ Identifiants invalides.\n\n" +
		"Vérifiez votre matricule et votre mot de passe puis réessayez."

	msgTechnicalError = "⚠️ Erreur technique. Veuillez réessayer dans quelques instants."

	msgInvalidMenuOption = "❌ Option invalide. Choisissez 1, 2, 3 ou 0."

	msgYesNoOnly = "Répondez O (oui) ou N (non)."

	msgUnknownState = "État inconnu. Tapez 0 pour revenir au menu."

	msgInvalidDate = "❌ Date invalide.\n\n" +
		"Format attendu : JJ/MM/AAAA\n" +
		"Exemple : 15/03/1990"

	msgInvalidAmount = "❌ Montant invalide. Entrez un nombre."

	msgPassCancelled = "❌ Souscription annulée.\n\nRetour au menu..."
	msgSimCancelled  = "❌ Simulation annulée.\n\nRetour au menu..."

	msgPassLastName  = "📝 Nom du client ?"
	msgPassFirstName = "📝 Prénom du client ?"
	msgPassPhone     = "📞 Téléphone du client ?\nFormat: +242061234567 ou 061234567"
	msgPassBirthdate = "🎂 Date de naissance du client ?\nFormat: JJ/MM/AAAA"

	msgPassListBody = "📦 PRODUITS PASS NSIA\n\n" +
		"Choisissez le produit à souscrire pour votre client.\n\n" +
		"0️⃣ Retour menu"
	msgPassListButton = "Voir les produits"

	msgSimListBody = "🧮 SIMULATEUR PRODUITS NSIA\n\n" +
		"Choisissez le produit à simuler.\n\n" +
		"0️⃣ Retour menu"
	msgSimListButton = "📋 Voir les produits"
)

func promptMainMenu(agentName string) string {
	return fmt.Sprintf("🏠 MENU PRINCIPAL - NSIA VIE\n\nAgent: %s\n\nQue souhaitez-vous faire ?", agentName)
}

func mainMenuButtons() []Button {
	return []Button{
		{ID: "menu_1", Title: "1️⃣ Souscrire PASS"},
		{ID: "menu_2", Title: "2️⃣ Mes commissions"},
		{ID: "menu_3", Title: "3️⃣ Simulateur"},
	}
}

func passProductSections() []ListSection {
	return []ListSection{{
		Title: "Produits PASS",
		Rows: []ListRow{
			{ID: "batela", Title: "PASS BATELA", Description: "Épargne Retraite + Funéraire"},
			{ID: "kimia", Title: "PASS KIMIA", Description: "Accident + Funéraire"},
			{ID: "salisa", Title: "PASS SALISA", Description: "Hospitalisation + Funéraire"},
		},
	}}
}

func simProductSections() []ListSection {
	return []ListSection{{
		Title: "Produits Classiques",
		Rows: []ListRow{
			{ID: "retraite", Title: "NSIA RETRAITE", Description: "Épargne retraite"},
			{ID: "pension_securite", Title: "NSIA PENSION SÉCURITÉ", Description: "Pension mensuelle garantie"},
			{ID: "pension_confort", Title: "NSIA PENSION CONFORT", Description: "Pension mensuelle confort"},
			{ID: "pension_renfort", Title: "NSIA PENSION RENFORT", Description: "Pension mensuelle renforcée"},
			{ID: "prevoyance", Title: "NSIA PRÉVOYANCE DÉCÈS", Description: "Capital décès"},
			{ID: "etudes", Title: "NSIA ÉTUDES", Description: "Rente études enfant"},
		},
	}}
}

func promptRecurrence(productName string) string {
	daily, monthly, oneOff, ceiling := recurrenceSheet(productName)
	return fmt.Sprintf("💳 PASS %s\n\nChoisissez la récurrence de paiement :\n\n"+
		"1️⃣ Quotidien : %s\n"+
		"2️⃣ Mensuel : %s\n"+
		"3️⃣ Versement unique : %s\n\n"+
		"Plafond : %s\n\n"+
		"0️⃣ Retour menu",
		productName, daily, monthly, oneOff, ceiling)
}

func promptPassConfirm(flow *PassFlow) string {
	return fmt.Sprintf("📋 RÉCAPITULATIF SOUSCRIPTION\n\n"+
		"Produit : PASS %s\n"+
		"Récurrence : %s (%s)\n\n"+
		"Client :\n"+
		"Nom : %s\n"+
		"Prénom : %s\n"+
		"Téléphone : %s\n"+
		"Naissance : %s\n\n"+
		"Confirmer la souscription ?\n"+
		"O - Oui, souscrire\n"+
		"N - Non, annuler\n"+
		"0️⃣ Retour menu",
		flow.ProductName, flow.Recurrence, recurrenceAmount(flow.ProductName, flow.Recurrence),
		flow.ClientLastName, flow.ClientFirstName, flow.ClientPhone, flow.ClientBirthdate)
}

func msgPassSuccess(res *SubscriptionResult) string {
	return fmt.Sprintf("✅ SOUSCRIPTION RÉUSSIE !\n\n"+
		"Police : %s\n"+
		"Produit : %s\n"+
		"Montant : %s FCFA\n"+
		"Client : %s\n"+
		"Référence : %s\n\n"+
		"Le client recevra une demande de paiement Mobile Money.",
		res.PolicyNumber, res.ProductLabel, formatAmount(res.Amount), res.ClientPhone, res.TransactionRef)
}

func msgPassDeclined(reason string) string {
	return fmt.Sprintf("❌ Erreur lors de la création :\n%s\n\nRetour au menu...", reason)
}

func promptCommissions(stats *CommissionStats) string {
	byProduct := ""
	for _, name := range []string{"BATELA", "KIMIA", "SALISA"} {
		if v, ok := stats.RevenueByProduct[name]; ok {
			byProduct += fmt.Sprintf("  %s : %s FCFA\n", name, formatAmount(v))
		}
	}
	return fmt.Sprintf("💰 MES COMMISSIONS\n\n"+
		"Agent : %s\n"+
		"Matricule : %s\n"+
		"Agence : %s\n\n"+
		"📊 Souscriptions : %d\n"+
		"✅ Actives : %d\n"+
		"📅 Ce mois : %d\n\n"+
		"💵 Chiffre d'affaires : %s FCFA\n%s\n"+
		"Taux de commission : %.1f%%\n"+
		"Commission estimée : %s FCFA\n\n"+
		"1️⃣ Actualiser\n"+
		"0️⃣ Retour menu",
		stats.FullName, stats.Matricule, stats.Agency,
		stats.Subscriptions, stats.ActiveCount, stats.MonthCount,
		formatAmount(stats.Revenue), byProduct,
		stats.CommissionRate, formatAmount(stats.Revenue*stats.CommissionRate/100))
}

func promptSimConfirm(product simProduct, flow *SimFlow) string {
	lines := ""
	for _, f := range product.Fields {
		lines += fmt.Sprintf("%s : %s\n", f.Label, flow.ackValue(f))
	}
	return fmt.Sprintf("📋 RÉCAPITULATIF SIMULATION\n\n"+
		"Produit : %s\n\n%s\n"+
		"Lancer le calcul ?\n"+
		"O - Oui, calculer\n"+
		"N - Non, annuler\n"+
		"0️⃣ Retour menu",
		product.Title, lines)
}

func msgIntBounds(field simField) string {
	switch field.Name {
	case "age", "age_parent":
		return "❌ Âge invalide (18-65 ans).\n\nRéessayez :"
	case "age_enfant":
		return "❌ Âge invalide (0-18 ans).\n\nRéessayez :"
	case "duree_service":
		return "❌ Durée invalide (1-20 ans).\n\nRéessayez :"
	default:
		return "❌ Durée invalide (1-50 ans).\n\nRéessayez :"
	}
}

// simulationResultText renders the backend's calculation payload per product.
func simulationResultText(product simProduct, results map[string]any, savedNumber string) string {
	get := func(key string) string {
		v, ok := results[key]
		if !ok {
			return "N/A"
		}
		switch n := v.(type) {
		case float64:
			return formatAmount(n) + " FCFA"
		case string:
			return n
		default:
			return fmt.Sprintf("%v", v)
		}
	}
	body := ""
	switch product.Code {
	case "retraite":
		body = fmt.Sprintf("Capital garanti : %s\nPrime totale : %s\nPrime épargne : %s\nPrime décès : %s\n",
			get("capital_garanti"), get("prime_totale"), get("prime_epargne"), get("prime_deces"))
	case "prevoyance":
		body = fmt.Sprintf("Prime commerciale : %s\nFrais accessoires : %s\nPrime périodique totale : %s\nCapital décès : %s\n",
			get("Prime_Commerciale"), get("Frais_Accessoire"), get("total_prime_periodique"), get("capital_deces"))
	case "etudes":
		body = fmt.Sprintf("Prime annuelle : %s\nPrime mensuelle : %s\nRente annuelle : %s\nDurée paiement : %s\nDurée service : %s\n",
			get("prime_annuelle"), get("prime_mensuelle"), get("montant_rente_annuel"),
			rawValue(results, "duree_paiement"), rawValue(results, "duree_service"))
	default:
		body = fmt.Sprintf("Prime totale : %s\nDurée couverture : %s\nDurée service : %s\nPériodicité : %s\n",
			get("prime_totale"), rawValue(results, "duree_couverture"),
			rawValue(results, "duree_service"), rawValue(results, "periodicite"))
	}
	return fmt.Sprintf("✅ RÉSULTAT SIMULATION\n\n"+
		"Produit : %s\n\n%s\n"+
		"Simulation N° %s\n\n"+
		"Retour au menu principal...",
		product.Title, body, savedNumber)
}

func rawValue(results map[string]any, key string) string {
	v, ok := results[key]
	if !ok {
		return "N/A"
	}
	if n, isFloat := v.(float64); isFloat && n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%v", v)
}
