package engine

import "fmt"

// passProduct is one subscribable PASS product.
type passProduct struct {
	ID   int
	Code string
	Name string
}

// passProducts maps normalized choices (menu number or list reply ID) to
// products.
var passProducts = map[string]passProduct{
	"1":      {ID: 1, Code: "batela", Name: "BATELA"},
	"2":      {ID: 2, Code: "kimia", Name: "KIMIA"},
	"3":      {ID: 3, Code: "salisa", Name: "SALISA"},
	"batela": {ID: 1, Code: "batela", Name: "BATELA"},
	"kimia":  {ID: 2, Code: "kimia", Name: "KIMIA"},
	"salisa": {ID: 3, Code: "salisa", Name: "SALISA"},
}

// recurrences maps normalized choices to recurrence codes.
var recurrences = map[string]string{
	"1":         "quotidien",
	"2":         "mensuel",
	"3":         "unique",
	"quotidien": "quotidien",
	"mensuel":   "mensuel",
	"unique":    "unique",
}

// recurrenceSheet returns the price lines for a product's recurrence menu.
// BATELA has its own price grid; KIMIA and SALISA share one.
func recurrenceSheet(productName string) (daily, monthly, oneOff, ceiling string) {
	if productName == "BATELA" {
		return "200 FCFA/jour", "6 000 FCFA/mois", "72 200 FCFA", "72 200 FCFA"
	}
	return "100 FCFA/jour", "3 000 FCFA/mois", "22 205 FCFA", "22 205 FCFA"
}

// recurrenceAmount returns the display amount for a chosen recurrence.
func recurrenceAmount(productName, recurrence string) string {
	daily, monthly, oneOff, _ := recurrenceSheet(productName)
	switch recurrence {
	case "quotidien":
		return daily
	case "mensuel":
		return monthly
	default:
		return oneOff
	}
}

// simFieldKind selects the validation applied to a simulator field.
type simFieldKind int

const (
	fieldText simFieldKind = iota
	fieldInt
	fieldMoney
)

// simFieldConfirmation is the synthetic cursor value set once a product's
// field list is exhausted.
const simFieldConfirmation = "confirmation"

// simField is one step of a simulator product's ordered collection list.
type simField struct {
	Name   string
	Kind   simFieldKind
	Min    int // int bounds (inclusive)
	Max    int
	Label  string // acknowledgment label ("Âge", "Prime mensuelle", ...)
	Prompt string // question asked to collect this field
}

// simProduct defines a simulatable product: its display title and the
// ordered fields the collection state walks through.
type simProduct struct {
	Code   string
	Title  string
	Fields []simField
}

var (
	fieldLastName  = simField{Name: "nom", Kind: fieldText, Label: "Nom", Prompt: "📝 Nom du client ?"}
	fieldFirstName = simField{Name: "prenom", Kind: fieldText, Label: "Prénom", Prompt: "📝 Prénom du client ?"}
	fieldPhone     = simField{Name: "telephone", Kind: fieldText, Label: "Téléphone", Prompt: "📞 Téléphone ?\nFormat: +242061234567 ou 061234567"}
	fieldAge       = simField{Name: "age", Kind: fieldInt, Min: 18, Max: 65, Label: "Âge", Prompt: "🎂 Âge du client ?"}
)

// simProducts maps product codes to their definitions. Choice numbers and
// list reply IDs both resolve through simProductChoices.
var simProducts = map[string]simProduct{
	"retraite": {
		Code:  "retraite",
		Title: "NSIA RETRAITE",
		Fields: []simField{
			fieldLastName, fieldFirstName, fieldPhone, fieldAge,
			{Name: "prime_mensuelle", Kind: fieldMoney, Label: "Prime mensuelle", Prompt: "💰 Prime mensuelle souhaitée (FCFA) ?"},
			{Name: "capital_deces", Kind: fieldMoney, Label: "Capital décès", Prompt: "💰 Capital décès (FCFA) ?"},
			{Name: "duree", Kind: fieldInt, Min: 1, Max: 50, Label: "Durée cotisation", Prompt: "⏱️ Durée cotisation (années) ?"},
		},
	},
	"pension_securite": {Code: "pension_securite", Title: "NSIA PENSION SÉCURITÉ", Fields: pensionFields()},
	"pension_confort":  {Code: "pension_confort", Title: "NSIA PENSION CONFORT", Fields: pensionFields()},
	"pension_renfort":  {Code: "pension_renfort", Title: "NSIA PENSION RENFORT", Fields: pensionFields()},
	"prevoyance": {
		Code:  "prevoyance",
		Title: "NSIA PRÉVOYANCE DÉCÈS",
		Fields: []simField{
			fieldLastName, fieldFirstName, fieldPhone, fieldAge,
			{Name: "capital_deces", Kind: fieldMoney, Label: "Capital décès", Prompt: "💰 Capital décès souhaité (FCFA) ?"},
			{Name: "duree_couverture", Kind: fieldInt, Min: 1, Max: 50, Label: "Durée couverture", Prompt: "⏱️ Durée couverture (années) ?"},
		},
	},
	"etudes": {
		Code:  "etudes",
		Title: "NSIA ÉTUDES",
		Fields: []simField{
			fieldLastName, fieldFirstName, fieldPhone,
			{Name: "age_parent", Kind: fieldInt, Min: 18, Max: 65, Label: "Âge parent", Prompt: "🎂 Âge du parent ?"},
			{Name: "age_enfant", Kind: fieldInt, Min: 0, Max: 18, Label: "Âge enfant", Prompt: "👶 Âge de l'enfant ?"},
			{Name: "rente_annuelle", Kind: fieldMoney, Label: "Rente annuelle", Prompt: "💰 Rente annuelle études (FCFA) ?"},
			{Name: "duree_paiement", Kind: fieldInt, Min: 1, Max: 50, Label: "Durée paiement", Prompt: "⏱️ Durée paiement primes (années) ?"},
			{Name: "duree_service", Kind: fieldInt, Min: 1, Max: 20, Label: "Durée études", Prompt: "⏱️ Durée études/service (années) ?"},
		},
	},
}

func pensionFields() []simField {
	return []simField{
		fieldLastName, fieldFirstName, fieldPhone, fieldAge,
		{Name: "pension_mensuelle", Kind: fieldMoney, Label: "Pension mensuelle", Prompt: "💰 Pension mensuelle souhaitée (FCFA) ?"},
		{Name: "duree_couverture", Kind: fieldInt, Min: 1, Max: 50, Label: "Durée couverture", Prompt: "⏱️ Durée couverture (années) ?"},
	}
}

// simProductChoices resolves menu numbers and list reply IDs to product codes.
var simProductChoices = map[string]string{
	"1": "retraite",
	"2": "pension_securite",
	"3": "pension_confort",
	"4": "pension_renfort",
	"5": "prevoyance",
	"6": "etudes",

	"retraite":         "retraite",
	"pension_securite": "pension_securite",
	"pension_confort":  "pension_confort",
	"pension_renfort":  "pension_renfort",
	"prevoyance":       "prevoyance",
	"etudes":           "etudes",
}

// fieldIndex returns the position of name in the product's ordered list,
// or -1 if absent.
func (p simProduct) fieldIndex(name string) int {
	for i, f := range p.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// setValue writes a validated field value into the flow's typed storage.
func (f *SimFlow) setValue(field simField, text string, number float64) {
	switch field.Name {
	case "nom":
		f.LastName = text
	case "prenom":
		f.FirstName = text
	case "telephone":
		f.Phone = text
	case "age":
		f.Age = int(number)
	case "age_parent":
		f.ParentAge = int(number)
	case "age_enfant":
		f.ChildAge = int(number)
	case "prime_mensuelle":
		f.MonthlyPremium = number
	case "pension_mensuelle":
		f.MonthlyPension = number
	case "capital_deces":
		f.DeathCapital = number
	case "rente_annuelle":
		f.AnnualRent = number
	case "duree":
		f.Years = int(number)
	case "duree_couverture":
		f.CoverYears = int(number)
	case "duree_paiement":
		f.PaymentYears = int(number)
	case "duree_service":
		f.ServiceYears = int(number)
	}
}

// ackValue renders the just-collected value for the acknowledgment line.
func (f *SimFlow) ackValue(field simField) string {
	switch field.Kind {
	case fieldText:
		switch field.Name {
		case "nom":
			return f.LastName
		case "prenom":
			return f.FirstName
		default:
			return f.Phone
		}
	case fieldMoney:
		return formatAmount(f.moneyValue(field.Name)) + " FCFA"
	default:
		return fmt.Sprintf("%d ans", f.intValue(field.Name))
	}
}

func (f *SimFlow) moneyValue(name string) float64 {
	switch name {
	case "prime_mensuelle":
		return f.MonthlyPremium
	case "pension_mensuelle":
		return f.MonthlyPension
	case "capital_deces":
		return f.DeathCapital
	default:
		return f.AnnualRent
	}
}

func (f *SimFlow) intValue(name string) int {
	switch name {
	case "age":
		return f.Age
	case "age_parent":
		return f.ParentAge
	case "age_enfant":
		return f.ChildAge
	case "duree":
		return f.Years
	case "duree_couverture":
		return f.CoverYears
	case "duree_paiement":
		return f.PaymentYears
	default:
		return f.ServiceYears
	}
}
