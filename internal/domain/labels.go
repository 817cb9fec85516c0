package domain

import (
	"strings"

	"golang.org/x/text/language"
)

// baseLabels is the hardcoded fallback table. Generated content may omit any
// subset of translations, so every key rendered anywhere must exist here.
var baseLabels = map[string]string{
	"order_now":          "Ordina Ora",
	"buy_now":            "Acquista Ora",
	"announcement":       "Offerta a tempo limitato",
	"free_shipping":      "Spedizione gratuita",
	"shipping":           "Spedizione",
	"free":               "Gratis",
	"total":              "Totale",
	"subtotal":           "Subtotale",
	"discount_badge":     "SCONTO",
	"stock_warning":      "Attenzione: solo %d pezzi rimasti!",
	"reviews_title":      "Recensioni dei clienti",
	"show_all_reviews":   "Mostra tutte le recensioni",
	"verified_purchase":  "Acquisto verificato",
	"box_title":          "Cosa ricevi",
	"complete_order":     "Completa l'ordine",
	"confirm_order":      "Conferma ordine",
	"pay_on_delivery":    "Pagamento alla consegna",
	"credit_card":        "Carta di credito",
	"card_declined":      "Pagamento con carta non riuscito. Puoi completare l'ordine con pagamento alla consegna.",
	"switch_to_cod":      "Paga alla consegna",
	"cancel_order":       "Annulla",
	"insurance_label":    "Assicurazione spedizione",
	"gadget_label":       "Aggiungi il gadget esclusivo",
	"form_name":          "Nome e cognome",
	"form_phone":         "Telefono",
	"form_email":         "Email",
	"form_address":       "Indirizzo",
	"form_city":          "Città",
	"form_cap":           "CAP",
	"form_province":      "Provincia",
	"purchased":          "ha appena acquistato",
	"purchased_from":     "da",
	"delivery_title":     "Consegna prevista",
	"delivery_text":      "Ordina oggi, ricevi in 24/48 ore",
	"privacy":            "Privacy",
	"terms":              "Termini e condizioni",
	"cookies":            "Cookie",
	"legal_disclaimer":   "Le informazioni su questo sito hanno scopo promozionale.",
	"thank_you_title":    "Grazie per il tuo ordine!",
	"thank_you_message":  "Ti contatteremo a breve per confermare la spedizione.",
	"thank_you_customer": "Cliente",
	"order_summary":      "Riepilogo ordine",
	"close":              "Chiudi",
}

// englishLabels overrides the base table for English-language pages.
var englishLabels = map[string]string{
	"order_now":          "Order Now",
	"buy_now":            "Buy Now",
	"announcement":       "Limited time offer",
	"free_shipping":      "Free shipping",
	"shipping":           "Shipping",
	"free":               "Free",
	"total":              "Total",
	"subtotal":           "Subtotal",
	"discount_badge":     "OFF",
	"stock_warning":      "Hurry: only %d left in stock!",
	"reviews_title":      "Customer reviews",
	"show_all_reviews":   "Show all reviews",
	"verified_purchase":  "Verified purchase",
	"box_title":          "What you get",
	"complete_order":     "Complete your order",
	"confirm_order":      "Confirm order",
	"pay_on_delivery":    "Cash on delivery",
	"credit_card":        "Credit card",
	"card_declined":      "Card payment failed. You can complete your order with cash on delivery.",
	"switch_to_cod":      "Pay on delivery",
	"cancel_order":       "Cancel",
	"insurance_label":    "Shipping insurance",
	"gadget_label":       "Add the exclusive gadget",
	"form_name":          "Full name",
	"form_phone":         "Phone",
	"form_email":         "Email",
	"form_address":       "Address",
	"form_city":          "City",
	"form_cap":           "Postal code",
	"form_province":      "Province",
	"purchased":          "just purchased",
	"purchased_from":     "from",
	"delivery_title":     "Estimated delivery",
	"delivery_text":      "Order today, delivered in 24/48 hours",
	"privacy":            "Privacy",
	"terms":              "Terms and conditions",
	"cookies":            "Cookies",
	"legal_disclaimer":   "The information on this site is for promotional purposes.",
	"thank_you_title":    "Thank you for your order!",
	"thank_you_message":  "We will contact you shortly to confirm shipping.",
	"thank_you_customer": "Customer",
	"order_summary":      "Order summary",
	"close":              "Close",
}

var supportedLabelTags = []language.Tag{
	language.Italian,
	language.English,
}

var labelBundles = []map[string]string{
	baseLabels,
	englishLabels,
}

var labelMatcher = language.NewMatcher(supportedLabelTags)

// Labels resolves user-facing strings through the layered default chain:
// record overrides, then the matched language bundle, then the base table.
type Labels struct {
	overrides map[string]string
	bundle    map[string]string
}

// ResolveLabels builds the label set for a content record. lang accepts any
// BCP 47 tag or bare language name; unknown values fall back to the base
// table.
func ResolveLabels(lang string, overrides map[string]string) Labels {
	_, index := language.MatchStrings(labelMatcher, strings.TrimSpace(lang))
	if index < 0 || index >= len(labelBundles) {
		index = 0
	}
	bundle := labelBundles[index]

	cleaned := make(map[string]string, len(overrides))
	for key, value := range overrides {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		cleaned[key] = value
	}

	return Labels{overrides: cleaned, bundle: bundle}
}

// Get returns the label for key. It never returns an empty string: missing
// overrides fall through to the language bundle, then the base table, then
// the key itself.
func (l Labels) Get(key string) string {
	if value, ok := l.overrides[key]; ok {
		return value
	}
	if value, ok := l.bundle[key]; ok && value != "" {
		return value
	}
	if value, ok := baseLabels[key]; ok && value != "" {
		return value
	}
	return key
}

// All materialises the fully resolved table, useful for handing the complete
// set to a renderer in one pass.
func (l Labels) All() map[string]string {
	out := make(map[string]string, len(baseLabels)+len(l.overrides))
	for key := range baseLabels {
		out[key] = l.Get(key)
	}
	for key := range l.bundle {
		out[key] = l.Get(key)
	}
	for key, value := range l.overrides {
		out[key] = value
	}
	return out
}

// CulturalData lists locale-plausible first names and cities used by the
// social proof notifications.
type CulturalData struct {
	Names  []string
	Cities []string
}

var culturalDefaults = []CulturalData{
	{
		Names:  []string{"Giulia", "Marco", "Francesca", "Luca", "Sofia", "Alessandro", "Martina", "Andrea", "Elena", "Davide"},
		Cities: []string{"Roma", "Milano", "Napoli", "Torino", "Bologna", "Firenze", "Palermo", "Genova", "Bari", "Verona"},
	},
	{
		Names:  []string{"Emma", "James", "Olivia", "Liam", "Sophie", "Noah", "Grace", "Ethan", "Lily", "Jack"},
		Cities: []string{"London", "Manchester", "Birmingham", "Leeds", "Bristol", "Liverpool", "Sheffield", "Glasgow", "Dublin", "Cardiff"},
	},
}

// ResolveCulturalData picks the name/city lists for a language, with the same
// matching rules as ResolveLabels. Explicit lists on the record win.
func ResolveCulturalData(lang string, names, cities []string) CulturalData {
	_, index := language.MatchStrings(labelMatcher, strings.TrimSpace(lang))
	if index < 0 || index >= len(culturalDefaults) {
		index = 0
	}
	data := culturalDefaults[index]
	if len(names) > 0 {
		data.Names = names
	}
	if len(cities) > 0 {
		data.Cities = cities
	}
	return data
}
