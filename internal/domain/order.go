package domain

import (
	"strings"
	"time"
)

// CanonicalField names one of the order fields the backend understands
// regardless of how the form labelled it.
type CanonicalField string

const (
	FieldName     CanonicalField = "name"
	FieldPhone    CanonicalField = "phone"
	FieldEmail    CanonicalField = "email"
	FieldAddress  CanonicalField = "address"
	FieldCity     CanonicalField = "city"
	FieldCap      CanonicalField = "cap"
	FieldProvince CanonicalField = "province"
)

// fieldAliases maps each canonical field to the localized form-field IDs that
// are accepted as equivalent input. Lookup is case-insensitive on the source
// key; the first populated alias wins per canonical field.
var fieldAliases = map[CanonicalField][]string{
	FieldName:     {"name", "nome", "nombre", "nume", "full_name", "fullname", "imie"},
	FieldPhone:    {"phone", "telefono", "telefon", "tel", "phone_number", "numero_telefono"},
	FieldEmail:    {"email", "e-mail", "mail", "correo"},
	FieldAddress:  {"address", "indirizzo", "adresa", "direccion", "via", "street", "ulica"},
	FieldCity:     {"city", "citta", "città", "oras", "ciudad", "localita", "miasto"},
	FieldCap:      {"cap", "zip", "zipcode", "postal_code", "cod_postal", "codice_postale", "kod_pocztowy"},
	FieldProvince: {"province", "provincia", "judet", "region", "wojewodztwo"},
}

// FieldAliases returns the accepted source keys for a canonical field.
func FieldAliases(field CanonicalField) []string {
	aliases := fieldAliases[field]
	out := make([]string, len(aliases))
	copy(out, aliases)
	return out
}

// CanonicalizeFields flattens submitted form values into canonical fields plus
// an extras map holding every key that matched no alias. Source keys are
// matched case-insensitively and trimmed; empty values never claim a slot, so
// a later alias with content still wins over an earlier blank one.
func CanonicalizeFields(values map[string]string) (map[CanonicalField]string, map[string]string) {
	canonical := make(map[CanonicalField]string, len(fieldAliases))
	extras := make(map[string]string)

	lookup := make(map[string]CanonicalField)
	for field, aliases := range fieldAliases {
		for _, alias := range aliases {
			lookup[alias] = field
		}
	}

	for key, value := range values {
		normalizedKey := strings.ToLower(strings.TrimSpace(key))
		trimmed := strings.TrimSpace(value)
		field, ok := lookup[normalizedKey]
		if !ok {
			if normalizedKey != "" {
				extras[normalizedKey] = trimmed
			}
			continue
		}
		if trimmed == "" {
			continue
		}
		if _, claimed := canonical[field]; !claimed {
			canonical[field] = trimmed
		}
	}

	return canonical, extras
}

// AddOnSelection records one add-on's final state on a submitted order.
type AddOnSelection struct {
	Selected bool
	Cost     string
}

// OrderPayload is the flattened, finalized record of one submission. It is
// derived once at finalization, delivered to the webhook endpoint, and then
// discarded; nothing writes it back to the page record.
type OrderPayload struct {
	ID          string
	PageID      string
	PageSlug    string
	ProductName string

	Name     string
	Phone    string
	Email    string
	Address  string
	City     string
	Cap      string
	Province string
	Extras   map[string]string

	Method    PaymentMethod
	Total     float64
	Insurance AddOnSelection
	Gadget    AddOnSelection

	CustomerIP  string
	SubmittedAt time.Time
}

// NewOrderPayload assembles the canonical payload from already-sanitized form
// values.
func NewOrderPayload(values map[string]string) OrderPayload {
	canonical, extras := CanonicalizeFields(values)
	return OrderPayload{
		Name:     canonical[FieldName],
		Phone:    canonical[FieldPhone],
		Email:    canonical[FieldEmail],
		Address:  canonical[FieldAddress],
		City:     canonical[FieldCity],
		Cap:      canonical[FieldCap],
		Province: canonical[FieldProvince],
		Extras:   extras,
	}
}
