package domain

import "testing"

func TestCanonicalizeFieldsResolvesLocalizedAliases(t *testing.T) {
	values := map[string]string{
		"nome":     "Mario",
		"telefono": "333123456",
		"citta":    "Roma",
		"cap":      "00184",
		"campagna": "estate",
	}

	canonical, extras := CanonicalizeFields(values)

	if got := canonical[FieldName]; got != "Mario" {
		t.Fatalf("expected name Mario, got %q", got)
	}
	if got := canonical[FieldPhone]; got != "333123456" {
		t.Fatalf("expected phone 333123456, got %q", got)
	}
	if got := canonical[FieldCity]; got != "Roma" {
		t.Fatalf("expected city Roma, got %q", got)
	}
	if got := canonical[FieldCap]; got != "00184" {
		t.Fatalf("expected cap 00184, got %q", got)
	}
	if got := extras["campagna"]; got != "estate" {
		t.Fatalf("expected unmatched key preserved in extras, got %q", got)
	}
}

func TestCanonicalizeFieldsIgnoresBlankValues(t *testing.T) {
	canonical, _ := CanonicalizeFields(map[string]string{
		"name": "   ",
		"nome": "Anna",
	})

	if got := canonical[FieldName]; got != "Anna" {
		t.Fatalf("expected populated alias to win over blank one, got %q", got)
	}
}

func TestNewOrderPayloadExposesCanonicalFields(t *testing.T) {
	payload := NewOrderPayload(map[string]string{
		"nome":     "Mario",
		"telefono": "333123456",
	})

	if payload.Name != "Mario" {
		t.Fatalf("expected canonical name, got %q", payload.Name)
	}
	if payload.Phone != "333123456" {
		t.Fatalf("expected canonical phone, got %q", payload.Phone)
	}
}

func TestDefaultPaymentMethodFallsBackToCOD(t *testing.T) {
	record := ContentRecord{Payment: &PaymentConfig{
		CODEnabled:    true,
		CardEnabled:   false,
		DefaultMethod: PaymentCard,
	}}

	if got := record.DefaultPaymentMethod(); got != PaymentCOD {
		t.Fatalf("expected cod fallback when card disabled, got %q", got)
	}

	record.Payment = nil
	if got := record.DefaultPaymentMethod(); got != PaymentCOD {
		t.Fatalf("expected cod when payment config absent, got %q", got)
	}
}

func TestEnabledFormFieldsFiltersDisabledEntries(t *testing.T) {
	record := ContentRecord{FormFields: []FormField{
		{ID: "name", Enabled: true, Required: true},
		{ID: "email", Enabled: false},
		{ID: "  ", Enabled: true},
		{ID: "phone", Enabled: true},
	}}

	fields := record.EnabledFormFields()
	if len(fields) != 2 {
		t.Fatalf("expected 2 enabled fields, got %d", len(fields))
	}
	if fields[0].ID != "name" || fields[1].ID != "phone" {
		t.Fatalf("unexpected field order: %+v", fields)
	}
}
