package services

import (
	"testing"

	domain "github.com/pagelift/api/internal/domain"
)

func TestParseAmount(t *testing.T) {
	engine := NewPricingEngine()

	cases := []struct {
		name string
		raw  string
		want float64
	}{
		{name: "euro comma decimal", raw: "€39,90", want: 39.90},
		{name: "suffix currency", raw: "49.90 lei", want: 49.90},
		{name: "plain number", raw: "12", want: 12},
		{name: "embedded text", raw: "only 9.99 today", want: 9.99},
		{name: "thousands then comma", raw: "1.234,56", want: 1.234},
		{name: "empty", raw: "", want: 0},
		{name: "no digits", raw: "free", want: 0},
		{name: "lonely separators", raw: ",.", want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := engine.ParseAmount(tc.raw); got != tc.want {
				t.Fatalf("ParseAmount(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestComputeTotal(t *testing.T) {
	engine := NewPricingEngine()

	content := ContentRecord{
		CurrencySymbol: "€",
		Price:          "€39,90",
		ShippingCost:   "€4.90",
	}

	if got := engine.FormatAmount(engine.ComputeTotal(content, AddOnSelections{})); got != "39.90" {
		t.Fatalf("total without shipping = %s, want 39.90", got)
	}

	content.EnableShippingCost = true
	if got := engine.FormatAmount(engine.ComputeTotal(content, AddOnSelections{})); got != "44.80" {
		t.Fatalf("total with shipping = %s, want 44.80", got)
	}

	content.Insurance = &domain.AddOnConfig{Enabled: true, Cost: "€2,50"}
	content.Gadget = &domain.AddOnConfig{Enabled: false, Cost: "€9,00"}

	got := engine.FormatAmount(engine.ComputeTotal(content, AddOnSelections{Insurance: true, Gadget: true}))
	if got != "47.30" {
		t.Fatalf("total with insurance = %s, want 47.30 (disabled gadget must not count)", got)
	}

	got = engine.FormatAmount(engine.ComputeTotal(content, AddOnSelections{Insurance: false, Gadget: true}))
	if got != "44.80" {
		t.Fatalf("total with unselected insurance = %s, want 44.80", got)
	}
}

func TestStripCurrency(t *testing.T) {
	engine := NewPricingEngine()

	cases := []struct {
		raw  string
		want string
	}{
		{raw: "€39,90", want: "39,90"},
		{raw: "49.90 lei", want: "49.90"},
		{raw: "199 RON", want: "199"},
		{raw: "25,00 zł", want: "25,00"},
		{raw: "4990 Ft", want: "4990"},
		{raw: "12.50", want: "12.50"},
	}

	for _, tc := range cases {
		if got := engine.StripCurrency(tc.raw); got != tc.want {
			t.Fatalf("StripCurrency(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestDisplayPrice(t *testing.T) {
	engine := NewPricingEngine()

	before := ContentRecord{CurrencySymbol: "€", CurrencyPosition: domain.CurrencyBefore}
	if got := engine.DisplayPrice(before, "39,90 €"); got != "€39,90" {
		t.Fatalf("display before = %q, want €39,90", got)
	}

	after := ContentRecord{CurrencySymbol: "lei", CurrencyPosition: domain.CurrencyAfter}
	if got := engine.DisplayPrice(after, "49.90"); got != "49.90 lei" {
		t.Fatalf("display after = %q, want 49.90 lei", got)
	}

	if got := engine.DisplayPrice(before, ""); got != "" {
		t.Fatalf("display of empty price = %q, want empty", got)
	}
}

func TestTotalDisplay(t *testing.T) {
	engine := NewPricingEngine()

	content := ContentRecord{
		CurrencySymbol:     "€",
		Price:              "€39,90",
		ShippingCost:       "€4.90",
		EnableShippingCost: true,
	}

	if got := engine.TotalDisplay(content, AddOnSelections{}); got != "44.80 €" {
		t.Fatalf("TotalDisplay = %q, want 44.80 €", got)
	}
}
