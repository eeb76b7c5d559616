package report

import (
	"strconv"
	"strings"

	"github.com/ukaji3/cashreport-go/pkg/cashreport/models"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/numtext"
)

// Carry is the balance state handed from one day to the next.
type Carry struct {
	// Vouchers is the previous day's voucher total.
	Vouchers *float64 `json:"vouchers,omitempty"`
	// FlowBase is the cash flow at the start of the next day.
	FlowBase *float64 `json:"flow_base,omitempty"`
}

// Derived holds the figures computed from a summary and the carry it starts
// from. Any figure whose inputs are unavailable is nil.
type Derived struct {
	VoucherDelta     *float64
	DeltaPlusEntries *float64
	FlowGenerated    *float64
	FlowStart        *float64
	FlowAfter        *float64
}

// Derive computes the derived figures of s and the carry for the next day.
func Derive(s models.DaySummary, carry Carry) (Derived, Carry) {
	var d Derived
	if s.Vouchers != nil && carry.Vouchers != nil {
		d.VoucherDelta = ptr(*s.Vouchers - *carry.Vouchers)
	}
	if d.VoucherDelta != nil && s.Entries != nil {
		d.DeltaPlusEntries = ptr(*d.VoucherDelta + *s.Entries)
	}
	if d.DeltaPlusEntries != nil && s.Payments != nil {
		d.FlowGenerated = ptr(*d.DeltaPlusEntries - *s.Payments)
	}
	d.FlowStart = carry.FlowBase
	if d.FlowStart != nil && d.FlowGenerated != nil {
		d.FlowAfter = ptr(*d.FlowStart + *d.FlowGenerated)
	}

	next := carry
	if s.Vouchers != nil {
		next.Vouchers = s.Vouchers
	}
	switch {
	case d.FlowAfter != nil:
		next.FlowBase = d.FlowAfter
	case d.DeltaPlusEntries != nil && carry.FlowBase != nil:
		// Missing payments still advance the base, counted as 0.
		next.FlowBase = ptr(*carry.FlowBase + *d.DeltaPlusEntries)
	}
	return d, next
}

// Render returns the message body for summaries, one block per slot, and the
// carry after the last slot. No summaries yield an empty body and the carry
// unchanged.
func Render(summaries []models.DaySummary, carry Carry) (string, Carry) {
	blocks := make([]string, 0, len(summaries))
	for _, s := range summaries {
		var d Derived
		d, carry = Derive(s, carry)
		blocks = append(blocks, renderBlock(s, d))
	}
	return strings.Join(blocks, "\n\n"), carry
}

func renderBlock(s models.DaySummary, d Derived) string {
	lines := []string{
		"Relatório " + heading(s),
		"• Entradas: " + numtext.Money(s.Entries),
		"• Pagamentos: " + numtext.Money(s.Payments),
		"• Vendas salão: " + numtext.Money(s.DineIn),
		"• Delivery: " + numtext.Money(s.Delivery),
		"• Voucher total: " + numtext.Money(s.Vouchers),
		"• Entrada no voucher (Δ): " + numtext.Money(d.VoucherDelta),
		"• Δ voucher + entradas: " + numtext.Money(d.DeltaPlusEntries),
		"• Fluxo gerado no dia: " + numtext.Money(d.FlowGenerated),
		"• Fluxo de caixa no início do dia: " + numtext.Money(d.FlowStart),
		"• Fluxo de caixa após pagamentos: " + numtext.Money(d.FlowAfter),
	}
	return strings.Join(lines, "\n")
}

func heading(s models.DaySummary) string {
	if s.Date != nil {
		return s.Date.Format(DateLayout)
	}
	if s.Label != "" {
		return s.Label
	}
	return "(dia " + strconv.Itoa(s.Slot) + ")"
}

func ptr(v float64) *float64 {
	return &v
}
