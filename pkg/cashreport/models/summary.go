package models

import "time"

// Field names one of the five totals of a day-slot.
type Field string

const (
	FieldEntries  Field = "entries"
	FieldPayments Field = "payments"
	FieldDineIn   Field = "dine_in"
	FieldDelivery Field = "delivery"
	FieldVouchers Field = "vouchers"
)

// Fields lists the totals in rendering order.
var Fields = []Field{FieldEntries, FieldPayments, FieldDineIn, FieldDelivery, FieldVouchers}

// DaySummary holds the totals of one detected day-slot. A nil total means the
// figure was unavailable in the document.
type DaySummary struct {
	// Slot is the 1-based slot index within the worksheet.
	Slot int `json:"slot"`
	// Label is the literal text of the label cell, if any.
	Label string `json:"label,omitempty"`
	// Date is set when the label holds a date (serial number or dd/mm/yyyy).
	Date *time.Time `json:"date,omitempty"`

	Entries  *float64 `json:"entries"`
	Payments *float64 `json:"payments"`
	DineIn   *float64 `json:"dine_in"`
	Delivery *float64 `json:"delivery"`
	Vouchers *float64 `json:"vouchers"`
}

// Total returns the figure for f.
func (d *DaySummary) Total(f Field) *float64 {
	switch f {
	case FieldEntries:
		return d.Entries
	case FieldPayments:
		return d.Payments
	case FieldDineIn:
		return d.DineIn
	case FieldDelivery:
		return d.Delivery
	case FieldVouchers:
		return d.Vouchers
	}
	return nil
}

// SetTotal stores the figure for f.
func (d *DaySummary) SetTotal(f Field, v *float64) {
	switch f {
	case FieldEntries:
		d.Entries = v
	case FieldPayments:
		d.Payments = v
	case FieldDineIn:
		d.DineIn = v
	case FieldDelivery:
		d.Delivery = v
	case FieldVouchers:
		d.Vouchers = v
	}
}

// Issue records a total that could not be evaluated.
type Issue struct {
	Slot    int    `json:"slot"`
	Field   Field  `json:"field"`
	Cell    string `json:"cell"`
	Message string `json:"message"`
}

// Report is the result of extracting one document.
type Report struct {
	// BookName is the document file name (no path).
	BookName string `json:"book_name"`
	// Summaries holds zero, one or two day-slots in slot order.
	Summaries []DaySummary `json:"summaries"`
	// Issues lists totals that failed to evaluate.
	Issues []Issue `json:"issues,omitempty"`
}
