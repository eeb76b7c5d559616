package report

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/cellref"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/models"
)

// ErrInvalidLayout indicates a layout whose cells cannot be addressed.
var ErrInvalidLayout = errors.New("invalid layout")

// Layout names the cells of the first day-slot. Every further slot uses the
// same cells moved down by SlotOffset rows per slot.
type Layout struct {
	Label    string `toml:"label"`
	Entries  string `toml:"entries"`
	Payments string `toml:"payments"`
	DineIn   string `toml:"dine_in"`
	Delivery string `toml:"delivery"`
	Vouchers string `toml:"vouchers"`

	// SlotOffset is the row delta between consecutive slots.
	SlotOffset int `toml:"slot_offset"`
	// Slots is the number of day-slots on the sheet.
	Slots int `toml:"slots"`
}

// DefaultLayout matches the export sheet: one row per day starting at row 3,
// date in column A and the totals in B through F.
func DefaultLayout() Layout {
	return Layout{
		Label:      "A3",
		Entries:    "B3",
		Payments:   "C3",
		DineIn:     "D3",
		Delivery:   "E3",
		Vouchers:   "F3",
		SlotOffset: 1,
		Slots:      2,
	}
}

// SlotCells holds the resolved addresses of one slot.
type SlotCells struct {
	Slot   int
	Label  cellref.Ref
	Totals map[models.Field]cellref.Ref
}

func (l Layout) cellText(f models.Field) string {
	switch f {
	case models.FieldEntries:
		return l.Entries
	case models.FieldPayments:
		return l.Payments
	case models.FieldDineIn:
		return l.DineIn
	case models.FieldDelivery:
		return l.Delivery
	case models.FieldVouchers:
		return l.Vouchers
	}
	return ""
}

// Cells returns the addresses of slot (1-based).
func (l Layout) Cells(slot int) (SlotCells, error) {
	if slot < 1 || slot > l.Slots {
		return SlotCells{}, fmt.Errorf("%w: slot %d out of 1..%d", ErrInvalidLayout, slot, l.Slots)
	}
	shift := (slot - 1) * l.SlotOffset

	label, err := cellref.Parse(l.Label)
	if err != nil {
		return SlotCells{}, fmt.Errorf("%w: label: %w", ErrInvalidLayout, err)
	}
	cells := SlotCells{
		Slot:   slot,
		Label:  label.Offset(shift),
		Totals: make(map[models.Field]cellref.Ref, len(models.Fields)),
	}
	for _, f := range models.Fields {
		ref, err := cellref.Parse(l.cellText(f))
		if err != nil {
			return SlotCells{}, fmt.Errorf("%w: %s: %w", ErrInvalidLayout, f, err)
		}
		cells.Totals[f] = ref.Offset(shift)
	}
	return cells, nil
}

// Validate checks that every cell parses and that no two cells of any slots
// share an address.
func (l Layout) Validate() error {
	if l.Slots < 1 {
		return fmt.Errorf("%w: slots must be at least 1, got %d", ErrInvalidLayout, l.Slots)
	}
	if l.Slots > 1 && l.SlotOffset < 1 {
		return fmt.Errorf("%w: slot_offset must be positive, got %d", ErrInvalidLayout, l.SlotOffset)
	}

	seen := make(map[cellref.Ref]string)
	claim := func(ref cellref.Ref, name string) error {
		if !ref.Valid() {
			return fmt.Errorf("%w: %s lies outside the sheet", ErrInvalidLayout, name)
		}
		if other, dup := seen[ref]; dup {
			return fmt.Errorf("%w: %s and %s both use %s", ErrInvalidLayout, other, name, ref)
		}
		seen[ref] = name
		return nil
	}

	for slot := 1; slot <= l.Slots; slot++ {
		cells, err := l.Cells(slot)
		if err != nil {
			return err
		}
		if err := claim(cells.Label, fmt.Sprintf("slot %d label", slot)); err != nil {
			return err
		}
		for _, f := range models.Fields {
			if err := claim(cells.Totals[f], fmt.Sprintf("slot %d %s", slot, f)); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadLayout reads a TOML layout file. Keys missing from the file keep their
// DefaultLayout values.
func LoadLayout(path string) (Layout, error) {
	layout := DefaultLayout()

	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	if err := toml.Unmarshal(data, &layout); err != nil {
		return Layout{}, fmt.Errorf("decode layout %s: %w", path, err)
	}
	if err := layout.Validate(); err != nil {
		return Layout{}, err
	}
	return layout, nil
}
