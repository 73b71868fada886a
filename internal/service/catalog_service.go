package service

import (
	"errors"
	"fmt"
	"sort"

	"parkingapp/internal/entities"
)

// catalogHours is the number of hourly slots in a day's catalog.
const catalogHours = 24

var (
	ErrSlotUnknown    = errors.New("time slot is not in the catalog")
	ErrSlotReserved   = errors.New("time slot is already reserved")
	ErrEmptySelection = errors.New("no time slots selected")
	ErrNotContinuous  = errors.New("selected time slots must be continuous")
)

// BuildCatalog returns the ordered daily catalog for a lot: 24 one-hour slots
// from 00:00-01:00 through 23:00-00:00, each priced at the lot's hourly rate.
func BuildCatalog(lot entities.ParkingLot) []entities.TimeSlot {
	slots := make([]entities.TimeSlot, 0, catalogHours)
	for hour := 0; hour < catalogHours; hour++ {
		slots = append(slots, entities.TimeSlot{
			StartTime: fmt.Sprintf("%02d:00", hour),
			EndTime:   fmt.Sprintf("%02d:00", (hour+1)%24),
			Price:     lot.PricePerHour,
		})
	}
	return slots
}

// Selection is a working set of catalog slots the user is toggling on and
// off. Catalog order defines temporal order; a selection is reservable when
// it is non-empty and occupies an unbroken run of catalog positions.
type Selection struct {
	catalog  []entities.TimeSlot
	index    map[string]int
	reserved map[string]struct{}
	picked   map[string]struct{}
}

// NewSelection builds a selection over catalog with the given set of
// already-reserved slot labels.
func NewSelection(catalog []entities.TimeSlot, reserved map[string]struct{}) *Selection {
	index := make(map[string]int, len(catalog))
	for i, slot := range catalog {
		index[slot.Label()] = i
	}
	if reserved == nil {
		reserved = map[string]struct{}{}
	}
	return &Selection{
		catalog:  catalog,
		index:    index,
		reserved: reserved,
		picked:   make(map[string]struct{}),
	}
}

// Selectable reports whether the slot can be toggled at all. Reserved slots
// are disabled, never errored on after the fact.
func (s *Selection) Selectable(slot entities.TimeSlot) bool {
	label := slot.Label()
	if _, ok := s.index[label]; !ok {
		return false
	}
	_, taken := s.reserved[label]
	return !taken
}

// Toggle adds the slot to the selection, or removes it when already picked.
func (s *Selection) Toggle(slot entities.TimeSlot) error {
	label := slot.Label()
	if _, ok := s.index[label]; !ok {
		return ErrSlotUnknown
	}
	if _, taken := s.reserved[label]; taken {
		return ErrSlotReserved
	}
	if _, picked := s.picked[label]; picked {
		delete(s.picked, label)
		return nil
	}
	s.picked[label] = struct{}{}
	return nil
}

// Selected returns the picked slots sorted by catalog position.
func (s *Selection) Selected() []entities.TimeSlot {
	indices := make([]int, 0, len(s.picked))
	for label := range s.picked {
		indices = append(indices, s.index[label])
	}
	sort.Ints(indices)

	out := make([]entities.TimeSlot, 0, len(indices))
	for _, i := range indices {
		out = append(out, s.catalog[i])
	}
	return out
}

// Labels returns the sorted labels of the selection, the shape the
// reservation endpoint expects.
func (s *Selection) Labels() []string {
	selected := s.Selected()
	labels := make([]string, 0, len(selected))
	for _, slot := range selected {
		labels = append(labels, slot.Label())
	}
	return labels
}

// Continuous reports whether the sorted selection occupies adjacent catalog
// indices. A single slot is trivially continuous, as is an empty selection.
func (s *Selection) Continuous() bool {
	selected := s.Selected()
	for i := 1; i < len(selected); i++ {
		if s.index[selected[i].Label()] != s.index[selected[i-1].Label()]+1 {
			return false
		}
	}
	return true
}

// Reservable reports whether the selection may proceed to slot choice.
func (s *Selection) Reservable() bool {
	return len(s.picked) > 0 && s.Continuous()
}

// Validate returns the reason a selection cannot be reserved, or nil.
func (s *Selection) Validate() error {
	if len(s.picked) == 0 {
		return ErrEmptySelection
	}
	if !s.Continuous() {
		return ErrNotContinuous
	}
	return nil
}

// TotalPrice sums the prices of the selected slots. Prices were fixed at
// catalog generation, so a later rate change never affects this selection.
func (s *Selection) TotalPrice() int {
	total := 0
	for label := range s.picked {
		total += s.catalog[s.index[label]].Price
	}
	return total
}

// Clear empties the working set.
func (s *Selection) Clear() {
	s.picked = make(map[string]struct{})
}
