package entities

type ParkingLot struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Distance       int    `json:"distance"`
	PricePerHour   int    `json:"pricePerHour"`
	AvailableSlots int    `json:"availableSlots"`
	IsAvailable    bool   `json:"isAvailable"`
	ImageURL       string `json:"imageUrl,omitempty"`
}

// ParkingSlot is a numbered physical space at a lot, independent of time.
type ParkingSlot struct {
	ID         int64 `json:"id"`
	SlotNumber int   `json:"slotNumber"`
	Available  bool  `json:"available"`
	Opened     bool  `json:"opened"`
}
