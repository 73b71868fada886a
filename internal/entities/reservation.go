package entities

type Status string

const (
	StatusReserved  Status = "RESERVED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusReserved, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo encodes the reservation status table: RESERVED may become
// CANCELLED (user cancel) or ACTIVE (payment/activation); ACTIVE may become
// COMPLETED (barrier close). COMPLETED and CANCELLED are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusReserved:
		return next == StatusCancelled || next == StatusActive
	case StatusActive:
		return next == StatusCompleted
	}
	return false
}

// Reservation is the flattened, server-authoritative shape. SlotID refers to
// the physical parking slot, not the reservation itself.
type Reservation struct {
	ID             int64  `json:"id"`
	ParkingLotName string `json:"parkingLotName"`
	SlotID         int64  `json:"slotId"`
	SlotNumber     int    `json:"slotNumber"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	TotalPrice     int    `json:"totalPrice"`
	Status         Status `json:"status"`
	SlotOpened     bool   `json:"slotOpened"`
}

// Label returns the reservation's occupied interval as a conflict key.
func (r Reservation) Label() string {
	return r.StartTime + "~" + r.EndTime
}

// Cancellable reports whether a user cancel is still permitted.
func (r Reservation) Cancellable() bool {
	return r.Status == StatusReserved
}
