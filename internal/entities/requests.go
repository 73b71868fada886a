package entities

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Password string `json:"password" validate:"required,min=8"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,e164"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ReservationRequest books a physical slot for a run of time-slot labels.
type ReservationRequest struct {
	SlotID    int64    `json:"slotId" validate:"required,gt=0"`
	TimeSlots []string `json:"timeSlots" validate:"required,min=1,dive,required"`
}
