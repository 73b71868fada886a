package entities

type RegisterResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Message  string `json:"message,omitempty"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type UserInfoResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// ReservationResponse is the backend's reservation body. Start/end may be
// empty on older backend revisions, in which case the client derives them
// from the requested labels.
type ReservationResponse struct {
	ReservationID  int64  `json:"reservationId"`
	Username       string `json:"username"`
	ParkingLotName string `json:"parkingLotName"`
	SlotID         int64  `json:"slotId"`
	SlotNumber     int    `json:"slotNumber"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	TotalPrice     int    `json:"totalPrice"`
	Status         Status `json:"status"`
	SlotOpened     bool   `json:"slotOpened"`
}

type SimpleResponse struct {
	Message string `json:"message"`
}
