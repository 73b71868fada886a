package entities

import "fmt"

// TimeSlot is a fixed one-hour reservable interval in the daily catalog.
type TimeSlot struct {
	StartTime string `json:"startTime"` // "09:00"
	EndTime   string `json:"endTime"`   // "10:00"
	Price     int    `json:"price"`
}

// Label is the "start~end" string used as the conflict key.
func (t TimeSlot) Label() string {
	return fmt.Sprintf("%s~%s", t.StartTime, t.EndTime)
}
