package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkingapp/internal/entities"
)

func TestValidateRegister(t *testing.T) {
	rv := NewRequestValidator()

	ok := entities.RegisterRequest{
		Username: "erika",
		Password: "long-enough-pass",
		Email:    "erika@example.com",
		Phone:    "+491701234567",
	}
	assert.NoError(t, rv.ValidateRegister(ok))

	bad := entities.RegisterRequest{
		Username: "er",
		Password: "short",
		Email:    "not-an-email",
		Phone:    "12345",
	}
	err := rv.ValidateRegister(bad)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := make([]string, 0, len(verrs))
	for _, ve := range verrs {
		fields = append(fields, ve.Field)
	}
	assert.ElementsMatch(t, []string{"Username", "Password", "Email", "Phone"}, fields)
}

func TestValidateLogin(t *testing.T) {
	rv := NewRequestValidator()

	assert.NoError(t, rv.ValidateLogin(entities.LoginRequest{Username: "erika", Password: "pw"}))
	assert.Error(t, rv.ValidateLogin(entities.LoginRequest{Username: "erika"}))
	assert.Error(t, rv.ValidateLogin(entities.LoginRequest{}))
}

func TestValidateReservation(t *testing.T) {
	rv := NewRequestValidator()

	ok := entities.ReservationRequest{SlotID: 7, TimeSlots: []string{"09:00~10:00"}}
	assert.NoError(t, rv.ValidateReservation(ok))

	assert.Error(t, rv.ValidateReservation(entities.ReservationRequest{TimeSlots: []string{"09:00~10:00"}}))
	assert.Error(t, rv.ValidateReservation(entities.ReservationRequest{SlotID: 7}))
	assert.Error(t, rv.ValidateReservation(entities.ReservationRequest{SlotID: 7, TimeSlots: []string{""}}))
}
