package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkingapp/internal/entities"
	"parkingapp/internal/service"
)

func seedActive(t *testing.T, env *testEnv) int64 {
	t.Helper()
	id := env.server.SeedReservation("erika", entities.Reservation{
		ID: 42, ParkingLotName: "Central Garage", SlotID: 7, SlotNumber: 7,
		StartTime: "08:00", EndTime: "10:00", TotalPrice: 4000, Status: entities.StatusActive,
	})
	require.NoError(t, env.reservations.Refresh(context.Background()))
	return id
}

func TestOpenThenCloseBarrier(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := seedActive(t, env)

	require.NoError(t, env.barrier.OpenBarrier(ctx, id, 7))

	r, ok := env.reservations.Get(id)
	require.True(t, ok)
	assert.True(t, r.SlotOpened)
	// Opening the barrier does not change the status.
	assert.Equal(t, entities.StatusActive, r.Status)

	require.NoError(t, env.barrier.CloseBarrier(ctx, id, 7))

	r, ok = env.reservations.Get(id)
	require.True(t, ok)
	assert.False(t, r.SlotOpened)
	assert.Equal(t, entities.StatusCompleted, r.Status)

	remote, ok := env.server.Reservation(id)
	require.True(t, ok)
	assert.Equal(t, entities.StatusCompleted, remote.Status)
	assert.False(t, remote.SlotOpened)
}

func TestOpenBarrierRequiresActiveStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.server.SeedReservation("erika", entities.Reservation{
		SlotID: 7, SlotNumber: 7, StartTime: "08:00", EndTime: "09:00",
		TotalPrice: 2000, Status: entities.StatusReserved,
	})
	require.NoError(t, env.reservations.Refresh(ctx))

	before := env.server.Requests()
	err := env.barrier.OpenBarrier(ctx, id, 7)

	assert.ErrorIs(t, err, service.ErrBarrierNotAllowed)
	// Rejected locally, no barrier command issued.
	assert.Equal(t, before, env.server.Requests())

	r, _ := env.reservations.Get(id)
	assert.False(t, r.SlotOpened)
}

func TestOpenBarrierRemoteFailureLeavesFlagUnset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := seedActive(t, env)

	env.server.FailNext(1)
	err := env.barrier.OpenBarrier(ctx, id, 7)
	require.Error(t, err)

	// The flag only flips strictly after a successful open response.
	r, ok := env.reservations.Get(id)
	require.True(t, ok)
	assert.False(t, r.SlotOpened)
	assert.Equal(t, entities.StatusActive, r.Status)
}

func TestCloseBarrierRequiresOpenBarrier(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := seedActive(t, env)

	before := env.server.Requests()
	err := env.barrier.CloseBarrier(ctx, id, 7)

	assert.ErrorIs(t, err, service.ErrBarrierNotOpen)
	assert.Equal(t, before, env.server.Requests())
}

func TestCloseBarrierRemoteFailureLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := seedActive(t, env)

	require.NoError(t, env.barrier.OpenBarrier(ctx, id, 7))

	env.server.FailNext(1)
	err := env.barrier.CloseBarrier(ctx, id, 7)
	require.Error(t, err)

	r, ok := env.reservations.Get(id)
	require.True(t, ok)
	assert.True(t, r.SlotOpened)
	assert.Equal(t, entities.StatusActive, r.Status)
}

func TestBarrierSlotMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := seedActive(t, env)

	err := env.barrier.OpenBarrier(ctx, id, 8)
	assert.ErrorIs(t, err, service.ErrSlotMismatch)
}

func TestBarrierUnknownReservation(t *testing.T) {
	env := newTestEnv(t)

	err := env.barrier.OpenBarrier(context.Background(), 999, 7)
	assert.ErrorIs(t, err, service.ErrReservationNotFound)
}
