package service

import (
	"context"
	"errors"
	"fmt"

	"parkingapp/internal/entities"
)

var (
	ErrBarrierNotAllowed = errors.New("barrier control requires an active reservation")
	ErrBarrierNotOpen    = errors.New("barrier is not open for this reservation")
	ErrSlotMismatch      = errors.New("slot does not belong to this reservation")
)

// BarrierService translates entry/exit intents into barrier commands keyed
// by the physical slot id and feeds the outcome back into the reservation
// cache. The remote command always completes before any local state changes;
// a failed command changes nothing.
type BarrierService struct {
	backend      Backend
	reservations *ReservationService
}

func NewBarrierService(backend Backend, reservations *ReservationService) *BarrierService {
	return &BarrierService{backend: backend, reservations: reservations}
}

// OpenBarrier raises the barrier for entry. Permitted only while the
// reservation is ACTIVE; on success the slot-opened flag is set, the status
// stays ACTIVE.
func (s *BarrierService) OpenBarrier(ctx context.Context, reservationID, slotID int64) error {
	if _, err := s.eligible(reservationID, slotID); err != nil {
		return err
	}

	if err := s.backend.OpenBarrier(ctx, slotID); err != nil {
		return fmt.Errorf("opening barrier for slot %d: %w", slotID, err)
	}

	s.reservations.mutate(reservationID, func(r *entities.Reservation) {
		r.SlotOpened = true
	})
	return nil
}

// CloseBarrier lowers the barrier for exit and completes the reservation.
// Permitted only while the reservation is ACTIVE with the barrier open.
func (s *BarrierService) CloseBarrier(ctx context.Context, reservationID, slotID int64) error {
	r, err := s.eligible(reservationID, slotID)
	if err != nil {
		return err
	}
	if !r.SlotOpened {
		return ErrBarrierNotOpen
	}

	if err := s.backend.CloseBarrier(ctx, slotID); err != nil {
		return fmt.Errorf("closing barrier for slot %d: %w", slotID, err)
	}

	s.reservations.mutate(reservationID, func(r *entities.Reservation) {
		r.Status = entities.StatusCompleted
		r.SlotOpened = false
	})
	return nil
}

func (s *BarrierService) eligible(reservationID, slotID int64) (entities.Reservation, error) {
	r, ok := s.reservations.Get(reservationID)
	if !ok {
		return entities.Reservation{}, ErrReservationNotFound
	}
	if r.SlotID != slotID {
		return entities.Reservation{}, fmt.Errorf("%w: reservation %d holds slot %d", ErrSlotMismatch, reservationID, r.SlotID)
	}
	if r.Status != entities.StatusActive {
		return entities.Reservation{}, fmt.Errorf("%w: status is %s", ErrBarrierNotAllowed, r.Status)
	}
	return r, nil
}
