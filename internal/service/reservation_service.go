package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"parkingapp/internal/entities"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrNotCancellable      = errors.New("reservation can only be cancelled while reserved")
	ErrInvalidTransition   = errors.New("status transition not allowed")
)

// Backend is the remote surface the lifecycle manager depends on.
type Backend interface {
	MyReservations(ctx context.Context) ([]entities.ReservationResponse, error)
	CreateReservation(ctx context.Context, req entities.ReservationRequest) (*entities.ReservationResponse, error)
	CancelReservation(ctx context.Context, reservationID int64) error
	UpdateReservationStatus(ctx context.Context, reservationID int64, status entities.Status) error
	OpenBarrier(ctx context.Context, slotID int64) error
	CloseBarrier(ctx context.Context, slotID int64) error
}

// ReservationService owns the locally cached reservation list. Every
// operation pairs a remote call with a local projection update, and the
// local list is only ever mutated after the remote call succeeded. The list
// is replaced wholesale on every change so readers never observe a partial
// update.
type ReservationService struct {
	backend Backend

	mu           sync.RWMutex
	reservations []entities.Reservation
}

func NewReservationService(backend Backend) *ReservationService {
	return &ReservationService{backend: backend}
}

// Reservations returns a copy of the cached list.
func (s *ReservationService) Reservations() []entities.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Reservation, len(s.reservations))
	copy(out, s.reservations)
	return out
}

// Get returns the cached reservation with the given id.
func (s *ReservationService) Get(reservationID int64) (entities.Reservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reservations {
		if r.ID == reservationID {
			return r, true
		}
	}
	return entities.Reservation{}, false
}

// Refresh replaces the cached list with the backend's. On failure the stale
// list stays available; the backend is the authority after any mutation, so
// callers should Refresh after racing operations.
func (s *ReservationService) Refresh(ctx context.Context) error {
	responses, err := s.backend.MyReservations(ctx)
	if err != nil {
		log.Printf("Refreshing reservations failed, keeping cached list: %v", err)
		return fmt.Errorf("fetching reservations: %w", err)
	}

	fresh := make([]entities.Reservation, 0, len(responses))
	for _, resp := range responses {
		fresh = append(fresh, reservationFromResponse(resp, nil))
	}

	s.mu.Lock()
	s.reservations = fresh
	s.mu.Unlock()
	return nil
}

// Create submits a reservation for a physical slot over a run of time-slot
// labels and caches the reservation the server confirmed. Nothing is cached
// when the call fails.
func (s *ReservationService) Create(ctx context.Context, slotID int64, labels []string) (*entities.Reservation, error) {
	if len(labels) == 0 {
		return nil, ErrEmptySelection
	}
	sorted := make([]string, len(labels))
	copy(sorted, labels)
	sort.Strings(sorted)

	resp, err := s.backend.CreateReservation(ctx, entities.ReservationRequest{
		SlotID:    slotID,
		TimeSlots: sorted,
	})
	if err != nil {
		return nil, fmt.Errorf("creating reservation: %w", err)
	}

	created := reservationFromResponse(*resp, sorted)

	s.mu.Lock()
	next := make([]entities.Reservation, len(s.reservations), len(s.reservations)+1)
	copy(next, s.reservations)
	s.reservations = append(next, created)
	s.mu.Unlock()

	return &created, nil
}

// Cancel issues a remote cancel and marks the cached copy CANCELLED. The
// entry is kept so the cancellation stays visible in the history. A
// reservation that is no longer RESERVED is rejected locally, without a
// remote call.
func (s *ReservationService) Cancel(ctx context.Context, reservationID int64) error {
	current, ok := s.Get(reservationID)
	if !ok {
		return ErrReservationNotFound
	}
	if !current.Cancellable() {
		return fmt.Errorf("%w: status is %s", ErrNotCancellable, current.Status)
	}

	if err := s.backend.CancelReservation(ctx, reservationID); err != nil {
		return fmt.Errorf("cancelling reservation %d: %w", reservationID, err)
	}

	s.mutate(reservationID, func(r *entities.Reservation) {
		r.Status = entities.StatusCancelled
	})
	return nil
}

// SetStatus asks the backend for a direct status override (the manual
// testing control) and mirrors it locally on success. The transition is
// checked against the status table before anything is sent.
func (s *ReservationService) SetStatus(ctx context.Context, reservationID int64, status entities.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	current, ok := s.Get(reservationID)
	if !ok {
		return ErrReservationNotFound
	}
	if !current.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
	}

	if err := s.backend.UpdateReservationStatus(ctx, reservationID, status); err != nil {
		return fmt.Errorf("updating reservation %d status: %w", reservationID, err)
	}

	s.mutate(reservationID, func(r *entities.Reservation) {
		r.Status = status
	})
	return nil
}

// ReservedLabels returns the time-slot labels still occupied by the user's
// reservations, the conflict checker's reserved set. Terminal reservations
// no longer block a slot.
func (s *ReservationService) ReservedLabels() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	labels := make(map[string]struct{})
	for _, r := range s.reservations {
		if r.Status.Terminal() {
			continue
		}
		labels[r.Label()] = struct{}{}
	}
	return labels
}

// mutate applies fn to the reservation with the given id on a fresh copy of
// the list and swaps the copy in.
func (s *ReservationService) mutate(reservationID int64, fn func(*entities.Reservation)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]entities.Reservation, len(s.reservations))
	copy(next, s.reservations)
	for i := range next {
		if next[i].ID == reservationID {
			fn(&next[i])
		}
	}
	s.reservations = next
}

// reservationFromResponse flattens a server body into the canonical shape.
// Older backend revisions omit start/end, so the requested labels serve as a
// fallback.
func reservationFromResponse(resp entities.ReservationResponse, sortedLabels []string) entities.Reservation {
	r := entities.Reservation{
		ID:             resp.ReservationID,
		ParkingLotName: resp.ParkingLotName,
		SlotID:         resp.SlotID,
		SlotNumber:     resp.SlotNumber,
		StartTime:      resp.StartTime,
		EndTime:        resp.EndTime,
		TotalPrice:     resp.TotalPrice,
		Status:         resp.Status,
		SlotOpened:     resp.SlotOpened,
	}
	if (r.StartTime == "" || r.EndTime == "") && len(sortedLabels) > 0 {
		r.StartTime, r.EndTime = spanOfLabels(sortedLabels)
	}
	return r
}

// spanOfLabels returns the overall start and end of a sorted label run.
func spanOfLabels(sorted []string) (start, end string) {
	first := sorted[0]
	last := sorted[len(sorted)-1]
	if i := strings.Index(first, "~"); i >= 0 {
		start = first[:i]
	}
	if i := strings.Index(last, "~"); i >= 0 {
		end = last[i+1:]
	}
	return start, end
}
