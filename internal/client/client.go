package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"parkingapp/internal/auth"
	"parkingapp/internal/entities"
	apperrors "parkingapp/internal/errors"
)

// Client talks to the parking backend. It is the client-side counterpart of a
// repository: one method per endpoint, no local state beyond the session token.
type Client struct {
	baseURL string
	http    *http.Client
	store   *auth.TokenStore
}

func New(baseURL string, store *auth.TokenStore, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		http: &http.Client{
			Timeout:   timeout,
			Transport: auth.NewTransport(store),
		},
	}
}

// Register creates an account. No token is issued; call Login afterwards.
func (c *Client) Register(ctx context.Context, req entities.RegisterRequest) (*entities.RegisterResponse, error) {
	var resp entities.RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates and persists the returned bearer token.
func (c *Client) Login(ctx context.Context, req entities.LoginRequest) error {
	var resp entities.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return err
	}
	if resp.Token == "" {
		return fmt.Errorf("login succeeded but no token was returned")
	}
	return c.store.Save(resp.Token)
}

// Logout drops the persisted credential. Purely local; the backend keeps no
// session state beyond the token itself.
func (c *Client) Logout() error {
	return c.store.Clear()
}

func (c *Client) Me(ctx context.Context) (*entities.UserInfoResponse, error) {
	var resp entities.UserInfoResponse
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ParkingLots lists lots, deriving the availability flag from the slot count.
func (c *Client) ParkingLots(ctx context.Context) ([]entities.ParkingLot, error) {
	var lots []entities.ParkingLot
	if err := c.do(ctx, http.MethodGet, "/parking-lots", nil, &lots); err != nil {
		return nil, err
	}
	for i := range lots {
		lots[i].IsAvailable = lots[i].AvailableSlots > 0
	}
	return lots, nil
}

// AvailableSlots lists physical slots of a lot free for the given date and
// time-slot labels.
func (c *Client) AvailableSlots(ctx context.Context, lotID int64, date string, timeSlots []string) ([]entities.ParkingSlot, error) {
	q := url.Values{}
	q.Set("date", date)
	for _, ts := range timeSlots {
		q.Add("timeSlots", ts)
	}
	path := fmt.Sprintf("/parking-lots/%d/available-slots?%s", lotID, q.Encode())

	var slots []entities.ParkingSlot
	if err := c.do(ctx, http.MethodGet, path, nil, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (c *Client) CreateReservation(ctx context.Context, req entities.ReservationRequest) (*entities.ReservationResponse, error) {
	var resp entities.ReservationResponse
	if err := c.do(ctx, http.MethodPost, "/reservations", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) MyReservations(ctx context.Context) ([]entities.ReservationResponse, error) {
	var resp []entities.ReservationResponse
	if err := c.do(ctx, http.MethodGet, "/reservations/my", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) CancelReservation(ctx context.Context, reservationID int64) error {
	path := "/reservations/" + strconv.FormatInt(reservationID, 10)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// UpdateReservationStatus is the manual status override used by the testing
// controls (for example forcing ACTIVE after an out-of-band payment).
func (c *Client) UpdateReservationStatus(ctx context.Context, reservationID int64, status entities.Status) error {
	path := fmt.Sprintf("/reservations/%d/status?status=%s", reservationID, url.QueryEscape(string(status)))
	return c.do(ctx, http.MethodPatch, path, nil, nil)
}

// OpenBarrier raises the barrier of a physical slot.
func (c *Client) OpenBarrier(ctx context.Context, slotID int64) error {
	path := fmt.Sprintf("/barrier/%d/open", slotID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// CloseBarrier lowers the barrier of a physical slot.
func (c *Client) CloseBarrier(ctx context.Context, slotID int64) error {
	path := fmt.Sprintf("/barrier/%d/close", slotID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewAPIError(resp.StatusCode, readErrorMessage(resp.Body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s %s: %w", method, path, err)
	}
	return nil
}

// readErrorMessage extracts the server's message from an error body, falling
// back to the raw body when it is not the usual {"message": ...} shape.
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var simple entities.SimpleResponse
	if err := json.Unmarshal(data, &simple); err == nil && simple.Message != "" {
		return simple.Message
	}
	return strings.TrimSpace(string(data))
}
