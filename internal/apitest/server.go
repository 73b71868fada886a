// Package apitest provides an in-memory stand-in for the parking backend,
// covering the REST surface the client consumes. Tests seed it with lots,
// slots and reservations and point a real client at its URL.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"parkingapp/internal/entities"
)

type user struct {
	ID           int64
	Username     string
	PasswordHash []byte
	Email        string
	Phone        string
}

// Server is the fake backend. All state lives behind one mutex; handlers are
// deliberately simple so test failures point at the client, not the fake.
type Server struct {
	httpServer *httptest.Server
	jwtSecret  []byte

	mu           sync.Mutex
	users        map[string]*user
	lots         map[int64]entities.ParkingLot
	slots        map[int64]*entities.ParkingSlot // keyed by slot id
	slotLots     map[int64]int64                 // slot id -> lot id
	reservations map[int64]*serverReservation
	nextUserID   int64
	nextResID    int64

	requests int
	failNext int
}

type serverReservation struct {
	entities.Reservation
	Username string
}

func NewServer() *Server {
	s := &Server{
		jwtSecret:    []byte("apitest-signing-key"),
		users:        make(map[string]*user),
		lots:         make(map[int64]entities.ParkingLot),
		slots:        make(map[int64]*entities.ParkingSlot),
		slotLots:     make(map[int64]int64),
		reservations: make(map[int64]*serverReservation),
		nextUserID:   1,
		nextResID:    1,
	}

	r := mux.NewRouter()
	r.HandleFunc("/auth/register", s.handleRegister).Methods("POST")
	r.HandleFunc("/auth/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/auth/me", s.authed(s.handleMe)).Methods("GET")
	r.HandleFunc("/parking-lots", s.authed(s.handleParkingLots)).Methods("GET")
	r.HandleFunc("/parking-lots/{id}/available-slots", s.authed(s.handleAvailableSlots)).Methods("GET")
	r.HandleFunc("/reservations", s.authed(s.handleCreateReservation)).Methods("POST")
	r.HandleFunc("/reservations/my", s.authed(s.handleMyReservations)).Methods("GET")
	r.HandleFunc("/reservations/{id}", s.authed(s.handleCancelReservation)).Methods("DELETE")
	r.HandleFunc("/reservations/{id}/status", s.authed(s.handleUpdateStatus)).Methods("PATCH")
	r.HandleFunc("/barrier/{slotId}/open", s.authed(s.handleBarrier(true))).Methods("POST")
	r.HandleFunc("/barrier/{slotId}/close", s.authed(s.handleBarrier(false))).Methods("POST")

	s.httpServer = httptest.NewServer(handlers.RecoveryHandler()(s.instrument(r)))
	return s
}

func (s *Server) URL() string { return s.httpServer.URL }

func (s *Server) Close() { s.httpServer.Close() }

// FailNext forces the next n requests to answer 500 without touching state.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	s.failNext = n
	s.mu.Unlock()
}

// Requests returns how many requests the server has handled.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// SeedUser registers a user directly, bypassing the register endpoint.
func (s *Server) SeedUser(username, password, email, phone string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = &user{
		ID:           s.nextUserID,
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		Phone:        phone,
	}
	s.nextUserID++
	return nil
}

// SeedLot installs a lot and its physical slots.
func (s *Server) SeedLot(lot entities.ParkingLot, slots ...entities.ParkingSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lots[lot.ID] = lot
	for _, slot := range slots {
		copied := slot
		s.slots[slot.ID] = &copied
		s.slotLots[slot.ID] = lot.ID
	}
}

// SeedReservation installs a reservation owned by username and returns its id.
func (s *Server) SeedReservation(username string, r entities.Reservation) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.nextResID
	}
	if r.ID >= s.nextResID {
		s.nextResID = r.ID + 1
	}
	s.reservations[r.ID] = &serverReservation{Reservation: r, Username: username}
	return r.ID
}

// Reservation returns the server's copy for assertions.
func (s *Server) Reservation(id int64) (entities.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return entities.Reservation{}, false
	}
	return r.Reservation, true
}

// TokenFor issues a signed token for username without going through login.
func (s *Server) TokenFor(username string) string {
	token, err := s.issueToken(username, time.Hour)
	if err != nil {
		panic(err)
	}
	return token
}

// ExpiredTokenFor issues a token whose exp is already in the past.
func (s *Server) ExpiredTokenFor(username string) string {
	token, err := s.issueToken(username, -time.Hour)
	if err != nil {
		panic(err)
	}
	return token
}

func (s *Server) issueToken(username string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"exp": jwt.NewNumericDate(time.Now().Add(ttl)),
		"iat": jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		fail := s.failNext > 0
		if fail {
			s.failNext--
		}
		s.mu.Unlock()

		if fail {
			writeError(w, http.StatusInternalServerError, "forced failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authed validates the bearer token and resolves the caller.
func (s *Server) authed(next func(http.ResponseWriter, *http.Request, *user)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.jwtSecret, nil
		})
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		username, _ := claims["sub"].(string)

		s.mu.Lock()
		u, ok := s.users[username]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		next(w, r, u)
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req entities.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Username]; exists {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "hashing password")
		return
	}
	u := &user{
		ID:           s.nextUserID,
		Username:     req.Username,
		PasswordHash: hash,
		Email:        req.Email,
		Phone:        req.Phone,
	}
	s.nextUserID++
	s.users[req.Username] = u

	writeJSON(w, http.StatusCreated, entities.RegisterResponse{
		ID:       u.ID,
		Username: u.Username,
		Message:  "registered",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req entities.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Username]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.issueToken(u.Username, time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issuing token")
		return
	}
	writeJSON(w, http.StatusOK, entities.LoginResponse{Token: token})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, u *user) {
	writeJSON(w, http.StatusOK, entities.UserInfoResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Phone:    u.Phone,
	})
}

func (s *Server) handleParkingLots(w http.ResponseWriter, _ *http.Request, _ *user) {
	s.mu.Lock()
	lots := make([]entities.ParkingLot, 0, len(s.lots))
	for _, lot := range s.lots {
		lots = append(lots, lot)
	}
	s.mu.Unlock()

	sort.Slice(lots, func(i, j int) bool { return lots[i].ID < lots[j].ID })
	writeJSON(w, http.StatusOK, lots)
}

func (s *Server) handleAvailableSlots(w http.ResponseWriter, r *http.Request, _ *user) {
	lotID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lot id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.ParkingSlot, 0)
	for sid, lid := range s.slotLots {
		if lid != lotID {
			continue
		}
		slot := *s.slots[sid]
		slot.Available = !s.slotHeldLocked(sid)
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotNumber < out[j].SlotNumber })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateReservation(w http.ResponseWriter, r *http.Request, u *user) {
	var req entities.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.TimeSlots) == 0 {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[req.SlotID]
	if !ok {
		writeError(w, http.StatusNotFound, "slot not found")
		return
	}
	if s.slotHeldLocked(req.SlotID) {
		writeError(w, http.StatusConflict, "slot already reserved")
		return
	}
	lot := s.lots[s.slotLots[req.SlotID]]

	labels := make([]string, len(req.TimeSlots))
	copy(labels, req.TimeSlots)
	sort.Strings(labels)
	start := strings.SplitN(labels[0], "~", 2)[0]
	endParts := strings.SplitN(labels[len(labels)-1], "~", 2)
	end := endParts[len(endParts)-1]

	res := &serverReservation{
		Reservation: entities.Reservation{
			ID:             s.nextResID,
			ParkingLotName: lot.Name,
			SlotID:         slot.ID,
			SlotNumber:     slot.SlotNumber,
			StartTime:      start,
			EndTime:        end,
			TotalPrice:     lot.PricePerHour * len(labels),
			Status:         entities.StatusReserved,
		},
		Username: u.Username,
	}
	s.nextResID++
	s.reservations[res.ID] = res

	writeJSON(w, http.StatusCreated, responseFor(res))
}

func (s *Server) handleMyReservations(w http.ResponseWriter, _ *http.Request, u *user) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entities.ReservationResponse, 0)
	for _, res := range s.reservations {
		if res.Username == u.Username {
			out = append(out, responseFor(res))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservationID < out[j].ReservationID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCancelReservation(w http.ResponseWriter, r *http.Request, u *user) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	if !ok || res.Username != u.Username {
		writeError(w, http.StatusNotFound, "reservation not found")
		return
	}
	if res.Status != entities.StatusReserved {
		writeError(w, http.StatusConflict, "reservation is no longer cancellable")
		return
	}
	res.Status = entities.StatusCancelled
	writeJSON(w, http.StatusOK, entities.SimpleResponse{Message: "reservation cancelled"})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request, u *user) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}
	status := entities.Status(r.URL.Query().Get("status"))
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	if !ok || res.Username != u.Username {
		writeError(w, http.StatusNotFound, "reservation not found")
		return
	}
	res.Status = status
	writeJSON(w, http.StatusOK, entities.SimpleResponse{Message: "status updated"})
}

func (s *Server) handleBarrier(open bool) func(http.ResponseWriter, *http.Request, *user) {
	return func(w http.ResponseWriter, r *http.Request, u *user) {
		slotID, err := strconv.ParseInt(mux.Vars(r)["slotId"], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid slot id")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		slot, ok := s.slots[slotID]
		if !ok {
			writeError(w, http.StatusNotFound, "slot not found")
			return
		}

		var res *serverReservation
		for _, candidate := range s.reservations {
			if candidate.SlotID == slotID && candidate.Username == u.Username &&
				candidate.Status == entities.StatusActive {
				res = candidate
				break
			}
		}
		if res == nil {
			writeError(w, http.StatusConflict, "no active reservation for slot")
			return
		}

		if open {
			slot.Opened = true
			res.SlotOpened = true
			writeJSON(w, http.StatusOK, entities.SimpleResponse{Message: "barrier opened"})
			return
		}
		if !res.SlotOpened {
			writeError(w, http.StatusConflict, "barrier is not open")
			return
		}
		slot.Opened = false
		res.SlotOpened = false
		res.Status = entities.StatusCompleted
		writeJSON(w, http.StatusOK, entities.SimpleResponse{Message: "barrier closed"})
	}
}

// slotHeldLocked reports whether a non-terminal reservation holds the slot.
// Callers must hold s.mu.
func (s *Server) slotHeldLocked(slotID int64) bool {
	for _, res := range s.reservations {
		if res.SlotID == slotID && !res.Status.Terminal() {
			return true
		}
	}
	return false
}

func responseFor(res *serverReservation) entities.ReservationResponse {
	return entities.ReservationResponse{
		ReservationID:  res.ID,
		Username:       res.Username,
		ParkingLotName: res.ParkingLotName,
		SlotID:         res.SlotID,
		SlotNumber:     res.SlotNumber,
		StartTime:      res.StartTime,
		EndTime:        res.EndTime,
		TotalPrice:     res.TotalPrice,
		Status:         res.Status,
		SlotOpened:     res.SlotOpened,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, entities.SimpleResponse{Message: message})
}
