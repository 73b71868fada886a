package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"parkingapp/internal/auth"
	"parkingapp/internal/client"
	"parkingapp/internal/config"
	"parkingapp/internal/entities"
	"parkingapp/internal/service"
	"parkingapp/internal/validation"
)

type app struct {
	client       *client.Client
	store        *auth.TokenStore
	reservations *service.ReservationService
	barrier      *service.BarrierService
	validator    *validation.RequestValidator
	refreshSpec  string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: parkingctl [register|login|logout|me|lots|slots|reserve|list|cancel|status|open|close|watch] [flags]")
		os.Exit(1)
	}

	cfg := config.Load()
	store := auth.NewTokenStore(cfg.TokenPath)
	c := client.New(cfg.BaseURL, store, cfg.HTTPTimeout)
	reservations := service.NewReservationService(c)

	a := &app{
		client:       c,
		store:        store,
		reservations: reservations,
		barrier:      service.NewBarrierService(c, reservations),
		validator:    validation.NewRequestValidator(),
		refreshSpec:  cfg.RefreshSpec,
	}

	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "register":
		a.registerCmd(args)
	case "login":
		a.loginCmd(args)
	case "logout":
		a.logoutCmd()
	case "me":
		a.meCmd()
	case "lots":
		a.lotsCmd()
	case "slots":
		a.slotsCmd(args)
	case "reserve":
		a.reserveCmd(args)
	case "list":
		a.listCmd()
	case "cancel":
		a.cancelCmd(args)
	case "status":
		a.statusCmd(args)
	case "open":
		a.barrierCmd(args, true)
	case "close":
		a.barrierCmd(args, false)
	case "watch":
		a.watchCmd()
	default:
		fmt.Println("unknown command:", cmd)
		os.Exit(1)
	}
}

func callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}

func (a *app) registerCmd(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "account name")
	password := fs.String("password", "", "password")
	email := fs.String("email", "", "email address")
	phone := fs.String("phone", "", "phone number (+491701234567)")
	_ = fs.Parse(args)

	req := entities.RegisterRequest{
		Username: strings.TrimSpace(*username),
		Password: strings.TrimSpace(*password),
		Email:    strings.TrimSpace(*email),
		Phone:    strings.TrimSpace(*phone),
	}
	if err := a.validator.ValidateRegister(req); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := callCtx()
	defer cancel()
	resp, err := a.client.Register(ctx, req)
	if err != nil {
		log.Fatalf("register failed: %v", err)
	}
	fmt.Printf("registered %s (id %d)\n", resp.Username, resp.ID)
}

func (a *app) loginCmd(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "account name")
	password := fs.String("password", "", "password")
	_ = fs.Parse(args)

	req := entities.LoginRequest{
		Username: strings.TrimSpace(*username),
		Password: strings.TrimSpace(*password),
	}
	if err := a.validator.ValidateLogin(req); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := callCtx()
	defer cancel()
	if err := a.client.Login(ctx, req); err != nil {
		log.Fatalf("login failed: %v", err)
	}
	fmt.Println("logged in")
}

func (a *app) logoutCmd() {
	if err := a.client.Logout(); err != nil {
		log.Fatalf("logout failed: %v", err)
	}
	fmt.Println("logged out")
}

func (a *app) meCmd() {
	a.requireSession()
	ctx, cancel := callCtx()
	defer cancel()
	info, err := a.client.Me(ctx)
	if err != nil {
		log.Fatalf("fetching user info failed: %v", err)
	}
	fmt.Printf("%s <%s> %s\n", info.Username, info.Email, info.Phone)
}

func (a *app) lotsCmd() {
	a.requireSession()
	ctx, cancel := callCtx()
	defer cancel()
	lots, err := a.client.ParkingLots(ctx)
	if err != nil {
		log.Fatalf("fetching parking lots failed: %v", err)
	}
	for _, lot := range lots {
		state := "full"
		if lot.IsAvailable {
			state = fmt.Sprintf("%d free", lot.AvailableSlots)
		}
		fmt.Printf("[%d] %s  %dm away  %d/h  %s\n", lot.ID, lot.Name, lot.Distance, lot.PricePerHour, state)
	}
}

func (a *app) slotsCmd(args []string) {
	fs := flag.NewFlagSet("slots", flag.ExitOnError)
	lotID := fs.Int64("lot", 0, "parking lot id")
	date := fs.String("date", time.Now().Format("2006-01-02"), "date (YYYY-MM-DD)")
	slots := fs.String("times", "", "comma-separated time slot labels (09:00~10:00,...)")
	_ = fs.Parse(args)

	if *lotID == 0 || *slots == "" {
		log.Fatal("lot and times are required")
	}
	a.requireSession()

	ctx, cancel := callCtx()
	defer cancel()
	available, err := a.client.AvailableSlots(ctx, *lotID, *date, strings.Split(*slots, ","))
	if err != nil {
		log.Fatalf("fetching available slots failed: %v", err)
	}
	for _, slot := range available {
		state := "taken"
		if slot.Available {
			state = "free"
		}
		fmt.Printf("slot %d (id %d): %s\n", slot.SlotNumber, slot.ID, state)
	}
}

func (a *app) reserveCmd(args []string) {
	fs := flag.NewFlagSet("reserve", flag.ExitOnError)
	lotID := fs.Int64("lot", 0, "parking lot id")
	slotID := fs.Int64("slot", 0, "physical slot id")
	times := fs.String("times", "", "comma-separated time slot labels (09:00~10:00,...)")
	_ = fs.Parse(args)

	if *lotID == 0 || *slotID == 0 || *times == "" {
		log.Fatal("lot, slot and times are required")
	}
	a.requireSession()

	ctx, cancel := callCtx()
	defer cancel()

	lot, err := a.findLot(ctx, *lotID)
	if err != nil {
		log.Fatal(err)
	}
	if err := a.reservations.Refresh(ctx); err != nil {
		log.Fatalf("refreshing reservations failed: %v", err)
	}

	// The continue action is only enabled for a reservable selection, so a
	// bad pick never reaches the network.
	catalog := service.BuildCatalog(lot)
	selection := service.NewSelection(catalog, a.reservations.ReservedLabels())
	for _, label := range strings.Split(*times, ",") {
		slot, ok := slotByLabel(catalog, strings.TrimSpace(label))
		if !ok {
			log.Fatalf("unknown time slot %q", label)
		}
		if err := selection.Toggle(slot); err != nil {
			log.Fatalf("cannot select %s: %v", label, err)
		}
	}
	if err := selection.Validate(); err != nil {
		log.Fatal(err)
	}

	req := entities.ReservationRequest{SlotID: *slotID, TimeSlots: selection.Labels()}
	if err := a.validator.ValidateReservation(req); err != nil {
		log.Fatal(err)
	}

	created, err := a.reservations.Create(ctx, *slotID, selection.Labels())
	if err != nil {
		log.Fatalf("reservation failed: %v", err)
	}
	fmt.Printf("reserved: id %d, slot %d, %s-%s, total %d (%s)\n",
		created.ID, created.SlotNumber, created.StartTime, created.EndTime, created.TotalPrice, created.Status)
}

func (a *app) listCmd() {
	a.requireSession()
	ctx, cancel := callCtx()
	defer cancel()
	if err := a.reservations.Refresh(ctx); err != nil {
		log.Fatalf("fetching reservations failed: %v", err)
	}
	for _, r := range a.reservations.Reservations() {
		barrier := ""
		if r.SlotOpened {
			barrier = "  barrier open"
		}
		fmt.Printf("[%d] %s slot %d  %s-%s  %d  %s%s\n",
			r.ID, r.ParkingLotName, r.SlotNumber, r.StartTime, r.EndTime, r.TotalPrice, r.Status, barrier)
	}
}

func (a *app) cancelCmd(args []string) {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	id := fs.Int64("id", 0, "reservation id")
	_ = fs.Parse(args)
	if *id == 0 {
		log.Fatal("id is required")
	}
	a.requireSession()

	ctx, cancel := callCtx()
	defer cancel()
	if err := a.reservations.Refresh(ctx); err != nil {
		log.Fatalf("refreshing reservations failed: %v", err)
	}
	if err := a.reservations.Cancel(ctx, *id); err != nil {
		log.Fatalf("cancel failed: %v", err)
	}
	fmt.Printf("reservation %d cancelled\n", *id)
}

func (a *app) statusCmd(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	id := fs.Int64("id", 0, "reservation id")
	status := fs.String("set", "", "target status (ACTIVE, COMPLETED)")
	_ = fs.Parse(args)
	if *id == 0 || *status == "" {
		log.Fatal("id and set are required")
	}
	a.requireSession()

	ctx, cancel := callCtx()
	defer cancel()
	if err := a.reservations.Refresh(ctx); err != nil {
		log.Fatalf("refreshing reservations failed: %v", err)
	}
	if err := a.reservations.SetStatus(ctx, *id, entities.Status(*status)); err != nil {
		log.Fatalf("status update failed: %v", err)
	}
	fmt.Printf("reservation %d is now %s\n", *id, *status)
}

func (a *app) barrierCmd(args []string, open bool) {
	name := "close"
	if open {
		name = "open"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	id := fs.Int64("id", 0, "reservation id")
	_ = fs.Parse(args)
	if *id == 0 {
		log.Fatal("id is required")
	}
	a.requireSession()

	ctx, cancel := callCtx()
	defer cancel()
	if err := a.reservations.Refresh(ctx); err != nil {
		log.Fatalf("refreshing reservations failed: %v", err)
	}
	r, ok := a.reservations.Get(*id)
	if !ok {
		log.Fatalf("no reservation with id %d", *id)
	}

	if open {
		if err := a.barrier.OpenBarrier(ctx, r.ID, r.SlotID); err != nil {
			log.Fatalf("entry failed: %v", err)
		}
		fmt.Printf("barrier opened for slot %d\n", r.SlotNumber)
		return
	}
	if err := a.barrier.CloseBarrier(ctx, r.ID, r.SlotID); err != nil {
		log.Fatalf("exit failed: %v", err)
	}
	fmt.Printf("barrier closed for slot %d, reservation completed\n", r.SlotNumber)
}

func (a *app) watchCmd() {
	a.requireSession()

	ctx, cancel := callCtx()
	if err := a.reservations.Refresh(ctx); err != nil {
		log.Printf("initial refresh failed: %v", err)
	}
	cancel()

	job := service.NewRefreshJob(a.reservations)
	if err := job.Start(a.refreshSpec); err != nil {
		log.Fatalf("starting refresh job: %v", err)
	}
	defer job.Stop()
	log.Printf("Watching reservations (%s), Ctrl-C to stop", a.refreshSpec)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

func (a *app) requireSession() {
	if !a.store.Valid() {
		log.Fatal("no valid session, run: parkingctl login")
	}
}

func (a *app) findLot(ctx context.Context, lotID int64) (entities.ParkingLot, error) {
	lots, err := a.client.ParkingLots(ctx)
	if err != nil {
		return entities.ParkingLot{}, fmt.Errorf("fetching parking lots: %w", err)
	}
	for _, lot := range lots {
		if lot.ID == lotID {
			return lot, nil
		}
	}
	return entities.ParkingLot{}, fmt.Errorf("no parking lot with id %d", lotID)
}

func slotByLabel(catalog []entities.TimeSlot, label string) (entities.TimeSlot, bool) {
	for _, slot := range catalog {
		if slot.Label() == label {
			return slot, true
		}
	}
	return entities.TimeSlot{}, false
}
