package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"byronhub/internal/api"
	"byronhub/internal/availability"
	"byronhub/internal/booking"
	"byronhub/internal/cart"
	"byronhub/internal/events"
	"byronhub/internal/model"
	"byronhub/internal/report"
	"byronhub/internal/storage"
	"byronhub/internal/timegrid"
)

var (
	errUsage      = errors.New("usage")
	errNotManager = errors.New("this command needs a manager account")
)

const usage = `usage: byronhub <command> [flags]

  login -email E            sign in
  logout                    sign out and drop the local cart
  whoami                    show the signed-in user
  slots                     list the half-hour slots of a day
  search [flags]            search reservable spaces
  week [flags]              show the availability grid of a week
  cart add|list|remove|clear
  book                      submit every cart entry
  last                      show the last successful booking
  bookings [-all]           list reservations
  cancel -id N              delete a reservation
  state -id N -state S      accept or reject a reservation (manager)
  space -id ID [flags]      update a space (manager)
  person -id ID [flags]     show or update a person (manager)
  notifications             list notifications
  export -out FILE [-all]   write reservations to an xlsx file
  health                    check the backend and local store
  serve                     run health, metrics and backup loops
`

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.cmdLogin(ctx, rest)
	case "logout":
		return a.session.Logout(ctx)
	case "whoami":
		return a.cmdWhoami()
	case "slots":
		for _, s := range timegrid.GenerateDaySlots() {
			fmt.Fprintf(a.out, "%s\t%s\n", s, timegrid.LocalLabel(timegrid.Today(), s, a.loc))
		}
		return nil
	case "search":
		return a.cmdSearch(ctx, rest)
	case "week":
		return a.cmdWeek(ctx, rest)
	case "cart":
		return a.cmdCart(ctx, rest)
	case "book":
		return a.cmdBook(ctx)
	case "last":
		return a.cmdLast(ctx)
	case "bookings":
		return a.cmdBookings(ctx, rest)
	case "cancel":
		return a.cmdCancel(ctx, rest)
	case "state":
		return a.cmdState(ctx, rest)
	case "space":
		return a.cmdSpace(ctx, rest)
	case "person":
		return a.cmdPerson(ctx, rest)
	case "notifications":
		return a.cmdNotifications(ctx)
	case "export":
		return a.cmdExport(ctx, rest)
	case "health":
		return a.cmdHealth(ctx)
	case "serve":
		return a.serve(ctx)
	default:
		return errUsage
	}
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errUsage
	}
	token, err := a.client.Login(ctx, *email)
	if err != nil {
		return err
	}
	u, err := a.session.Login(ctx, token)
	if err != nil {
		return err
	}
	a.client.SetToken(token)
	fmt.Fprintf(a.out, "signed in as %s (%s)\n", u.Name, u.Role)
	return nil
}

func (a *app) cmdWhoami() error {
	u, err := a.session.User()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s> id=%s role=%s manager=%t\n", u.Name, u.Email, u.ID, u.Role, u.IsManager())
	return nil
}

func (a *app) cmdSearch(ctx context.Context, args []string) error {
	fs := newFlagSet("search")
	var f api.SpaceFilter
	fs.StringVar(&f.Identifier, "id", "", "space identifier")
	fs.StringVar(&f.Category, "category", "", "reservability category")
	fs.IntVar(&f.MinOccupants, "min", 0, "minimum occupants")
	fs.StringVar(&f.Floor, "floor", "", "floor")
	if err := fs.Parse(args); err != nil {
		return err
	}

	spaces, err := a.client.SearchSpaces(ctx, f)
	if err != nil {
		return err
	}
	if err := a.store.Set(ctx, storage.KeyAvailableRooms, spaces); err != nil {
		a.logger.Warn().Err(err).Msg("failed to store search results")
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tFLOOR\tCAPACITY")
	for _, s := range spaces {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", s.ID, s.Name, s.Category, s.Floor, s.Capacity)
	}
	return tw.Flush()
}

// occupancy fetches the availability map of spaceID through a loader that is
// torn down when the command returns.
func (a *app) occupancy(ctx context.Context, spaceID model.ID) (availability.Map, error) {
	loader := availability.NewLoader(a.client, a.resolver)
	defer loader.Teardown()

	occupied := availability.Map{}
	err := loader.Load(ctx, spaceID, func(m availability.Map) { occupied = m })
	if err != nil {
		return nil, err
	}
	return occupied, nil
}

func (a *app) holidays(ctx context.Context) availability.Holidays {
	raw, err := a.client.Holidays(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("could not fetch holidays")
		return nil
	}
	h, err := availability.ParseHolidays(raw)
	if err != nil {
		a.logger.Warn().Err(err).Msg("ignoring malformed holidays")
	}
	return h
}

func (a *app) cmdWeek(ctx context.Context, args []string) error {
	fs := newFlagSet("week")
	date := fs.String("date", "", "any day of the week, YYYY-MM-DD (default today)")
	space := fs.String("space", "", "space id (default: all spaces)")
	length := fs.Int("length", a.cfg.Booking.WeekLength, "days shown, 5 or 7")
	next := fs.Int("offset", 0, "weeks to move forward (negative: back)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ref := timegrid.Today()
	if *date != "" {
		d, err := timegrid.ParseISO(*date)
		if err != nil {
			return err
		}
		ref = d
	}
	for i := 0; i < *next; i++ {
		ref = timegrid.NextWeek(ref)
	}
	for i := 0; i > *next; i-- {
		ref = timegrid.PrevWeek(ref)
	}

	occupied, err := a.occupancy(ctx, model.ID(*space))
	if err != nil {
		return err
	}
	days := availability.BuildGrid(timegrid.WeekDaysFrom(ref, *length), occupied, a.holidays(ctx), a.session.IsManager())
	return renderGrid(a, days)
}

func renderGrid(a *app, days []availability.Day) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 1, ' ', 0)
	fmt.Fprint(tw, "UTC\tLOCAL")
	for _, d := range days {
		fmt.Fprintf(tw, "\t%s %02d/%02d", d.Date.Weekday().String()[:3], d.Date.Day, int(d.Date.Month))
	}
	fmt.Fprintln(tw)

	for i, s := range timegrid.GenerateDaySlots() {
		fmt.Fprintf(tw, "%s\t%s", s, timegrid.LocalLabel(days[0].Date, s, a.loc))
		for _, d := range days {
			fmt.Fprintf(tw, "\t%s", cellMark(d.Cells[i]))
		}
		fmt.Fprintln(tw)
	}
	fmt.Fprintln(tw, "\n. free   X booked   x booked (open to manage)   H holiday")
	return tw.Flush()
}

func cellMark(c availability.Cell) string {
	switch c.Status {
	case availability.StatusHoliday:
		return "H"
	case availability.StatusBooked:
		if c.Selectable {
			return "x"
		}
		return "X"
	default:
		return "."
	}
}

func (a *app) cmdCart(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "add":
		return a.cmdCartAdd(ctx, args[1:])
	case "list":
		return a.printCart()
	case "remove":
		fs := newFlagSet("cart remove")
		index := fs.Int("index", 0, "position shown by cart list")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		entries := a.cart.Entries()
		if *index < 1 || *index > len(entries) {
			return fmt.Errorf("no cart entry %d", *index)
		}
		a.cart.Remove(ctx, entries[*index-1])
		return a.printCart()
	case "clear":
		a.cart.Clear(ctx)
		return nil
	default:
		return errUsage
	}
}

func (a *app) cmdCartAdd(ctx context.Context, args []string) error {
	fs := newFlagSet("cart add")
	spaceID := fs.String("space", "", "space id")
	date := fs.String("date", "", "date YYYY-MM-DD (default: last picked slot)")
	slot := fs.String("time", "", "grid slot HH:MM (default: last picked slot)")
	var d cart.Details
	fs.StringVar(&d.Use, "use", "", "intended use")
	fs.StringVar(&d.People, "people", "", "attendees")
	fs.StringVar(&d.Duration, "duration", "", "minutes (default: one slot)")
	fs.StringVar(&d.Comments, "comments", "", "comments")
	fs.StringVar(&d.Start, "start", "", "start time if different from the slot")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *spaceID == "" {
		return errUsage
	}
	id := model.ID(*spaceID)

	if *date != "" && *slot != "" {
		pick, options, err := a.pickSlot(ctx, id, *date, *slot)
		if err != nil {
			return err
		}
		a.cart.SetInitialTime(ctx, cart.InitialTime{Date: pick.Date, Time: pick.Time})
		if d.Duration == "" && len(options) > 0 {
			d.Duration = strconv.Itoa(options[0])
		}
	}

	at := a.cart.InitialTime()
	if at.Date == "" || at.Time == "" {
		return errors.New("pick a slot first with -date and -time")
	}
	a.cart.Add(ctx, cart.FromSlotPick(a.findSpace(ctx, id), at, d))
	return a.printCart()
}

// pickSlot checks that the slot is selectable for the current user and
// returns the durations that fit in the free run starting there.
func (a *app) pickSlot(ctx context.Context, spaceID model.ID, date, slot string) (availability.Pick, []int, error) {
	d, err := timegrid.ParseISO(date)
	if err != nil {
		return availability.Pick{}, nil, err
	}
	s, err := timegrid.ParseSlot(slot)
	if err != nil {
		return availability.Pick{}, nil, err
	}
	occupied, err := a.occupancy(ctx, spaceID)
	if err != nil {
		return availability.Pick{}, nil, err
	}
	day := availability.BuildGrid([]timegrid.Date{d}, occupied, a.holidays(ctx), a.session.IsManager())[0]
	pick, err := day.Pick(s)
	if err != nil {
		return availability.Pick{}, nil, fmt.Errorf("%s %s: %w", date, slot, err)
	}
	return pick, day.DurationOptions(s), nil
}

// findSpace prefers the last search results and falls back to the backend.
func (a *app) findSpace(ctx context.Context, id model.ID) model.Space {
	var cached []model.Space
	if found, err := a.store.Get(ctx, storage.KeyAvailableRooms, &cached); err == nil && found {
		for _, s := range cached {
			if s.ID == id {
				return s
			}
		}
	}
	spaces, err := a.client.SearchSpaces(ctx, api.SpaceFilter{Identifier: id.String()})
	if err != nil {
		a.logger.Warn().Err(err).Str("space_id", id.String()).Msg("space lookup failed")
	}
	for _, s := range spaces {
		if s.ID == id {
			return s
		}
	}
	return model.Space{ID: id}
}

func (a *app) printCart() error {
	entries := a.cart.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "cart is empty")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tROOM\tDATE\tSTART\tMINUTES\tPEOPLE\tUSE")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", i+1, e.RoomName, e.Date, e.Start, e.Duration, e.People, e.Usage)
	}
	return tw.Flush()
}

func (a *app) cmdBook(ctx context.Context) error {
	who, err := a.requester()
	if err != nil {
		return err
	}
	_, err = a.submitter.Submit(ctx, a.cart, who)
	return err
}

func (a *app) cmdLast(ctx context.Context) error {
	snap, err := a.submitter.LastBooking(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		fmt.Fprintln(a.out, "no booking yet")
		return nil
	}
	return a.printSnapshot(snap)
}

func (a *app) showConfirmation(ev events.Event) error {
	var snap booking.Snapshot
	if err := ev.Decode(&snap); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Booking confirmed")
	return a.printSnapshot(&snap)
}

func (a *app) printSnapshot(snap *booking.Snapshot) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROOM\tDATE\tSTART\tEND\tPEOPLE\tUSE\tCOMMENTS")
	for _, it := range snap.Items {
		start := it.StartTime
		if i := strings.IndexByte(start, 'T'); i >= 0 && len(start) >= i+6 {
			start = start[i+1 : i+6]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n", it.RoomName, it.Date, start, it.EndTime, it.People, it.Usage, it.Comments)
	}
	return tw.Flush()
}

func (a *app) listReservations(ctx context.Context, all bool) ([]model.Reservation, error) {
	u, err := a.session.User()
	if err != nil {
		return nil, err
	}
	f := api.ReservationFilter{PersonID: u.ID}
	if all {
		if !u.IsManager() {
			return nil, errNotManager
		}
		f = api.ReservationFilter{}
	}
	return a.client.ListReservations(ctx, f)
}

func (a *app) cmdBookings(ctx context.Context, args []string) error {
	fs := newFlagSet("bookings")
	all := fs.Bool("all", false, "every reservation (manager)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	reservations, err := a.listReservations(ctx, *all)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSPACE\tDATE\tSTART\tEND\tPEOPLE\tSTATE")
	for i := range reservations {
		r := &reservations[i]
		start := r.StartTime.In(a.loc)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n", r.ID, r.SpaceID, start.Format("02/01/2006"),
			start.Format("15:04"), r.EndTime().In(a.loc).Format("15:04"), r.MaxAttendees, r.State)
	}
	return tw.Flush()
}

func parseID(fs *flag.FlagSet, args []string) (int64, error) {
	id := fs.Int64("id", 0, "reservation id")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if *id <= 0 {
		return 0, errUsage
	}
	return *id, nil
}

func (a *app) cmdCancel(ctx context.Context, args []string) error {
	id, err := parseID(newFlagSet("cancel"), args)
	if err != nil {
		return err
	}
	if err := a.client.DeleteReservation(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "reservation %d cancelled\n", id)
	return nil
}

func (a *app) cmdState(ctx context.Context, args []string) error {
	if !a.session.IsManager() {
		return errNotManager
	}
	fs := newFlagSet("state")
	state := fs.String("state", "", "ACCEPTED or REJECTED")
	id, err := parseID(fs, args)
	if err != nil {
		return err
	}
	switch *state {
	case model.StateAccepted, model.StateRejected, model.StatePending, model.StateCancelled:
	default:
		return fmt.Errorf("unknown state %q", *state)
	}
	return a.client.UpdateReservationState(ctx, id, *state)
}

func (a *app) cmdSpace(ctx context.Context, args []string) error {
	if !a.session.IsManager() {
		return errNotManager
	}
	fs := newFlagSet("space")
	id := fs.String("id", "", "space id")
	var u api.SpaceUpdate
	fs.StringVar(&u.Category, "category", "", "reservability category")
	fs.StringVar(&u.AssignedTo, "assigned", "", "department or person the space is assigned to")
	fs.StringVar(&u.OpenTime, "open", "", "opening time HH:MM UTC")
	fs.StringVar(&u.CloseTime, "close", "", "closing time HH:MM UTC")
	maxUsage := fs.Int("max-usage", -1, "maximum usage percent")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errUsage
	}
	if *maxUsage >= 0 {
		u.MaxUsage = maxUsage
	}
	return a.client.UpdateSpace(ctx, model.ID(*id), u)
}

func (a *app) cmdPerson(ctx context.Context, args []string) error {
	if !a.session.IsManager() {
		return errNotManager
	}
	fs := newFlagSet("person")
	id := fs.String("id", "", "person id")
	role := fs.String("role", "", "new role")
	department := fs.String("department", "", "new department")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errUsage
	}
	pid := model.ID(*id)
	if *department != "" {
		if err := a.client.UpdatePersonDepartment(ctx, pid, *department); err != nil {
			return err
		}
	}
	if *role != "" {
		if err := a.client.UpdatePersonRole(ctx, pid, *role); err != nil {
			return err
		}
	}
	p, err := a.client.Person(ctx, pid)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s> role=%s department=%s\n", p.Name, p.Email, p.Role, p.Department)
	return nil
}

func (a *app) cmdNotifications(ctx context.Context) error {
	u, err := a.session.User()
	if err != nil {
		return err
	}
	notes, err := a.client.Notifications(ctx, u.ID)
	if err != nil {
		return err
	}
	for _, n := range notes {
		fmt.Fprintf(a.out, "%s  %s\n", n.Date.In(a.loc).Format("02/01/2006 15:04"), n.Message)
	}
	return nil
}

func (a *app) cmdExport(ctx context.Context, args []string) error {
	fs := newFlagSet("export")
	out := fs.String("out", "reservations.xlsx", "output file")
	all := fs.Bool("all", false, "every reservation (manager)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	reservations, err := a.listReservations(ctx, *all)
	if err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := report.ExportReservations(f, reservations, a.loc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d reservations written to %s\n", len(reservations), *out)
	return nil
}

func (a *app) cmdHealth(ctx context.Context) error {
	var errs []error
	if err := a.client.HealthCheck(ctx); err != nil {
		errs = append(errs, fmt.Errorf("backend: %w", err))
	}
	if a.sqlite != nil {
		if err := a.sqlite.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}
