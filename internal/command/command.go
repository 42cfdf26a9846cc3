// Package command is the catalog of user-facing commands shared by the
// console prompt and the one-shot CLI. Each command turns positional
// arguments into exactly one issued call.
package command

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/unkn0wn-root/flightdesk/internal/api"
	"github.com/unkn0wn-root/flightdesk/internal/errdef"
)

const DateLayout = "2006-01-02"

// Env is what a command needs to issue its call.
type Env struct {
	Client *api.Client
	Now    func() time.Time
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

type runFunc func(ctx context.Context, env Env, args []string) (*api.Call, error)

type Spec struct {
	Name    string
	Op      api.Operation
	Usage   string
	Summary string
	MinArgs int
	MaxArgs int // -1 for no limit
	run     runFunc
}

var catalog = []Spec{
	{Name: "login", Op: api.OpLogin, Usage: "login USER PASSWORD", Summary: "Sign in and store the session token", MinArgs: 2, MaxArgs: 2, run: runLogin},
	{Name: "register", Op: api.OpRegister, Usage: "register USER PASSWORD [EMAIL]", Summary: "Create an account", MinArgs: 2, MaxArgs: 3, run: runRegister},
	{Name: "logout", Op: api.OpLogout, Usage: "logout", Summary: "End the session", run: runLogout},
	{Name: "refresh", Op: api.OpTokenRefresh, Usage: "refresh", Summary: "Exchange the session token for a new one", run: runRefresh},
	{Name: "search", Op: api.OpFlightSearch, Usage: "search FROM TO [YYYY-MM-DD]", Summary: "Search flights, today by default", MinArgs: 2, MaxArgs: 3, run: runSearch},
	{Name: "flight", Op: api.OpFlightDetails, Usage: "flight NUMBER", Summary: "Show flight details", MinArgs: 1, MaxArgs: 1, run: runFlight},
	{Name: "seats", Op: api.OpSeatAvailability, Usage: "seats NUMBER", Summary: "List seats for a flight", MinArgs: 1, MaxArgs: 1, run: runSeats},
	{Name: "reviews", Op: api.OpFlightReviews, Usage: "reviews NUMBER", Summary: "List reviews for a flight", MinArgs: 1, MaxArgs: 1, run: runReviews},
	{Name: "schedule", Op: api.OpFlightSchedule, Usage: "schedule [FROM] [TO]", Summary: "Show the timetable", MaxArgs: 2, run: runSchedule},
	{Name: "book", Op: api.OpBookingCreate, Usage: "book NUMBER [SEAT]", Summary: "Book a flight", MinArgs: 1, MaxArgs: 2, run: runBook},
	{Name: "booking", Op: api.OpBookingDetails, Usage: "booking ID", Summary: "Show a booking", MinArgs: 1, MaxArgs: 1, run: runBooking},
	{Name: "cancel", Op: api.OpBookingCancel, Usage: "cancel ID [REASON...]", Summary: "Cancel a booking", MinArgs: 1, MaxArgs: -1, run: runCancel},
	{Name: "review", Op: api.OpBookingReview, Usage: "review ID RATING [COMMENT...]", Summary: "Rate a booked flight from 1 to 5", MinArgs: 2, MaxArgs: -1, run: runReview},
	{Name: "profile", Op: api.OpUserProfile, Usage: "profile [USER]", Summary: "Show a user profile", MaxArgs: 1, run: runProfile},
	{Name: "update", Op: api.OpUserUpdate, Usage: "update FIELD=VALUE...", Summary: "Update your profile", MinArgs: 1, MaxArgs: -1, run: runUpdate},
	{Name: "bookings", Op: api.OpUserBookings, Usage: "bookings [USER]", Summary: "List bookings", MaxArgs: 1, run: runBookings},
	{Name: "favorites", Op: api.OpFavorites, Usage: "favorites [USER]", Summary: "List favorite flights", MaxArgs: 1, run: runFavorites},
	{Name: "fav", Op: api.OpFavoriteAdd, Usage: "fav NUMBER", Summary: "Add a favorite flight", MinArgs: 1, MaxArgs: 1, run: runFav},
	{Name: "unfav", Op: api.OpFavoriteRemove, Usage: "unfav NUMBER", Summary: "Remove a favorite flight", MinArgs: 1, MaxArgs: 1, run: runUnfav},
	{Name: "notifications", Op: api.OpNotifications, Usage: "notifications [USER]", Summary: "List notifications", MaxArgs: 1, run: runNotifications},
	{Name: "read", Op: api.OpNotificationRead, Usage: "read ID", Summary: "Mark a notification read", MinArgs: 1, MaxArgs: 1, run: runRead},
	{Name: "pay", Op: api.OpPaymentProcess, Usage: "pay BOOKING [AMOUNT] [METHOD]", Summary: "Pay for a booking", MinArgs: 1, MaxArgs: 3, run: runPay},
	{Name: "validate", Op: api.OpPaymentValidate, Usage: "validate CARD", Summary: "Check a card number", MinArgs: 1, MaxArgs: 1, run: runValidate},
	{Name: "status", Op: api.OpSystemStatus, Usage: "status", Summary: "Show backend status", run: runStatus},
	{Name: "stats", Op: api.OpStatistics, Usage: "stats", Summary: "Show flight statistics", run: runStats},
	{Name: "raw", Op: api.OpUnknown, Usage: "raw METHOD PATH [JSON]", Summary: "Send an untagged request", MinArgs: 2, MaxArgs: 3, run: runRaw},
}

// Specs returns the catalog in display order.
func Specs() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}

// Names lists command names sorted, for completion.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for _, s := range catalog {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

// Lookup finds a command by its name or by the operation name it issues, so
// "seats" and "flight-search" both resolve.
func Lookup(name string) (Spec, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range catalog {
		if s.Name == name {
			return s, true
		}
	}
	if op, ok := api.ParseOperation(name); ok {
		for _, s := range catalog {
			if s.Op == op {
				return s, true
			}
		}
	}
	return Spec{}, false
}

// Run validates args against the command's arity and issues its call.
func Run(ctx context.Context, env Env, name string, args []string) (*api.Call, error) {
	spec, ok := Lookup(name)
	if !ok {
		return nil, errdef.New(errdef.CodeUI, "unknown command %q", name)
	}
	if env.Client == nil {
		return nil, errdef.New(errdef.CodeUI, "no client")
	}
	if len(args) < spec.MinArgs || (spec.MaxArgs >= 0 && len(args) > spec.MaxArgs) {
		return nil, usage(spec)
	}
	return spec.run(ctx, env, args)
}

// Split breaks a prompt line into words. A double or single quote at the
// start of a word groups text containing spaces; quotes inside a word are
// kept as they are.
func Split(line string) ([]string, error) {
	words, _, err := scan(line, -1)
	return words, err
}

// Parse splits a prompt line into a command name and its arguments. For raw,
// everything after METHOD and PATH is passed through untouched so JSON bodies
// keep their quoting and spacing.
func Parse(line string) (string, []string, error) {
	head, rest, err := scan(line, 3)
	if err != nil {
		return "", nil, err
	}
	if len(head) == 3 && strings.EqualFold(head[0], "raw") && rest != "" {
		return "raw", []string{head[1], head[2], rest}, nil
	}
	words, err := Split(line)
	if err != nil {
		return "", nil, err
	}
	if len(words) == 0 {
		return "", nil, errdef.New(errdef.CodeUI, "empty command")
	}
	return strings.ToLower(words[0]), words[1:], nil
}

// scan reads at most limit words (all of them when limit < 0) and returns
// the unread remainder of the line.
func scan(line string, limit int) ([]string, string, error) {
	var (
		words []string
		cur   strings.Builder
		quote rune
		have  bool
	)
	for i, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case !have && (r == '"' || r == '\''):
			quote = r
			have = true
		case r == ' ' || r == '\t':
			if have {
				words = append(words, cur.String())
				cur.Reset()
				have = false
				if len(words) == limit {
					return words, strings.TrimSpace(line[i:]), nil
				}
			}
		default:
			cur.WriteRune(r)
			have = true
		}
	}
	if quote != 0 {
		return nil, "", errdef.New(errdef.CodeUI, "unterminated quote")
	}
	if have {
		words = append(words, cur.String())
	}
	return words, "", nil
}

func usage(s Spec) error {
	return errdef.New(errdef.CodeUI, "usage: %s", s.Usage)
}

func currentUser(env Env, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if id := env.Client.Session().UserID(); id != "" {
		return id, nil
	}
	return "", errdef.New(errdef.CodeUI, "no user id: log in first or pass one")
}

func runLogin(ctx context.Context, env Env, args []string) (*api.Call, error) {
	return env.Client.Login(ctx, args[0], args[1])
}

func runRegister(ctx context.Context, env Env, args []string) (*api.Call, error) {
	user := map[string]any{"username": args[0], "password": args[1]}
	if len(args) > 2 {
		user["email"] = args[2]
	}
	return env.Client.Register(ctx, user)
}

func runLogout(ctx context.Context, env Env, _ []string) (*api.Call, error) {
	return env.Client.Logout(ctx)
}

func runRefresh(ctx context.Context, env Env, _ []string) (*api.Call, error) {
	return env.Client.RefreshToken(ctx)
}

func runSearch(ctx context.Context, env Env, args []string) (*api.Call, error) {
	date := env.now()
	if len(args) > 2 {
		d, err := time.ParseInLocation(DateLayout, args[2], date.Location())
		if err != nil {
			return nil, errdef.New(errdef.CodeUI, "invalid date %q, expected YYYY-MM-DD", args[2])
		}
		date = d
	}
	return env.Client.SearchFlights(ctx, strings.ToUpper(args[0]), strings.ToUpper(args[1]), date)
}

func runFlight(ctx context.Context, env Env, args []string) (*api.Call, error) {
	return env.Client.FlightDetails(ctx, strings.ToUpper(args[0]))
}

func runSeats(ctx context.Context, env Env, args []string) (*api.Call, error) {
	return env.Client.SeatAvailability(ctx, strings.ToUpper(args[0]))
}

func runReviews(ctx context.Context, env Env, args []string) (*api.Call, error) {
	return env.Client.FlightReviews(ctx, strings.ToUpper(args[0]))
}

func runSchedule(ctx context.Context, env Env, args []string) (*api.Call, error) {
	var from, to string
	if len(args) > 0 {
		from = strings.ToUpper(args[0])
	}
	if len(args) > 1 {
		to = strings.ToUpper(args[1])
	}
	return env.Client.FlightSchedule(ctx, from, to)
}

func runBook(ctx context.Context, env Env, args []string) (*api.Call, error) {
	booking := map[string]any{"flight_number": strings.ToUpper(args[0])}
	if len(args) > 1 {
		booking["seat"] = strings.ToUpper(args[1])
	}
	return env.Client.CreateBooking(ctx, booking)
}

func runBooking(ctx context.Context, env Env, args []string) (*api.Call, error) {
	return env.Client.BookingDetails(ctx, args[0])
}

func runCancel(ctx context.Context, env Env, args []string) (*api.Call, error) {
	return env.Client.CancelBooking(ctx, args[0], strings.Join(args[1:], " "))
}

func runReview(ctx context.Context, env Env, args []string) (*api.Call, error) {
	rating, err := strconv.Atoi(args[1])
	if err != nil || rating < 1 || rating > 5 {
		return nil, errdef.New(errdef.CodeUI, "rating must be a number from 1 to 5, got %q", args[1])
	}
	return env.Client.ReviewBooking(ctx, args[0], rating, strings.Join(args[2:], " "))
}

func runProfile(ctx context.Context, env Env, args []string) (*api.Call, error) {
	id, err := currentUser(env, args)
	if err != nil {
		return nil, err
	}
	return env.Client.UserProfile(ctx, id)
}

func runUpdate(ctx context.Context, env Env, args []string) (*api.Call, error) {
	id, err := currentUser(env, nil)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errdef.New(errdef.CodeUI, "invalid field %q, expected FIELD=VALUE", a)
		}
		fields[k] = v
	}
	return env.Client.UpdateUserProfile(ctx, id, fields)
}

func runBookings(ctx context.Context, env Env, args []string) (*api.Call, error) {
	id, err := currentUser(env, args)
	if err != nil {
		return nil, err
	}
	return env.Client.UserBookings(ctx, id)
}

func runFavorites(ctx context.Context, env Env, args []string) (*api.Call, error) {
	id, err := currentUser(env, args)
	if err != nil {
		return nil, err
	}
	return env.Client.Favorites(ctx, id)
}

func runFav(ctx context.Context, env Env, args []string) (*api.Call, error) {
	id, err := currentUser(env, nil)
	if err != nil {
		return nil, err
	}
	return env.Client.AddFavorite(ctx, id, strings.ToUpper(args[0]))
}

func runUnfav(ctx context.Context, env Env, args []string) (*api.Call, error) {
	id, err := currentUser(env, nil)
	if err != nil {
		return nil, err
	}
	return env.Client.RemoveFavorite(ctx, id, strings.ToUpper(args[0]))
}

func runNotifications(ctx context.Context, env Env, args []string) (*api.Call, error) {
	id, err := currentUser(env, args)
	if err != nil {
		return nil, err
	}
	return env.Client.Notifications(ctx, id)
}

func runRead(ctx context.Context, env Env, args []string) (*api.Call, error) {
	return env.Client.MarkNotificationRead(ctx, args[0])
}

func runPay(ctx context.Context, env Env, args []string) (*api.Call, error) {
	payment := map[string]any{"booking_id": args[0], "method": "card"}
	if len(args) > 1 {
		amount, err := strconv.ParseFloat(args[1], 64)
		if err != nil || amount <= 0 {
			return nil, errdef.New(errdef.CodeUI, "invalid amount %q", args[1])
		}
		payment["amount"] = amount
	}
	if len(args) > 2 {
		payment["method"] = args[2]
	}
	return env.Client.ProcessPayment(ctx, payment)
}

func runValidate(ctx context.Context, env Env, args []string) (*api.Call, error) {
	return env.Client.ValidatePayment(ctx, map[string]any{"card_number": args[0]})
}

func runStatus(ctx context.Context, env Env, _ []string) (*api.Call, error) {
	return env.Client.SystemStatus(ctx)
}

func runStats(ctx context.Context, env Env, _ []string) (*api.Call, error) {
	return env.Client.FlightStatistics(ctx)
}

// runRaw sends the token whenever the session has one.
func runRaw(ctx context.Context, env Env, args []string) (*api.Call, error) {
	var payload map[string]any
	if len(args) > 2 && strings.TrimSpace(args[2]) != "" {
		if err := json.Unmarshal([]byte(args[2]), &payload); err != nil {
			return nil, errdef.Wrap(errdef.CodeUI, err, "raw body must be a JSON object")
		}
	}
	auth := env.Client.Session().Authenticated()
	return env.Client.Call(ctx, strings.ToUpper(args[0]), args[1], payload, auth)
}
