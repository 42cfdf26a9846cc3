package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/unkn0wn-root/flightdesk/internal/errdef"
)

// Handle identifies one in-flight call for the lifetime of a Client.
type Handle uint64

// Meta is common to every event and identifies the call it terminates.
type Meta struct {
	Handle     Handle
	RequestID  string
	Op         Operation
	Method     string
	Path       string
	StatusCode int
	Duration   time.Duration
}

func (m Meta) Info() Meta { return m }

func (Meta) event() {}

// Event is the terminal outcome of a call. Exactly one is produced per issued
// request: a typed success, ErrorOccurred, or TimedOut.
type Event interface {
	Info() Meta
	event()
}

type LoginCompleted struct {
	Meta
	Result map[string]any
}

type RegistrationCompleted struct {
	Meta
	Result map[string]any
}

type LogoutCompleted struct {
	Meta
	Result map[string]any
}

type TokenRefreshed struct {
	Meta
	Result map[string]any
}

type FlightSearchCompleted struct {
	Meta
	Flights []any
}

type FlightDetailsReceived struct {
	Meta
	Details map[string]any
}

type SeatsReceived struct {
	Meta
	Seats []any
}

type ReviewsReceived struct {
	Meta
	Reviews []any
}

type ScheduleReceived struct {
	Meta
	Schedule []any
}

type BookingCompleted struct {
	Meta
	Result map[string]any
}

type BookingDetailsReceived struct {
	Meta
	Booking map[string]any
}

type BookingCancelled struct {
	Meta
	Result map[string]any
}

type ReviewSubmitted struct {
	Meta
	Result map[string]any
}

type UserProfileReceived struct {
	Meta
	Profile map[string]any
}

type UserProfileUpdated struct {
	Meta
	Profile map[string]any
}

type UserBookingsReceived struct {
	Meta
	Bookings []any
}

type FavoritesReceived struct {
	Meta
	Favorites []any
}

type FavoriteAdded struct {
	Meta
	Result map[string]any
}

type FavoriteRemoved struct {
	Meta
	Result map[string]any
}

type NotificationsReceived struct {
	Meta
	Notifications []any
}

type NotificationMarkedRead struct {
	Meta
	Result map[string]any
}

type PaymentProcessed struct {
	Meta
	Result map[string]any
}

type PaymentValidated struct {
	Meta
	Result map[string]any
}

type SystemStatusReceived struct {
	Meta
	Status map[string]any
}

type StatisticsReceived struct {
	Meta
	Statistics map[string]any
}

// ResponseReceived is emitted for untagged calls whose path matched no rule.
type ResponseReceived struct {
	Meta
	Body map[string]any
}

// ErrorOccurred reports a transport or parse failure. Err carries
// errdef.CodeTransport or errdef.CodeParse.
type ErrorOccurred struct {
	Meta
	Err error
}

// TimedOut reports that the call exceeded its deadline and was aborted.
type TimedOut struct {
	Meta
	After time.Duration
}

func (e TimedOut) Err() error {
	return errdef.New(errdef.CodeTimeout, "operation timed out for %s after %s", e.Path, e.After)
}

// Name is the event's type name, e.g. "SeatsReceived".
func Name(ev Event) string {
	name := fmt.Sprintf("%T", ev)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Failed reports whether ev is an error or a timeout.
func Failed(ev Event) bool {
	switch ev.(type) {
	case ErrorOccurred, TimedOut:
		return true
	}
	return false
}

// ErrOf returns the failure carried by ev, or nil for successes.
func ErrOf(ev Event) error {
	switch e := ev.(type) {
	case ErrorOccurred:
		return e.Err
	case TimedOut:
		return e.Err()
	}
	return nil
}

// Payload returns the data an event carries: the extracted list or object for
// successes, the error message for failures.
func Payload(ev Event) any {
	switch e := ev.(type) {
	case LoginCompleted:
		return e.Result
	case RegistrationCompleted:
		return e.Result
	case LogoutCompleted:
		return e.Result
	case TokenRefreshed:
		return e.Result
	case FlightSearchCompleted:
		return e.Flights
	case FlightDetailsReceived:
		return e.Details
	case SeatsReceived:
		return e.Seats
	case ReviewsReceived:
		return e.Reviews
	case ScheduleReceived:
		return e.Schedule
	case BookingCompleted:
		return e.Result
	case BookingDetailsReceived:
		return e.Booking
	case BookingCancelled:
		return e.Result
	case ReviewSubmitted:
		return e.Result
	case UserProfileReceived:
		return e.Profile
	case UserProfileUpdated:
		return e.Profile
	case UserBookingsReceived:
		return e.Bookings
	case FavoritesReceived:
		return e.Favorites
	case FavoriteAdded:
		return e.Result
	case FavoriteRemoved:
		return e.Result
	case NotificationsReceived:
		return e.Notifications
	case NotificationMarkedRead:
		return e.Result
	case PaymentProcessed:
		return e.Result
	case PaymentValidated:
		return e.Result
	case SystemStatusReceived:
		return e.Status
	case StatisticsReceived:
		return e.Statistics
	case ResponseReceived:
		return e.Body
	case ErrorOccurred:
		return errdef.Message(e.Err)
	case TimedOut:
		return errdef.Message(e.Err())
	}
	return nil
}
