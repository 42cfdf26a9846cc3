package api

import "net/http"

// Operation is the logical meaning of a request. Requests issued through the
// named client methods carry it explicitly; raw calls leave it as OpUnknown and
// are classified from their path when the response arrives.
type Operation int

const (
	OpUnknown Operation = iota
	OpLogin
	OpRegister
	OpLogout
	OpTokenRefresh
	OpFlightSearch
	OpFlightDetails
	OpSeatAvailability
	OpFlightReviews
	OpFlightSchedule
	OpBookingCreate
	OpBookingDetails
	OpBookingCancel
	OpBookingReview
	OpUserProfile
	OpUserUpdate
	OpUserBookings
	OpFavorites
	OpFavoriteAdd
	OpFavoriteRemove
	OpNotifications
	OpNotificationRead
	OpPaymentProcess
	OpPaymentValidate
	OpSystemStatus
	OpStatistics
)

type opSpec struct {
	name   string
	method string
	auth   bool
}

var opSpecs = map[Operation]opSpec{
	OpUnknown:          {name: "unknown"},
	OpLogin:            {name: "login", method: http.MethodPost},
	OpRegister:         {name: "register", method: http.MethodPost},
	OpLogout:           {name: "logout", method: http.MethodPost, auth: true},
	OpTokenRefresh:     {name: "refresh", method: http.MethodPost, auth: true},
	OpFlightSearch:     {name: "flight-search", method: http.MethodPost, auth: true},
	OpFlightDetails:    {name: "flight-details", method: http.MethodGet, auth: true},
	OpSeatAvailability: {name: "seats", method: http.MethodGet, auth: true},
	OpFlightReviews:    {name: "flight-reviews", method: http.MethodGet, auth: true},
	OpFlightSchedule:   {name: "schedule", method: http.MethodGet, auth: true},
	OpBookingCreate:    {name: "booking-create", method: http.MethodPost, auth: true},
	OpBookingDetails:   {name: "booking-details", method: http.MethodGet, auth: true},
	OpBookingCancel:    {name: "booking-cancel", method: http.MethodPost, auth: true},
	OpBookingReview:    {name: "booking-review", method: http.MethodPost, auth: true},
	OpUserProfile:      {name: "user-profile", method: http.MethodGet, auth: true},
	OpUserUpdate:       {name: "user-update", method: http.MethodPut, auth: true},
	OpUserBookings:     {name: "user-bookings", method: http.MethodGet, auth: true},
	OpFavorites:        {name: "favorites", method: http.MethodGet, auth: true},
	OpFavoriteAdd:      {name: "favorite-add", method: http.MethodPost, auth: true},
	OpFavoriteRemove:   {name: "favorite-remove", method: http.MethodDelete, auth: true},
	OpNotifications:    {name: "notifications", method: http.MethodGet, auth: true},
	OpNotificationRead: {name: "notification-read", method: http.MethodPut, auth: true},
	OpPaymentProcess:   {name: "payment-process", method: http.MethodPost, auth: true},
	OpPaymentValidate:  {name: "payment-validate", method: http.MethodPost, auth: true},
	OpSystemStatus:     {name: "system-status", method: http.MethodGet},
	OpStatistics:       {name: "statistics", method: http.MethodGet, auth: true},
}

func (o Operation) String() string {
	if spec, ok := opSpecs[o]; ok {
		return spec.name
	}
	return "unknown"
}

// Method is the HTTP method the backend expects for the operation.
func (o Operation) Method() string {
	return opSpecs[o].method
}

// RequiresAuth reports whether the operation sends the session token.
func (o Operation) RequiresAuth() bool {
	return opSpecs[o].auth
}

// Operations lists every known operation except OpUnknown, in declaration
// order.
func Operations() []Operation {
	out := make([]Operation, 0, len(opSpecs)-1)
	for op := OpLogin; op <= OpStatistics; op++ {
		out = append(out, op)
	}
	return out
}

// ParseOperation is the inverse of String.
func ParseOperation(name string) (Operation, bool) {
	for op, spec := range opSpecs {
		if spec.name == name && op != OpUnknown {
			return op, true
		}
	}
	return OpUnknown, false
}
