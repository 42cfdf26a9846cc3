package api

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/unkn0wn-root/flightdesk/internal/errdef"
	"github.com/unkn0wn-root/flightdesk/internal/session"
)

// decodeObject parses a response body. An empty body is an empty object and a
// valid document whose top level is not an object yields an empty object too;
// only malformed JSON is an error.
func decodeObject(body []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, errdef.Wrap(errdef.CodeParse, err, "JSON Parse Error")
	}
	if dec.More() {
		return nil, errdef.New(errdef.CodeParse, "JSON Parse Error: trailing data after document")
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return obj, nil
}

func listField(obj map[string]any, key string) []any {
	if v, ok := obj[key].([]any); ok {
		return v
	}
	return []any{}
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}

func objectField(obj map[string]any, key string) map[string]any {
	if v, ok := obj[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

// applyAuth copies credentials out of a login or refresh response. The token
// may sit at the top level or under data; data wins.
func applyAuth(sess *session.Session, body map[string]any) {
	data := objectField(body, "data")
	token := stringField(data, "token")
	if token == "" {
		token = stringField(body, "token")
	}
	if token != "" {
		sess.SetToken(token)
	}
	if uid := strings.TrimSpace(stringField(data, "user_id")); uid != "" {
		sess.SetUserID(uid)
	}
}

// route builds the terminal event for a parsed body. It runs on the loop
// goroutine and is the only place session credentials change.
func route(sess *session.Session, meta Meta, body map[string]any) Event {
	switch meta.Op {
	case OpLogin:
		applyAuth(sess, body)
		return LoginCompleted{Meta: meta, Result: body}
	case OpRegister:
		return RegistrationCompleted{Meta: meta, Result: body}
	case OpLogout:
		sess.Clear()
		return LogoutCompleted{Meta: meta, Result: body}
	case OpTokenRefresh:
		applyAuth(sess, body)
		return TokenRefreshed{Meta: meta, Result: body}

	case OpFlightSearch:
		return FlightSearchCompleted{Meta: meta, Flights: listField(body, "flights")}
	case OpFlightDetails:
		return FlightDetailsReceived{Meta: meta, Details: body}
	case OpSeatAvailability:
		return SeatsReceived{Meta: meta, Seats: listField(body, "seats")}
	case OpFlightReviews:
		return ReviewsReceived{Meta: meta, Reviews: listField(body, "reviews")}
	case OpFlightSchedule:
		return ScheduleReceived{Meta: meta, Schedule: listField(body, "schedule")}

	case OpBookingCreate:
		return BookingCompleted{Meta: meta, Result: body}
	case OpBookingDetails:
		return BookingDetailsReceived{Meta: meta, Booking: body}
	case OpBookingCancel:
		return BookingCancelled{Meta: meta, Result: body}
	case OpBookingReview:
		return ReviewSubmitted{Meta: meta, Result: body}

	case OpUserProfile:
		return UserProfileReceived{Meta: meta, Profile: body}
	case OpUserUpdate:
		return UserProfileUpdated{Meta: meta, Profile: body}
	case OpUserBookings:
		return UserBookingsReceived{Meta: meta, Bookings: listField(body, "bookings")}
	case OpFavorites:
		return FavoritesReceived{Meta: meta, Favorites: listField(body, "favorites")}
	case OpFavoriteAdd:
		return FavoriteAdded{Meta: meta, Result: body}
	case OpFavoriteRemove:
		return FavoriteRemoved{Meta: meta, Result: body}
	case OpNotifications:
		return NotificationsReceived{Meta: meta, Notifications: listField(body, "notifications")}
	case OpNotificationRead:
		return NotificationMarkedRead{Meta: meta, Result: body}

	case OpPaymentProcess:
		return PaymentProcessed{Meta: meta, Result: body}
	case OpPaymentValidate:
		return PaymentValidated{Meta: meta, Result: body}
	case OpSystemStatus:
		return SystemStatusReceived{Meta: meta, Status: body}
	case OpStatistics:
		return StatisticsReceived{Meta: meta, Statistics: body}
	}
	return ResponseReceived{Meta: meta, Body: body}
}
