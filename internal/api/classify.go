package api

import (
	"net/http"
	"strings"
)

// Classify maps an untagged request back to an operation by inspecting its
// path. The rules are ordered: specific suffixes (seats, reviews, cancel,
// favorites) are tested before the generic prefixes they would otherwise
// fall into. Query strings are ignored.
//
// Favorites list and favorite add/remove share a prefix and are told apart
// only by segment count: /users/{id}/favorites has three segments,
// /users/{id}/favorites/{flight} has four.
func Classify(path, method string) Operation {
	p := path
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimRight(p, "/")
	method = strings.ToUpper(strings.TrimSpace(method))

	switch {
	case strings.Contains(p, "/auth/login"):
		return OpLogin
	case strings.Contains(p, "/auth/register"):
		return OpRegister
	case strings.Contains(p, "/auth/logout"):
		return OpLogout
	case strings.Contains(p, "/auth/refresh"):
		return OpTokenRefresh

	case strings.Contains(p, "/flights/search"):
		return OpFlightSearch
	case strings.Contains(p, "/flights/schedule"):
		return OpFlightSchedule
	case strings.Contains(p, "/flights/") && strings.HasSuffix(p, "/seats"):
		return OpSeatAvailability
	case strings.Contains(p, "/flights/") && strings.HasSuffix(p, "/reviews"):
		return OpFlightReviews
	case strings.Contains(p, "/flights/"):
		return OpFlightDetails

	case strings.Contains(p, "/users/") && strings.Contains(p, "/favorites"):
		return classifyFavorites(p, method)
	case strings.Contains(p, "/users/") && strings.HasSuffix(p, "/notifications"):
		return OpNotifications
	case strings.Contains(p, "/users/") && strings.HasSuffix(p, "/bookings"):
		return OpUserBookings

	case strings.Contains(p, "/bookings/") && strings.HasSuffix(p, "/cancel"):
		return OpBookingCancel
	case strings.Contains(p, "/bookings/") && strings.HasSuffix(p, "/review"):
		return OpBookingReview
	case strings.Contains(p, "/bookings/"):
		return OpBookingDetails
	case strings.HasSuffix(p, "/bookings"):
		return OpBookingCreate

	case strings.Contains(p, "/notifications/") && strings.HasSuffix(p, "/read"):
		return OpNotificationRead

	case strings.Contains(p, "/users/"):
		if method == http.MethodPut {
			return OpUserUpdate
		}
		return OpUserProfile

	case strings.Contains(p, "/payments/process"):
		return OpPaymentProcess
	case strings.Contains(p, "/payments/validate"):
		return OpPaymentValidate
	case strings.Contains(p, "/system/status"):
		return OpSystemStatus
	case strings.Contains(p, "/statistics/flights"):
		return OpStatistics
	}
	return OpUnknown
}

func classifyFavorites(p, method string) Operation {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	// Count from the users segment so a versioned prefix does not shift it.
	for i, s := range segs {
		if s == "users" {
			segs = segs[i:]
			break
		}
	}
	switch len(segs) {
	case 3:
		return OpFavorites
	case 4:
		if method == http.MethodDelete {
			return OpFavoriteRemove
		}
		return OpFavoriteAdd
	}
	return OpUnknown
}
