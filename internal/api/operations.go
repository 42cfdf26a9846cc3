package api

import (
	"context"
	"net/url"
	"time"
)

const dateLayout = "2006-01-02"

func (c *Client) issueOp(ctx context.Context, op Operation, path string, payload map[string]any) (*Call, error) {
	req, err := NewRequest(op, op.Method(), path, payload, op.RequiresAuth())
	if err != nil {
		return nil, err
	}
	return c.Issue(ctx, req)
}

func seg(s string) string { return url.PathEscape(s) }

func (c *Client) Login(ctx context.Context, username, password string) (*Call, error) {
	return c.issueOp(ctx, OpLogin, "/auth/login", map[string]any{
		"username": username,
		"password": password,
	})
}

// Register posts the user document as is.
func (c *Client) Register(ctx context.Context, user map[string]any) (*Call, error) {
	return c.issueOp(ctx, OpRegister, "/auth/register", user)
}

func (c *Client) Logout(ctx context.Context) (*Call, error) {
	return c.issueOp(ctx, OpLogout, "/auth/logout", nil)
}

func (c *Client) RefreshToken(ctx context.Context) (*Call, error) {
	return c.issueOp(ctx, OpTokenRefresh, "/auth/refresh", nil)
}

// SearchFlights sends the date as yyyy-mm-dd in the date's own location.
func (c *Client) SearchFlights(ctx context.Context, departure, destination string, date time.Time) (*Call, error) {
	return c.issueOp(ctx, OpFlightSearch, "/flights/search", map[string]any{
		"departure":   departure,
		"destination": destination,
		"date":        date.Format(dateLayout),
	})
}

func (c *Client) FlightDetails(ctx context.Context, flightNumber string) (*Call, error) {
	return c.issueOp(ctx, OpFlightDetails, "/flights/"+seg(flightNumber), nil)
}

func (c *Client) SeatAvailability(ctx context.Context, flightNumber string) (*Call, error) {
	return c.issueOp(ctx, OpSeatAvailability, "/flights/"+seg(flightNumber)+"/seats", nil)
}

func (c *Client) FlightReviews(ctx context.Context, flightNumber string) (*Call, error) {
	return c.issueOp(ctx, OpFlightReviews, "/flights/"+seg(flightNumber)+"/reviews", nil)
}

// FlightSchedule queries the timetable between two airports. Either side may
// be empty.
func (c *Client) FlightSchedule(ctx context.Context, from, to string) (*Call, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	path := "/flights/schedule"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	return c.issueOp(ctx, OpFlightSchedule, path, nil)
}

func (c *Client) CreateBooking(ctx context.Context, booking map[string]any) (*Call, error) {
	return c.issueOp(ctx, OpBookingCreate, "/bookings", booking)
}

func (c *Client) BookingDetails(ctx context.Context, bookingID string) (*Call, error) {
	return c.issueOp(ctx, OpBookingDetails, "/bookings/"+seg(bookingID), nil)
}

func (c *Client) CancelBooking(ctx context.Context, bookingID, reason string) (*Call, error) {
	var payload map[string]any
	if reason != "" {
		payload = map[string]any{"reason": reason}
	}
	return c.issueOp(ctx, OpBookingCancel, "/bookings/"+seg(bookingID)+"/cancel", payload)
}

func (c *Client) ReviewBooking(ctx context.Context, bookingID string, rating int, comment string) (*Call, error) {
	payload := map[string]any{"rating": rating}
	if comment != "" {
		payload["comment"] = comment
	}
	return c.issueOp(ctx, OpBookingReview, "/bookings/"+seg(bookingID)+"/review", payload)
}

func (c *Client) UserProfile(ctx context.Context, userID string) (*Call, error) {
	return c.issueOp(ctx, OpUserProfile, "/users/"+seg(userID), nil)
}

func (c *Client) UpdateUserProfile(ctx context.Context, userID string, fields map[string]any) (*Call, error) {
	return c.issueOp(ctx, OpUserUpdate, "/users/"+seg(userID), fields)
}

func (c *Client) UserBookings(ctx context.Context, userID string) (*Call, error) {
	return c.issueOp(ctx, OpUserBookings, "/users/"+seg(userID)+"/bookings", nil)
}

func (c *Client) Favorites(ctx context.Context, userID string) (*Call, error) {
	return c.issueOp(ctx, OpFavorites, "/users/"+seg(userID)+"/favorites", nil)
}

func (c *Client) AddFavorite(ctx context.Context, userID, flightNumber string) (*Call, error) {
	return c.issueOp(ctx, OpFavoriteAdd, "/users/"+seg(userID)+"/favorites/"+seg(flightNumber), nil)
}

func (c *Client) RemoveFavorite(ctx context.Context, userID, flightNumber string) (*Call, error) {
	return c.issueOp(ctx, OpFavoriteRemove, "/users/"+seg(userID)+"/favorites/"+seg(flightNumber), nil)
}

func (c *Client) Notifications(ctx context.Context, userID string) (*Call, error) {
	return c.issueOp(ctx, OpNotifications, "/users/"+seg(userID)+"/notifications", nil)
}

func (c *Client) MarkNotificationRead(ctx context.Context, notificationID string) (*Call, error) {
	return c.issueOp(ctx, OpNotificationRead, "/notifications/"+seg(notificationID)+"/read", nil)
}

func (c *Client) ProcessPayment(ctx context.Context, payment map[string]any) (*Call, error) {
	return c.issueOp(ctx, OpPaymentProcess, "/payments/process", payment)
}

func (c *Client) ValidatePayment(ctx context.Context, payment map[string]any) (*Call, error) {
	return c.issueOp(ctx, OpPaymentValidate, "/payments/validate", payment)
}

func (c *Client) SystemStatus(ctx context.Context) (*Call, error) {
	return c.issueOp(ctx, OpSystemStatus, "/system/status", nil)
}

func (c *Client) FlightStatistics(ctx context.Context) (*Call, error) {
	return c.issueOp(ctx, OpStatistics, "/statistics/flights", nil)
}
