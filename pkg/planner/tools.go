package planner

import (
	"context"
	"fmt"
)

// BookingRequest carries the slot details handed to the booking backend.
type BookingRequest struct {
	Title       string
	StartTime   string
	EndTime     string
	Description string
}

// Booker commits a selected slot to an external calendar or booking
// system. Implementations must be safe for concurrent use.
type Booker interface {
	// Book commits the slot and returns a human-readable confirmation.
	Book(ctx context.Context, req BookingRequest) (string, error)
}

// ConfirmBooker is the default Booker: it performs no external call and
// returns a deterministic confirmation string. Real calendar-provider
// integration is out of scope; this stands in for it.
type ConfirmBooker struct{}

var _ Booker = ConfirmBooker{}

// Book implements Booker.
func (ConfirmBooker) Book(_ context.Context, req BookingRequest) (string, error) {
	return fmt.Sprintf("Confirmed: %s from %s to %s", req.Title, req.StartTime, req.EndTime), nil
}
