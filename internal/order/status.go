package order

import "fmt"

type Status string

const (
	StatusCreated    Status = "created"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// InvalidTransitionError reports a rejected status change. It maps to a 409
// at the HTTP boundary.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}

func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusCreated, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("unknown status %q", raw)
	}
}

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// ValidateTransition enforces the order lifecycle: statuses advance strictly
// one step along created -> processing -> shipped -> delivered, and
// cancellation is allowed from any non-terminal status. Skipping intermediate
// statuses is rejected.
func ValidateTransition(from, to Status) error {
	if to == StatusCancelled {
		if from.Terminal() {
			return &InvalidTransitionError{From: from, To: to}
		}
		return nil
	}

	var next Status
	switch from {
	case StatusCreated:
		next = StatusProcessing
	case StatusProcessing:
		next = StatusShipped
	case StatusShipped:
		next = StatusDelivered
	default:
		return &InvalidTransitionError{From: from, To: to}
	}

	if to != next {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}
