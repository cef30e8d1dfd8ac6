package domain

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusDelivered},
	StatusShipped:    {StatusDelivered},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Transition validates a status change and maps the rejection to the error
// the caller should surface.
func Transition(from, to Status) error {
	if from == StatusCancelled {
		return ErrOrderAlreadyCancelled
	}
	if to == StatusCancelled && from != StatusPending {
		return ErrOrderNotCancellable
	}
	if !from.CanTransitionTo(to) {
		return ErrInvalidTransition
	}
	return nil
}
