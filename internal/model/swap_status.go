package model

type SwapStatus string

const (
	SwapStatusPending    SwapStatus = "pending"
	SwapStatusAccepted   SwapStatus = "accepted"
	SwapStatusInProgress SwapStatus = "in_progress"
	SwapStatusCompleted  SwapStatus = "completed"
	SwapStatusRejected   SwapStatus = "rejected"
	SwapStatusCancelled  SwapStatus = "cancelled"
	SwapStatusExpired    SwapStatus = "expired"
)

var swapTransitions = map[SwapStatus][]SwapStatus{
	SwapStatusPending:    {SwapStatusAccepted, SwapStatusRejected, SwapStatusCancelled, SwapStatusExpired},
	SwapStatusAccepted:   {SwapStatusInProgress, SwapStatusCancelled},
	SwapStatusInProgress: {SwapStatusCompleted},
}

// ActiveSwapStatuses hold a commitment on both listings.
var ActiveSwapStatuses = []SwapStatus{SwapStatusPending, SwapStatusAccepted, SwapStatusInProgress}

func (s SwapStatus) Valid() bool {
	switch s {
	case SwapStatusPending, SwapStatusAccepted, SwapStatusInProgress, SwapStatusCompleted,
		SwapStatusRejected, SwapStatusCancelled, SwapStatusExpired:
		return true
	}
	return false
}

func (s SwapStatus) IsTerminal() bool {
	switch s {
	case SwapStatusCompleted, SwapStatusRejected, SwapStatusCancelled, SwapStatusExpired:
		return true
	}
	return false
}

func (s SwapStatus) CanTransitionTo(next SwapStatus) bool {
	for _, st := range swapTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}
