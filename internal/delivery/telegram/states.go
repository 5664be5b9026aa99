package telegram

import "sync"

// pendingInput marks what the next free-text message from a user means.
type pendingInput int

const (
	pendingNone pendingInput = iota
	pendingSheetURL
	pendingInterval
	pendingTimeout
	pendingQuietWindow
)

// inputStates tracks per-user two-step prompts. A pending state takes
// priority over answer routing and is consumed by the next message.
type inputStates struct {
	mu      sync.Mutex
	pending map[int64]pendingInput
}

func newInputStates() *inputStates {
	return &inputStates{pending: make(map[int64]pendingInput)}
}

func (s *inputStates) Set(userID int64, p pendingInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[userID] = p
}

// Pop returns and clears the user's pending state.
func (s *inputStates) Pop(userID int64) (pendingInput, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[userID]
	if ok {
		delete(s.pending, userID)
	}
	return p, ok
}
