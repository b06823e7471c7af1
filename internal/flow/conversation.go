package flow

import "sync"

// Phase is the conversation's current position in the ordering sequence.
type Phase string

const (
	// PhaseIdle indicates there is no in-progress order for the user.
	PhaseIdle Phase = "idle"
	// PhaseAwaitingProduct means a category was chosen and a product is pending.
	PhaseAwaitingProduct Phase = "awaiting_product"
	// PhaseAwaitingQuantity means a product was chosen and a quantity is pending.
	PhaseAwaitingQuantity Phase = "awaiting_quantity"
	// PhaseAwaitingDate means a quantity was entered and a delivery date is pending.
	PhaseAwaitingDate Phase = "awaiting_date"
	// PhaseAwaitingConfirmation means the summary was shown and a yes/no is pending.
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
)

// Conversation is the mutable per-user in-progress order state. Fields past
// Phase are meaningful only once their owning phase has been passed. The
// embedded mutex gives each user's conversation exclusive transitions while
// different users proceed in parallel.
type Conversation struct {
	mu sync.Mutex

	Phase        Phase
	Category     string
	Product      string
	Quantity     int
	DeliveryDate string
}

func (c *Conversation) reset() {
	c.Phase = PhaseIdle
	c.Category = ""
	c.Product = ""
	c.Quantity = 0
	c.DeliveryDate = ""
}

// Sessions maps user ids to their conversations. Conversations are created
// lazily on first access and live until the process exits; a terminal
// transition only clears the fields.
type Sessions struct {
	mu     sync.RWMutex
	byUser map[int64]*Conversation
}

// NewSessions constructs an empty session store.
func NewSessions() *Sessions {
	return &Sessions{byUser: make(map[int64]*Conversation)}
}

// Get returns the conversation for a user, creating an idle one if absent.
func (s *Sessions) Get(userID int64) *Conversation {
	s.mu.RLock()
	conv, ok := s.byUser[userID]
	s.mu.RUnlock()
	if ok {
		return conv
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok = s.byUser[userID]; ok {
		return conv
	}
	conv = &Conversation{Phase: PhaseIdle}
	s.byUser[userID] = conv
	return conv
}

// Snapshot returns a copy of the user's conversation state for inspection.
func (s *Sessions) Snapshot(userID int64) Conversation {
	conv := s.Get(userID)
	conv.mu.Lock()
	defer conv.mu.Unlock()
	return Conversation{
		Phase:        conv.Phase,
		Category:     conv.Category,
		Product:      conv.Product,
		Quantity:     conv.Quantity,
		DeliveryDate: conv.DeliveryDate,
	}
}
