package flow_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbot/internal/catalog"
	"orderbot/internal/flow"
	"orderbot/internal/orders"
)

// memStore collects appended orders and can be switched into a failing mode.
type memStore struct {
	mu     sync.Mutex
	orders []orders.Order
	fail   bool
}

func (s *memStore) Append(_ context.Context, order orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("%w: disk full", orders.ErrUnavailable)
	}
	s.orders = append(s.orders, order)
	return nil
}

func (s *memStore) all() []orders.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]orders.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

func newEngine(t *testing.T) (*flow.Engine, *memStore) {
	t.Helper()
	store := &memStore{}
	return flow.NewEngine(catalog.Default(), store), store
}

func TestFullOrderFlow(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	const user int64 = 42

	reply := engine.Begin(ctx, user)
	assert.Equal(t, flow.ChoiceCategory, reply.Kind)
	assert.NotEmpty(t, reply.Choices)

	reply, err := engine.ChooseCategory(ctx, user, "Clothing")
	require.NoError(t, err)
	assert.Equal(t, flow.ChoiceProduct, reply.Kind)
	assert.Contains(t, reply.Text, "Clothing")

	reply, err = engine.ChooseProduct(ctx, user, "Jeans")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "quantity")

	reply, err = engine.SubmitQuantity(ctx, user, "3")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "dd-mm-yyyy")

	reply, err = engine.SubmitDate(ctx, user, "01-01-2025")
	require.NoError(t, err)
	assert.Equal(t, flow.ChoiceConfirm, reply.Kind)
	assert.Contains(t, reply.Text, "Category: Clothing")
	assert.Contains(t, reply.Text, "Product: Jeans")
	assert.Contains(t, reply.Text, "Quantity: 3")
	assert.Contains(t, reply.Text, "Delivery Date: 01-01-2025")

	reply, err = engine.Confirm(ctx, user, "yes")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "confirmed")

	recorded := store.all()
	require.Len(t, recorded, 1)
	assert.Equal(t, user, recorded[0].UserID)
	assert.Equal(t, "Clothing", recorded[0].Category)
	assert.Equal(t, "Jeans", recorded[0].Product)
	assert.Equal(t, 3, recorded[0].Quantity)
	assert.Equal(t, "01-01-2025", recorded[0].DeliveryDate)
	assert.False(t, recorded[0].CreatedAt.IsZero())

	assert.Equal(t, flow.PhaseIdle, engine.Sessions().Snapshot(user).Phase)
}

func TestChooseCategoryUnknown(t *testing.T) {
	engine, _ := newEngine(t)
	ctx := context.Background()
	const user int64 = 7

	engine.Begin(ctx, user)
	reply, err := engine.ChooseCategory(ctx, user, "Groceries")
	assert.ErrorIs(t, err, flow.ErrUnknownCategory)
	assert.Equal(t, flow.ChoiceCategory, reply.Kind)
	assert.Equal(t, flow.PhaseIdle, engine.Sessions().Snapshot(user).Phase)
}

func TestChooseProductValidation(t *testing.T) {
	engine, _ := newEngine(t)
	ctx := context.Background()
	const user int64 = 7

	engine.Begin(ctx, user)
	_, err := engine.ChooseProduct(ctx, user, "Jeans")
	assert.ErrorIs(t, err, flow.ErrUnexpectedInput, "product before category must be rejected")

	_, err = engine.ChooseCategory(ctx, user, "Electronics")
	require.NoError(t, err)

	// Jeans belongs to Clothing, not Electronics.
	reply, err := engine.ChooseProduct(ctx, user, "Jeans")
	assert.ErrorIs(t, err, flow.ErrUnknownProduct)
	assert.Equal(t, flow.ChoiceProduct, reply.Kind)
	assert.Equal(t, flow.PhaseAwaitingProduct, engine.Sessions().Snapshot(user).Phase)

	_, err = engine.ChooseProduct(ctx, user, "Laptop")
	assert.NoError(t, err)
	assert.Equal(t, flow.PhaseAwaitingQuantity, engine.Sessions().Snapshot(user).Phase)
}

func TestSubmitQuantity(t *testing.T) {
	engine, _ := newEngine(t)
	ctx := context.Background()
	const user int64 = 9

	engine.Begin(ctx, user)
	_, err := engine.ChooseCategory(ctx, user, "Clothing")
	require.NoError(t, err)
	_, err = engine.ChooseProduct(ctx, user, "Jacket")
	require.NoError(t, err)

	_, err = engine.SubmitQuantity(ctx, user, "abc")
	assert.ErrorIs(t, err, flow.ErrInvalidQuantity)
	assert.Equal(t, flow.PhaseAwaitingQuantity, engine.Sessions().Snapshot(user).Phase)

	_, err = engine.SubmitQuantity(ctx, user, "-5")
	assert.ErrorIs(t, err, flow.ErrInvalidQuantity)

	_, err = engine.SubmitQuantity(ctx, user, "")
	assert.ErrorIs(t, err, flow.ErrInvalidQuantity)

	_, err = engine.SubmitQuantity(ctx, user, "12")
	require.NoError(t, err)
	snap := engine.Sessions().Snapshot(user)
	assert.Equal(t, flow.PhaseAwaitingDate, snap.Phase)
	assert.Equal(t, 12, snap.Quantity)
}

func TestSubmitQuantityAcceptsZero(t *testing.T) {
	engine, _ := newEngine(t)
	ctx := context.Background()
	const user int64 = 10

	engine.Begin(ctx, user)
	_, err := engine.ChooseCategory(ctx, user, "Clothing")
	require.NoError(t, err)
	_, err = engine.ChooseProduct(ctx, user, "T-Shirt")
	require.NoError(t, err)

	// Any digit string passes, zero included.
	_, err = engine.SubmitQuantity(ctx, user, "0")
	require.NoError(t, err)
	assert.Equal(t, flow.PhaseAwaitingDate, engine.Sessions().Snapshot(user).Phase)
}

func TestSubmitDate(t *testing.T) {
	engine, _ := newEngine(t)
	ctx := context.Background()
	const user int64 = 11

	engine.Begin(ctx, user)
	_, err := engine.ChooseCategory(ctx, user, "Electronics")
	require.NoError(t, err)
	_, err = engine.ChooseProduct(ctx, user, "Smartphone")
	require.NoError(t, err)
	_, err = engine.SubmitQuantity(ctx, user, "1")
	require.NoError(t, err)

	for _, bad := range []string{"31-02-2024", "2024-12-25", "5-1-2025", "25/12/2024", "not a date"} {
		_, err = engine.SubmitDate(ctx, user, bad)
		assert.ErrorIs(t, err, flow.ErrInvalidDate, "input %q", bad)
		assert.Equal(t, flow.PhaseAwaitingDate, engine.Sessions().Snapshot(user).Phase)
	}

	reply, err := engine.SubmitDate(ctx, user, "25-12-2024")
	require.NoError(t, err)
	assert.Equal(t, flow.ChoiceConfirm, reply.Kind)
	snap := engine.Sessions().Snapshot(user)
	assert.Equal(t, flow.PhaseAwaitingConfirmation, snap.Phase)
	assert.Equal(t, "25-12-2024", snap.DeliveryDate)
}

func TestConfirmNoAppendsNothing(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	const user int64 = 12

	advanceToConfirmation(t, engine, user)

	reply, err := engine.Confirm(ctx, user, "no")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "canceled")
	assert.Empty(t, store.all())
	assert.Equal(t, flow.PhaseIdle, engine.Sessions().Snapshot(user).Phase)
}

func TestConfirmOutsideConfirmationPhase(t *testing.T) {
	engine, _ := newEngine(t)
	ctx := context.Background()
	const user int64 = 13

	engine.Begin(ctx, user)
	_, err := engine.Confirm(ctx, user, "yes")
	assert.ErrorIs(t, err, flow.ErrUnexpectedInput)
}

func TestConfirmStorageFailureKeepsConversation(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	const user int64 = 14

	advanceToConfirmation(t, engine, user)

	store.fail = true
	reply, err := engine.Confirm(ctx, user, "yes")
	assert.ErrorIs(t, err, orders.ErrUnavailable)
	assert.Contains(t, reply.Text, "try confirming again")
	assert.Equal(t, flow.PhaseAwaitingConfirmation, engine.Sessions().Snapshot(user).Phase)

	// Retry after the medium recovers.
	store.fail = false
	_, err = engine.Confirm(ctx, user, "yes")
	require.NoError(t, err)
	assert.Len(t, store.all(), 1)
	assert.Equal(t, flow.PhaseIdle, engine.Sessions().Snapshot(user).Phase)
}

func TestBeginDiscardsInFlightOrder(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	const user int64 = 15

	advanceToConfirmation(t, engine, user)

	engine.Begin(ctx, user)
	snap := engine.Sessions().Snapshot(user)
	assert.Equal(t, flow.PhaseIdle, snap.Phase)
	assert.Empty(t, snap.Category)
	assert.Empty(t, snap.Product)
	assert.Zero(t, snap.Quantity)
	assert.Empty(t, snap.DeliveryDate)
	assert.Empty(t, store.all())

	// Begin is idempotent.
	engine.Begin(ctx, user)
	assert.Equal(t, flow.PhaseIdle, engine.Sessions().Snapshot(user).Phase)
}

func TestFreeTextRouting(t *testing.T) {
	engine, _ := newEngine(t)
	ctx := context.Background()
	const user int64 = 16

	// Idle free text is guidance, not an error.
	reply, err := engine.FreeText(ctx, user, "hello")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "/start")

	engine.Begin(ctx, user)
	_, err = engine.ChooseCategory(ctx, user, "Clothing")
	require.NoError(t, err)
	_, err = engine.ChooseProduct(ctx, user, "Jeans")
	require.NoError(t, err)

	reply, err = engine.FreeText(ctx, user, " 4 ")
	require.NoError(t, err)
	assert.Equal(t, flow.PhaseAwaitingDate, engine.Sessions().Snapshot(user).Phase)

	reply, err = engine.FreeText(ctx, user, "01-06-2026")
	require.NoError(t, err)
	assert.Equal(t, flow.ChoiceConfirm, reply.Kind)

	// Confirmation phase expects a button press, not text.
	reply, err = engine.FreeText(ctx, user, "yes")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "/start")
	assert.Equal(t, flow.PhaseAwaitingConfirmation, engine.Sessions().Snapshot(user).Phase)
}

func TestCancelCommand(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	const user int64 = 17

	reply := engine.Cancel(ctx, user)
	assert.Contains(t, reply.Text, "Nothing to cancel")

	advanceToConfirmation(t, engine, user)
	reply = engine.Cancel(ctx, user)
	assert.Contains(t, reply.Text, "canceled")
	assert.Empty(t, store.all())
	assert.Equal(t, flow.PhaseIdle, engine.Sessions().Snapshot(user).Phase)
}

func TestConcurrentUsers(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()

	const users = 8
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			engine.Begin(ctx, user)
			if _, err := engine.ChooseCategory(ctx, user, "Electronics"); err != nil {
				t.Errorf("user %d: %v", user, err)
				return
			}
			if _, err := engine.ChooseProduct(ctx, user, "Headphones"); err != nil {
				t.Errorf("user %d: %v", user, err)
				return
			}
			if _, err := engine.SubmitQuantity(ctx, user, "2"); err != nil {
				t.Errorf("user %d: %v", user, err)
				return
			}
			if _, err := engine.SubmitDate(ctx, user, "10-10-2026"); err != nil {
				t.Errorf("user %d: %v", user, err)
				return
			}
			if _, err := engine.Confirm(ctx, user, "yes"); err != nil {
				t.Errorf("user %d: %v", user, err)
			}
		}(int64(100 + i))
	}
	wg.Wait()

	recorded := store.all()
	require.Len(t, recorded, users)
	seen := make(map[int64]int)
	for _, o := range recorded {
		seen[o.UserID]++
		assert.Equal(t, "Headphones", o.Product)
	}
	for user, n := range seen {
		assert.Equal(t, 1, n, "user %d must have exactly one order", user)
	}
}

func advanceToConfirmation(t *testing.T, engine *flow.Engine, user int64) {
	t.Helper()
	ctx := context.Background()
	engine.Begin(ctx, user)
	_, err := engine.ChooseCategory(ctx, user, "Clothing")
	require.NoError(t, err)
	_, err = engine.ChooseProduct(ctx, user, "Jeans")
	require.NoError(t, err)
	_, err = engine.SubmitQuantity(ctx, user, "3")
	require.NoError(t, err)
	_, err = engine.SubmitDate(ctx, user, "01-01-2025")
	require.NoError(t, err)
}
