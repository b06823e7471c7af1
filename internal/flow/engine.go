// Package flow implements the per-user ordering conversation: category and
// product selection, quantity and delivery date validation, and the final
// confirm/cancel step that hands the order to the store.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"orderbot/core/logger"
	"orderbot/internal/catalog"
	"orderbot/internal/orders"
)

// DateLayout is the exact delivery date format users must enter.
const DateLayout = "02-01-2006"

// ChoiceKind tags the button set attached to a reply so the transport knows
// which callback to bind.
type ChoiceKind string

const (
	// ChoiceNone means the reply carries no buttons.
	ChoiceNone ChoiceKind = ""
	// ChoiceCategory offers category selection buttons.
	ChoiceCategory ChoiceKind = "category"
	// ChoiceProduct offers product selection buttons.
	ChoiceProduct ChoiceKind = "product"
	// ChoiceConfirm offers the confirm/cancel pair.
	ChoiceConfirm ChoiceKind = "confirm"
)

// Choice is one button: a visible label and the opaque id sent back on press.
type Choice struct {
	Label string
	ID    string
}

// Reply is what the transport renders back to the user: a message and an
// optional ordered set of buttons. On validation errors Reply carries the
// re-prompt for the same phase.
type Reply struct {
	Text    string
	Kind    ChoiceKind
	Choices []Choice
}

// Engine owns phase transitions and field validation for all conversations.
type Engine struct {
	catalog  *catalog.Catalog
	store    orders.Store
	sessions *Sessions
	now      func() time.Time
}

// NewEngine wires the state machine to its catalog and order store.
func NewEngine(cat *catalog.Catalog, store orders.Store) *Engine {
	return &Engine{
		catalog:  cat,
		store:    store,
		sessions: NewSessions(),
		now:      time.Now,
	}
}

// Sessions exposes the session store for inspection in tests and diagnostics.
func (e *Engine) Sessions() *Sessions {
	return e.sessions
}

func (e *Engine) categoryChoices() (ChoiceKind, []Choice) {
	cats := e.catalog.Categories()
	choices := make([]Choice, 0, len(cats))
	for _, c := range cats {
		choices = append(choices, Choice{Label: c, ID: c})
	}
	return ChoiceCategory, choices
}

func (e *Engine) productChoices(category string) (ChoiceKind, []Choice, error) {
	products, err := e.catalog.ProductsOf(category)
	if err != nil {
		return ChoiceNone, nil, err
	}
	choices := make([]Choice, 0, len(products))
	for _, p := range products {
		choices = append(choices, Choice{Label: p, ID: p})
	}
	return ChoiceProduct, choices, nil
}

func restartReply() Reply {
	return Reply{Text: "Please use /start to begin your order."}
}

// Begin resets the conversation to idle and offers the category keyboard.
// Any in-flight order for the user is silently discarded.
func (e *Engine) Begin(ctx context.Context, userID int64) Reply {
	conv := e.sessions.Get(userID)
	conv.mu.Lock()
	prior := conv.Phase
	conv.reset()
	conv.mu.Unlock()

	logger.Flow.LogAttrs(ctx, slog.LevelInfo, "conversation begun",
		slog.String("event", "flow.begin"),
		slog.Int64("user_id", userID),
		slog.String("prior_phase", string(prior)),
	)

	kind, choices := e.categoryChoices()
	return Reply{
		Text:    "Welcome! Please choose a category:",
		Kind:    kind,
		Choices: choices,
	}
}

// ChooseCategory records the selected category and offers its products.
func (e *Engine) ChooseCategory(ctx context.Context, userID int64, category string) (Reply, error) {
	conv := e.sessions.Get(userID)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	switch conv.Phase {
	case PhaseIdle, PhaseAwaitingProduct:
	default:
		return restartReply(), fmt.Errorf("%w: category selection in phase %s", ErrUnexpectedInput, conv.Phase)
	}

	kind, choices, err := e.productChoices(category)
	if err != nil {
		reKind, reChoices := e.categoryChoices()
		return Reply{
			Text:    "Unknown category. Please choose a category:",
			Kind:    reKind,
			Choices: reChoices,
		}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	conv.Category = category
	conv.Phase = PhaseAwaitingProduct

	logger.Flow.LogAttrs(ctx, slog.LevelDebug, "category chosen",
		slog.String("event", "flow.category"),
		slog.Int64("user_id", userID),
		slog.String("category", category),
	)

	return Reply{
		Text:    fmt.Sprintf("Category: %s\nSelect a product:", category),
		Kind:    kind,
		Choices: choices,
	}, nil
}

// ChooseProduct records the selected product and asks for a quantity.
func (e *Engine) ChooseProduct(ctx context.Context, userID int64, product string) (Reply, error) {
	conv := e.sessions.Get(userID)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	if conv.Phase != PhaseAwaitingProduct {
		return restartReply(), fmt.Errorf("%w: product selection in phase %s", ErrUnexpectedInput, conv.Phase)
	}

	if !e.catalog.HasProduct(conv.Category, product) {
		kind, choices, err := e.productChoices(conv.Category)
		if err != nil {
			return restartReply(), fmt.Errorf("%w: %s", ErrUnknownProduct, product)
		}
		return Reply{
			Text:    fmt.Sprintf("Unknown product. Select a product from %s:", conv.Category),
			Kind:    kind,
			Choices: choices,
		}, fmt.Errorf("%w: %s", ErrUnknownProduct, product)
	}

	conv.Product = product
	conv.Phase = PhaseAwaitingQuantity

	logger.Flow.LogAttrs(ctx, slog.LevelDebug, "product chosen",
		slog.String("event", "flow.product"),
		slog.Int64("user_id", userID),
		slog.String("product", product),
	)

	return Reply{Text: fmt.Sprintf("Product: %s\nPlease enter the quantity:", product)}, nil
}

// SubmitQuantity parses the quantity text. Any digit string is accepted,
// including zero; everything else re-prompts without a transition.
func (e *Engine) SubmitQuantity(ctx context.Context, userID int64, text string) (Reply, error) {
	conv := e.sessions.Get(userID)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	if conv.Phase != PhaseAwaitingQuantity {
		return restartReply(), fmt.Errorf("%w: quantity in phase %s", ErrUnexpectedInput, conv.Phase)
	}

	qty, ok := parseQuantity(text)
	if !ok {
		return Reply{Text: "Quantity must be a number. Please enter again:"},
			fmt.Errorf("%w: %q", ErrInvalidQuantity, text)
	}

	conv.Quantity = qty
	conv.Phase = PhaseAwaitingDate

	logger.Flow.LogAttrs(ctx, slog.LevelDebug, "quantity accepted",
		slog.String("event", "flow.quantity"),
		slog.Int64("user_id", userID),
		slog.Int("quantity", qty),
	)

	return Reply{Text: "Please enter delivery date (dd-mm-yyyy):"}, nil
}

// SubmitDate parses the delivery date, shows the order summary and asks for
// confirmation.
func (e *Engine) SubmitDate(ctx context.Context, userID int64, text string) (Reply, error) {
	conv := e.sessions.Get(userID)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	if conv.Phase != PhaseAwaitingDate {
		return restartReply(), fmt.Errorf("%w: date in phase %s", ErrUnexpectedInput, conv.Phase)
	}

	normalized, ok := parseDate(text)
	if !ok {
		return Reply{Text: "Invalid date format. Use dd-mm-yyyy:"},
			fmt.Errorf("%w: %q", ErrInvalidDate, text)
	}

	conv.DeliveryDate = normalized
	conv.Phase = PhaseAwaitingConfirmation

	logger.Flow.LogAttrs(ctx, slog.LevelDebug, "date accepted",
		slog.String("event", "flow.date"),
		slog.Int64("user_id", userID),
		slog.String("delivery_date", normalized),
	)

	summary := fmt.Sprintf("Category: %s\nProduct: %s\nQuantity: %d\nDelivery Date: %s",
		conv.Category, conv.Product, conv.Quantity, conv.DeliveryDate)
	return Reply{
		Text: "Please confirm your order:\n" + summary,
		Kind: ChoiceConfirm,
		Choices: []Choice{
			{Label: "Confirm", ID: "yes"},
			{Label: "Cancel", ID: "no"},
		},
	}, nil
}

// Confirm finishes the conversation. "yes" persists the order and resets to
// idle; when persistence fails the phase stays at confirmation so the user
// can retry. "no" resets without persisting.
func (e *Engine) Confirm(ctx context.Context, userID int64, decision string) (Reply, error) {
	conv := e.sessions.Get(userID)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	if conv.Phase != PhaseAwaitingConfirmation {
		return restartReply(), fmt.Errorf("%w: confirmation in phase %s", ErrUnexpectedInput, conv.Phase)
	}

	if decision != "yes" {
		conv.reset()
		logger.Flow.LogAttrs(ctx, slog.LevelInfo, "order canceled",
			slog.String("event", "flow.cancel"),
			slog.Int64("user_id", userID),
		)
		return Reply{Text: "❌ Your order has been canceled."}, nil
	}

	order := orders.Order{
		UserID:       userID,
		Category:     conv.Category,
		Product:      conv.Product,
		Quantity:     conv.Quantity,
		DeliveryDate: conv.DeliveryDate,
		CreatedAt:    e.now(),
	}
	if err := e.store.Append(ctx, order); err != nil {
		// Keep the conversation so the user can press Confirm again.
		return Reply{Text: "Could not save your order. Please try confirming again."},
			fmt.Errorf("persist order: %w", err)
	}

	conv.reset()
	logger.Flow.LogAttrs(ctx, slog.LevelInfo, "order confirmed",
		slog.String("event", "flow.confirm"),
		slog.Int64("user_id", userID),
		slog.String("category", order.Category),
		slog.String("product", order.Product),
		slog.Int("quantity", order.Quantity),
		slog.String("delivery_date", order.DeliveryDate),
	)
	return Reply{Text: "✅ Thank you! Your order has been confirmed."}, nil
}

// Cancel aborts any in-progress conversation and resets to idle.
func (e *Engine) Cancel(ctx context.Context, userID int64) Reply {
	conv := e.sessions.Get(userID)
	conv.mu.Lock()
	inProgress := conv.Phase != PhaseIdle
	conv.reset()
	conv.mu.Unlock()

	if !inProgress {
		return Reply{Text: "Nothing to cancel. Use /start to begin an order."}
	}
	logger.Flow.LogAttrs(ctx, slog.LevelInfo, "order canceled",
		slog.String("event", "flow.cancel"),
		slog.Int64("user_id", userID),
	)
	return Reply{Text: "❌ Your order has been canceled."}
}

// FreeText routes a plain text message to the phase that expects it. Text
// arriving in a phase driven by buttons yields restart guidance, not an error.
func (e *Engine) FreeText(ctx context.Context, userID int64, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	switch e.sessions.Snapshot(userID).Phase {
	case PhaseAwaitingQuantity:
		return e.SubmitQuantity(ctx, userID, text)
	case PhaseAwaitingDate:
		return e.SubmitDate(ctx, userID, text)
	default:
		return restartReply(), nil
	}
}

func parseQuantity(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	n := 0
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
		if n > 1_000_000_000 {
			return 0, false
		}
	}
	return n, true
}

func parseDate(text string) (string, bool) {
	// Two-digit day and month are required, so the layout alone is not
	// enough: time.Parse accepts unpadded components.
	if len(text) != len(DateLayout) {
		return "", false
	}
	t, err := time.Parse(DateLayout, text)
	if err != nil {
		return "", false
	}
	return t.Format(DateLayout), true
}
