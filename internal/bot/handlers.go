package bot

import (
	"errors"
	"log/slog"

	"orderbot/core/logger"
	"orderbot/core/telegram/callbacks"
	tghelpers "orderbot/core/telegram/helpers"
	"orderbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"

	"orderbot/internal/flow"
	"orderbot/internal/orders"
)

// Callback uniques registered for the order flow. The kind of event is
// decided here, once, at the transport boundary.
const (
	callbackCategory = "category"
	callbackProduct  = "product"
	callbackConfirm  = "confirm"
)

func (b *Bot) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply := b.engine.Begin(ctx, c.Sender().ID)
	return b.send(c, reply)
}

func (b *Bot) handleCancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply := b.engine.Cancel(ctx, c.Sender().ID)
	return b.send(c, reply)
}

func (b *Bot) handleCategory(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply, err := b.engine.ChooseCategory(ctx, c.Sender().ID, callbacks.CallbackPayload(c))
	b.logOutcome(c, "category", err)
	return b.send(c, reply)
}

func (b *Bot) handleProduct(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply, err := b.engine.ChooseProduct(ctx, c.Sender().ID, callbacks.CallbackPayload(c))
	b.logOutcome(c, "product", err)
	return b.send(c, reply)
}

func (b *Bot) handleConfirm(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply, err := b.engine.Confirm(ctx, c.Sender().ID, callbacks.CallbackPayload(c))
	b.logOutcome(c, "confirm", err)
	return b.send(c, reply)
}

// handleText routes free-form messages: quantity and date input reach the
// engine, anything else gets restart guidance.
func (b *Bot) handleText(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply, err := b.engine.FreeText(ctx, c.Sender().ID, c.Text())
	b.logOutcome(c, "text", err)
	return b.send(c, reply)
}

// routeCallback dispatches a pressed button through the registry.
func (b *Bot) routeCallback(c tele.Context) error {
	if c.Callback() == nil {
		return nil
	}
	_ = c.Respond()

	key := callbacks.CallbackKey(c)
	handler, ok := b.registry.GetCallback(key)
	if !ok || handler == nil {
		if fallback := b.registry.CallbackNotFound(); fallback != nil {
			return fallback(c)
		}
		return nil
	}
	return handler(c)
}

// send renders a flow reply: plain text, or text with an inline keyboard
// whose buttons carry the reply's choice kind as the callback unique.
// Callback-originated replies edit the prompt message in place.
func (b *Bot) send(c tele.Context, reply flow.Reply) error {
	if len(reply.Choices) == 0 {
		if c.Callback() != nil {
			return c.EditOrSend(reply.Text)
		}
		return c.Send(reply.Text)
	}

	buttons := make([]keyboard.InlineBtn, 0, len(reply.Choices))
	for _, choice := range reply.Choices {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   choice.Label,
			Unique: string(reply.Kind),
			Data:   choice.ID,
		})
	}

	var markup *tele.ReplyMarkup
	if reply.Kind == flow.ChoiceConfirm {
		markup = keyboard.InlineButtonsNPerRow(buttons, 2)
	} else {
		markup = keyboard.InlineButtons(buttons)
	}

	if c.Callback() != nil {
		return c.EditOrSend(reply.Text, markup)
	}
	return c.Send(reply.Text, markup)
}

// logOutcome records validation and storage failures; successful transitions
// are logged by the engine itself.
func (b *Bot) logOutcome(c tele.Context, handlerName string, err error) {
	if err == nil {
		return
	}
	ctx := tghelpers.BuildContext(c)
	level := slog.LevelDebug
	if errors.Is(err, orders.ErrUnavailable) {
		level = slog.LevelError
	}
	logger.TG.LogAttrs(ctx, level, "handler rejected input",
		slog.String("event", "handler.rejected"),
		slog.String("handler", handlerName),
		slog.Int64("user_id", c.Sender().ID),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}
