package handler

import (
	"context"
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/pricing"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/repository"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/service"
)

// Callback data prefixes for the admin review keyboards.
const (
	CallbackOrderConfirm = "order_confirm:"
	CallbackOrderCancel  = "order_cancel:"
	CallbackTopupApprove = "topup_approve:"
	CallbackTopupReject  = "topup_reject:"
)

// OrderHandler handles diamond order submission.
type OrderHandler struct {
	orderService   *service.OrderService
	accountService *service.AccountService
	notifier       *Notifier
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *service.OrderService, accountService *service.AccountService, notifier *Notifier) *OrderHandler {
	return &OrderHandler{
		orderService:   orderService,
		accountService: accountService,
		notifier:       notifier,
	}
}

// HandleBuy handles the /buy command.
// Format: /buy <game_id> <server_id> <pack>
func (h *OrderHandler) HandleBuy(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 3 {
		return c.Reply("❌ Usage: /buy <game_id> <server_id> <pack>\nExample: /buy 123456789 12345 86")
	}
	gameID, serverID, itemCode := args[0], args[1], args[2]

	// Make sure the ledger row exists before the workflow touches it.
	if _, _, err := h.accountService.EnsureAccount(ctx, sender.ID, senderDisplayName(sender), sender.Username); err != nil {
		return c.Reply("❌ Something went wrong, please try again later")
	}

	result, err := h.orderService.Submit(ctx, sender.ID, gameID, serverID, itemCode)
	if err != nil {
		return c.Reply(orderErrorText(err))
	}

	// Push the review request to the admins.
	markup := buildOrderReviewKeyboard(result.OrderID)
	h.notifier.NotifyAdmins(fmt.Sprintf(
		"📦 New order %s\n"+
			"👤 %s (ID: %d)\n"+
			"🎮 Game ID: %s (%s)\n"+
			"💎 Pack: %s\n"+
			"💰 Price: %s MMK",
		result.OrderID, senderDisplayName(sender), sender.ID, gameID, serverID, itemCode, formatAmount(result.Price),
	), markup)

	return c.Reply(fmt.Sprintf(
		"✅ Order placed\n\n"+
			"🧾 Order: %s\n"+
			"💎 Pack: %s\n"+
			"💰 Price: %s MMK\n"+
			"💰 New balance: %s MMK\n\n"+
			"An admin will process it shortly.",
		result.OrderID, itemCode, formatAmount(result.Price), formatAmount(result.NewBalance),
	))
}

// buildOrderReviewKeyboard creates the admin confirm/cancel keyboard.
func buildOrderReviewKeyboard(orderID string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	confirmBtn := markup.Data("✅ Confirm", CallbackOrderConfirm+orderID)
	cancelBtn := markup.Data("❌ Cancel", CallbackOrderCancel+orderID)
	markup.Inline(markup.Row(confirmBtn, cancelBtn))
	return markup
}

// orderErrorText translates workflow errors into user-facing text.
func orderErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrNotAuthorized):
		return "🚫 Your account is not activated. Ask an admin to approve you first."
	case errors.Is(err, service.ErrInvalidGameID):
		return "❌ Game ID must be 6-10 digits"
	case errors.Is(err, service.ErrInvalidServerID):
		return "❌ Server ID must be 4-6 digits"
	case errors.Is(err, pricing.ErrUnpriced):
		return "❌ Unknown pack. Send /channels to see available packs and prices."
	case errors.Is(err, service.ErrInsufficientBalance):
		return "❌ Insufficient balance. Recharge with /topup first."
	case errors.Is(err, service.ErrPendingTopup):
		return "⏳ You have a top-up under review. Please wait until an admin resolves it."
	case errors.Is(err, repository.ErrStoreUnavailable):
		return "⚠️ Service is temporarily unavailable, your order was not placed. Try again."
	default:
		return "❌ Order failed, please try again later"
	}
}
