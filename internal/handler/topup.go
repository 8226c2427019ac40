package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/repository"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/service"
)

// TopupHandler handles balance recharge submission.
type TopupHandler struct {
	topupService   *service.TopupService
	accountService *service.AccountService
	settings       *repository.SettingsRepository
	notifier       *Notifier
}

// NewTopupHandler creates a new TopupHandler.
func NewTopupHandler(
	topupService *service.TopupService,
	accountService *service.AccountService,
	settings *repository.SettingsRepository,
	notifier *Notifier,
) *TopupHandler {
	return &TopupHandler{
		topupService:   topupService,
		accountService: accountService,
		settings:       settings,
		notifier:       notifier,
	}
}

// HandleTopup handles the /topup command sent as a plain message.
// Format: /topup <amount> <channel>
func (h *TopupHandler) HandleTopup(c tele.Context) error {
	return h.submit(c, c.Args())
}

// HandleTopupCaption handles /topup written as the caption of a
// payment-screenshot photo. Telebot fills Args for text commands
// only, so the caller tokenizes the caption itself.
func (h *TopupHandler) HandleTopupCaption(c tele.Context, args []string) error {
	return h.submit(c, args)
}

func (h *TopupHandler) submit(c tele.Context, args []string) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if len(args) < 2 {
		return c.Reply("❌ Usage: /topup <amount> <channel>\nExample: /topup 50000 kpay\nAttach your payment screenshot to the same message.")
	}

	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || amount <= 0 {
		return c.Reply("❌ Amount must be a positive number")
	}
	channel := strings.ToLower(args[1])

	// The proof-of-payment reference is opaque: just the Telegram
	// file id of the attached screenshot, if any.
	var proofFileID *string
	if msg := c.Message(); msg != nil && msg.Photo != nil {
		id := msg.Photo.FileID
		proofFileID = &id
	}

	if _, _, err := h.accountService.EnsureAccount(ctx, sender.ID, senderDisplayName(sender), sender.Username); err != nil {
		return c.Reply("❌ Something went wrong, please try again later")
	}

	topup, err := h.topupService.Submit(ctx, sender.ID, amount, channel, proofFileID)
	if err != nil {
		return c.Reply(topupErrorText(err))
	}

	// Relay the request, and the screenshot when present, to admins.
	markup := buildTopupReviewKeyboard(topup.TopupID)
	caption := fmt.Sprintf(
		"💳 New top-up %s\n"+
			"👤 %s (ID: %d)\n"+
			"💰 Amount: %s MMK\n"+
			"🏦 Channel: %s",
		topup.TopupID, senderDisplayName(sender), sender.ID, formatAmount(amount), channel,
	)
	if proofFileID != nil {
		photo := &tele.Photo{File: tele.File{FileID: *proofFileID}, Caption: caption}
		h.notifier.NotifyAdmins(photo, markup)
	} else {
		h.notifier.NotifyAdmins(caption, markup)
	}

	return c.Reply(fmt.Sprintf(
		"✅ Top-up submitted\n\n"+
			"🧾 Reference: %s\n"+
			"💰 Amount: %s MMK\n\n"+
			"Your balance will be credited once an admin verifies the payment.\n"+
			"⏳ New orders are paused until then.",
		topup.TopupID, formatAmount(amount),
	))
}

// HandleChannels handles the /channels command listing the configured
// payment channels.
func (h *TopupHandler) HandleChannels(c tele.Context) error {
	ctx := context.Background()

	channels, err := h.settings.ListPaymentChannels(ctx)
	if err != nil {
		return c.Reply("❌ Could not load payment channels, please try again later")
	}
	if len(channels) == 0 {
		return c.Reply("ℹ️ No payment channels configured yet")
	}

	var b strings.Builder
	b.WriteString("🏦 Payment channels\n")
	b.WriteString("━━━━━━━━━━━━━━━\n")
	for _, ch := range channels {
		b.WriteString(fmt.Sprintf("• %s\n  %s (%s)\n", ch.Name, ch.AccountNumber, ch.AccountName))
	}
	b.WriteString("━━━━━━━━━━━━━━━\n")
	b.WriteString("Pay first, then send /topup <amount> <channel> with your screenshot attached.")

	return c.Reply(b.String())
}

// buildTopupReviewKeyboard creates the admin approve/reject keyboard.
func buildTopupReviewKeyboard(topupID string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	approveBtn := markup.Data("✅ Approve", CallbackTopupApprove+topupID)
	rejectBtn := markup.Data("❌ Reject", CallbackTopupReject+topupID)
	markup.Inline(markup.Row(approveBtn, rejectBtn))
	return markup
}

// topupErrorText translates workflow errors into user-facing text.
func topupErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrNotAuthorized):
		return "🚫 Your account is not activated. Ask an admin to approve you first."
	case errors.Is(err, service.ErrAmountBelowMinimum):
		return "❌ Amount is below the minimum top-up"
	case errors.Is(err, service.ErrUnknownChannel):
		return "❌ Unknown payment channel. Send /channels to see the options."
	case errors.Is(err, service.ErrPendingTopup):
		return "⏳ You already have a top-up under review. Please wait for it to be resolved."
	case errors.Is(err, repository.ErrStoreUnavailable):
		return "⚠️ Service is temporarily unavailable, your top-up was not recorded. Try again."
	default:
		return "❌ Top-up failed, please try again later"
	}
}
