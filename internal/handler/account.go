// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/model"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/service"
)

// AccountHandler handles account-related commands.
type AccountHandler struct {
	accountService *service.AccountService
	authz          *service.AuthzService
	historyLimit   int
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *service.AccountService, authz *service.AuthzService, historyLimit int) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		authz:          authz,
		historyLimit:   historyLimit,
	}
}

// HandleStart handles the /start command. Creates the account on
// first interaction; unauthorized users only ever see this welcome.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	account, created, err := h.accountService.EnsureAccount(ctx, sender.ID, senderDisplayName(sender), sender.Username)
	if err != nil {
		return c.Reply("❌ Could not open your account, please try again later")
	}

	if !h.authz.IsAuthorized(sender.ID) {
		return c.Reply(fmt.Sprintf(
			"👋 Hello %s!\n\n"+
				"This is the MLBB diamond top-up service.\n"+
				"Your account is not activated yet — ask an admin to approve your ID: %d",
			senderDisplayName(sender), sender.ID,
		))
	}

	if created {
		return c.Reply(fmt.Sprintf(
			"🎉 Welcome %s!\n\n"+
				"Your balance account is ready.\n\n"+
				"Commands:\n"+
				"/balance - check balance\n"+
				"/buy <game_id> <server_id> <pack> - order diamonds\n"+
				"/topup <amount> <channel> - recharge balance\n"+
				"/channels - payment channels\n"+
				"/history - recent orders and top-ups",
			senderDisplayName(sender),
		))
	}

	return c.Reply(fmt.Sprintf(
		"👋 Welcome back %s!\n\n💰 Balance: %s MMK",
		senderDisplayName(sender), formatAmount(account.Balance),
	))
}

// HandleBalance handles the /balance command.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	balance, err := h.accountService.Balance(ctx, sender.ID)
	if err != nil {
		// Account might not exist yet, open it on the fly.
		account, _, err := h.accountService.EnsureAccount(ctx, sender.ID, senderDisplayName(sender), sender.Username)
		if err != nil {
			return c.Reply("❌ Could not read your balance, please try again later")
		}
		balance = account.Balance
	}

	return c.Reply(fmt.Sprintf("💰 Balance: %s MMK", formatAmount(balance)))
}

// HandleMy handles the /my command showing the account summary.
func (h *AccountHandler) HandleMy(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if _, _, err := h.accountService.EnsureAccount(ctx, sender.ID, senderDisplayName(sender), sender.Username); err != nil {
		return c.Reply("❌ Could not read your account, please try again later")
	}

	summary, err := h.accountService.Summary(ctx, sender.ID)
	if err != nil {
		return c.Reply("❌ Could not read your account, please try again later")
	}

	msg := "📊 Account\n" +
		"━━━━━━━━━━━━━━━\n" +
		fmt.Sprintf("👤 %s (ID: %d)\n", senderDisplayName(sender), sender.ID) +
		fmt.Sprintf("💰 Balance: %s MMK\n", formatAmount(summary.Balance)) +
		fmt.Sprintf("📦 Orders: %d\n", summary.OrderCount) +
		fmt.Sprintf("💳 Top-ups: %d\n", summary.TopupCount)
	if summary.PendingTopupCount > 0 {
		msg += fmt.Sprintf("⏳ Pending top-ups: %d\n", summary.PendingTopupCount)
	}
	msg += "━━━━━━━━━━━━━━━"

	return c.Reply(msg)
}

// HandleHistory handles the /history command.
func (h *AccountHandler) HandleHistory(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	orders, topups, err := h.accountService.History(ctx, sender.ID, h.historyLimit)
	if err != nil {
		return c.Reply("❌ Could not load your history, please try again later")
	}

	if len(orders) == 0 && len(topups) == 0 {
		return c.Reply("📭 No orders or top-ups yet")
	}

	var b strings.Builder
	b.WriteString("🧾 Recent activity\n")
	b.WriteString("━━━━━━━━━━━━━━━\n")

	if len(orders) > 0 {
		b.WriteString("📦 Orders:\n")
		for _, o := range orders {
			b.WriteString(fmt.Sprintf("%s %s · %s · %s MMK · %s\n",
				orderStatusEmoji(o.Status), o.OrderID, o.ItemCode, formatAmount(o.Price), o.CreatedAt.Format("02 Jan")))
		}
	}
	if len(topups) > 0 {
		b.WriteString("💳 Top-ups:\n")
		for _, t := range topups {
			b.WriteString(fmt.Sprintf("%s %s · %s MMK · %s · %s\n",
				topupStatusEmoji(t.Status), t.TopupID, formatAmount(t.Amount), t.Channel, t.CreatedAt.Format("02 Jan")))
		}
	}
	b.WriteString("━━━━━━━━━━━━━━━")

	return c.Reply(b.String())
}

func orderStatusEmoji(s model.OrderStatus) string {
	switch s {
	case model.OrderConfirmed:
		return "✅"
	case model.OrderCancelled:
		return "❌"
	default:
		return "⏳"
	}
}

func topupStatusEmoji(s model.TopupStatus) string {
	switch s {
	case model.TopupApproved:
		return "✅"
	case model.TopupRejected:
		return "❌"
	default:
		return "⏳"
	}
}

// senderDisplayName picks the best human-readable name for a sender.
func senderDisplayName(u *tele.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return fmt.Sprintf("User%d", u.ID)
}

// formatAmount renders an MMK amount with thousands separators.
func formatAmount(v int64) string {
	s := fmt.Sprintf("%d", v)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
