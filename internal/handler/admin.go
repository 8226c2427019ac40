package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/model"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/repository"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/service"
)

const reportDateLayout = "2006-01-02"

// AdminHandler handles admin review actions and settings commands.
type AdminHandler struct {
	orderService   *service.OrderService
	topupService   *service.TopupService
	reportService  *service.ReportService
	cloneService   *service.CloneService
	accountService *service.AccountService
	authz          *service.AuthzService
	settings       *repository.SettingsRepository
	notifier       *Notifier
	broadcastDelay time.Duration
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	orderService *service.OrderService,
	topupService *service.TopupService,
	reportService *service.ReportService,
	cloneService *service.CloneService,
	accountService *service.AccountService,
	authz *service.AuthzService,
	settings *repository.SettingsRepository,
	notifier *Notifier,
	broadcastDelay time.Duration,
) *AdminHandler {
	return &AdminHandler{
		orderService:   orderService,
		topupService:   topupService,
		reportService:  reportService,
		cloneService:   cloneService,
		accountService: accountService,
		authz:          authz,
		settings:       settings,
		notifier:       notifier,
		broadcastDelay: broadcastDelay,
	}
}

// HandleReviewCallback routes the inline confirm/cancel and
// approve/reject buttons. data has the \f prefix already trimmed.
func (h *AdminHandler) HandleReviewCallback(c tele.Context, data string) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	switch {
	case strings.HasPrefix(data, CallbackOrderConfirm):
		return h.resolveOrder(ctx, c, strings.TrimPrefix(data, CallbackOrderConfirm), true)
	case strings.HasPrefix(data, CallbackOrderCancel):
		return h.resolveOrder(ctx, c, strings.TrimPrefix(data, CallbackOrderCancel), false)
	case strings.HasPrefix(data, CallbackTopupApprove):
		return h.resolveTopup(ctx, c, strings.TrimPrefix(data, CallbackTopupApprove), true)
	case strings.HasPrefix(data, CallbackTopupReject):
		return h.resolveTopup(ctx, c, strings.TrimPrefix(data, CallbackTopupReject), false)
	}

	return c.Respond(&tele.CallbackResponse{Text: "Unknown action"})
}

func (h *AdminHandler) resolveOrder(ctx context.Context, c tele.Context, orderID string, confirm bool) error {
	order, err := h.orderService.Resolve(ctx, orderID, confirm, c.Sender().ID)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyResolved) {
			return c.Respond(&tele.CallbackResponse{
				Text: fmt.Sprintf("Already %s", order.Status),
			})
		}
		return h.respondError(c, err)
	}

	verdict := "❌ cancelled and refunded"
	if confirm {
		verdict = "✅ confirmed"
	}
	_ = c.Edit(fmt.Sprintf("%s\n\nOrder %s %s by admin %d", c.Message().Text, orderID, verdict, c.Sender().ID))
	return c.Respond(&tele.CallbackResponse{Text: "Done"})
}

func (h *AdminHandler) resolveTopup(ctx context.Context, c tele.Context, topupID string, approve bool) error {
	topup, err := h.topupService.Resolve(ctx, topupID, approve, c.Sender().ID)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyResolved) {
			return c.Respond(&tele.CallbackResponse{
				Text: fmt.Sprintf("Already %s", topup.Status),
			})
		}
		return h.respondError(c, err)
	}

	verdict := "❌ rejected"
	if approve {
		verdict = fmt.Sprintf("✅ approved, %s MMK credited", formatAmount(topup.Amount))
	}
	caption := fmt.Sprintf("Top-up %s %s by admin %d", topupID, verdict, c.Sender().ID)
	if msg := c.Message(); msg != nil && msg.Photo != nil {
		_, _ = c.Bot().EditCaption(msg, msg.Caption+"\n\n"+caption)
	} else {
		_ = c.Edit(c.Message().Text + "\n\n" + caption)
	}
	return c.Respond(&tele.CallbackResponse{Text: "Done"})
}

func (h *AdminHandler) respondError(c tele.Context, err error) error {
	log.Warn().Err(err).Int64("admin_id", c.Sender().ID).Msg("Review action failed")
	var recErr *service.ReconciliationError
	if errors.As(err, &recErr) {
		return c.Respond(&tele.CallbackResponse{
			Text:      "⚠️ RECONCILIATION REQUIRED — check the logs",
			ShowAlert: true,
		})
	}
	return c.Respond(&tele.CallbackResponse{Text: "Action failed, see logs"})
}

// HandleApprove handles /approve <account_id> <amount>, resolving the
// most recent pending top-up matching the amount.
func (h *AdminHandler) HandleApprove(c tele.Context) error {
	return h.resolveByAmount(c, true)
}

// HandleReject handles /reject <account_id> <amount>.
func (h *AdminHandler) HandleReject(c tele.Context) error {
	return h.resolveByAmount(c, false)
}

func (h *AdminHandler) resolveByAmount(c tele.Context, approve bool) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("❌ Usage: /approve <account_id> <amount>")
	}
	accountID, err1 := strconv.ParseInt(args[0], 10, 64)
	amount, err2 := strconv.ParseInt(args[1], 10, 64)
	if err1 != nil || err2 != nil {
		return c.Reply("❌ Account id and amount must be numbers")
	}

	topup, err := h.topupService.ResolveByAmount(ctx, accountID, amount, approve, sender.ID)
	if err != nil {
		if errors.Is(err, repository.ErrTopupNotFound) {
			return c.Reply("❌ No pending top-up with that amount")
		}
		if errors.Is(err, repository.ErrAlreadyResolved) {
			return c.Reply(fmt.Sprintf("ℹ️ Top-up %s is already %s", topup.TopupID, topup.Status))
		}
		return c.Reply(adminErrorText(err))
	}

	verdict := "rejected"
	if approve {
		verdict = "approved"
	}
	return c.Reply(fmt.Sprintf("✅ Top-up %s (%s MMK) %s", topup.TopupID, formatAmount(topup.Amount), verdict))
}

// HandleAddAdmin handles /addadmin <user_id>. Owner only.
func (h *AdminHandler) HandleAddAdmin(c tele.Context) error {
	return h.registryMutation(c, "addadmin", h.authz.AddAdmin)
}

// HandleDelAdmin handles /deladmin <user_id>. Owner only; removing
// the owner always fails.
func (h *AdminHandler) HandleDelAdmin(c tele.Context) error {
	return h.registryMutation(c, "deladmin", h.authz.RemoveAdmin)
}

// HandleAllow handles /allow <user_id>, adding to the allowlist.
func (h *AdminHandler) HandleAllow(c tele.Context) error {
	return h.registryMutation(c, "allow", h.authz.AuthorizeUser)
}

// HandleDeny handles /deny <user_id>, removing from the allowlist.
func (h *AdminHandler) HandleDeny(c tele.Context) error {
	return h.registryMutation(c, "deny", h.authz.RevokeUser)
}

func (h *AdminHandler) registryMutation(c tele.Context, name string, op func(ctx context.Context, actor, target int64) error) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply(fmt.Sprintf("❌ Usage: /%s <user_id>", name))
	}
	target, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Reply("❌ User id must be a number")
	}

	if err := op(ctx, sender.ID, target); err != nil {
		return c.Reply(adminErrorText(err))
	}

	return c.Reply(fmt.Sprintf("✅ Done: /%s %d", name, target))
}

// HandleSetPrice handles /setprice <code> <price>.
func (h *AdminHandler) HandleSetPrice(c tele.Context) error {
	ctx := context.Background()

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("❌ Usage: /setprice <pack> <price>")
	}
	price, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || price <= 0 {
		return c.Reply("❌ Price must be a positive number")
	}

	if err := h.settings.SetPriceOverride(ctx, args[0], price); err != nil {
		return c.Reply("❌ Failed to set price, see logs")
	}

	log.Info().Int64("admin_id", c.Sender().ID).Str("item_code", args[0]).Int64("price", price).
		Str("operation", "set_price").Msg("Price override set")
	return c.Reply(fmt.Sprintf("✅ %s now costs %s MMK", args[0], formatAmount(price)))
}

// HandleDelPrice handles /delprice <code>.
func (h *AdminHandler) HandleDelPrice(c tele.Context) error {
	ctx := context.Background()

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /delprice <pack>")
	}

	if err := h.settings.RemovePriceOverride(ctx, args[0]); err != nil {
		return c.Reply("❌ Failed to remove price, see logs")
	}

	log.Info().Int64("admin_id", c.Sender().ID).Str("item_code", args[0]).
		Str("operation", "del_price").Msg("Price override removed")
	return c.Reply(fmt.Sprintf("✅ Override for %s removed, catalog price applies", args[0]))
}

// HandleSetChannel handles /setchannel <name> <account_no> <account_name...>.
func (h *AdminHandler) HandleSetChannel(c tele.Context) error {
	return h.setChannel(c, c.Args())
}

// HandleSetChannelCaption handles /setchannel written as the caption
// of a QR-code photo, with the caption tokenized by the caller.
func (h *AdminHandler) HandleSetChannelCaption(c tele.Context, args []string) error {
	return h.setChannel(c, args)
}

func (h *AdminHandler) setChannel(c tele.Context, args []string) error {
	ctx := context.Background()

	if len(args) < 3 {
		return c.Reply("❌ Usage: /setchannel <name> <account_no> <account_name>")
	}

	ch := &model.PaymentChannel{
		Name:          strings.ToLower(args[0]),
		AccountNumber: args[1],
		AccountName:   strings.Join(args[2:], " "),
	}
	if msg := c.Message(); msg != nil && msg.Photo != nil {
		ch.QRFileID = msg.Photo.FileID
	}

	if err := h.settings.SetPaymentChannel(ctx, ch); err != nil {
		return c.Reply("❌ Failed to save channel, see logs")
	}

	return c.Reply(fmt.Sprintf("✅ Channel %s saved", ch.Name))
}

// HandleReport handles /report <start> <end> [day|month|year].
func (h *AdminHandler) HandleReport(c tele.Context) error {
	ctx := context.Background()

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("❌ Usage: /report <start> <end> [day|month|year]\nExample: /report 2026-08-01 2026-08-31")
	}

	start, err1 := time.ParseInLocation(reportDateLayout, args[0], time.Local)
	end, err2 := time.ParseInLocation(reportDateLayout, args[1], time.Local)
	if err1 != nil || err2 != nil {
		return c.Reply("❌ Dates must look like 2026-08-01")
	}

	granularity := service.GranularityDay
	if len(args) >= 3 {
		granularity = service.Granularity(args[2])
	}

	report, err := h.reportService.Run(ctx, start, end, granularity)
	if err != nil {
		if errors.Is(err, service.ErrInvalidGranularity) {
			return c.Reply("❌ Granularity must be day, month or year")
		}
		return c.Reply("❌ Report failed, see logs")
	}

	return c.Reply(fmt.Sprintf(
		"📈 Report %s — %s (%s)\n"+
			"━━━━━━━━━━━━━━━\n"+
			"📦 Confirmed orders: %d (%s MMK)\n"+
			"💳 Approved top-ups: %d (%s MMK)\n"+
			"━━━━━━━━━━━━━━━",
		args[0], args[1], granularity,
		report.OrderCount, formatAmount(report.OrderTotal),
		report.TopupCount, formatAmount(report.TopupTotal),
	))
}

// HandleBroadcast handles /broadcast <text>, pushing the text to
// every known account. Runs in the handler goroutine deliberately so
// one broadcast finishes before the next starts.
func (h *AdminHandler) HandleBroadcast(c tele.Context) error {
	ctx := context.Background()

	text := strings.TrimSpace(strings.Join(c.Args(), " "))
	if text == "" {
		return c.Reply("❌ Usage: /broadcast <text>")
	}

	ids, err := h.accountService.ListIDs(ctx)
	if err != nil {
		return c.Reply("❌ Failed to load accounts, see logs")
	}

	sent := h.notifier.Broadcast(ids, text, h.broadcastDelay)
	log.Info().Int64("admin_id", c.Sender().ID).Int("total", len(ids)).Int("sent", sent).
		Str("operation", "broadcast").Msg("Broadcast finished")

	return c.Reply(fmt.Sprintf("📢 Broadcast delivered to %d/%d accounts", sent, len(ids)))
}

// HandleCloneAdd handles /clone_add <id>.
func (h *AdminHandler) HandleCloneAdd(c tele.Context) error {
	ctx := context.Background()

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /clone_add <id>")
	}
	cloneID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Reply("❌ Clone id must be a number")
	}

	created, err := h.cloneService.Register(ctx, c.Sender().ID, cloneID)
	if err != nil {
		return c.Reply(adminErrorText(err))
	}
	if !created {
		return c.Reply("ℹ️ Clone already registered")
	}
	return c.Reply(fmt.Sprintf("✅ Clone %d registered", cloneID))
}

// HandleCloneCredit handles /clone_credit <id> <amount>.
func (h *AdminHandler) HandleCloneCredit(c tele.Context) error {
	return h.cloneAdjust(c, 1)
}

// HandleCloneDebit handles /clone_debit <id> <amount>.
func (h *AdminHandler) HandleCloneDebit(c tele.Context) error {
	return h.cloneAdjust(c, -1)
}

func (h *AdminHandler) cloneAdjust(c tele.Context, sign int64) error {
	ctx := context.Background()

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("❌ Usage: /clone_credit <id> <amount>")
	}
	cloneID, err1 := strconv.ParseInt(args[0], 10, 64)
	amount, err2 := strconv.ParseInt(args[1], 10, 64)
	if err1 != nil || err2 != nil || amount <= 0 {
		return c.Reply("❌ Clone id and amount must be positive numbers")
	}

	balance, err := h.cloneService.Adjust(ctx, c.Sender().ID, cloneID, sign*amount)
	if err != nil {
		if errors.Is(err, repository.ErrCloneNotFound) {
			return c.Reply("❌ Unknown clone")
		}
		if errors.Is(err, service.ErrInsufficientBalance) {
			return c.Reply("❌ Clone balance too low")
		}
		return c.Reply(adminErrorText(err))
	}

	return c.Reply(fmt.Sprintf("✅ Clone %d balance: %s MMK", cloneID, formatAmount(balance)))
}

// HandleCloneList handles /clone_list.
func (h *AdminHandler) HandleCloneList(c tele.Context) error {
	ctx := context.Background()

	clones, err := h.cloneService.List(ctx, c.Sender().ID)
	if err != nil {
		return c.Reply(adminErrorText(err))
	}
	if len(clones) == 0 {
		return c.Reply("ℹ️ No clones registered")
	}

	var b strings.Builder
	b.WriteString("👥 Clones\n━━━━━━━━━━━━━━━\n")
	for _, cl := range clones {
		b.WriteString(fmt.Sprintf("• %d · %s MMK · %s\n", cl.ID, formatAmount(cl.Balance), cl.Status))
	}
	return c.Reply(b.String())
}

// adminErrorText translates registry/workflow errors for admins.
func adminErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrNotOwner):
		return "🚫 Owner only"
	case errors.Is(err, service.ErrNotAdmin):
		return "🚫 Admin only"
	case errors.Is(err, service.ErrOwnerImmutable):
		return "🚫 The owner cannot be removed"
	case errors.Is(err, repository.ErrOrderNotFound):
		return "❌ Unknown order"
	case errors.Is(err, repository.ErrTopupNotFound):
		return "❌ Unknown top-up"
	case errors.Is(err, repository.ErrStoreUnavailable):
		return "⚠️ Storage is unreachable, the operation was not applied. Try again."
	default:
		return "❌ Operation failed, see logs"
	}
}
