// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/config"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/handler"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/repository"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot   *tele.Bot
	cfg   *config.Config
	authz *service.AuthzService

	// Handlers
	accountHandler *handler.AccountHandler
	orderHandler   *handler.OrderHandler
	topupHandler   *handler.TopupHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config         *config.Config
	AccountService *service.AccountService
	OrderService   *service.OrderService
	TopupService   *service.TopupService
	ReportService  *service.ReportService
	CloneService   *service.CloneService
	AuthzService   *service.AuthzService
	Settings       *repository.SettingsRepository
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:   teleBot,
		cfg:   deps.Config,
		authz: deps.AuthzService,
	}

	// Initialize handlers
	notifier := handler.NewNotifier(teleBot, deps.AuthzService)
	b.accountHandler = handler.NewAccountHandler(deps.AccountService, deps.AuthzService, deps.Config.History.PageSize)
	b.orderHandler = handler.NewOrderHandler(deps.OrderService, deps.AccountService, notifier)
	b.topupHandler = handler.NewTopupHandler(deps.TopupService, deps.AccountService, deps.Settings, notifier)
	b.adminHandler = handler.NewAdminHandler(
		deps.OrderService,
		deps.TopupService,
		deps.ReportService,
		deps.CloneService,
		deps.AccountService,
		deps.AuthzService,
		deps.Settings,
		notifier,
		deps.Config.Broadcast.SendDelay,
	)

	// Register middleware
	b.registerMiddleware()

	// Register handlers
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	// Account handlers
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/my", b.accountHandler.HandleMy)
	b.bot.Handle("/history", b.accountHandler.HandleHistory)

	// Order and top-up submission
	b.bot.Handle("/buy", b.orderHandler.HandleBuy)
	b.bot.Handle("/topup", b.topupHandler.HandleTopup)
	b.bot.Handle("/channels", b.topupHandler.HandleChannels)
	// A payment screenshot with a /topup caption arrives as a photo
	// update, not a command update.
	b.bot.Handle(tele.OnPhoto, b.handlePhoto)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.authz))
	adminGroup.Handle("/approve", b.adminHandler.HandleApprove)
	adminGroup.Handle("/reject", b.adminHandler.HandleReject)
	adminGroup.Handle("/addadmin", b.adminHandler.HandleAddAdmin)
	adminGroup.Handle("/deladmin", b.adminHandler.HandleDelAdmin)
	adminGroup.Handle("/allow", b.adminHandler.HandleAllow)
	adminGroup.Handle("/deny", b.adminHandler.HandleDeny)
	adminGroup.Handle("/setprice", b.adminHandler.HandleSetPrice)
	adminGroup.Handle("/delprice", b.adminHandler.HandleDelPrice)
	adminGroup.Handle("/setchannel", b.adminHandler.HandleSetChannel)
	adminGroup.Handle("/report", b.adminHandler.HandleReport)
	adminGroup.Handle("/broadcast", b.adminHandler.HandleBroadcast)
	adminGroup.Handle("/clone_add", b.adminHandler.HandleCloneAdd)
	adminGroup.Handle("/clone_credit", b.adminHandler.HandleCloneCredit)
	adminGroup.Handle("/clone_debit", b.adminHandler.HandleCloneDebit)
	adminGroup.Handle("/clone_list", b.adminHandler.HandleCloneList)

	// Generic callback handler for the review keyboards
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handlePhoto routes photo updates whose caption is a command.
// Telebot only parses arguments for text commands, so the caption is
// tokenized here; photos without a recognized caption are ignored.
func (b *Bot) handlePhoto(c tele.Context) error {
	msg := c.Message()
	if msg == nil {
		return nil
	}
	cmd, args := captionCommand(msg.Caption)
	switch cmd {
	case "/topup":
		return b.topupHandler.HandleTopupCaption(c, args)
	case "/setchannel":
		sender := c.Sender()
		if sender == nil || !b.authz.IsAdmin(sender.ID) {
			return nil
		}
		return b.adminHandler.HandleSetChannelCaption(c, args)
	}
	return nil
}

// captionCommand splits a photo caption into a bot command and its
// arguments. A "@botname" suffix on the command is stripped the way
// telebot does for text commands. Non-command captions yield "".
func captionCommand(caption string) (string, []string) {
	fields := strings.Fields(caption)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return cmd, fields[1:]
}

// handleCallback routes inline-button callbacks to the admin handler.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 may add a \f prefix to callback data
	data := strings.TrimPrefix(callback.Data, "\f")
	log.Debug().Str("data", data).Msg("Callback received")

	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if !b.authz.IsAdmin(sender.ID) {
		return c.Respond(&tele.CallbackResponse{Text: "🚫 Admin only"})
	}

	return b.adminHandler.HandleReviewCallback(c, data)
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

// GetBot returns the underlying telebot instance.
func (b *Bot) GetBot() *tele.Bot {
	return b.bot
}
