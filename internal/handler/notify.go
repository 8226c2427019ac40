package handler

import (
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/service"
)

// Notifier pushes review requests to every admin's private chat.
// Delivery is best effort: a blocked or unknown admin chat is logged
// and skipped, never failing the user's submission.
type Notifier struct {
	bot   *tele.Bot
	authz *service.AuthzService
}

// NewNotifier creates a Notifier over the given bot.
func NewNotifier(bot *tele.Bot, authz *service.AuthzService) *Notifier {
	return &Notifier{bot: bot, authz: authz}
}

// NotifyAdmins sends what (text, photo, ...) with the optional inline
// keyboard to every admin.
func (n *Notifier) NotifyAdmins(what interface{}, markup *tele.ReplyMarkup) {
	for _, adminID := range n.authz.Admins() {
		recipient := &tele.User{ID: adminID}
		var err error
		if markup != nil {
			_, err = n.bot.Send(recipient, what, markup)
		} else {
			_, err = n.bot.Send(recipient, what)
		}
		if err != nil {
			log.Warn().Int64("admin_id", adminID).Err(err).Msg("Failed to notify admin")
		}
	}
}

// Broadcast sends text to every id, pausing delay between sends so a
// large run stays under Telegram's per-bot rate limit. Returns the
// number of successful deliveries.
func (n *Notifier) Broadcast(ids []int64, text string, delay time.Duration) int {
	sent := 0
	for i, id := range ids {
		if i > 0 && delay > 0 {
			time.Sleep(delay)
		}
		if _, err := n.bot.Send(&tele.User{ID: id}, text); err != nil {
			log.Warn().Int64("telegram_id", id).Err(err).Msg("Broadcast delivery failed")
			continue
		}
		sent++
	}
	return sent
}
