package bot

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Sender is the outbound half of the Telegram API; *tgbotapi.BotAPI
// implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// WebReport is a report submitted through the web front-end, forwarded into
// the chat group so the group sees app reports too.
type WebReport struct {
	Line      string
	Station   string
	Direction string
	Message   string
}

// Notifier posts web reports to the group chat, at most one per rate-limit
// window for the rate-limited ingress. The last-notified timestamp is the
// only mutable state the service carries.
type Notifier struct {
	sender Sender
	chatID int64
	limit  time.Duration
	now    func() time.Time

	mu           sync.Mutex
	lastNotified time.Time
}

// NewNotifier creates a notifier for the given chat.
func NewNotifier(sender Sender, chatID int64, limit time.Duration) *Notifier {
	return &Notifier{
		sender: sender,
		chatID: chatID,
		limit:  limit,
		now:    time.Now,
	}
}

// Notify formats the report and sends it to the group. With limited set,
// sends inside the rate-limit window are suppressed and reported as
// (false, nil). Only limited sends move the window; unlimited sends pass
// through without affecting it.
func (n *Notifier) Notify(report WebReport, limited bool) (bool, error) {
	n.mu.Lock()
	now := n.now()
	if limited {
		if now.Sub(n.lastNotified) < n.limit {
			n.mu.Unlock()
			log.Info().Msg("notification suppressed by rate limit")
			return false, nil
		}
		n.lastNotified = now
	}
	n.mu.Unlock()

	message := tgbotapi.NewMessage(n.chatID, formatWebReport(report, now))
	message.ParseMode = tgbotapi.ModeHTML
	if _, err := n.sender.Send(message); err != nil {
		return false, fmt.Errorf("sending notification: %w", err)
	}
	return true, nil
}

func formatWebReport(report WebReport, at time.Time) string {
	var b strings.Builder
	b.WriteString("Über app.freifahren.org gab es folgende Meldung:\n")
	fmt.Fprintf(&b, "\n<b>Station</b>: %s", report.Station)
	if report.Line != "" {
		fmt.Fprintf(&b, "\n<b>Line</b>: %s", report.Line)
	}
	if report.Direction != "" {
		fmt.Fprintf(&b, "\n<b>Richtung</b>: %s", report.Direction)
	}
	if report.Message != "" {
		fmt.Fprintf(&b, "\n<b>Beschreibung</b>: %s", report.Message)
	}
	fmt.Fprintf(&b, "\n\n<i>%s</i>", humanize.Time(at))
	return b.String()
}
