package bot

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func TestNotifyFormatsReport(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewNotifier(sender, 42, 5*time.Minute)

	sent, err := notifier.Notify(WebReport{
		Line:      "U8",
		Station:   "Hermannplatz",
		Direction: "Wittenau",
		Message:   "2 Kontrolleure",
	}, false)
	require.NoError(t, err)
	assert.True(t, sent)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "<b>Station</b>: Hermannplatz")
	assert.Contains(t, msg.Text, "<b>Line</b>: U8")
	assert.Contains(t, msg.Text, "<b>Richtung</b>: Wittenau")
	assert.Contains(t, msg.Text, "<b>Beschreibung</b>: 2 Kontrolleure")
}

func TestNotifyOmitsEmptyFields(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewNotifier(sender, 42, 5*time.Minute)

	_, err := notifier.Notify(WebReport{Station: "Hermannplatz"}, false)
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.NotContains(t, sender.sent[0].Text, "Line")
	assert.NotContains(t, sender.sent[0].Text, "Richtung")
	assert.NotContains(t, sender.sent[0].Text, "Beschreibung")
}

func TestNotifyRateLimit(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewNotifier(sender, 42, 5*time.Minute)

	current := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	notifier.now = func() time.Time { return current }

	sent, err := notifier.Notify(WebReport{Station: "Zoo"}, true)
	require.NoError(t, err)
	assert.True(t, sent)

	// Within the window the limited ingress is suppressed.
	current = current.Add(2 * time.Minute)
	sent, err = notifier.Notify(WebReport{Station: "Zoo"}, true)
	require.NoError(t, err)
	assert.False(t, sent)

	// The unlimited ingress goes through regardless, and does not move
	// the window.
	current = current.Add(2 * time.Minute)
	sent, err = notifier.Notify(WebReport{Station: "Zoo"}, false)
	require.NoError(t, err)
	assert.True(t, sent)

	// Six minutes after the first limited send: the window has elapsed
	// even though the unlimited send was two minutes ago.
	current = current.Add(2 * time.Minute)
	sent, err = notifier.Notify(WebReport{Station: "Zoo"}, true)
	require.NoError(t, err)
	assert.True(t, sent)
}
