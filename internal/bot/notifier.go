package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"signal-gateway/internal/domain"

	tele "gopkg.in/telebot.v3"
)

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// chatRecipient accepts a numeric chat id or an @channel name.
type chatRecipient string

func (c chatRecipient) Recipient() string { return string(c) }

// TelegramNotifier posts final signals to one chat.
type TelegramNotifier struct {
	sender  messageSender
	chat    tele.Recipient
	timeout time.Duration
}

// NewTelegramNotifier builds a send-only bot. The HTTP client timeout aborts
// a stuck request even if the caller's context outlives it.
func NewTelegramNotifier(token, chatID string, timeout time.Duration) (*TelegramNotifier, error) {
	if token == "" || chatID == "" {
		return nil, errors.New("telegram token and chat id are required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   token,
		Offline: true,
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return newNotifier(b, chatID, timeout), nil
}

func newNotifier(sender messageSender, chatID string, timeout time.Duration) *TelegramNotifier {
	return &TelegramNotifier{
		sender:  sender,
		chat:    chatRecipient(strings.TrimSpace(chatID)),
		timeout: timeout,
	}
}

// Notify sends one alert. Failures come back as *domain.NotifierError.
func (n *TelegramNotifier) Notify(ctx context.Context, sig domain.Signal, s domain.MarketSnapshot, session domain.Session) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	msg := FormatAlert(sig, s, session)
	done := make(chan error, 1)
	go func() {
		_, err := n.sender.Send(n.chat, msg, tele.ModeMarkdownV2)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return &domain.NotifierError{Err: err}
		}
		return nil
	case <-ctx.Done():
		return &domain.NotifierError{Err: ctx.Err()}
	}
}

var markdownEscaper = func() *strings.Replacer {
	special := `\_*[]()~` + "`" + `>#+-=|{}.!`
	pairs := make([]string, 0, len(special)*2)
	for _, r := range special {
		pairs = append(pairs, string(r), `\`+string(r))
	}
	return strings.NewReplacer(pairs...)
}()

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// FormatAlert renders sig as a MarkdownV2 Telegram message.
func FormatAlert(sig domain.Signal, s domain.MarketSnapshot, session domain.Session) string {
	lines := []string{
		"*SIGNAL* " + escapeMarkdown(fmt.Sprintf("%s %s (%s)", strings.ToUpper(string(sig.Action)), s.Symbol, s.Timeframe)),
	}
	if sig.Confidence != "" {
		lines = append(lines, escapeMarkdown("Confidence: "+string(sig.Confidence)))
	}
	lines = append(lines,
		escapeMarkdown(fmt.Sprintf("Close: %.2f | RSI: %.1f | ADX: %.1f", s.OHLC.Close, s.Indicators.RSI, s.Indicators.ADX)),
		escapeMarkdown("Session: "+string(session)),
	)
	if sig.Explanation != "" {
		lines = append(lines, "_"+escapeMarkdown(sig.Explanation)+"_")
	}
	return strings.Join(lines, "\n")
}
