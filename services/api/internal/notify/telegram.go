package notify

import (
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
)

// TelegramNotifier posts engine events to an admin chat. It is a best-effort
// subscriber: send failures are logged, never propagated.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
}

func NewTelegramNotifier(token string, chatID int64, log zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	log.Info().Str("account", bot.Self.UserName).Msg("telegram notifier authorized")
	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
		log:    log,
	}, nil
}

// HandleEvent implements the event bus handler contract.
func (n *TelegramNotifier) HandleEvent(evt domain.Event) {
	text := FormatEvent(evt)
	if text == "" {
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.log.Error().Err(err).Str("type", string(evt.Type)).Msg("telegram notifier: send")
	}
}

// FormatEvent renders the admin-facing summary for an event. Owner-scoped
// release notifications are skipped; the admin only needs the per-raffle one.
func FormatEvent(evt domain.Event) string {
	numbers := formatNumbers(evt.TicketNumbers)
	switch evt.Type {
	case domain.EventTicketsReserved:
		return fmt.Sprintf("🎟️ Nueva reserva\nNúmeros: %s\nComprador: %s\nPago: %s", numbers, evt.BuyerID, evt.PaymentID)
	case domain.EventPaymentConfirmed:
		return fmt.Sprintf("✅ Pago confirmado\nNúmeros: %s\nPago: %s", numbers, evt.PaymentID)
	case domain.EventPaymentRejected:
		return fmt.Sprintf("❌ Pago rechazado\nNúmeros: %s\nPago: %s", numbers, evt.PaymentID)
	case domain.EventTicketsReleased:
		if evt.BuyerID != "" {
			return ""
		}
		return fmt.Sprintf("⏰ Reservas vencidas liberadas\nNúmeros: %s", numbers)
	default:
		return ""
	}
}

func formatNumbers(numbers []int) string {
	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, n := range sorted {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}
