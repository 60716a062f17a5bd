package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"paycom/internal/audit"
	"paycom/internal/models"
	"paycom/internal/pkg/utils"
)

// Sender delivers an HTML report message to operators.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// TelegramSender posts reports to a single chat.
type TelegramSender struct {
	bot  *tele.Bot
	chat tele.ChatID
}

// NewTelegramSender creates an offline bot: it only sends, never polls.
func NewTelegramSender(token string, chatID int64) (*TelegramSender, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telebot: %w", err)
	}
	return &TelegramSender{bot: bot, chat: tele.ChatID(chatID)}, nil
}

func (s *TelegramSender) Send(_ context.Context, text string) error {
	_, err := s.bot.Send(s.chat, text, tele.ModeHTML, tele.NoPreview)
	return err
}

// Reporter is an audit sink that tells operators about completed and
// cancelled payments. Delivery is asynchronous.
type Reporter struct {
	sender Sender
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewReporter(sender Sender, logger *zap.Logger) *Reporter {
	return &Reporter{sender: sender, logger: logger.Named("report")}
}

func (r *Reporter) Record(_ context.Context, e audit.Event) {
	text, ok := FormatEvent(e)
	if !ok {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.sender.Send(context.Background(), text); err != nil {
			r.logger.Warn("failed to deliver payment report",
				zap.String("paycom_id", e.After.PaycomTransactionID), zap.Error(err))
		}
	}()
}

// Wait blocks until pending reports are delivered.
func (r *Reporter) Wait() {
	r.wg.Wait()
}

// FormatEvent renders the report for an audit event. Only completions and
// cancellations are reported.
func FormatEvent(e audit.Event) (string, bool) {
	t := e.After
	var title string
	switch {
	case e.Action == audit.ActionUpdate && t.State == models.StateCompleted:
		title = "✅ <b>Payment completed</b>"
	case e.Action == audit.ActionCancel && t.State == models.StateCancelledAfterComplete:
		title = "↩️ <b>Payment refunded</b>"
	case e.Action == audit.ActionCancel:
		title = "❌ <b>Payment cancelled</b>"
	default:
		return "", false
	}

	var b strings.Builder
	b.WriteString(title)
	fmt.Fprintf(&b, "\nOrder: <code>%s</code>", html.EscapeString(t.OrderID))
	fmt.Fprintf(&b, "\nAmount: %s UZS", utils.FormatAmount(t.Amount))
	fmt.Fprintf(&b, "\nPaycom ID: <code>%s</code>", html.EscapeString(t.PaycomTransactionID))
	if t.Reason != nil {
		fmt.Fprintf(&b, "\nReason: %s", reasonText(*t.Reason))
	}
	return b.String(), true
}

func reasonText(r models.CancelReason) string {
	switch r {
	case models.ReasonReceiversNotFound:
		return "receivers not found"
	case models.ReasonProcessingExecutionFailed:
		return "processing failed"
	case models.ReasonExecutionFailed:
		return "execution failed"
	case models.ReasonCancelledByTimeout:
		return "timed out"
	case models.ReasonFundReturned:
		return "funds returned"
	default:
		return fmt.Sprintf("unknown (%d)", int(r))
	}
}
