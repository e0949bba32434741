package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"surecrm-network/pkg/models"
)

// Sender отправляет сообщение в Telegram; реализуется *tgbotapi.BotAPI
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram отправляет дайджест реферальной сети в чат
type Telegram struct {
	sender Sender
	chatID int64
	logger *zap.Logger
}

// NewTelegram подключается к Bot API по токену
func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram бота: %w", err)
	}
	logger.Info("Telegram бот для дайджеста подключен", zap.String("username", bot.Self.UserName))
	return NewTelegramWithSender(bot, chatID, logger), nil
}

// NewTelegramWithSender создает уведомитель поверх готового отправителя
func NewTelegramWithSender(sender Sender, chatID int64, logger *zap.Logger) *Telegram {
	return &Telegram{
		sender: sender,
		chatID: chatID,
		logger: logger,
	}
}

// SendDigest отправляет сводку в HTML; при ошибке разметки повторяет простым текстом
func (t *Telegram) SendDigest(ctx context.Context, tenantID string, analysis *models.NetworkAnalysisDisplayData, top []models.InfluencerDisplayData) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatDigest(tenantID, analysis, top))
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := t.sender.Send(msg); err != nil {
		t.logger.Warn("ошибка отправки HTML дайджеста, отправляем как обычный текст",
			zap.String("tenant_id", tenantID),
			zap.Error(err))

		plain := tgbotapi.NewMessage(t.chatID, stripTags(FormatDigest(tenantID, analysis, top)))
		if _, err := t.sender.Send(plain); err != nil {
			return fmt.Errorf("ошибка отправки дайджеста: %w", err)
		}
	}

	t.logger.Info("дайджест реферальной сети отправлен",
		zap.String("tenant_id", tenantID),
		zap.Int64("chat_id", t.chatID))
	return nil
}

// FormatDigest собирает текст дайджеста в HTML разметке Telegram
func FormatDigest(tenantID string, analysis *models.NetworkAnalysisDisplayData, top []models.InfluencerDisplayData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>Реферальная сеть агента %s</b>\n\n", html.EscapeString(tenantID))

	if analysis != nil {
		fmt.Fprintf(&b, "Рекомендателей: %d (активных %d)\n", analysis.TotalInfluencers, analysis.ActiveInfluencers)
		fmt.Fprintf(&b, "Рекомендаций: %d, успешных %d\n", analysis.TotalReferrals, analysis.SuccessfulReferrals)
		fmt.Fprintf(&b, "Средняя конверсия: %.1f%%\n", analysis.AverageConversionRate)
		fmt.Fprintf(&b, "Стоимость сети: %.0f\n", analysis.TotalNetworkValue)
		fmt.Fprintf(&b, "Рост за месяц: %+.1f%%\n", analysis.MonthlyGrowthRate)
		fmt.Fprintf(&b, "Благодарностей: %d\n", analysis.TotalGratitudeSent)
	}

	if len(top) > 0 {
		b.WriteString("\n<b>Лучшие за месяц</b>\n")
		for _, inf := range top {
			fmt.Fprintf(&b, "%d. %s: %d рек., сила %.1f, <i>%s</i>\n",
				inf.Rank, html.EscapeString(inf.Name), inf.TotalReferrals, inf.RelationshipStrength, inf.Tier)
		}
	}

	return b.String()
}

var tagReplacer = strings.NewReplacer("<b>", "", "</b>", "", "<i>", "", "</i>", "")

// stripTags убирает разметку и раскрывает экранированные символы
func stripTags(s string) string {
	return html.UnescapeString(tagReplacer.Replace(s))
}
