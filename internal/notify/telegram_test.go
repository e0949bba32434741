package notify

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surecrm-network/pkg/models"
)

type fakeSender struct {
	messages []tgbotapi.MessageConfig
	errs     []error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	s.messages = append(s.messages, msg)

	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return tgbotapi.Message{}, err
	}
	return tgbotapi.Message{MessageID: len(s.messages)}, nil
}

func sampleDigest() (*models.NetworkAnalysisDisplayData, []models.InfluencerDisplayData) {
	analysis := &models.NetworkAnalysisDisplayData{
		TotalInfluencers:      4,
		ActiveInfluencers:     3,
		TotalReferrals:        12,
		SuccessfulReferrals:   6,
		AverageConversionRate: 50,
		TotalNetworkValue:     90_000_000,
		MonthlyGrowthRate:     50,
		TotalGratitudeSent:    7,
	}
	top := []models.InfluencerDisplayData{
		{Rank: 1, Name: "Kim <VIP>", TotalReferrals: 5, RelationshipStrength: 8, Tier: models.TierDiamond},
	}
	return analysis, top
}

func TestFormatDigest(t *testing.T) {
	analysis, top := sampleDigest()

	text := FormatDigest("agent-1", analysis, top)

	assert.Contains(t, text, "<b>Реферальная сеть агента agent-1</b>")
	assert.Contains(t, text, "Рекомендателей: 4 (активных 3)")
	assert.Contains(t, text, "Средняя конверсия: 50.0%")
	assert.Contains(t, text, "Стоимость сети: 90000000")
	assert.Contains(t, text, "Рост за месяц: +50.0%")
	assert.Contains(t, text, "1. Kim &lt;VIP&gt;: 5 рек., сила 8.0, <i>diamond</i>")
}

func TestFormatDigest_Empty(t *testing.T) {
	text := FormatDigest("agent-1", nil, nil)
	assert.Equal(t, "<b>Реферальная сеть агента agent-1</b>\n\n", text)
}

func TestTelegram_SendDigest(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegramWithSender(sender, 42, zap.NewNop())
	analysis, top := sampleDigest()

	require.NoError(t, n.SendDigest(context.Background(), "agent-1", analysis, top))

	require.Len(t, sender.messages, 1)
	assert.Equal(t, int64(42), sender.messages[0].ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, sender.messages[0].ParseMode)
}

func TestTelegram_SendDigestFallback(t *testing.T) {
	sender := &fakeSender{errs: []error{errors.New("Bad Request: can't parse entities")}}
	n := NewTelegramWithSender(sender, 42, zap.NewNop())
	analysis, top := sampleDigest()

	require.NoError(t, n.SendDigest(context.Background(), "agent-1", analysis, top))

	require.Len(t, sender.messages, 2)
	plain := sender.messages[1]
	assert.Empty(t, plain.ParseMode)
	assert.NotContains(t, plain.Text, "<b>")
	assert.Contains(t, plain.Text, "Kim <VIP>")
}

func TestTelegram_SendDigestFails(t *testing.T) {
	sender := &fakeSender{errs: []error{errors.New("forbidden"), errors.New("forbidden")}}
	n := NewTelegramWithSender(sender, 42, zap.NewNop())

	err := n.SendDigest(context.Background(), "agent-1", nil, nil)
	assert.Error(t, err)
}
