package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"surecrm-network/pkg/models"
)

func ptrTime(t time.Time) *time.Time {
	return &t
}

func TestConversionRate(t *testing.T) {
	assert.Equal(t, 0.0, ConversionRate(0, 0))
	assert.Equal(t, 0.0, ConversionRate(3, 0))
	assert.Equal(t, 60.0, ConversionRate(3, 5))
	assert.Equal(t, 100.0, ConversionRate(4, 4))
}

func TestRelationshipStrength_Scenario(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	conversion := ConversionRate(3, 5)
	assert.Equal(t, 60.0, conversion)

	score := RelationshipStrength(RelationshipInput{
		TotalReferrals:     5,
		ConversionRate:     conversion,
		TotalContractValue: 12_000_000,
		LastReferralDate:   ptrTime(now.AddDate(0, 0, -10)),
		LastGratitudeDate:  ptrTime(now.AddDate(0, 0, -5)),
		Now:                now,
	})

	assert.Equal(t, 8.0, score)
}

func TestRelationshipStrength_Terms(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    RelationshipInput
		expected float64
	}{
		{
			name:     "пустые данные",
			input:    RelationshipInput{Now: now},
			expected: 0,
		},
		{
			name:     "объем рефералов ограничен 5",
			input:    RelationshipInput{TotalReferrals: 40, Now: now},
			expected: 5,
		},
		{
			name:     "конверсия ограничена 3",
			input:    RelationshipInput{ConversionRate: 100, Now: now},
			expected: 3,
		},
		{
			name:     "крупные контракты",
			input:    RelationshipInput{TotalContractValue: 60_000_000, Now: now},
			expected: 1.5,
		},
		{
			name:     "контракты больше миллиона",
			input:    RelationshipInput{TotalContractValue: 2_000_000, Now: now},
			expected: 0.5,
		},
		{
			name:     "ровно миллион не учитывается",
			input:    RelationshipInput{TotalContractValue: 1_000_000, Now: now},
			expected: 0,
		},
		{
			name:     "реферал 60 дней назад",
			input:    RelationshipInput{LastReferralDate: ptrTime(now.AddDate(0, 0, -60)), Now: now},
			expected: 0.5,
		},
		{
			name:     "реферал 120 дней назад",
			input:    RelationshipInput{LastReferralDate: ptrTime(now.AddDate(0, 0, -120)), Now: now},
			expected: 0,
		},
		{
			name:     "старая благодарность",
			input:    RelationshipInput{LastGratitudeDate: ptrTime(now.AddDate(0, 0, -31)), Now: now},
			expected: 0,
		},
		{
			name: "максимум ограничен 10",
			input: RelationshipInput{
				TotalReferrals:     100,
				ConversionRate:     100,
				TotalContractValue: 100_000_000,
				LastReferralDate:   ptrTime(now),
				LastGratitudeDate:  ptrTime(now),
				Now:                now,
			},
			expected: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RelationshipStrength(tt.input))
		})
	}
}

func TestRelationshipStrength_BoundsAndStability(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for referrals := 0; referrals <= 30; referrals += 3 {
		for conversion := 0.0; conversion <= 100; conversion += 12.5 {
			for _, value := range []float64{0, 5_000_000, 20_000_000, 90_000_000} {
				in := RelationshipInput{
					TotalReferrals:     referrals,
					ConversionRate:     conversion,
					TotalContractValue: value,
					LastReferralDate:   ptrTime(now.AddDate(0, 0, -referrals)),
					LastGratitudeDate:  ptrTime(now.AddDate(0, 0, -referrals*2)),
					Now:                now,
				}
				score := RelationshipStrength(in)
				assert.GreaterOrEqual(t, score, 0.0)
				assert.LessOrEqual(t, score, MaxRelationshipStrength)
				assert.Equal(t, score, RelationshipStrength(in))
			}
		}
	}
}

func TestTier(t *testing.T) {
	tests := []struct {
		name       string
		conversion float64
		referrals  int
		strength   float64
		expected   models.Tier
	}{
		{"нет данных", 0, 0, 0, models.TierBronze},
		{"серебро", 10, 5, 0, models.TierSilver},
		{"золото", 20, 5, 2, models.TierGold},
		{"платина", 30, 5, 4, models.TierPlatinum},
		{"бриллиант", 60, 5, 8, models.TierDiamond},
		{"граница 80", 0, 40, 0, models.TierDiamond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tier(tt.conversion, tt.referrals, tt.strength))
		})
	}
}

func TestTier_Monotonic(t *testing.T) {
	base := Tier(20, 3, 2)

	assert.GreaterOrEqual(t, Tier(40, 3, 2).Rank(), base.Rank())
	assert.GreaterOrEqual(t, Tier(20, 10, 2).Rank(), base.Rank())
	assert.GreaterOrEqual(t, Tier(20, 3, 9).Rank(), base.Rank())

	prev := models.TierBronze
	for strength := 0.0; strength <= 10; strength += 0.5 {
		tier := Tier(15, 2, strength)
		assert.GreaterOrEqual(t, tier.Rank(), prev.Rank())
		prev = tier
	}
}

func TestDataQuality(t *testing.T) {
	full := DataQuality(DataQualityInput{
		HasProfile:   true,
		IsVerified:   true,
		HasGratitude: true,
		NetworkWidth: 3,
		Name:         "Kim",
	})
	assert.Equal(t, 10.0, full.Score)
	assert.Empty(t, full.Issues)

	empty := DataQuality(DataQualityInput{})
	assert.Equal(t, 5.0, empty.Score)
	assert.Equal(t, []string{IssueNoProfile, IssueNoGratitude, IssueNoNetwork, IssueMissingName}, empty.Issues)

	unverified := DataQuality(DataQualityInput{HasProfile: true, HasGratitude: true, NetworkWidth: 1, Name: "Lee"})
	assert.Equal(t, 9.0, unverified.Score)
	assert.Equal(t, []string{IssueUnverified}, unverified.Issues)
}

func TestConfidenceLevel(t *testing.T) {
	assert.Equal(t, 0.0, ConfidenceLevel(0, 0))
	assert.Equal(t, 5.0, ConfidenceLevel(5, 10))
	assert.Equal(t, 10.0, ConfidenceLevel(10, 10))
	assert.Equal(t, 10.0, ConfidenceLevel(15, 10))
}
