package referral

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surecrm-network/internal/scoring"
	"surecrm-network/pkg/models"
)

func seedRanking(f *fixture) {
	f.referrals.referrers = []*models.ReferrerAggregate{
		{
			ClientID:            "a",
			FullName:            "Kim Minsu",
			TotalReferrals:      5,
			SuccessfulReferrals: 3,
			TotalContractValue:  12_000_000,
			FirstReferralDate:   testNow.AddDate(0, 0, -200),
			LastReferralDate:    testNow.AddDate(0, 0, -10),
		},
		{
			ClientID:          "b",
			FullName:          "Lee Jiyoung",
			TotalReferrals:    2,
			FirstReferralDate: testNow.AddDate(0, 0, -150),
			LastReferralDate:  testNow.AddDate(0, 0, -100),
		},
		{
			ClientID: "z",
			FullName: "Park",
		},
	}
	f.referrals.edges = map[string][]string{
		"a":  {"a1", "a2", "a3", "a4", "a5"},
		"a1": {"a11"},
	}
	f.referrals.monthly = map[string]map[string]int{
		"a": {"2026-10": 2, "2026-09": 3},
	}
	f.influencers.profiles["a"] = &models.InfluencerProfile{
		ID:                     "p-a",
		ClientID:               "a",
		IsActive:               true,
		IsDataVerified:         true,
		PreferredContactMethod: ptr("kakao"),
		Notes:                  ptr("VIP"),
	}
	f.influencers.activities = map[string][]models.ActivityLog{
		"a": {{ID: "act-1", ClientID: "a", Action: models.ActivityGratitudeSent}},
	}
	f.gratitude.lastDates = map[string]time.Time{
		"a": testNow.AddDate(0, 0, -5),
	}
}

func TestGetTopInfluencers_Scenario(t *testing.T) {
	f := newFixture()
	seedRanking(f)

	result, err := f.service.GetTopInfluencers(context.Background(), "agent-1", 10, models.PeriodAll)
	require.NoError(t, err)
	require.Len(t, result, 2)

	a := result[0]
	assert.Equal(t, 1, a.Rank)
	assert.Equal(t, "a", a.ID)
	assert.Equal(t, 60.0, a.ConversionRate)
	assert.Equal(t, 8.0, a.RelationshipStrength)
	assert.Equal(t, models.TierDiamond, a.Tier)
	assert.Equal(t, 5, a.NetworkWidth)
	assert.Equal(t, 2, a.NetworkDepth)
	assert.Equal(t, 4_000_000.0, a.AverageContractValue)
	assert.Equal(t, "kakao", a.PreferredContactMethod)
	assert.Equal(t, "VIP", a.Notes)
	assert.True(t, a.HasProfile)
	assert.Equal(t, 10.0, a.DataQuality.Score)
	assert.Empty(t, a.DataQuality.Issues)
	require.NotNil(t, a.LastGratitudeDate)
	assert.Equal(t, testNow.AddDate(0, 0, -5), *a.LastGratitudeDate)
	require.Len(t, a.MonthlyReferrals, 12)
	assert.Equal(t, models.TrendPoint{Month: "2026-10", Value: 2}, a.MonthlyReferrals[11])
	assert.Equal(t, models.TrendPoint{Month: "2026-09", Value: 3}, a.MonthlyReferrals[10])
	assert.Equal(t, models.TrendPoint{Month: "2025-11", Value: 0}, a.MonthlyReferrals[0])
	assert.Equal(t, map[string]int{"2026-10": 2, "2026-09": 3}, a.ReferralPattern)
	assert.Len(t, a.RecentActivities, 1)

	b := result[1]
	assert.Equal(t, 2, b.Rank)
	assert.Equal(t, 0.0, b.ConversionRate)
	assert.Equal(t, 1.0, b.RelationshipStrength)
	assert.Equal(t, models.TierBronze, b.Tier)
	assert.Equal(t, 0, b.NetworkWidth)
	assert.Equal(t, 1, b.NetworkDepth)
	assert.Equal(t, models.ContactMethodPhone, b.PreferredContactMethod)
	assert.Equal(t, "", b.Notes)
	assert.False(t, b.HasProfile)
	assert.Nil(t, b.LastGratitudeDate)
	assert.Equal(t, 5.5, b.DataQuality.Score)
	assert.Equal(t, []string{scoring.IssueNoProfile, scoring.IssueNoGratitude, scoring.IssueNoNetwork}, b.DataQuality.Issues)
	assert.NotNil(t, b.RecentActivities)
}

func TestGetTopInfluencers_ZeroReferralsExcluded(t *testing.T) {
	f := newFixture()
	f.referrals.referrers = []*models.ReferrerAggregate{{ClientID: "z", FullName: "Park"}}

	result, err := f.service.GetTopInfluencers(context.Background(), "agent-1", 10, models.PeriodAll)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestGetTopInfluencers_CacheHit(t *testing.T) {
	f := newFixture()
	seedRanking(f)
	ctx := context.Background()

	first, err := f.service.GetTopInfluencers(ctx, "agent-1", 5, models.PeriodYear)
	require.NoError(t, err)

	second, err := f.service.GetTopInfluencers(ctx, "agent-1", 5, models.PeriodYear)
	require.NoError(t, err)

	assert.Equal(t, 1, f.referrals.topCalls)
	assert.Equal(t, len(first), len(second))
	assert.Equal(t, first[0].RelationshipStrength, second[0].RelationshipStrength)

	// другой лимит — другой ключ
	_, err = f.service.GetTopInfluencers(ctx, "agent-1", 3, models.PeriodYear)
	require.NoError(t, err)
	assert.Equal(t, 2, f.referrals.topCalls)
}

func TestGetTopInfluencers_Defaults(t *testing.T) {
	f := newFixture()
	seedRanking(f)

	_, err := f.service.GetTopInfluencers(context.Background(), "agent-1", 0, models.Period("fortnight"))
	require.NoError(t, err)

	assert.Equal(t, DefaultLimit, f.referrals.lastLimit)
	assert.Nil(t, f.referrals.lastSince)
}

func TestGetTopInfluencers_PeriodFilter(t *testing.T) {
	f := newFixture()
	seedRanking(f)

	_, err := f.service.GetTopInfluencers(context.Background(), "agent-1", 10, models.PeriodQuarter)
	require.NoError(t, err)

	require.NotNil(t, f.referrals.lastSince)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), *f.referrals.lastSince)
}

func TestGetTopInfluencers_ErrorAborts(t *testing.T) {
	f := newFixture()
	seedRanking(f)
	f.influencers.profilesErr = errors.New("connection reset")
	ctx := context.Background()

	result, err := f.service.GetTopInfluencers(ctx, "agent-1", 10, models.PeriodAll)
	assert.ErrorIs(t, err, ErrRankingUnavailable)
	assert.Nil(t, result)
	assert.Equal(t, 0, f.cache.Len())

	f.influencers.profilesErr = nil
	result, err = f.service.GetTopInfluencers(ctx, "agent-1", 10, models.PeriodAll)
	require.NoError(t, err)
	assert.Len(t, result, 2)
	assert.Equal(t, 2, f.referrals.topCalls)
}

func TestGetTopInfluencers_QueryError(t *testing.T) {
	f := newFixture()
	f.referrals.topErr = errors.New("timeout")

	_, err := f.service.GetTopInfluencers(context.Background(), "agent-1", 10, models.PeriodAll)
	assert.ErrorIs(t, err, ErrRankingUnavailable)
}
