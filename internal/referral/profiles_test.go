package referral

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surecrm-network/internal/cache"
	"surecrm-network/pkg/models"
)

func TestRefreshProfiles(t *testing.T) {
	f := newFixture()
	seedRanking(f)
	ctx := context.Background()

	require.NoError(t, f.cache.Set(ctx, cache.NetworkAnalysisKey("agent-1"), []byte(`{}`), 0))

	updated, err := f.service.RefreshProfiles(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	assert.Nil(t, f.referrals.lastSince)
	assert.Equal(t, 500, f.referrals.lastLimit)

	require.Len(t, f.influencers.upserted, 2)

	a := f.influencers.upserted[0]
	assert.Equal(t, "p-a", a.ID)
	assert.Equal(t, "agent-1", a.AgentID)
	assert.Equal(t, "a", a.ClientID)
	assert.Equal(t, models.TierDiamond, a.Tier)
	assert.Equal(t, 5, a.TotalReferrals)
	assert.Equal(t, 3, a.SuccessfulConversions)
	assert.Equal(t, 8.0, a.RelationshipStrength)
	assert.Equal(t, 5, a.NetworkWidth)
	assert.Equal(t, 2, a.NetworkDepth)
	assert.Equal(t, 10.0, a.DataQualityScore)
	require.NotNil(t, a.LastReferralDate)
	assert.Equal(t, testNow.AddDate(0, 0, -10), *a.LastReferralDate)

	b := f.influencers.upserted[1]
	assert.Equal(t, "id-1", b.ID)
	assert.Equal(t, "b", b.ClientID)
	assert.Equal(t, models.TierBronze, b.Tier)

	assert.Equal(t, 0, f.cache.Len())
}

func TestRefreshProfiles_UpsertError(t *testing.T) {
	f := newFixture()
	seedRanking(f)
	f.influencers.upsertErr = errors.New("unique violation")

	updated, err := f.service.RefreshProfiles(context.Background(), "agent-1")
	assert.Error(t, err)
	assert.Equal(t, 0, updated)
}

func TestRefreshProfiles_NoReferrers(t *testing.T) {
	f := newFixture()

	updated, err := f.service.RefreshProfiles(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
	assert.Empty(t, f.influencers.upserted)
}
