package referral

import (
	"context"
	"strconv"
	"sync"
	"time"

	"surecrm-network/internal/cache"
	"surecrm-network/internal/store"
	"surecrm-network/pkg/models"

	"go.uber.org/zap"
)

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type fakeReferrals struct {
	mu sync.Mutex

	referrers      []*models.ReferrerAggregate
	edges          map[string][]string
	monthly        map[string]map[string]int
	totals         *models.ReferralTotals
	networkValue   float64
	referralSeries map[string]float64

	topErr    error
	totalsErr error
	trendErr  error

	topCalls  int
	lastSince *time.Time
	lastLimit int
}

func (f *fakeReferrals) GetTopReferrers(_ context.Context, _ string, since *time.Time, limit int) ([]*models.ReferrerAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topCalls++
	f.lastSince = since
	f.lastLimit = limit
	if f.topErr != nil {
		return nil, f.topErr
	}
	out := f.referrers
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeReferrals) GetOutgoingReferrals(_ context.Context, _ string, ids []string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, id := range ids {
		if children, ok := f.edges[id]; ok {
			out[id] = children
		}
	}
	return out, nil
}

func (f *fakeReferrals) GetMonthlyReferralCounts(_ context.Context, _ string, _ []string, _ time.Time) (map[string]map[string]int, error) {
	if f.monthly == nil {
		return map[string]map[string]int{}, nil
	}
	return f.monthly, nil
}

func (f *fakeReferrals) GetReferralTrend(_ context.Context, _ string, _ time.Time) (map[string]float64, error) {
	if f.trendErr != nil {
		return nil, f.trendErr
	}
	return f.referralSeries, nil
}

func (f *fakeReferrals) GetConversionTrend(_ context.Context, _ string, _ time.Time) (map[string]float64, error) {
	return map[string]float64{}, nil
}

func (f *fakeReferrals) GetContractValueTrend(_ context.Context, _ string, _ time.Time) (map[string]float64, error) {
	return map[string]float64{}, nil
}

func (f *fakeReferrals) GetReferralTotals(_ context.Context, _ string) (*models.ReferralTotals, error) {
	if f.totalsErr != nil {
		return nil, f.totalsErr
	}
	if f.totals == nil {
		return &models.ReferralTotals{}, nil
	}
	return f.totals, nil
}

func (f *fakeReferrals) GetNetworkValue(_ context.Context, _ string) (float64, error) {
	return f.networkValue, nil
}

type fakeInfluencers struct {
	mu sync.Mutex

	profiles   map[string]*models.InfluencerProfile
	activities map[string][]models.ActivityLog
	stats      *models.ProfileStats
	tenants    []string

	profilesErr error
	lookupErr   error
	upsertErr   error

	lookups     int
	activeSince time.Time
	upserted    []*models.InfluencerProfile
}

func (f *fakeInfluencers) GetProfilesByClientIDs(_ context.Context, _ string, ids []string) (map[string]*models.InfluencerProfile, error) {
	if f.profilesErr != nil {
		return nil, f.profilesErr
	}
	out := make(map[string]*models.InfluencerProfile)
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeInfluencers) GetProfileByClientID(_ context.Context, _ string, clientID string) (*models.InfluencerProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	p, ok := f.profiles[clientID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeInfluencers) GetRecentActivities(_ context.Context, _ string, _ []string, _ int) (map[string][]models.ActivityLog, error) {
	if f.activities == nil {
		return map[string][]models.ActivityLog{}, nil
	}
	return f.activities, nil
}

func (f *fakeInfluencers) GetProfileStats(_ context.Context, _ string, activeSince time.Time) (*models.ProfileStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activeSince = activeSince
	if f.stats == nil {
		return &models.ProfileStats{}, nil
	}
	return f.stats, nil
}

func (f *fakeInfluencers) UpsertProfileMetrics(_ context.Context, p *models.InfluencerProfile) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, p)
	return nil
}

func (f *fakeInfluencers) ListTenantIDs(_ context.Context) ([]string, error) {
	return f.tenants, nil
}

type fakeGratitude struct {
	lastDates map[string]time.Time
	history   []models.GratitudeHistoryItem
	stats     *models.GratitudeStats
	records   map[string]*models.GratitudeRecord

	createErr  error
	historyErr error
	getErr     error
	updateErr  error

	created      []*models.GratitudeRecord
	activities   []*models.ActivityLog
	historyCalls int
}

func (f *fakeGratitude) CreateWithActivity(_ context.Context, g *models.GratitudeRecord, a *models.ActivityLog) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, g)
	f.activities = append(f.activities, a)
	return nil
}

func (f *fakeGratitude) UpdateStatus(_ context.Context, g *models.GratitudeRecord, status models.GratitudeStatus, a *models.ActivityLog) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.records[g.ID]
	if !ok || stored.Status != g.Status {
		return store.ErrNotFound
	}
	stored.Status = status
	f.activities = append(f.activities, a)
	return nil
}

func (f *fakeGratitude) GetByID(_ context.Context, _ string, id string) (*models.GratitudeRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	g, ok := f.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *g
	return &c, nil
}

func (f *fakeGratitude) GetHistory(_ context.Context, _ string, limit int) ([]models.GratitudeHistoryItem, error) {
	f.historyCalls++
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if len(f.history) > limit {
		return f.history[:limit], nil
	}
	return f.history, nil
}

func (f *fakeGratitude) GetLastGratitudeDates(_ context.Context, _ string, _ []string) (map[string]time.Time, error) {
	if f.lastDates == nil {
		return map[string]time.Time{}, nil
	}
	return f.lastDates, nil
}

func (f *fakeGratitude) GetStats(_ context.Context, _ string, _ time.Time, _ int) (*models.GratitudeStats, error) {
	if f.stats == nil {
		return &models.GratitudeStats{}, nil
	}
	return f.stats, nil
}

func (f *fakeGratitude) GetSendTrend(_ context.Context, _ string, _ time.Time) (map[string]float64, error) {
	return map[string]float64{}, nil
}

type fakeAnalysis struct {
	saved   []*models.NetworkAnalysisSnapshot
	saveErr error
	latest  *models.NetworkAnalysisSnapshot
}

func (f *fakeAnalysis) SaveSnapshot(_ context.Context, s *models.NetworkAnalysisSnapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, s)
	return nil
}

func (f *fakeAnalysis) GetLatestSnapshot(_ context.Context, _ string, now time.Time) (*models.NetworkAnalysisSnapshot, error) {
	if f.latest == nil || !f.latest.ExpiresAt.After(now) {
		return nil, store.ErrNotFound
	}
	return f.latest, nil
}

func (f *fakeAnalysis) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type fixture struct {
	referrals   *fakeReferrals
	influencers *fakeInfluencers
	gratitude   *fakeGratitude
	analysis    *fakeAnalysis
	cache       *cache.Memory
	service     *Service
}

func newFixture() *fixture {
	f := &fixture{
		referrals:   &fakeReferrals{edges: map[string][]string{}},
		influencers: &fakeInfluencers{profiles: map[string]*models.InfluencerProfile{}},
		gratitude:   &fakeGratitude{records: map[string]*models.GratitudeRecord{}},
		analysis:    &fakeAnalysis{},
		cache:       cache.NewMemory(clock),
	}

	ids := 0
	f.service = NewService(f.referrals, f.influencers, f.gratitude, f.analysis, f.cache, nil, Options{
		ActiveMonths: 6,
		DataQuality:  8.5,
		TrendMonths:  6,
		Clock:        clock,
	}, zap.NewNop())
	f.service.newID = func() string {
		ids++
		return "id-" + strconv.Itoa(ids)
	}

	return f
}

func ptr[T any](v T) *T {
	return &v
}
