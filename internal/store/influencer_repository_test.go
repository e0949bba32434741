package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surecrm-network/pkg/models"
)

// fakeRow заполняет назначения по порядку колонок
type fakeRow struct {
	values []interface{}
	err    error
	dests  int
}

func (r *fakeRow) Scan(dest ...interface{}) error {
	r.dests = len(dest)
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if i >= len(r.values) {
			break
		}
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *models.Tier:
			*p = r.values[i].(models.Tier)
		case *int:
			*p = r.values[i].(int)
		case *float64:
			*p = r.values[i].(float64)
		case *bool:
			*p = r.values[i].(bool)
		case **time.Time:
			if v, ok := r.values[i].(time.Time); ok {
				*p = &v
			}
		case **string:
			if v, ok := r.values[i].(string); ok {
				*p = &v
			}
		case *time.Time:
			*p = r.values[i].(time.Time)
		}
	}
	return nil
}

func TestProfileColumnsMatchScan(t *testing.T) {
	columns := strings.Split(profileColumns, ",")
	row := &fakeRow{err: errors.New("no rows")}

	_, err := scanProfile(row)
	require.Error(t, err)
	assert.Equal(t, len(columns), row.dests)
}

func TestScanProfile(t *testing.T) {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	lastReferral := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	row := &fakeRow{values: []interface{}{
		"p-1", "agent-1", "client-1", models.TierGold, 7, 4,
		57.1, 21_000_000.0, 5_250_000.0,
		2, 4, 6.5,
		lastReferral, nil, nil,
		"kakao", nil, true, false,
		9.0, created, created,
	}}

	p, err := scanProfile(row)
	require.NoError(t, err)

	assert.Equal(t, "p-1", p.ID)
	assert.Equal(t, models.TierGold, p.Tier)
	assert.Equal(t, 7, p.TotalReferrals)
	assert.Equal(t, 6.5, p.RelationshipStrength)
	require.NotNil(t, p.LastReferralDate)
	assert.Equal(t, lastReferral, *p.LastReferralDate)
	assert.Nil(t, p.LastGratitudeDate)
	require.NotNil(t, p.PreferredContactMethod)
	assert.Equal(t, "kakao", *p.PreferredContactMethod)
	assert.Nil(t, p.Notes)
	assert.True(t, p.IsActive)
	assert.False(t, p.IsDataVerified)
	assert.Equal(t, created, p.UpdatedAt)
}
