package models

import (
	"time"
)

// ReferralEdge представляет направленную реферальную связь referrer → referred
type ReferralEdge struct {
	ReferrerID string    `json:"referrer_id" db:"referred_by_id"`
	ReferredID string    `json:"referred_id" db:"id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ReferrerAggregate агрегат рефералов одного клиента за период
type ReferrerAggregate struct {
	ClientID            string    `json:"client_id"`
	FullName            string    `json:"full_name"`
	TotalReferrals      int       `json:"total_referrals"`
	SuccessfulReferrals int       `json:"successful_referrals"`
	TotalContractValue  float64   `json:"total_contract_value"`
	FirstReferralDate   time.Time `json:"first_referral_date"`
	LastReferralDate    time.Time `json:"last_referral_date"`
}

// ReferralTotals итоговая статистика рефералов агента
type ReferralTotals struct {
	TotalInfluencers      int     `json:"total_influencers"`
	TotalReferrals        int     `json:"total_referrals"`
	SuccessfulReferrals   int     `json:"successful_referrals"`
	AverageConversionRate float64 `json:"average_conversion_rate"`
}

// NetworkData ширина и глубина реферальной сети клиента
type NetworkData struct {
	ClientID string `json:"client_id"`
	Width    int    `json:"width"`
	Depth    int    `json:"depth"`
}

// Period ключевое слово периода для рейтинга
type Period string

const (
	PeriodAll         Period = "all"
	PeriodLast7Days   Period = "last7days"
	PeriodLast30Days  Period = "last30days"
	PeriodLast3Months Period = "last3months"
	PeriodMonth       Period = "month"
	PeriodQuarter     Period = "quarter"
	PeriodYear        Period = "year"
)

// Since возвращает начало периода относительно now; nil означает без фильтра.
// Неизвестные значения трактуются как all.
func (p Period) Since(now time.Time) *time.Time {
	var since time.Time
	switch p {
	case PeriodLast7Days:
		since = now.AddDate(0, 0, -7)
	case PeriodLast30Days:
		since = now.AddDate(0, 0, -30)
	case PeriodLast3Months:
		since = now.AddDate(0, -3, 0)
	case PeriodMonth:
		since = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case PeriodQuarter:
		quarterStart := time.Month((int(now.Month())-1)/3*3 + 1)
		since = time.Date(now.Year(), quarterStart, 1, 0, 0, 0, 0, now.Location())
	case PeriodYear:
		since = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return nil
	}
	return &since
}

// IsValid проверяет, что период известен
func (p Period) IsValid() bool {
	switch p {
	case PeriodAll, PeriodLast7Days, PeriodLast30Days, PeriodLast3Months, PeriodMonth, PeriodQuarter, PeriodYear:
		return true
	default:
		return false
	}
}
