package models

import (
	"time"
)

// Tier уровень влиятельного клиента
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
)

// Rank возвращает порядковый номер уровня (bronze = 0)
func (t Tier) Rank() int {
	switch t {
	case TierSilver:
		return 1
	case TierGold:
		return 2
	case TierPlatinum:
		return 3
	case TierDiamond:
		return 4
	default:
		return 0
	}
}

// Способы связи
const (
	ContactMethodPhone    = "phone"
	ContactMethodKakao    = "kakao"
	ContactMethodEmail    = "email"
	ContactMethodSMS      = "sms"
	ContactMethodInPerson = "in_person"
)

// InfluencerProfile агрегированный профиль клиента-рекомендателя
type InfluencerProfile struct {
	ID                     string     `json:"id" db:"id"`
	AgentID                string     `json:"agent_id" db:"agent_id"`
	ClientID               string     `json:"client_id" db:"client_id"`
	Tier                   Tier       `json:"tier" db:"tier"`
	TotalReferrals         int        `json:"total_referrals" db:"total_referrals"`
	SuccessfulConversions  int        `json:"successful_conversions" db:"successful_conversions"`
	ConversionRate         float64    `json:"conversion_rate" db:"conversion_rate"`
	TotalContractValue     float64    `json:"total_contract_value" db:"total_contract_value"`
	AverageContractValue   float64    `json:"average_contract_value" db:"average_contract_value"`
	NetworkDepth           int        `json:"network_depth" db:"network_depth"`
	NetworkWidth           int        `json:"network_width" db:"network_width"`
	RelationshipStrength   float64    `json:"relationship_strength" db:"relationship_strength"`
	LastReferralDate       *time.Time `json:"last_referral_date,omitempty" db:"last_referral_date"`
	LastGratitudeDate      *time.Time `json:"last_gratitude_date,omitempty" db:"last_gratitude_date"`
	LastContactDate        *time.Time `json:"last_contact_date,omitempty" db:"last_contact_date"`
	PreferredContactMethod *string    `json:"preferred_contact_method,omitempty" db:"preferred_contact_method"`
	Notes                  *string    `json:"notes,omitempty" db:"notes"`
	IsActive               bool       `json:"is_active" db:"is_active"`
	IsDataVerified         bool       `json:"is_data_verified" db:"is_data_verified"`
	DataQualityScore       float64    `json:"data_quality_score" db:"data_quality_score"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

// ActivityLog запись журнала действий по профилю
type ActivityLog struct {
	ID           string                 `json:"id" db:"id"`
	AgentID      string                 `json:"agent_id" db:"agent_id"`
	InfluencerID string                 `json:"influencer_id" db:"influencer_id"`
	ClientID     string                 `json:"client_id" db:"client_id"`
	Action       string                 `json:"action" db:"action"`
	Description  string                 `json:"description" db:"description"`
	Metadata     map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
}

// Действия журнала
const (
	ActivityGratitudeSent      = "gratitude_sent"
	ActivityGratitudeScheduled = "gratitude_scheduled"
	ActivityGratitudeStatus    = "gratitude_status_changed"
)

// ProfileStats средние значения по профилям агента
type ProfileStats struct {
	TotalProfiles               int     `json:"total_profiles"`
	ActiveInfluencers           int     `json:"active_influencers"`
	AverageNetworkDepth         float64 `json:"average_network_depth"`
	AverageNetworkWidth         float64 `json:"average_network_width"`
	AverageRelationshipStrength float64 `json:"average_relationship_strength"`
}

// DataQuality оценка качества данных с перечнем проблем
type DataQuality struct {
	Score  float64  `json:"score"`
	Issues []string `json:"issues"`
}

// TrendPoint точка месячного ряда
type TrendPoint struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// InfluencerDisplayData запись рейтинга для отображения
type InfluencerDisplayData struct {
	ID                     string         `json:"id"`
	Rank                   int            `json:"rank"`
	Name                   string         `json:"name"`
	TotalReferrals         int            `json:"total_referrals"`
	SuccessfulContracts    int            `json:"successful_contracts"`
	ConversionRate         float64        `json:"conversion_rate"`
	TotalContractValue     float64        `json:"total_contract_value"`
	AverageContractValue   float64        `json:"average_contract_value"`
	FirstReferralDate      time.Time      `json:"first_referral_date"`
	LastReferralDate       time.Time      `json:"last_referral_date"`
	LastGratitudeDate      *time.Time     `json:"last_gratitude_date,omitempty"`
	RelationshipStrength   float64        `json:"relationship_strength"`
	Tier                   Tier           `json:"tier"`
	NetworkDepth           int            `json:"network_depth"`
	NetworkWidth           int            `json:"network_width"`
	MonthlyReferrals       []TrendPoint   `json:"monthly_referrals"`
	ReferralPattern        map[string]int `json:"referral_pattern"`
	PreferredContactMethod string         `json:"preferred_contact_method"`
	Notes                  string         `json:"notes"`
	RecentActivities       []ActivityLog  `json:"recent_activities"`
	DataQuality            DataQuality    `json:"data_quality"`
	IsActive               bool           `json:"is_active"`
	HasProfile             bool           `json:"has_profile"`
}
