package models

import (
	"time"
)

// NetworkAnalysisSnapshot сохраненный срез статистики сети агента
type NetworkAnalysisSnapshot struct {
	ID                          string    `json:"id" db:"id"`
	AgentID                     string    `json:"agent_id" db:"agent_id"`
	AnalysisDate                time.Time `json:"analysis_date" db:"analysis_date"`
	TotalInfluencers            int       `json:"total_influencers" db:"total_influencers"`
	ActiveInfluencers           int       `json:"active_influencers" db:"active_influencers"`
	TotalReferrals              int       `json:"total_referrals" db:"total_referrals"`
	SuccessfulReferrals         int       `json:"successful_referrals" db:"successful_referrals"`
	AverageConversionRate       float64   `json:"average_conversion_rate" db:"average_conversion_rate"`
	TotalNetworkValue           float64   `json:"total_network_value" db:"total_network_value"`
	AverageNetworkDepth         float64   `json:"average_network_depth" db:"average_network_depth"`
	AverageNetworkWidth         float64   `json:"average_network_width" db:"average_network_width"`
	AverageRelationshipStrength float64   `json:"average_relationship_strength" db:"average_relationship_strength"`
	TotalGratitudeSent          int       `json:"total_gratitude_sent" db:"total_gratitude_sent"`
	GratitudeFrequency          float64   `json:"gratitude_frequency" db:"gratitude_frequency"`
	MonthlyGrowthRate           float64   `json:"monthly_growth_rate" db:"monthly_growth_rate"`
	DataQualityScore            float64   `json:"data_quality_score" db:"data_quality_score"`
	ConfidenceLevel             float64   `json:"confidence_level" db:"confidence_level"`
	ExpiresAt                   time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt                   time.Time `json:"created_at" db:"created_at"`
}

// NetworkTrends месячные ряды сети
type NetworkTrends struct {
	Referrals      []TrendPoint `json:"referrals"`
	ConversionRate []TrendPoint `json:"conversion_rate"`
	ContractValue  []TrendPoint `json:"contract_value"`
	GratitudeSent  []TrendPoint `json:"gratitude_sent"`
}

// NetworkAnalysisDisplayData результат анализа сети для отображения
type NetworkAnalysisDisplayData struct {
	AgentID                     string        `json:"agent_id"`
	AnalysisDate                time.Time     `json:"analysis_date"`
	TotalInfluencers            int           `json:"total_influencers"`
	ActiveInfluencers           int           `json:"active_influencers"`
	TotalReferrals              int           `json:"total_referrals"`
	SuccessfulReferrals         int           `json:"successful_referrals"`
	AverageConversionRate       float64       `json:"average_conversion_rate"`
	TotalNetworkValue           float64       `json:"total_network_value"`
	AverageNetworkDepth         float64       `json:"average_network_depth"`
	AverageNetworkWidth         float64       `json:"average_network_width"`
	AverageRelationshipStrength float64       `json:"average_relationship_strength"`
	TotalGratitudeSent          int           `json:"total_gratitude_sent"`
	TotalGratitudeCost          float64       `json:"total_gratitude_cost"`
	GratitudeFrequency          float64       `json:"gratitude_frequency"`
	MonthlyGrowthRate           float64       `json:"monthly_growth_rate"`
	DataQualityScore            float64       `json:"data_quality_score"`
	ConfidenceLevel             float64       `json:"confidence_level"`
	Trends                      NetworkTrends `json:"trends"`
}

// Snapshot переводит результат анализа в строку для сохранения
func (d *NetworkAnalysisDisplayData) Snapshot(id string, expiresAt time.Time) *NetworkAnalysisSnapshot {
	return &NetworkAnalysisSnapshot{
		ID:                          id,
		AgentID:                     d.AgentID,
		AnalysisDate:                d.AnalysisDate,
		TotalInfluencers:            d.TotalInfluencers,
		ActiveInfluencers:           d.ActiveInfluencers,
		TotalReferrals:              d.TotalReferrals,
		SuccessfulReferrals:         d.SuccessfulReferrals,
		AverageConversionRate:       d.AverageConversionRate,
		TotalNetworkValue:           d.TotalNetworkValue,
		AverageNetworkDepth:         d.AverageNetworkDepth,
		AverageNetworkWidth:         d.AverageNetworkWidth,
		AverageRelationshipStrength: d.AverageRelationshipStrength,
		TotalGratitudeSent:          d.TotalGratitudeSent,
		GratitudeFrequency:          d.GratitudeFrequency,
		MonthlyGrowthRate:           d.MonthlyGrowthRate,
		DataQualityScore:            d.DataQualityScore,
		ConfidenceLevel:             d.ConfidenceLevel,
		ExpiresAt:                   expiresAt,
		CreatedAt:                   d.AnalysisDate,
	}
}
