package scoring

import (
	"math"
	"time"

	"surecrm-network/pkg/models"
)

// Пороги и веса силы отношений
const (
	MaxRelationshipStrength = 10.0

	referralWeight   = 0.5
	referralCap      = 5.0
	conversionWeight = 0.05
	conversionCap    = 3.0

	highContractValue   = 50_000_000
	mediumContractValue = 10_000_000
	lowContractValue    = 1_000_000

	recentReferralDays   = 30
	moderateReferralDays = 90
	recentGratitudeDays  = 30
)

// Пороги уровней
const (
	diamondThreshold  = 80
	platinumThreshold = 60
	goldThreshold     = 40
	silverThreshold   = 20
)

// Названия проблем качества данных
const (
	IssueNoProfile   = "no_profile"
	IssueUnverified  = "unverified_profile"
	IssueNoGratitude = "no_gratitude_history"
	IssueNoNetwork   = "no_network"
	IssueMissingName = "missing_name"
)

const (
	maxDataQualityScore = 10.0
	noProfilePenalty    = 2.0
	unverifiedPenalty   = 1.0
	noGratitudePenalty  = 1.5
	noNetworkPenalty    = 1.0
	missingNamePenalty  = 0.5
)

// RelationshipInput исходные данные для расчета силы отношений
type RelationshipInput struct {
	TotalReferrals     int
	ConversionRate     float64
	TotalContractValue float64
	LastReferralDate   *time.Time
	LastGratitudeDate  *time.Time
	Now                time.Time
}

// ConversionRate возвращает долю успешных рефералов в процентах
func ConversionRate(successful, total int) float64 {
	if total <= 0 {
		return 0
	}
	rate := float64(successful) / float64(total) * 100
	return math.Max(0, math.Min(rate, 100))
}

// RelationshipStrength считает силу отношений 0–10 с округлением до одного знака
func RelationshipStrength(in RelationshipInput) float64 {
	score := math.Min(float64(in.TotalReferrals)*referralWeight, referralCap)
	score += math.Min(in.ConversionRate*conversionWeight, conversionCap)
	score += contractValueScore(in.TotalContractValue)

	if in.LastReferralDate != nil {
		days := daysSince(*in.LastReferralDate, in.Now)
		switch {
		case days <= recentReferralDays:
			score += 1
		case days <= moderateReferralDays:
			score += 0.5
		}
	}

	if in.LastGratitudeDate != nil && daysSince(*in.LastGratitudeDate, in.Now) <= recentGratitudeDays {
		score += 0.5
	}

	score = math.Max(0, math.Min(score, MaxRelationshipStrength))
	return Round(score, 1)
}

func contractValueScore(value float64) float64 {
	switch {
	case value > highContractValue:
		return 1.5
	case value > mediumContractValue:
		return 1.0
	case value > lowContractValue:
		return 0.5
	default:
		return 0
	}
}

// Tier определяет уровень по конверсии, количеству рефералов и силе отношений
func Tier(conversionRate float64, totalReferrals int, relationshipStrength float64) models.Tier {
	score := TierScore(conversionRate, totalReferrals, relationshipStrength)
	switch {
	case score >= diamondThreshold:
		return models.TierDiamond
	case score >= platinumThreshold:
		return models.TierPlatinum
	case score >= goldThreshold:
		return models.TierGold
	case score >= silverThreshold:
		return models.TierSilver
	default:
		return models.TierBronze
	}
}

// TierScore взвешенная сумма для классификации уровня
func TierScore(conversionRate float64, totalReferrals int, relationshipStrength float64) float64 {
	return conversionRate + float64(totalReferrals)*2 + relationshipStrength*5
}

// DataQualityInput признаки полноты данных о клиенте
type DataQualityInput struct {
	HasProfile   bool
	IsVerified   bool
	HasGratitude bool
	NetworkWidth int
	Name         string
}

// DataQuality оценивает полноту данных 0–10 и возвращает список проблем
func DataQuality(in DataQualityInput) models.DataQuality {
	score := maxDataQualityScore
	issues := make([]string, 0)

	if !in.HasProfile {
		score -= noProfilePenalty
		issues = append(issues, IssueNoProfile)
	} else if !in.IsVerified {
		score -= unverifiedPenalty
		issues = append(issues, IssueUnverified)
	}
	if !in.HasGratitude {
		score -= noGratitudePenalty
		issues = append(issues, IssueNoGratitude)
	}
	if in.NetworkWidth == 0 {
		score -= noNetworkPenalty
		issues = append(issues, IssueNoNetwork)
	}
	if in.Name == "" {
		score -= missingNamePenalty
		issues = append(issues, IssueMissingName)
	}

	return models.DataQuality{
		Score:  math.Max(0, score),
		Issues: issues,
	}
}

// ConfidenceLevel доверие к анализу по доле активных влиятельных клиентов
func ConfidenceLevel(active, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round(math.Min(float64(active)/float64(total)*10, 10), 1)
}

// Round округляет до заданного количества знаков
func Round(value float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(value*pow) / pow
}

func daysSince(t, now time.Time) float64 {
	return now.Sub(t).Hours() / 24
}
