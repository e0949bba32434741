package cache

import "fmt"

// TopInfluencersKey ключ рейтинга влиятельных клиентов
func TopInfluencersKey(tenantID string, limit int, period string) string {
	return fmt.Sprintf("top_influencers:%s:%d:%s", tenantID, limit, period)
}

// NetworkAnalysisKey ключ анализа сети
func NetworkAnalysisKey(tenantID string) string {
	return fmt.Sprintf("network_analysis:%s", tenantID)
}

// GratitudeHistoryKey ключ истории благодарностей
func GratitudeHistoryKey(tenantID string, limit int) string {
	return fmt.Sprintf("gratitude_history:%s:%d", tenantID, limit)
}
