package network

import (
	"context"

	"go.uber.org/zap"

	"surecrm-network/pkg/models"
)

// MaxDepth предел обхода реферальной цепочки
const MaxDepth = 3

// EdgeSource выдает исходящие реферальные связи пачкой
type EdgeSource interface {
	GetOutgoingReferrals(ctx context.Context, tenantID string, clientIDs []string) (map[string][]string, error)
}

// Analyzer считает ширину и глубину реферальной сети клиентов
type Analyzer struct {
	edges  EdgeSource
	logger *zap.Logger
}

// NewAnalyzer создает анализатор топологии
func NewAnalyzer(edges EdgeSource, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		edges:  edges,
		logger: logger,
	}
}

type walk struct {
	visited  map[string]struct{}
	frontier []string
	width    int
	depth    int
}

// Analyze возвращает ширину и глубину для каждого клиента в порядке входа.
// Обход идет по уровням, один запрос на уровень для всех клиентов сразу;
// уже посещенные узлы не учитываются, поэтому циклы не увеличивают глубину.
// Ошибки запросов не возвращаются: затронутые клиенты получают {width:0, depth:1}
// на первом уровне или сохраняют достигнутую глубину на следующих.
func (a *Analyzer) Analyze(ctx context.Context, tenantID string, clientIDs []string) []models.NetworkData {
	result := make([]models.NetworkData, len(clientIDs))
	if len(clientIDs) == 0 {
		return result
	}

	adjacency, err := a.edges.GetOutgoingReferrals(ctx, tenantID, unique(clientIDs))
	if err != nil {
		a.logger.Error("ошибка получения прямых рефералов, используем значения по умолчанию",
			zap.String("tenant_id", tenantID),
			zap.Int("clients", len(clientIDs)),
			zap.Error(err))
		for i, id := range clientIDs {
			result[i] = models.NetworkData{ClientID: id, Width: 0, Depth: 1}
		}
		return result
	}
	if adjacency == nil {
		adjacency = make(map[string][]string)
	}
	for _, id := range clientIDs {
		if _, ok := adjacency[id]; !ok {
			adjacency[id] = nil
		}
	}

	walks := make([]*walk, len(clientIDs))
	for i, id := range clientIDs {
		w := &walk{
			visited: map[string]struct{}{id: {}},
			width:   len(adjacency[id]),
			depth:   1,
		}
		w.frontier = w.expand(adjacency[id])
		walks[i] = w
	}

	for level := 2; level <= MaxDepth; level++ {
		pending := make([]string, 0)
		for _, w := range walks {
			for _, node := range w.frontier {
				if _, fetched := adjacency[node]; !fetched {
					pending = append(pending, node)
				}
			}
		}

		if len(pending) > 0 {
			next, err := a.edges.GetOutgoingReferrals(ctx, tenantID, unique(pending))
			if err != nil {
				a.logger.Warn("ошибка обхода реферальной сети, глубина ограничена",
					zap.String("tenant_id", tenantID),
					zap.Int("level", level),
					zap.Error(err))
				break
			}
			for _, node := range pending {
				adjacency[node] = next[node]
			}
		}

		advanced := false
		for _, w := range walks {
			children := make([]string, 0)
			for _, node := range w.frontier {
				children = append(children, adjacency[node]...)
			}
			w.frontier = w.expand(children)
			if len(w.frontier) > 0 {
				w.depth = level
				advanced = true
			}
		}
		if !advanced {
			break
		}
	}

	for i, id := range clientIDs {
		result[i] = models.NetworkData{ClientID: id, Width: walks[i].width, Depth: walks[i].depth}
	}
	return result
}

// ByClient переводит результат в отображение по ID клиента
func ByClient(data []models.NetworkData) map[string]models.NetworkData {
	out := make(map[string]models.NetworkData, len(data))
	for _, d := range data {
		out[d.ClientID] = d
	}
	return out
}

// expand отмечает новые узлы посещенными и возвращает их
func (w *walk) expand(nodes []string) []string {
	fresh := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if _, seen := w.visited[node]; seen {
			continue
		}
		w.visited[node] = struct{}{}
		fresh = append(fresh, node)
	}
	return fresh
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
