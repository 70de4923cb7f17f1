package usecase

import "context"

// MetricsSummary represents aggregated comparison insights.
type MetricsSummary struct {
	TotalComparisons           int64   `json:"total_comparisons"`
	Matches                    int64   `json:"matches"`
	Failures                   int64   `json:"failures"`
	MatchRate                  float64 `json:"match_rate"`
	AverageSimilarity          float64 `json:"average_similarity"`
	AverageProcessingLatencyMs float64 `json:"average_processing_latency_ms"`
}

// GetMetricsSummary aggregates comparison metrics from persisted logs.
func (uc *ComparisonUseCase) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	if uc.repo == nil {
		return nil, ErrHistoryDisabled
	}
	aggregation, err := uc.repo.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalComparisons:           aggregation.TotalCount,
		Matches:                    aggregation.MatchCount,
		Failures:                   aggregation.FailedCount,
		AverageSimilarity:          aggregation.AverageSimilarity,
		AverageProcessingLatencyMs: aggregation.AverageProcessingMs,
	}

	if aggregation.TotalCount > 0 {
		summary.MatchRate = float64(aggregation.MatchCount) / float64(aggregation.TotalCount)
	}

	return summary, nil
}
