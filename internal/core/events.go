package core

import "time"

// ChartEvent describes one rendered chart. It is published after each
// render and kept in the chart history.
type ChartEvent struct {
	ChartID    string     `json:"chart_id"`
	RequestID  string     `json:"request_id,omitempty"`
	Query      TradeQuery `json:"query"`
	Records    int        `json:"records"`
	Segments   int        `json:"segments"`
	Labels     []string   `json:"labels"`
	Total      string     `json:"total"`
	RenderedAt time.Time  `json:"rendered_at"`
}

// NewChartEvent builds the event for a chart rendered from records.
func NewChartEvent(chartID, requestID string, q TradeQuery, records int, series ChartSeries, at time.Time) ChartEvent {
	return ChartEvent{
		ChartID:    chartID,
		RequestID:  requestID,
		Query:      q,
		Records:    records,
		Segments:   series.Len(),
		Labels:     append([]string(nil), series.Labels...),
		Total:      series.Total().String(),
		RenderedAt: at.UTC(),
	}
}
