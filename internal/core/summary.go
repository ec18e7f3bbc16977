package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

const (
	// MaxSegments bounds the number of segments in a ChartSeries.
	MaxSegments = 10
	// OthersLabel names the synthetic segment holding every group past the top nine.
	OthersLabel = "Others"
)

// ChartSeries is an index-aligned list of segment labels and values.
type ChartSeries struct {
	Labels []string
	Values []decimal.Decimal
}

// Len returns the number of segments.
func (s ChartSeries) Len() int {
	return len(s.Labels)
}

// Total returns the exact sum of all segment values.
func (s ChartSeries) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range s.Values {
		total = total.Add(v)
	}
	return total
}

// ProcessTradeData groups records by country2, sorts the groups by summed value
// descending and folds everything past the ninth group into an "Others" segment
// when there are more than MaxSegments groups.
//
// Grouping keys are used verbatim. Groups with equal totals keep the order in
// which their country first appeared in records.
func ProcessTradeData(records []TradeRecord) ChartSeries {
	totals := make(map[string]decimal.Decimal, len(records))
	order := make([]string, 0, len(records))
	for _, r := range records {
		sum, seen := totals[r.Country2]
		if !seen {
			order = append(order, r.Country2)
			sum = decimal.Zero
		}
		totals[r.Country2] = sum.Add(r.Value)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return totals[order[i]].Cmp(totals[order[j]]) > 0
	})

	keep := len(order)
	if keep > MaxSegments {
		keep = MaxSegments - 1
	}

	series := ChartSeries{
		Labels: make([]string, 0, MaxSegments),
		Values: make([]decimal.Decimal, 0, MaxSegments),
	}
	for _, country := range order[:keep] {
		series.Labels = append(series.Labels, country)
		series.Values = append(series.Values, totals[country])
	}

	if keep < len(order) {
		others := decimal.Zero
		for _, country := range order[keep:] {
			others = others.Add(totals[country])
		}
		series.Labels = append(series.Labels, OthersLabel)
		series.Values = append(series.Values, others)
	}

	return series
}
