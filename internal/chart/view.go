package chart

import (
	"github.com/shopspring/decimal"

	"tradeviz/internal/core"
)

// SegmentView is the presentation of one chart segment.
type SegmentView struct {
	Label      string          `json:"label"`
	Value      decimal.Decimal `json:"value"`
	Color      string          `json:"color"`
	Percentage int             `json:"percentage"`
	Tooltip    string          `json:"tooltip"`
	Legend     string          `json:"legend"`
	Opacity    float64         `json:"opacity"`
	Hidden     bool            `json:"hidden"`
}

// View is the serialisable state of a chart: its configuration plus the
// legend entries, so a browser can draw both without recomputing anything.
type View struct {
	ChartID   string          `json:"chart_id"`
	Segments  []SegmentView   `json:"segments"`
	Total     decimal.Decimal `json:"total"`
	TotalText string          `json:"total_text"`
	Config    Config          `json:"config"`
	Legend    []LegendItem    `json:"legend"`
}

// NewView snapshots c. A disposed chart yields ErrChartDisposed.
func NewView(c *Chart) (View, error) {
	if c.Disposed() {
		return View{}, ErrChartDisposed
	}

	items := c.Legend().Items()
	segments := make([]SegmentView, len(items))
	for i, item := range items {
		segments[i] = SegmentView{
			Label:      item.Label,
			Value:      c.series.Values[i],
			Color:      item.Color,
			Percentage: item.Percentage,
			Tooltip:    TooltipText(item.Label, c.series.Values[i]),
			Legend:     item.Text,
			Opacity:    item.Opacity,
			Hidden:     item.Hidden,
		}
	}

	total := c.Total()
	return View{
		ChartID:   c.ID(),
		Segments:  segments,
		Total:     total,
		TotalText: core.FormatCurrency(total),
		Config:    c.Config(),
		Legend:    items,
	}, nil
}

// TooltipText renders a tooltip line such as "Germany: $1,234".
func TooltipText(label string, value decimal.Decimal) string {
	return label + ": " + core.FormatCurrency(value)
}
