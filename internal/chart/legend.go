package chart

import (
	"fmt"

	"tradeviz/internal/core"
)

const (
	OpacityVisible = 1.0
	OpacityHidden  = 0.5
)

// LegendItem is one entry of the custom legend.
type LegendItem struct {
	Index      int     `json:"index"`
	Label      string  `json:"label"`
	Color      string  `json:"color"`
	Value      string  `json:"value"`
	Percentage int     `json:"percentage"`
	Text       string  `json:"text"`
	Opacity    float64 `json:"opacity"`
	Hidden     bool    `json:"hidden"`
}

// Legend mirrors a chart's segment visibility. Click is the only transition.
// Its items are guarded by the chart's mutex, so a click and a dispose never
// interleave.
type Legend struct {
	chart *Chart
	items []LegendItem
}

func newLegend(c *Chart) *Legend {
	percentages := core.Percentages(c.series.Values)
	items := make([]LegendItem, c.series.Len())
	for i := range items {
		value := core.FormatCurrencyCompact(c.series.Values[i])
		items[i] = LegendItem{
			Index:      i,
			Label:      c.series.Labels[i],
			Color:      c.colors[i].CSS(),
			Value:      value,
			Percentage: percentages[i],
			Text:       LegendText(c.series.Labels[i], value, percentages[i]),
			Opacity:    OpacityVisible,
		}
	}
	return &Legend{chart: c, items: items}
}

// Items returns a snapshot of the legend entries. A torn-down legend has none.
func (l *Legend) Items() []LegendItem {
	l.chart.mu.Lock()
	defer l.chart.mu.Unlock()
	return append([]LegendItem(nil), l.items...)
}

// Click toggles segment i on the chart and the item's opacity together.
func (l *Legend) Click(i int) error {
	l.chart.mu.Lock()
	defer l.chart.mu.Unlock()

	hidden, err := l.chart.toggleLocked(i)
	if err != nil {
		return err
	}
	l.items[i].Hidden = hidden
	l.items[i].Opacity = opacityFor(hidden)
	return nil
}

// clearLocked drops the items. The caller holds the chart's mutex.
func (l *Legend) clearLocked() {
	l.items = nil
}

func opacityFor(hidden bool) float64 {
	if hidden {
		return OpacityHidden
	}
	return OpacityVisible
}

// LegendText renders a legend entry such as "Germany: $1.2K (12%)".
func LegendText(label, value string, percentage int) string {
	return fmt.Sprintf("%s: %s (%d%%)", label, value, percentage)
}
