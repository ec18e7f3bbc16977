package chart

import "tradeviz/internal/core"

// ChartType is the only chart kind the dashboard draws.
const ChartType = "doughnut"

// Config is the declarative chart configuration handed to the browser
// charting library. Its JSON shape follows the library's option names.
type Config struct {
	Type    string  `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

type Data struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor"`
	BorderWidth     int       `json:"borderWidth"`
}

type Options struct {
	Responsive          bool    `json:"responsive"`
	MaintainAspectRatio bool    `json:"maintainAspectRatio"`
	Cutout              string  `json:"cutout"`
	Plugins             Plugins `json:"plugins"`
}

type Plugins struct {
	Legend  LegendOptions  `json:"legend"`
	Tooltip TooltipOptions `json:"tooltip"`
}

// LegendOptions is always emitted with Display false; the custom legend
// replaces the library's built-in one.
type LegendOptions struct {
	Display bool `json:"display"`
}

// TooltipOptions enables the library tooltip. The page supplies the label
// callback, which reads the pre-formatted lines from View.Segments.
type TooltipOptions struct {
	Enabled bool `json:"enabled"`
}

// NewConfig builds the donut configuration for series with the given colors.
func NewConfig(series core.ChartSeries, colors []core.Color) Config {
	n := series.Len()
	data := make([]float64, n)
	background := make([]string, n)
	for i := 0; i < n; i++ {
		data[i] = series.Values[i].InexactFloat64()
		if i < len(colors) {
			background[i] = colors[i].CSS()
		}
	}

	return Config{
		Type: ChartType,
		Data: Data{
			Labels: append([]string(nil), series.Labels...),
			Datasets: []Dataset{{
				Data:            data,
				BackgroundColor: background,
				BorderWidth:     1,
			}},
		},
		Options: Options{
			Responsive:          true,
			MaintainAspectRatio: false,
			Cutout:              "50%",
			Plugins: Plugins{
				Legend:  LegendOptions{Display: false},
				Tooltip: TooltipOptions{Enabled: true},
			},
		},
	}
}
