package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tradeviz/internal/chart"
	"tradeviz/internal/core"
)

var (
	renderCountry   string
	renderTradeType string
	renderCategory  string
	renderOut       string
	renderTitle     string
	renderHide      []int
	renderSize      int
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Fetch trade flows, aggregate them and write a donut chart SVG",
	Example: "  tradechart render --country italy --type export --category TOTAL --out italy.svg\n" +
		"  tradechart render --country italy --type export --category TOTAL --hide 0,9",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		q := core.TradeQuery{Country: renderCountry, TradeType: renderTradeType, Category: renderCategory}

		c, err := page.Submit(ctx, q)
		if err != nil {
			return err
		}
		for _, i := range renderHide {
			if err := page.ClickLegend(i); err != nil {
				return fmt.Errorf("hide segment %d: %w", i, err)
			}
		}

		if renderOut != "" {
			if err := writeSVG(c, renderOut); err != nil {
				return err
			}
		}

		view, err := chart.NewView(c)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out, view)
		}

		fmt.Fprintf(out, "%s / %s / %s: total %s\n", q.Country, q.TradeType, q.Category, view.TotalText)
		for _, item := range view.Legend {
			marker := " "
			if item.Hidden {
				marker = "-"
			}
			fmt.Fprintf(out, " %s %2d  %-28s %s\n", marker, item.Index, item.Text, item.Color)
		}
		if renderOut != "" {
			info, err := os.Stat(renderOut)
			if err == nil {
				fmt.Fprintf(out, "wrote %s (%s)\n", renderOut, humanize.Bytes(uint64(info.Size())))
			}
		}
		return nil
	},
}

func writeSVG(c *chart.Chart, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)

	opts := chart.DefaultSVGOptions()
	opts.Title = renderTitle
	if renderSize > 0 {
		opts.Width, opts.Height = renderSize, renderSize
	}
	if err := c.RenderSVG(w, opts); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func init() {
	renderCmd.Flags().StringVar(&renderCountry, "country", "", "reporting country (e.g. italy)")
	renderCmd.Flags().StringVar(&renderTradeType, "type", "export", "trade type: export or import")
	renderCmd.Flags().StringVar(&renderCategory, "category", "", "product category")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "write the donut chart SVG to this file")
	renderCmd.Flags().StringVar(&renderTitle, "title", "", "chart title")
	renderCmd.Flags().IntSliceVar(&renderHide, "hide", nil, "segment indices to hide, as if their legend item was clicked")
	renderCmd.Flags().IntVar(&renderSize, "size", 0, "image width and height in pixels")
}
