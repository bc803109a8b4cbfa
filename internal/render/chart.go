package render

import (
	"bytes"
	"fmt"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/satriacloudx/FinanceBotMe/internal/domain"
)

// Charts renders category totals as PNG images.
type Charts struct {
	Width  int
	Height int
}

func NewCharts() *Charts { return &Charts{Width: 1200, Height: 800} }

// Render returns nil without error when data is empty.
func (c *Charts) Render(kind domain.ChartKind, title string, data []domain.CategoryTotal) ([]byte, error) {
	values := make([]chart.Value, 0, len(data))
	for _, d := range data {
		if !d.Total.IsPositive() {
			continue
		}
		values = append(values, chart.Value{Label: d.Category, Value: d.Total.InexactFloat64()})
	}
	if len(values) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	switch kind {
	case domain.ChartPie:
		pie := chart.PieChart{
			Title:  title,
			Width:  c.Width,
			Height: c.Height,
			Values: values,
		}
		if err := pie.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("render pie chart: %w", err)
		}
	case domain.ChartBar:
		top := 0.0
		for _, v := range values {
			top = max(top, v.Value)
		}
		// bars grow from zero, not from the smallest total
		bar := chart.BarChart{
			Title:      title,
			Width:      c.Width,
			Height:     c.Height,
			BarWidth:   60,
			Background: chart.Style{Padding: chart.Box{Top: 40}},
			YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: top}},
			Bars:       values,
		}
		if err := bar.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("render bar chart: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported chart kind %q", kind)
	}
	return buf.Bytes(), nil
}
