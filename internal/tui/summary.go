package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tasklist/internal/store"
	"github.com/sadopc/tasklist/internal/tasksync"
)

type summaryModel struct {
	width  int
	height int

	counts map[store.Status]int
	total  int

	chart barchart.Model
}

func newSummaryModel() summaryModel {
	return summaryModel{
		counts: make(map[store.Status]int),
		chart:  barchart.New(40, 10),
	}
}

func (m *summaryModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func countByStatus(items []tasksync.Item) map[store.Status]int {
	counts := make(map[store.Status]int, len(store.Statuses))
	for _, it := range items {
		counts[it.Status]++
	}
	return counts
}

// build redraws the chart for items. One bar per status, in lifecycle order.
func (m *summaryModel) build(items []tasksync.Item) {
	m.counts = countByStatus(items)
	m.total = len(items)

	chartWidth := m.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if m.height > 30 {
		chartHeight = 14
	}

	m.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	for _, s := range store.Statuses {
		bars = append(bars, barchart.BarData{
			Label: s.Label(),
			Values: []barchart.BarValue{{
				Name:  s.String(),
				Value: float64(m.counts[s]),
				Style: statusStyle(s),
			}},
		})
	}

	m.chart.PushAll(bars)
	m.chart.Draw()
}

func (m summaryModel) view() string {
	title := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Summary"), "  ", mutedStyle.Render(fmt.Sprintf("%d tasks", m.total)),
	)

	var legend []string
	for _, s := range store.Statuses {
		dot := statusStyle(s).Render("●")
		legend = append(legend, fmt.Sprintf("%s %s %d", dot, s.Label(), m.counts[s]))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title, "", m.chart.View(), "", "  "+strings.Join(legend, "  "),
	)
}
