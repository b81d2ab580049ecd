package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	tslc "github.com/NimbleMarkets/ntcharts/linechart/timeserieslinechart"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/innerglow/internal/calendar"
	"github.com/sadopc/innerglow/internal/emotion"
	"github.com/sadopc/innerglow/internal/stats"
	"github.com/sadopc/innerglow/internal/store"
)

type trackerModel struct {
	deps   *Deps
	feed   feedClient
	now    func() time.Time
	width  int
	height int

	cursor    calendar.Date
	selection stats.Selection
	weekStart time.Weekday

	agg     stats.Aggregation
	streaks stats.StreakStats
	current int
	month   stats.Month

	trend tslc.Model
	dist  barchart.Model
}

func newTrackerModel(d *Deps) trackerModel {
	t := trackerModel{
		deps:  d,
		feed:  newFeedClient(viewTracker, d.Feed),
		now:   time.Now,
		trend: tslc.New(60, 10),
		dist:  barchart.New(60, 10),
	}
	t.cursor = calendar.FromTime(t.now())
	t.rebuild()
	return t
}

func (t *trackerModel) setSize(w, h int) {
	t.width = w
	t.height = h
	t.buildCharts()
}

// loadPrefs reads the signed-in user's calendar settings.
func (t *trackerModel) loadPrefs() {
	t.weekStart = time.Sunday
	owner := t.deps.Session.UserID()
	if owner == "" {
		return
	}
	if v, err := t.deps.Store.GetSetting(owner, store.SettingWeekStart); err == nil && v == "monday" {
		t.weekStart = time.Monday
	}
}

func (t trackerModel) update(msg tea.Msg) (trackerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		ok, cmd := t.feed.accept(msg)
		if ok {
			t.rebuild()
		}
		return t, cmd

	case spinner.TickMsg:
		return t, t.feed.updateSpinner(msg)

	case tea.KeyMsg:
		return t.updateKeys(msg)
	}
	return t, nil
}

func (t trackerModel) updateKeys(msg tea.KeyMsg) (trackerModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Left):
		t.moveTo(t.cursor.AddDays(-1))
	case key.Matches(msg, keys.Right):
		t.moveTo(t.cursor.AddDays(1))
	case key.Matches(msg, keys.Up):
		t.moveTo(t.cursor.AddDays(-7))
	case key.Matches(msg, keys.Down):
		t.moveTo(t.cursor.AddDays(7))
	case key.Matches(msg, keys.PrevMonth):
		t.shiftMonth(-1)
	case key.Matches(msg, keys.NextMonth):
		t.shiftMonth(1)
	case key.Matches(msg, keys.Today):
		t.moveTo(calendar.FromTime(t.now()))
	case key.Matches(msg, keys.Pause), key.Matches(msg, keys.Enter):
		t.selection.Toggle(t.cursor)
	case key.Matches(msg, keys.Back):
		t.selection.Clear()
	}
	return t, nil
}

// moveTo places the cursor on d, rebuilding the grid when d is in another month.
func (t *trackerModel) moveTo(d calendar.Date) {
	changed := d.Year != t.cursor.Year || d.Month != t.cursor.Month
	t.cursor = d
	if changed {
		t.selection.Clear()
		t.month = stats.BuildMonth(d.Year, d.Month, t.feed.snap.Text, t.feed.snap.Voice)
	}
}

func (t *trackerModel) shiftMonth(n int) {
	first := time.Date(t.cursor.Year, t.cursor.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	day := min(t.cursor.Day, calendar.MonthGrid(first.Year(), first.Month()).Days)
	t.moveTo(calendar.New(first.Year(), first.Month(), day))
}

func (t *trackerModel) rebuild() {
	snap := t.feed.snap
	t.agg = stats.Aggregate(snap.Text, snap.Voice)
	t.streaks = stats.FromRecords(snap.Text, snap.Voice)
	t.current = stats.CurrentStreak(stats.Dates(snap.Text, snap.Voice), calendar.FromTime(t.now()))
	t.month = stats.BuildMonth(t.cursor.Year, t.cursor.Month, snap.Text, snap.Voice)
	t.buildCharts()
}

func (t *trackerModel) chartWidth() int {
	return max(24, (t.width-12)/2)
}

func (t *trackerModel) buildCharts() {
	w := t.chartWidth()
	h := 10
	if t.height > 40 {
		h = 14
	}
	t.trend = t.buildTrend(w, h)
	t.dist = t.buildDistribution(w, h)
}

type trendPoint struct {
	day    calendar.Date
	counts map[string]int
}

// trendPoints keeps the rows whose dates parse, in date order.
func trendPoints(rows []stats.TrendRow) []trendPoint {
	var out []trendPoint
	for _, r := range rows {
		d, err := calendar.Parse(r.Date)
		if err != nil {
			continue
		}
		out = append(out, trendPoint{day: d, counts: r.Counts})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].day.Before(out[j].day) })
	return out
}

func (t trackerModel) buildTrend(w, h int) tslc.Model {
	points := trendPoints(t.agg.Trend)
	if len(points) == 0 {
		return tslc.New(w, h)
	}

	peak := 1
	for _, p := range points {
		for _, c := range p.counts {
			peak = max(peak, c)
		}
	}
	from := points[0].day.Time()
	to := points[len(points)-1].day.Time()
	if !to.After(from) {
		from = from.AddDate(0, 0, -1)
		to = to.AddDate(0, 0, 1)
	}

	chart := tslc.New(w, h,
		tslc.WithTimeRange(from, to),
		tslc.WithYRange(0, float64(peak)),
	)
	for _, share := range t.agg.Distribution {
		name := share.Emotion
		chart.SetDataSetStyle(name, lipgloss.NewStyle().Foreground(lipgloss.Color(share.Color)))
		for _, p := range points {
			chart.PushDataSet(name, tslc.TimePoint{Time: p.day.Time(), Value: float64(p.counts[name])})
		}
	}
	chart.DrawBrailleAll()
	return chart
}

func (t trackerModel) buildDistribution(w, h int) barchart.Model {
	chart := barchart.New(w, h)
	var bars []barchart.BarData
	for _, s := range t.agg.Distribution {
		e, _ := emotion.Lookup(s.Emotion)
		bars = append(bars, barchart.BarData{
			Label: e.Emoji,
			Values: []barchart.BarValue{{
				Name:  s.Emotion,
				Value: float64(s.Count),
				Style: lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)),
			}},
		})
	}
	if len(bars) > 0 {
		chart.PushAll(bars)
		chart.Draw()
	}
	return chart
}

func (t trackerModel) view() string {
	w := t.width - 4
	title := titleStyle.Render("Emotion Tracker")
	if !t.feed.loaded {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", t.feed.loadingView("your insights")))
	}

	cards := t.renderCards()
	if t.feed.snap.Total() == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			cards,
			panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
				title, "", mutedStyle.Render("No entries yet. Write or record one to see your patterns here."))),
		)
	}

	half := (w - 2) / 2
	trend := panelStyle.Width(half).Render(lipgloss.JoinVertical(lipgloss.Left,
		subtitleStyle.Render("Emotion Trends"), t.trend.View()))
	dist := panelStyle.Width(half).Render(lipgloss.JoinVertical(lipgloss.Left,
		subtitleStyle.Render("Distribution"), t.dist.View(), t.renderLegend()))
	charts := lipgloss.JoinHorizontal(lipgloss.Top, trend, dist)

	cal := panelStyle.Width(half).Render(t.renderCalendar())
	detail := panelStyle.Width(half).Render(t.renderDetail())
	bottom := lipgloss.JoinHorizontal(lipgloss.Top, cal, detail)

	return lipgloss.JoinVertical(lipgloss.Left, cards, charts, bottom)
}

func (t trackerModel) renderCards() string {
	card := func(label, value string) string {
		return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
			highlightStyle.Render(value), mutedStyle.Render(label)))
	}
	top := "-"
	if s, ok := t.agg.TopEmotion(); ok {
		e, _ := emotion.Lookup(s.Emotion)
		top = e.Emoji + " " + emotion.Title(s.Emotion)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total Entries", fmt.Sprint(t.streaks.TotalEntries)),
		card("Active Days", fmt.Sprint(t.streaks.ActiveDays)),
		card("Longest Streak", plural(t.streaks.LongestStreak, "day")),
		card("Current Streak", plural(t.current, "day")),
		card("Most Felt", top),
	)
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func (t trackerModel) renderLegend() string {
	var items []string
	for _, s := range t.agg.Distribution {
		items = append(items, fmt.Sprintf("%s %s %d%%", dot(s.Color), emotion.Title(s.Emotion), s.Percent))
	}
	return lipgloss.NewStyle().Width(t.chartWidth()).Render(strings.Join(items, "  "))
}

// weekdayHeaders returns two-letter day names starting at start.
func weekdayHeaders(start time.Weekday) []string {
	out := make([]string, 7)
	for i := range out {
		out[i] = ((start + time.Weekday(i)) % 7).String()[:2]
	}
	return out
}

// leadingBlanks is how many cells precede the 1st when weeks begin on start.
func leadingBlanks(g calendar.Grid, start time.Weekday) int {
	return (g.Leading - int(start) + 7) % 7
}

func (t trackerModel) renderCalendar() string {
	m := t.month
	head := subtitleStyle.Render(time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format("January 2006"))

	var lines []string
	lines = append(lines, head, "")
	lines = append(lines, mutedStyle.Render(" "+strings.Join(weekdayHeaders(t.weekStart), "  ")))

	today := calendar.FromTime(t.now())
	selected, open := t.selection.Selected()
	cells := make([]string, 0, 42)
	for range leadingBlanks(m.Grid, t.weekStart) {
		cells = append(cells, "    ")
	}
	for day := 1; day <= m.Days; day++ {
		d := m.Date(day)
		label := fmt.Sprintf("%2d", day)
		style := lipgloss.NewStyle()
		mark := " "
		if c, ok := m.Cell(d); ok {
			e, _ := emotion.Lookup(c.Mood)
			style = style.Foreground(lipgloss.Color(e.Color)).Bold(true)
			mark = "•"
		}
		if d == today {
			style = style.Underline(true)
		}
		if open && d == selected {
			style = style.Reverse(true)
		}
		cell := style.Render(label) + mark
		if d == t.cursor {
			cell = accentStyle.Render("[") + cell + accentStyle.Render("]")
		} else {
			cell = " " + cell + " "
		}
		cells = append(cells, cell)
	}

	for i := 0; i < len(cells); i += 7 {
		end := min(i+7, len(cells))
		lines = append(lines, strings.Join(cells[i:end], ""))
	}
	lines = append(lines, "", mutedStyle.Render("arrows: move  space: details  [/]: month  .: today"))
	return strings.Join(lines, "\n")
}

func (t trackerModel) renderDetail() string {
	d, open := t.selection.Selected()
	if !open {
		return lipgloss.JoinVertical(lipgloss.Left,
			subtitleStyle.Render("Day Details"), "",
			mutedStyle.Render("Select a day to see how you felt."))
	}
	c, ok := t.month.Cell(d)
	if !ok {
		return lipgloss.JoinVertical(lipgloss.Left,
			subtitleStyle.Render(d.Long()), "",
			mutedStyle.Render("No entries on this day."))
	}

	e, _ := emotion.Lookup(c.Mood)
	color := lipgloss.NewStyle().Foreground(lipgloss.Color(e.Color))
	lines := []string{
		subtitleStyle.Render(d.Long()),
		"",
		e.Emoji + " " + color.Bold(true).Render(emotion.Title(c.Mood)),
		"",
		mutedStyle.Render("Intensity"),
		color.Render(stats.IntensityBar(c.Intensity, "█", "░")) + fmt.Sprintf(" %d/10", c.Intensity),
		"",
	}
	if c.HasText {
		lines = append(lines, successStyle.Render("✓ Journal entry"))
	}
	if c.HasVoice {
		lines = append(lines, successStyle.Render("✓ Voice recording"))
	}
	return strings.Join(lines, "\n")
}
