package core

// CategoryTotal is an amount summed over one category.
type CategoryTotal struct {
	Category string
	Amount   Money
}

// DashboardSummary is the aggregated view backing the dashboard charts:
// per-category totals for the pie chart and a zero-filled 12-slot monthly
// series for the bar chart.
type DashboardSummary struct {
	Total      Money
	ByCategory []CategoryTotal
	Year       int
	ByMonth    [12]Money
}
