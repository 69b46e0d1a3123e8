package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"time"
)

// CategorySlice is one pie chart segment with its rendered amount.
type CategorySlice struct {
	Category string
	Amount   string
}

// DashboardViewModel backs the dashboard page. ChartLabels/ChartValues and
// MonthValues are JSON fragments consumed by the charting script; amounts
// are exact only in the table, chart values are a display concern.
type DashboardViewModel struct {
	Username    string
	Total       string
	Categories  []CategorySlice
	Year        int
	Start       string
	End         string
	Notices     []string
	ChartLabels template.JS
	ChartValues template.JS
	MonthLabels template.JS
	MonthValues template.JS
}

var monthAbbrevs = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	dr, notices := parseDateRange(r.URL.Query())
	year := time.Now().Year()
	summary, err := s.expenses.Dashboard(r.Context(), account.ID, dr, year)
	if err != nil {
		serverError(w, r, err, "Dashboard aggregation failed")
		return
	}

	vm := DashboardViewModel{
		Username: account.Username,
		Total:    summary.Total.String(),
		Year:     summary.Year,
		Start:    r.URL.Query().Get("start"),
		End:      r.URL.Query().Get("end"),
		Notices:  notices,
	}

	labels := make([]string, 0, len(summary.ByCategory))
	values := make([]float64, 0, len(summary.ByCategory))
	for _, ct := range summary.ByCategory {
		vm.Categories = append(vm.Categories, CategorySlice{
			Category: ct.Category,
			Amount:   ct.Amount.String(),
		})
		labels = append(labels, ct.Category)
		values = append(values, float64(ct.Amount.Cents)/100)
	}

	monthValues := make([]float64, 12)
	for i, m := range summary.ByMonth {
		monthValues[i] = float64(m.Cents) / 100
	}

	vm.ChartLabels = marshalJS(labels)
	vm.ChartValues = marshalJS(values)
	vm.MonthLabels = marshalJS(monthAbbrevs)
	vm.MonthValues = marshalJS(monthValues)

	s.render(w, r, http.StatusOK, "dashboard.html", vm)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	// A malformed bound is dropped, same as on the list page.
	dr, _ := parseDateRange(r.URL.Query())

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)

	if err := s.expenses.ExportCSV(r.Context(), w, account.ID, dr); err != nil {
		// Headers may already be on the wire; log and stop.
		serverError(w, r, err, "Export failed")
		return
	}
}

// marshalJS renders a value as a JSON fragment safe to inline in a script.
func marshalJS(v any) template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		return template.JS("[]")
	}
	return template.JS(b)
}
