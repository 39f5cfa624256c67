package http

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	applog "otchet/internal/log"
	"otchet/internal/view"
)

type tabLink struct {
	ID         string
	Title      string
	URL        string
	PartialURL string
	Active     bool
}

type viewLink struct {
	Key        string
	Label      string
	URL        string
	PartialURL string
	Active     bool
}

type reportData struct {
	ID      string
	Heading string
	View    string
	Views   []viewLink
	Pane    template.HTML
	OOB     bool
}

type pageData struct {
	Tabs   []tabLink
	Report *reportData
	OOB    bool
}

// paneData is what the pane templates see. Only the field matching the
// pane is filled.
type paneData struct {
	ID      string
	Heading string
	Chart   template.HTML
	Table   view.EntryTable
	CSV     string

	// Unescaped counts entries whose quotes or commas break their CSV line.
	Unescaped int
}

// handleIndex renders the whole dashboard with the tab and pane taken from
// ?period= and ?view=.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	sel := ParseSelection(r.URL.Query())
	d := s.dashboard.Fork()
	if sel.PeriodID != "" {
		if err := d.Select(sel.PeriodID); err != nil {
			NotFoundError("Период не найден").Write(w)
			return
		}
	}

	data := pageData{Tabs: s.tabLinks(d)}
	if tab, ok := d.Active(); ok {
		report, err := s.buildReport(r, tab, sel.ViewOrDefault())
		if errors.Is(err, view.ErrUnknownView) {
			NotFoundError("Неизвестный раздел").Write(w)
			return
		}
		if err != nil {
			s.renderFailed(w, r, tab, err)
			return
		}
		data.Report = report
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "dashboard_page", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Dashboard template execution failed",
			applog.FieldError, err, "template", "dashboard_page")
	}
}

// handlePeriodPartial swaps in one period's report view and moves the tab
// highlight out of band.
func (s *Server) handlePeriodPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.templates == nil {
		InternalServerError("Шаблоны не загружены").Write(w)
		return
	}

	d := s.dashboard.Fork()
	id := r.PathValue("id")
	if err := d.Select(id); err != nil {
		NotFoundError("Период не найден").Write(w)
		return
	}
	tab, _ := d.Active()

	viewKey := ParseSelection(r.URL.Query()).ViewOrDefault()
	report, err := s.buildReport(r, tab, viewKey)
	if errors.Is(err, view.ErrUnknownView) {
		NotFoundError("Неизвестный раздел").Write(w)
		return
	}
	if err != nil {
		s.renderFailed(w, r, tab, err)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "report_view", report); err != nil {
		s.renderFailed(w, r, tab, err)
		return
	}
	if err := s.templates.ExecuteTemplate(&buf, "tab_bar", pageData{Tabs: s.tabLinks(d), OOB: true}); err != nil {
		s.renderFailed(w, r, tab, err)
		return
	}

	NewHTMXResponse().
		TriggerTabSelected(tab.ID).
		PushURL(PageURL(tab.ID, viewKey)).
		BodyHTML(buf.String()).
		Write(w)
}

// handleViewPartial swaps the pane of the current period and refreshes the
// pane navigation out of band.
func (s *Server) handleViewPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.templates == nil {
		InternalServerError("Шаблоны не загружены").Write(w)
		return
	}

	tab, ok := s.dashboard.Fork().Tab(r.PathValue("id"))
	if !ok {
		NotFoundError("Период не найден").Write(w)
		return
	}
	viewKey := r.PathValue("view")
	report, err := s.buildReport(r, tab, viewKey)
	if errors.Is(err, view.ErrUnknownView) {
		NotFoundError("Неизвестный раздел").Write(w)
		return
	}
	if err != nil {
		s.renderFailed(w, r, tab, err)
		return
	}

	var buf bytes.Buffer
	buf.WriteString(string(report.Pane))
	report.OOB = true
	if err := s.templates.ExecuteTemplate(&buf, "view_nav", report); err != nil {
		s.renderFailed(w, r, tab, err)
		return
	}

	NewHTMXResponse().
		TriggerViewSelected(tab.ID, viewKey).
		PushURL(PageURL(tab.ID, viewKey)).
		BodyHTML(buf.String()).
		Write(w)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFoundError("Страница не найдена").Write(w)
}

func (s *Server) tabLinks(d *view.Dashboard) []tabLink {
	tabs := d.Tabs()
	links := make([]tabLink, 0, len(tabs))
	for _, t := range tabs {
		links = append(links, tabLink{
			ID:         t.ID,
			Title:      t.Title,
			URL:        PageURL(t.ID, ""),
			PartialURL: "/ui/periods/" + t.ID,
			Active:     d.IsActive(t.ID),
		})
	}
	return links
}

// buildReport selects viewKey on tab's view and renders its pane. The tab
// must come from a forked dashboard.
func (s *Server) buildReport(r *http.Request, tab view.Tab, viewKey string) (*reportData, error) {
	rv := tab.View
	if err := rv.Select(viewKey); err != nil {
		return nil, err
	}

	pane, hit, err := s.renderPane(rv)
	if err != nil {
		return nil, err
	}
	s.structured.LogRender(r.Context(), rv.ID(), rv.Title(), rv.Selected(), hit)

	report := &reportData{
		ID:      rv.ID(),
		Heading: rv.Heading(),
		View:    rv.Selected(),
		Pane:    pane,
	}
	for _, v := range rv.Views() {
		report.Views = append(report.Views, viewLink{
			Key:        v.Key,
			Label:      v.Label,
			URL:        PageURL(rv.ID(), v.Key),
			PartialURL: "/ui/periods/" + rv.ID() + "/views/" + v.Key,
			Active:     rv.IsSelected(v.Key),
		})
	}
	return report, nil
}

// renderPane returns the selected pane's HTML, rendering it at most once
// per cache lifetime.
func (s *Server) renderPane(rv *view.ReportView) (template.HTML, bool, error) {
	key := rv.ID() + "/" + rv.Selected()
	return s.fragments.GetOrCreate(key, func() (template.HTML, error) {
		data := paneData{ID: rv.ID(), Heading: rv.Heading()}
		switch rv.Selected() {
		case view.ViewReport:
			svg, err := rv.Chart().Render(s.renderer, s.chartWidth, s.chartHeight)
			if err != nil {
				return "", fmt.Errorf("render chart: %w", err)
			}
			data.Chart = svg
		case view.ViewData:
			data.Table = rv.Table()
		case view.ViewCSV:
			data.CSV = rv.CSV()
			for _, e := range rv.Period().Entries {
				if view.NeedsEscaping(e) {
					data.Unescaped++
				}
			}
		}

		var buf bytes.Buffer
		if err := s.templates.ExecuteTemplate(&buf, "pane_"+rv.Selected(), data); err != nil {
			return "", fmt.Errorf("execute pane template: %w", err)
		}
		return template.HTML(buf.String()), nil
	})
}

func (s *Server) renderFailed(w http.ResponseWriter, r *http.Request, tab view.Tab, err error) {
	s.structured.LogError(r.Context(), "Report render failed", err,
		applog.ComponentTemplate, applog.OpRender,
		applog.NewFields().WithPeriod(tab.ID, tab.Title))
	InternalServerError("Ошибка отображения отчета").Write(w)
}
