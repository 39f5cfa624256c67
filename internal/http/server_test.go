package http

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"otchet/internal/core"
	applog "otchet/internal/log"
	"otchet/internal/view"
)

// countingRenderer records how often the chart is drawn.
type countingRenderer struct{ calls int64 }

func (r *countingRenderer) Render(width, height int, series []view.SeriesItem, data []core.CategorySummary,
	value func(core.CategorySummary) float64, name func(core.CategorySummary) string) (template.HTML, error) {
	atomic.AddInt64(&r.calls, 1)
	var b strings.Builder
	b.WriteString("<svg>")
	for _, s := range series {
		b.WriteString("<text>" + template.HTMLEscapeString(s.Name) + "</text>")
	}
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func sampleDataset() []core.ReportPeriod {
	coffee := core.NewEntry("coffee", decimal.NewFromInt(5), "2018-02-16T11:10:00.000000000", "food")
	bus := core.NewEntry("bus", decimal.RequireFromString("2.5"), "2018-03-01T08:00:00.000000000", "transport")
	return []core.ReportPeriod{
		{
			Title:      "Всего",
			TimePeriod: core.TimePeriod{From: "01.02.2018", To: "31.03.2018"},
			Main: []core.CategorySummary{
				core.NewCategorySummary("food", decimal.NewFromInt(5), decimal.NewFromInt(67)),
				core.NewCategorySummary("transport", decimal.RequireFromString("2.5"), decimal.NewFromInt(33)),
			},
			Entries: []core.Entry{coffee, bus},
		},
		{
			Title:      "Февраль",
			TimePeriod: core.TimePeriod{From: "01.02.2018", To: "28.02.2018"},
			Main:       []core.CategorySummary{core.NewCategorySummary("food", decimal.NewFromInt(5), decimal.NewFromInt(100))},
			Entries:    []core.Entry{coffee},
		},
		{
			Title:      "Март",
			TimePeriod: core.TimePeriod{From: "01.03.2018", To: "31.03.2018"},
		},
	}
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Level: applog.DefaultConfig().Level, Output: io.Discard})
}

func newTestServer(t *testing.T, periods []core.ReportPeriod, checks ...Check) (*Server, *countingRenderer) {
	t.Helper()
	r := &countingRenderer{}
	srv := NewServer(Config{
		Addr:               ":0",
		CacheSize:          16,
		RateLimitPerMinute: 1000,
		Renderer:           r,
		Logger:             quietLogger(),
		Checks:             checks,
	}, periods)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, r
}

func get(t *testing.T, srv *Server, target string, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func tabIDs(srv *Server) []string {
	var ids []string
	for _, t := range srv.dashboard.Tabs() {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestIndexRendersFirstTabActive(t *testing.T) {
	srv, _ := newTestServer(t, sampleDataset())

	rr := get(t, srv, "/", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"Всего", "Февраль", "Март", "Отчет", "Данные", "CSV",
		"Всего(01.02.2018-31.03.2018)", "food 5 руб (67%)"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if strings.Count(body, `class="tab tab--active"`) != 1 || strings.Count(body, `class="subtab subtab--active"`) != 1 {
		t.Errorf("expected exactly one active tab and one active pane")
	}
	first := tabIDs(srv)[0]
	if !strings.Contains(body, `data-period="`+first+`"`) {
		t.Errorf("first period not shown by default")
	}
}

func TestIndexSelectsPeriodAndView(t *testing.T) {
	srv, _ := newTestServer(t, sampleDataset())
	second := tabIDs(srv)[1]

	rr := get(t, srv, "/?period="+second+"&view=data", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `data-period="`+second+`"`) {
		t.Fatal("second period not active")
	}
	if !strings.Contains(body, "<th>Товар</th>") || !strings.Contains(body, "<td>coffee</td>") {
		t.Errorf("data pane not rendered: %s", body)
	}

	// selection is per request
	rr = get(t, srv, "/", false)
	if !strings.Contains(rr.Body.String(), `data-period="`+tabIDs(srv)[0]+`"`) {
		t.Error("previous request leaked its selection")
	}
}

func TestIndexNotFound(t *testing.T) {
	srv, _ := newTestServer(t, sampleDataset())

	for _, target := range []string{"/?period=nope", "/?view=chart", "/no/such/page"} {
		rr := get(t, srv, target, false)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s: status=%d, want 404", target, rr.Code)
		}
	}
}

func TestEmptyDataset(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := get(t, srv, "/", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Нет данных для отображения") {
		t.Error("empty dataset placeholder missing")
	}
}

func TestPeriodPartial(t *testing.T) {
	srv, _ := newTestServer(t, sampleDataset())
	second := tabIDs(srv)[1]

	rr := get(t, srv, "/ui/periods/"+second, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "<html") {
		t.Error("partial should not contain the page layout")
	}
	if !strings.Contains(body, `id="period-tabs" class="tabs" role="tablist" hx-swap-oob="true"`) {
		t.Error("tab bar not swapped out of band")
	}
	if !strings.Contains(body, "Февраль(01.02.2018-28.02.2018)") {
		t.Error("report heading missing")
	}
	if got := rr.Header().Get("HX-Push-Url"); got != "/?period="+second {
		t.Errorf("HX-Push-Url = %q", got)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"tab:selected"`) {
		t.Errorf("HX-Trigger = %q", rr.Header().Get("HX-Trigger"))
	}

	if rr := get(t, srv, "/ui/periods/missing", true); rr.Code != http.StatusNotFound {
		t.Errorf("unknown period status=%d", rr.Code)
	}
}

func TestViewPartial(t *testing.T) {
	srv, _ := newTestServer(t, sampleDataset())
	first := tabIDs(srv)[0]

	rr := get(t, srv, "/ui/periods/"+first+"/views/csv", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `<pre class="csv">&#34;coffee&#34;,5,2018-02-16T11:10:00.000000000,&#34;food&#34;`) {
		t.Errorf("csv pane not rendered: %s", body)
	}
	if !strings.Contains(body, `id="report-views" class="subtabs" hx-swap-oob="true"`) {
		t.Error("pane navigation not swapped out of band")
	}
	if got := rr.Header().Get("HX-Push-Url"); got != "/?period="+first+"&view=csv" {
		t.Errorf("HX-Push-Url = %q", got)
	}

	if rr := get(t, srv, "/ui/periods/"+first+"/views/pie", true); rr.Code != http.StatusNotFound {
		t.Errorf("unknown view status=%d", rr.Code)
	}
}

func TestEmptyPeriodRendersHeaderOnlyTable(t *testing.T) {
	srv, _ := newTestServer(t, sampleDataset())
	third := tabIDs(srv)[2]

	body := get(t, srv, "/ui/periods/"+third+"/views/data", true).Body.String()
	if !strings.Contains(body, "<th>#</th>") || strings.Contains(body, "<td>") {
		t.Errorf("expected header-only table: %s", body)
	}
}

func TestCSVPaneFlagsUnescapedEntries(t *testing.T) {
	data := sampleDataset()
	data[1].Entries = append(data[1].Entries,
		core.NewEntry(`tea, "green"`, decimal.NewFromInt(3), "2018-02-20T09:00:00.000000000", "food"))
	srv, _ := newTestServer(t, data)
	second := tabIDs(srv)[1]

	body := get(t, srv, "/ui/periods/"+second+"/views/csv", true).Body.String()
	if !strings.Contains(body, `class="warning"`) || !strings.Contains(body, "Строк с кавычками или запятыми: 1") {
		t.Errorf("unescaped entry not flagged: %s", body)
	}

	first := tabIDs(srv)[0]
	if body := get(t, srv, "/ui/periods/"+first+"/views/csv", true).Body.String(); strings.Contains(body, `class="warning"`) {
		t.Error("clean period flagged")
	}
}

func TestEntriesCSVIsExactText(t *testing.T) {
	srv, _ := newTestServer(t, sampleDataset())
	first := tabIDs(srv)[0]

	rr := get(t, srv, "/periods/"+first+"/entries.csv", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	want := "\"coffee\",5,2018-02-16T11:10:00.000000000,\"food\"\n" +
		"\"bus\",2.5,2018-03-01T08:00:00.000000000,\"transport\"\n"
	if rr.Body.String() != want {
		t.Errorf("csv = %q, want %q", rr.Body.String(), want)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	if rr.Header().Get("Content-Disposition") != "" {
		t.Error("csv must be shown, not downloaded")
	}

	if rr := get(t, srv, "/periods/missing/entries.csv", false); rr.Code != http.StatusNotFound {
		t.Errorf("unknown period status=%d", rr.Code)
	}
}

func TestSummaryText(t *testing.T) {
	srv, _ := newTestServer(t, sampleDataset())
	first := tabIDs(srv)[0]

	body := get(t, srv, "/periods/"+first+"/summary.txt", false).Body.String()
	for _, want := range []string{
		"Всего потрачено: 7.5. Всего записей: 2",
		"food - 5 (67%), 1 ед.",
		"transport - 2.5 (33%), 1 ед.",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("summary missing %q:\n%s", want, body)
		}
	}
}

func TestPeriodsJSON(t *testing.T) {
	srv, _ := newTestServer(t, sampleDataset())

	rr := get(t, srv, "/api/periods", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got []core.ReportPeriod
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 3 || got[0].ID != tabIDs(srv)[0] || got[1].Title != "Февраль" {
		t.Fatalf("unexpected dataset: %+v", got)
	}
	if !strings.Contains(rr.Body.String(), `"persent"`) || !strings.Contains(rr.Body.String(), `"timePeriod"`) {
		t.Error("JSON not in the report front-end shape")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, sampleDataset())

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestPaneRenderedOnce(t *testing.T) {
	srv, renderer := newTestServer(t, sampleDataset())
	first := tabIDs(srv)[0]

	for i := 0; i < 3; i++ {
		get(t, srv, "/ui/periods/"+first+"/views/report", true)
	}
	get(t, srv, "/?period="+first, false)

	if n := atomic.LoadInt64(&renderer.calls); n != 1 {
		t.Errorf("chart rendered %d times, want 1", n)
	}
	if stats := srv.fragments.Stats(); stats.Hits != 3 || stats.Misses != 1 {
		t.Errorf("cache stats = %+v", stats)
	}
}

func TestHealthReadyMetrics(t *testing.T) {
	srv, _ := newTestServer(t, sampleDataset(), Check{
		Name:  "last_import",
		Probe: func(context.Context) (string, error) { return "amqp, 3 periods", nil },
	})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := get(t, srv, path, false)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
	ready := get(t, srv, "/readyz", false).Body.String()
	if !strings.Contains(ready, `"last_import":"amqp, 3 periods"`) || !strings.Contains(ready, `"periods":3`) {
		t.Errorf("readyz body = %s", ready)
	}

	get(t, srv, "/", false)
	metrics := get(t, srv, "/metrics", false).Body.String()
	for _, want := range []string{"http_requests_total", "report_periods 3", "fragment_cache_misses_total 1", "uptime_seconds"} {
		if !strings.Contains(metrics, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestReadyFailsOnCheck(t *testing.T) {
	srv, _ := newTestServer(t, sampleDataset(), Check{
		Name:  "backend",
		Probe: func(context.Context) (string, error) { return "", errors.New("database is locked") },
	})

	rr := get(t, srv, "/readyz", false)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "database is locked") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestMiddlewareChain(t *testing.T) {
	srv, _ := newTestServer(t, sampleDataset())

	rr := get(t, srv, "/", false)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("request id not echoed")
	}
	if rr.Header().Get("Content-Security-Policy") == "" || rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}

	rr = get(t, srv, "/static/app.css", false)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("Cache-Control"), "max-age=3600") {
		t.Errorf("static asset status=%d cache=%q", rr.Code, rr.Header().Get("Cache-Control"))
	}
}

func TestRateLimit(t *testing.T) {
	srv := NewServer(Config{RateLimitPerMinute: 2, Logger: quietLogger(), Renderer: &countingRenderer{}}, sampleDataset())
	defer srv.Shutdown(context.Background())

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = get(t, srv, "/api/periods", false)
	}
	if last.Code != http.StatusTooManyRequests || last.Header().Get("Retry-After") != "60" {
		t.Fatalf("status=%d retry=%q", last.Code, last.Header().Get("Retry-After"))
	}
	// health probes are not rate limited
	if rr := get(t, srv, "/healthz", false); rr.Code != http.StatusOK {
		t.Errorf("healthz status=%d", rr.Code)
	}
}
