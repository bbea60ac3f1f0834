package api

import (
	"embed"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/abelzeko/route-weather-bot/internal/entities"
	"github.com/abelzeko/route-weather-bot/internal/render"
	"github.com/abelzeko/route-weather-bot/internal/usecases"
	"github.com/google/uuid"
)

//go:embed templates/*.html
var templateFS embed.FS

const requestIDHeader = "X-Request-ID"

// pageData is the view model shared by the dashboard templates
type pageData struct {
	Title      string
	DayOptions []int
	Cities     string
	Days       int
	ChartsURL  string
	Error      bool
	Message    string
}

// forecastResponse is the body of GET /api/forecast
type forecastResponse struct {
	Cities  []string         `json:"cities"`
	Days    int              `json:"days"`
	Skipped []string         `json:"skipped"`
	Figures render.FigureSet `json:"figures"`
}

// Dashboard serves the route forecast web UI and its JSON API
type Dashboard struct {
	forecasts *usecases.ForecastUseCase
	templates *template.Template
	mux       *http.ServeMux
}

// NewDashboard creates the dashboard handlers
func NewDashboard(forecasts *usecases.ForecastUseCase) (*Dashboard, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		forecasts: forecasts,
		templates: templates,
		mux:       http.NewServeMux(),
	}
	d.routes()
	return d, nil
}

// Router returns the dashboard handler with request logging
func (d *Dashboard) Router() http.Handler {
	return withRequestLogging(d.mux)
}

func (d *Dashboard) routes() {
	d.mux.HandleFunc("/", d.handleIndex)
	d.mux.HandleFunc("/check_weather", d.handleCheckWeather)
	d.mux.HandleFunc("/dashboard/", d.handleDashboard)
	d.mux.HandleFunc("/dashboard/charts", d.handleCharts)
	d.mux.HandleFunc("/api/forecast", d.handleAPIForecast)
	d.mux.HandleFunc("/health", d.handleHealth)
}

// GET /: start and destination form
func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	d.renderTemplate(w, http.StatusOK, "index.html", pageData{Title: "Route weather", DayOptions: dayOptions()})
}

// POST /check_weather: validates the form and redirects to the dashboard
func (d *Dashboard) handleCheckWeather(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		d.renderError(w, http.StatusBadRequest, "Could not read the form: "+err.Error())
		return
	}

	cities := usecases.ParseCities(r.PostForm.Get("start") + "," + r.PostForm.Get("end"))
	days := entities.MinDays
	if raw := r.PostForm.Get("forecast_days"); raw != "" {
		parsed, err := usecases.ParseDays(raw)
		if err != nil {
			d.renderError(w, http.StatusBadRequest, err.Error())
			return
		}
		days = parsed
	}
	if err := usecases.ValidateRoute(cities, days); err != nil {
		d.renderError(w, http.StatusBadRequest, "Please enter both a start and a destination city ("+err.Error()+")")
		return
	}

	query := url.Values{}
	query.Set("cities", strings.Join(cities, ","))
	query.Set("days", strconv.Itoa(days))
	query.Set("update", "1")
	http.Redirect(w, r, "/dashboard/?"+query.Encode(), http.StatusSeeOther)
}

// GET /dashboard/: route form, plus the charts once an update is requested
func (d *Dashboard) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/dashboard/" {
		http.NotFound(w, r)
		return
	}

	query := r.URL.Query()
	data := pageData{
		Title:      "Route weather dashboard",
		DayOptions: dayOptions(),
		Cities:     query.Get("cities"),
		Days:       entities.MinDays,
	}

	cities, days, err := parseRouteQuery(query)
	if err == nil {
		data.Days = days
	}
	if query.Get("update") != "" && data.Cities != "" {
		if err != nil {
			data.Error = true
			data.Message = err.Error()
		} else {
			charts := url.Values{}
			charts.Set("cities", strings.Join(cities, ","))
			charts.Set("days", strconv.Itoa(days))
			data.ChartsURL = "/dashboard/charts?" + charts.Encode()
		}
	}
	status := http.StatusOK
	if data.Error {
		status = http.StatusBadRequest
	}
	d.renderTemplate(w, status, "dashboard.html", data)
}

// GET /dashboard/charts: the four interactive figures of a route
func (d *Dashboard) handleCharts(w http.ResponseWriter, r *http.Request) {
	cities, days, err := parseRouteQuery(r.URL.Query())
	if err != nil {
		d.renderError(w, http.StatusBadRequest, err.Error())
		return
	}

	figures := render.BuildFigureSet(d.forecasts.FetchRoutePartial(r.Context(), cities, days), days)
	if figures.Empty() {
		d.renderTemplate(w, http.StatusOK, "message.html", pageData{
			Title:   "No data",
			Message: "No weather data is available for the requested cities.",
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := figures.RenderPage(w); err != nil {
		log.Printf("Error rendering charts: %v", err)
	}
}

// GET /api/forecast: the figures of a route as JSON
func (d *Dashboard) handleAPIForecast(w http.ResponseWriter, r *http.Request) {
	cities, days, err := parseRouteQuery(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	forecasts := d.forecasts.FetchRoutePartial(r.Context(), cities, days)

	fetched := make(map[string]bool, len(forecasts))
	resp := forecastResponse{Days: days, Cities: []string{}, Skipped: []string{}}
	for _, f := range forecasts {
		fetched[f.City] = true
		resp.Cities = append(resp.Cities, f.City)
	}
	for _, city := range cities {
		if !fetched[city] {
			resp.Skipped = append(resp.Skipped, city)
		}
	}
	resp.Figures = render.BuildFigureSet(forecasts, days)

	writeJSON(w, http.StatusOK, resp)
}

// GET /health
func (d *Dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseRouteQuery reads cities and days (default 1) from a dashboard query
func parseRouteQuery(query url.Values) ([]string, int, error) {
	cities := usecases.ParseCities(query.Get("cities"))
	if len(cities) == 0 {
		return nil, 0, &entities.InputValidationError{Field: "cities", Reason: "at least one city is required"}
	}

	days := entities.MinDays
	if raw := query.Get("days"); raw != "" {
		parsed, err := usecases.ParseDays(raw)
		if err != nil {
			return nil, 0, err
		}
		days = parsed
	}
	return cities, days, nil
}

func dayOptions() []int {
	options := make([]int, 0, entities.MaxDays)
	for days := entities.MinDays; days <= entities.MaxDays; days++ {
		options = append(options, days)
	}
	return options
}

func (d *Dashboard) renderError(w http.ResponseWriter, status int, message string) {
	d.renderTemplate(w, status, "message.html", pageData{Title: "Error", Error: true, Message: message})
}

func (d *Dashboard) renderTemplate(w http.ResponseWriter, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := d.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// statusRecorder remembers the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLogging tags every request with an ID and logs it once served
func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Printf("[%s] %s %s %d %s", requestID, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
