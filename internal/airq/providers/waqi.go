package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/air-quality-monitor/internal/airq"
	"github.com/i474232898/air-quality-monitor/internal/common"
)

// WAQIProvider implements the airq.Provider interface for the World Air
// Quality Index project feed (aqicn.org). It is city-keyed and serves the
// overall index, the dominant pollutant, per-pollutant readings and a
// per-pollutant daily forecast.
type WAQIProvider struct {
	name    string
	token   string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWAQIProvider(client *http.Client, token string) *WAQIProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "waqi",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &WAQIProvider{
		name:    "waqi",
		token:   token,
		baseURL: "https://api.waqi.info/feed",
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

func (p *WAQIProvider) Name() string {
	return p.name
}

func (p *WAQIProvider) Fetch(ctx context.Context, city airq.City) (airq.RawPayload, error) {
	if p.token == "" {
		return airq.RawPayload{}, fmt.Errorf("%w: waqi api token is not set", airq.ErrNotConfigured)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("token", p.token)

		u := fmt.Sprintf("%s/%s/?%s", p.baseURL, url.PathEscape(city.Name), values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return airq.RawPayload{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return airq.RawPayload{}, fmt.Errorf("%w: %v", airq.ErrMalformedPayload, err)
	}

	if payload.Status != "ok" {
		var msg string
		_ = json.Unmarshal(payload.Data, &msg)
		if common.HasAny(msg, "Invalid key", "token") {
			return airq.RawPayload{}, fmt.Errorf("%w: %s", airq.ErrNotConfigured, msg)
		}
		return airq.RawPayload{}, fmt.Errorf("waqi feed error for %s: %s", city.Key(), msg)
	}

	var data struct {
		Aqi         json.RawMessage `json:"aqi"`
		Dominentpol string          `json:"dominentpol"`
		Iaqi        map[string]struct {
			V float64 `json:"v"`
		} `json:"iaqi"`
		Time struct {
			ISO string `json:"iso"`
		} `json:"time"`
		Forecast struct {
			Daily map[string][]struct {
				Avg float64 `json:"avg"`
				Day string  `json:"day"`
				Max float64 `json:"max"`
				Min float64 `json:"min"`
			} `json:"daily"`
		} `json:"forecast"`
	}
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return airq.RawPayload{}, fmt.Errorf("%w: %v", airq.ErrMalformedPayload, err)
	}

	out := airq.RawPayload{
		DominantPollutant: airq.Pollutant(data.Dominentpol),
		Concentrations:    make(map[airq.Pollutant]*float64),
	}

	// The station index is occasionally "-" when the station is offline;
	// leave Index nil in that case and let the pipeline derive it.
	var aqi int
	if err := json.Unmarshal(data.Aqi, &aqi); err == nil {
		out.Index = &aqi
	}

	if ts, err := time.Parse(time.RFC3339, data.Time.ISO); err == nil {
		out.Timestamp = ts.UTC()
	}

	for key, reading := range data.Iaqi {
		v := reading.V
		out.Concentrations[airq.Pollutant(key)] = &v
	}

	if len(data.Forecast.Daily) > 0 {
		out.Forecast = make(map[airq.Pollutant][]airq.DayPoint)
		for key, points := range data.Forecast.Daily {
			pollutant := airq.Pollutant(key)
			switch pollutant {
			case airq.PollutantPM25, airq.PollutantPM10, airq.PollutantO3:
			default:
				continue // uvi and friends are not part of the forecast view
			}

			series := make([]airq.DayPoint, 0, len(points))
			for _, pt := range points {
				day, err := time.Parse("2006-01-02", pt.Day)
				if err != nil {
					continue
				}
				series = append(series, airq.DayPoint{
					Date: day.UTC(),
					Avg:  pt.Avg,
					Min:  pt.Min,
					Max:  pt.Max,
				})
			}
			if len(series) > 0 {
				out.Forecast[pollutant] = series
			}
		}
	}

	return out, nil
}
