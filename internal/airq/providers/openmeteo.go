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
)

// OpenMeteoProvider implements the airq.Provider interface for the Open-Meteo
// air quality API. It requires city coordinates but no API key, and serves
// the current US AQI plus pollutant concentrations. No forecast series.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://air-quality-api.open-meteo.com/v1/air-quality",
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

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, city airq.City) (airq.RawPayload, error) {
	if city.Lat == nil || city.Lon == nil {
		return airq.RawPayload{}, fmt.Errorf("%w: openmeteo requires latitude and longitude", airq.ErrNotConfigured)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", *city.Lat))
		values.Set("longitude", fmt.Sprintf("%f", *city.Lon))
		values.Set("current", "us_aqi,pm2_5,pm10,ozone,nitrogen_dioxide,sulphur_dioxide,carbon_monoxide")
		values.Set("timezone", "UTC")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return airq.RawPayload{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Current struct {
			Time            string   `json:"time"`
			USAqi           *int     `json:"us_aqi"`
			PM25            *float64 `json:"pm2_5"`
			PM10            *float64 `json:"pm10"`
			Ozone           *float64 `json:"ozone"`
			NitrogenDioxide *float64 `json:"nitrogen_dioxide"`
			SulphurDioxide  *float64 `json:"sulphur_dioxide"`
			CarbonMonoxide  *float64 `json:"carbon_monoxide"`
		} `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return airq.RawPayload{}, fmt.Errorf("%w: %v", airq.ErrMalformedPayload, err)
	}

	out := airq.RawPayload{
		Index:          payload.Current.USAqi,
		Concentrations: make(map[airq.Pollutant]*float64),
	}

	// Open-Meteo timestamps are minute resolution without a zone suffix.
	if ts, err := time.Parse("2006-01-02T15:04", payload.Current.Time); err == nil {
		out.Timestamp = ts.UTC()
	}

	concentrations := map[airq.Pollutant]*float64{
		airq.PollutantPM25: payload.Current.PM25,
		airq.PollutantPM10: payload.Current.PM10,
		airq.PollutantO3:   payload.Current.Ozone,
		airq.PollutantNO2:  payload.Current.NitrogenDioxide,
		airq.PollutantSO2:  payload.Current.SulphurDioxide,
		airq.PollutantCO:   payload.Current.CarbonMonoxide,
	}
	for pollutant, value := range concentrations {
		if value != nil {
			out.Concentrations[pollutant] = value
		}
	}

	return out, nil
}
