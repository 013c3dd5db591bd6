package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/remindly/geotrigger/internal/app/domain/reminder"
	"github.com/remindly/geotrigger/internal/app/models"
)

const nominatimBaseURL = "https://nominatim.openstreetmap.org/search"

// NominatimGeocoder resolves free-text locations against the public
// Nominatim endpoint. Respect the usage policy: one request per second,
// identified user agent.
type NominatimGeocoder struct {
	logger  *zap.Logger
	client  *http.Client
	baseURL string
}

func NewNominatimGeocoder(logger *zap.Logger) *NominatimGeocoder {
	return &NominatimGeocoder{
		logger:  logger,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: nominatimBaseURL,
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (g *NominatimGeocoder) Resolve(ctx context.Context, text string) (*reminder.GeocodeResult, error) {
	if text == "" {
		return nil, errors.Wrap(models.ErrGeocodeFailed, "empty location text")
	}

	query := url.Values{}
	query.Set("q", text)
	query.Set("format", "json")
	query.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build geocode request")
	}
	req.Header.Set("User-Agent", "geotrigger/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(models.ErrGeocodeFailed, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(models.ErrGeocodeFailed, "geocoder returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, errors.Wrap(models.ErrGeocodeFailed, "invalid geocoder response")
	}
	if len(results) == 0 {
		return nil, errors.Wrapf(models.ErrGeocodeFailed, "no results for %q", text)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, errors.Wrap(models.ErrGeocodeFailed, "invalid latitude in geocoder response")
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, errors.Wrap(models.ErrGeocodeFailed, "invalid longitude in geocoder response")
	}

	g.logger.Debug("geocoded location",
		zap.String("text", text),
		zap.Float64("latitude", lat),
		zap.Float64("longitude", lon),
	)

	return &reminder.GeocodeResult{
		Latitude:         lat,
		Longitude:        lon,
		FormattedAddress: results[0].DisplayName,
	}, nil
}
