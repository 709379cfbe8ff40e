package pms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/u4s-chat/server/internal/booking/model"
	errx "github.com/u4s-chat/server/internal/core/error"
	logx "github.com/u4s-chat/server/pkg/logger"
)

// Config holds the ShelterCloud connection parameters.
type Config struct {
	BaseURL string        `envconfig:"SHELTER_CLOUD_URL" default:"https://api.sheltercloud.ru"`
	Token   string        `envconfig:"SHELTER_CLOUD_TOKEN"`
	Timeout time.Duration `envconfig:"SHELTER_CLOUD_TIMEOUT" default:"15s"`
}

// ShelterClient fetches availability and pricing from the ShelterCloud PMS.
// Every request is bounded by the configured client timeout on top of the
// caller's context deadline.
type ShelterClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewShelterClient(cfg Config) *ShelterClient {
	return &ShelterClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
	}
}

type quoteRequest struct {
	CheckIn      string `json:"check_in"`
	CheckOut     string `json:"check_out"`
	Adults       int    `json:"adults"`
	Children     int    `json:"children"`
	ChildrenAges []int  `json:"children_ages,omitempty"`
}

type quoteResponse struct {
	Offers []model.Offer `json:"offers"`
}

func (c *ShelterClient) GetQuotes(ctx context.Context, checkIn, checkOut string, guests model.Guests) ([]model.Offer, error) {
	body, err := json.Marshal(quoteRequest{
		CheckIn:      checkIn,
		CheckOut:     checkOut,
		Adults:       guests.Adults,
		Children:     guests.Children,
		ChildrenAges: guests.ChildrenAges,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal quote request: %w", err)
	}

	url := c.baseURL + "/api/v1/booking/quotes"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build quote request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logx.Warn().Err(err).Str("url", url).Msg("shelter cloud request failed")
		return nil, errx.WrapPMS(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logx.Warn().Int("status", resp.StatusCode).Str("url", url).Msg("shelter cloud returned non-OK status")
		return nil, errx.WrapPMS(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var out quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		logx.Warn().Err(err).Str("url", url).Msg("failed to decode shelter cloud response")
		return nil, errx.WrapPMS(err)
	}
	return out.Offers, nil
}

var _ model.QuoteProvider = (*ShelterClient)(nil)
