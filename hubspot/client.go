package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"dealwatch/config"
	"dealwatch/httputil"
	"dealwatch/models"
)

const (
	historyAttempts = 3
	historyDelay    = 1 * time.Second
)

// searchProperties is the fixed property set requested for every deal.
var searchProperties = []string{
	"dealname",
	"hubspot_owner_id",
	"pipeline",
	"amount",
	"hs_lastmodifieddate",
}

type Client struct {
	cfg     *config.HubSpotConfig
	clients *httputil.Clients
}

func NewClient(cfg *config.HubSpotConfig, clients *httputil.Clients) *Client {
	return &Client{cfg: cfg, clients: clients}
}

// SearchDeals pages through every deal modified at or after since. A page
// fetch failure stops pagination and returns whatever accumulated so far:
// a truncated report beats no report. The returned count is the number of
// deals merged across pages.
func (c *Client) SearchDeals(ctx context.Context, since time.Time) ([]models.Deal, int, error) {
	endpoint := c.cfg.BaseURL + "/crm/v3/objects/deals/search"

	payload := searchRequest{
		FilterGroups: []filterGroup{{
			Filters: []filter{{
				PropertyName: "hs_lastmodifieddate",
				Operator:     "GTE",
				Value:        fmt.Sprintf("%d", since.UnixMilli()),
			}},
		}},
		Properties: searchProperties,
		Limit:      c.cfg.PageSize,
	}

	var deals []models.Deal
	for page := 1; ; page++ {
		result, err := c.fetchSearchPage(ctx, endpoint, &payload)
		if err != nil {
			log.Printf("hubspot: search page %d failed, returning partial result: %v", page, err)
			break
		}

		for _, raw := range result.Results {
			deals = append(deals, models.Deal{
				ID:           raw.ID,
				Name:         raw.Properties["dealname"],
				OwnerID:      raw.Properties["hubspot_owner_id"],
				PipelineID:   raw.Properties["pipeline"],
				Amount:       raw.Properties["amount"],
				LastModified: raw.Properties["hs_lastmodifieddate"],
			})
		}

		after := result.Paging.Next.After
		if after == "" {
			break
		}
		payload.After = after

		select {
		case <-time.After(c.cfg.PageDelay):
		case <-ctx.Done():
			return deals, len(deals), ctx.Err()
		}
	}

	return deals, len(deals), nil
}

func (c *Client) fetchSearchPage(ctx context.Context, endpoint string, payload *searchRequest) (*searchResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.clients.Search.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search API error %d: %s", resp.StatusCode, string(respBody))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchPropertyHistory returns the audited values of one property for one
// deal, retrying transient failures. Exhausted retries surface as an
// error so callers can tell a data gap from a genuinely empty history.
func (c *Client) FetchPropertyHistory(ctx context.Context, dealID, property string) ([]models.PropertyHistoryEntry, error) {
	url := fmt.Sprintf("%s/crm/v3/objects/deals/%s?propertiesWithHistory=%s", c.cfg.BaseURL, dealID, property)

	resp, err := httputil.DoWithRetry(ctx, c.clients.History, historyAttempts, historyDelay, func() (*http.Request, error) {
		return http.NewRequest("GET", url, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("history %s/%s: %w", dealID, property, err)
	}
	defer resp.Body.Close()

	var result historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("history %s/%s: decode: %w", dealID, property, err)
	}

	return result.PropertiesWithHistory[property], nil
}

// FetchOwners queries the owner metadata endpoint. Used only by the
// one-shot lookup bootstrap.
func (c *Client) FetchOwners(ctx context.Context) ([]Owner, error) {
	var result ownersResponse
	if err := c.getJSON(ctx, c.cfg.BaseURL+"/crm/v3/owners", &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// FetchPipelines queries the deal pipeline metadata endpoint. Used only
// by the one-shot lookup bootstrap.
func (c *Client) FetchPipelines(ctx context.Context) ([]Pipeline, error) {
	var result pipelinesResponse
	if err := c.getJSON(ctx, c.cfg.BaseURL+"/crm/v3/pipelines/deals", &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}

	resp, err := c.clients.History.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("metadata API error %d: %s", resp.StatusCode, string(respBody))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
	After        string        `json:"after,omitempty"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchResponse struct {
	Results []struct {
		ID         string            `json:"id"`
		Properties map[string]string `json:"properties"`
	} `json:"results"`
	Paging struct {
		Next struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

type historyResponse struct {
	PropertiesWithHistory map[string][]models.PropertyHistoryEntry `json:"propertiesWithHistory"`
}

type ownersResponse struct {
	Results []Owner `json:"results"`
}

type pipelinesResponse struct {
	Results []Pipeline `json:"results"`
}

type Owner struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type Pipeline struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Stages []Stage `json:"stages"`
}

type Stage struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
