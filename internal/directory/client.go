// Package directory talks to the radio-browser.info station directory.
// Documentation: https://api.radio-browser.info/
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// StationDTO is a directory search result. Only the fields the app needs
// are mapped.
type StationDTO struct {
	UUID        string `json:"stationuuid"`
	Name        string `json:"name"`
	URL         string `json:"url_resolved"`
	Favicon     string `json:"favicon"`
	Tags        string `json:"tags"` // comma-joined on the wire
	CountryCode string `json:"countrycode"`
	Homepage    string `json:"homepage"`
	Codec       string `json:"codec"`
	Bitrate     int    `json:"bitrate"`
	ClickCount  int    `json:"clickcount"`
	Votes       int    `json:"votes"`
}

// SearchParams mirrors the directory's advanced search. Empty fields are
// omitted from the query, so callers can match on name, tag or country in
// any combination.
type SearchParams struct {
	Name        string
	Tag         string
	CountryCode string
	Limit       int
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Search queries the directory, most-clicked stations first, broken streams
// hidden.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]StationDTO, error) {
	u, err := url.Parse(c.baseURL + "/json/stations/search")
	if err != nil {
		return nil, err
	}

	q := u.Query()
	if params.Name != "" {
		q.Set("name", params.Name)
	}
	if params.Tag != "" {
		q.Set("tag", params.Tag)
	}
	if params.CountryCode != "" {
		q.Set("countrycode", params.CountryCode)
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("order", "clickcount")
	q.Set("reverse", "true")
	q.Set("hidebroken", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "wradio/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory status %d", resp.StatusCode)
	}

	var results []StationDTO
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, err
	}
	return results, nil
}
