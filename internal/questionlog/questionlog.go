// Package questionlog forwards answered questions to an external collector.
package questionlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type Record struct {
	Email    string  `json:"email"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Duration float64 `json:"duration"`
}

// Client posts records to a collector URL. A Client with an empty URL
// drops every record.
type Client struct {
	url    string
	client *http.Client
}

func New(url string, timeout time.Duration) *Client {
	return &Client{url: url, client: &http.Client{Timeout: timeout}}
}

func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// Log sends rec. Failures are logged and never returned: losing a log
// record must not affect the answer.
func (c *Client) Log(ctx context.Context, rec Record) {
	if !c.Enabled() {
		return
	}
	if err := c.post(ctx, rec); err != nil {
		log.Warn().Err(err).Str("email", rec.Email).Msg("Could not record question")
	}
}

func (c *Client) post(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned %s", resp.Status)
	}
	return nil
}
