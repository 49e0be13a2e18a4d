//go:build !tinygo

package ntp

import (
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

// Client queries servers with github.com/beevik/ntp, which accounts for round trip delay and validates the response.
type Client struct {
	Timeout time.Duration

	query func(server string, opt ntp.QueryOptions) (*ntp.Response, error)
}

func NewClient(timeout time.Duration) *Client {
	return &Client{Timeout: timeout, query: ntp.QueryWithOptions}
}

func (c *Client) Query(server string) (time.Duration, error) {
	resp, err := c.query(server, ntp.QueryOptions{Timeout: c.Timeout})
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", server, err)
	}
	if err := resp.Validate(); err != nil {
		return 0, fmt.Errorf("query %s: %w", server, err)
	}
	return resp.ClockOffset, nil
}
