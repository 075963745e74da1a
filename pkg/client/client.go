// Package client talks to a running pductl daemon.
package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/OpenCHAMI/pductl/pkg/daemon"
	"github.com/go-resty/resty/v2"
)

// APIError is returned when the daemon answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	rc *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{rc: rc}
}

// PowerGet reports whether the outlet is on.
func (c *Client) PowerGet(ctx context.Context, host string, port int, outlet int) (*daemon.OutletState, error) {
	var state daemon.OutletState
	resp, err := c.request(ctx, port).
		SetResult(&state).
		Get(outletPath(host, outlet))
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) PowerSet(ctx context.Context, host string, port int, outlet int, on bool) (*daemon.OutletState, error) {
	var state daemon.OutletState
	resp, err := c.request(ctx, port).
		SetBody(daemon.PowerRequest{On: &on}).
		SetResult(&state).
		Put(outletPath(host, outlet))
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &state, nil
}

// Cycle asks the daemon to power cycle an outlet. A zero delay cycles
// immediately; a negative delay uses the daemon's configured default.
func (c *Client) Cycle(ctx context.Context, host string, port int, outlet int, delay time.Duration) error {
	req := c.request(ctx, port)
	if delay >= 0 {
		req.SetQueryParam("delay", delay.String())
	}
	resp, err := req.Post(outletPath(host, outlet) + "/cycle")
	return check(resp, err)
}

func (c *Client) request(ctx context.Context, port int) *resty.Request {
	req := c.rc.R().
		SetContext(ctx).
		SetError(&daemon.ErrorResponse{})
	if port != 0 {
		req.SetQueryParam("port", strconv.Itoa(port))
	}
	return req
}

func outletPath(host string, outlet int) string {
	return fmt.Sprintf("/pdus/%s/outlets/%d", url.PathEscape(host), outlet)
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	msg := strings.TrimSpace(resp.String())
	if body, ok := resp.Error().(*daemon.ErrorResponse); ok && body.Error != "" {
		msg = body.Error
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}
