// Package store implements the REST client for an ActivityWatch-compatible
// heartbeat store.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/offlinefirst/inputpulse/pkg/heartbeat"
)

// EventTypeInput is the store event type for keyboard/mouse activity buckets.
const EventTypeInput = "os.hid.input"

const defaultTimeout = 10 * time.Second

// Options configure a Client.
type Options struct {
	Host       string
	Port       int
	ClientName string
	Timeout    time.Duration

	// BaseURL overrides host/port resolution; used by tests.
	BaseURL string
}

// Client talks to one store instance. Each client carries a random session
// id so the server can distinguish watcher restarts.
type Client struct {
	baseURL    string
	clientName string
	sessionID  string
	http       *http.Client
}

// NewClient validates options and returns a ready client.
func NewClient(opts Options) (*Client, error) {
	if opts.ClientName == "" {
		return nil, errors.New("client name must not be empty")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		if opts.Host == "" {
			return nil, errors.New("store host must not be empty")
		}
		if opts.Port < 1 || opts.Port > 65535 {
			return nil, fmt.Errorf("store port %d out of range", opts.Port)
		}
		baseURL = fmt.Sprintf("http://%s:%d", opts.Host, opts.Port)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    baseURL + "/api/0",
		clientName: opts.ClientName,
		sessionID:  uuid.NewString(),
		http:       &http.Client{Timeout: timeout},
	}, nil
}

// SessionID returns the random id identifying this client instance.
func (c *Client) SessionID() string {
	return c.sessionID
}

// CreateBucket ensures the bucket exists. Creating an existing bucket is
// not an error; the store answers 304 for duplicates.
func (c *Client) CreateBucket(ctx context.Context, bucketID, eventType, hostname string) error {
	payload := map[string]string{
		"client":   c.clientName,
		"type":     eventType,
		"hostname": hostname,
	}
	endpoint := c.baseURL + "/buckets/" + url.PathEscape(bucketID)
	resp, err := c.post(ctx, endpoint, payload)
	if err != nil {
		return fmt.Errorf("create bucket %q: %w", bucketID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNotModified:
		return nil
	default:
		return fmt.Errorf("create bucket %q: unexpected status %s", bucketID, resp.Status)
	}
}

type heartbeatPayload struct {
	Timestamp string         `json:"timestamp"`
	Duration  float64        `json:"duration"`
	Data      heartbeat.Data `json:"data"`
}

// SendHeartbeat reports one heartbeat. The pulsetime travels as a query
// parameter so the store can apply its own merge-on-arrival policy.
func (c *Client) SendHeartbeat(ctx context.Context, bucketID string, hb heartbeat.Heartbeat, pulsetime time.Duration) error {
	payload := heartbeatPayload{
		Timestamp: hb.Timestamp.UTC().Format(time.RFC3339Nano),
		Duration:  hb.Duration.Seconds(),
		Data:      hb.Data,
	}
	endpoint := fmt.Sprintf("%s/buckets/%s/heartbeat?pulsetime=%s",
		c.baseURL, url.PathEscape(bucketID),
		strconv.FormatFloat(pulsetime.Seconds(), 'f', -1, 64))
	resp, err := c.post(ctx, endpoint, payload)
	if err != nil {
		return fmt.Errorf("send heartbeat: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	default:
		return fmt.Errorf("send heartbeat: unexpected status %s", resp.Status)
	}
}

// Info describes the remote store instance.
type Info struct {
	Hostname string `json:"hostname"`
	Version  string `json:"version"`
	Testing  bool   `json:"testing"`
}

// Info fetches the remote store's identity, used for diagnostics.
func (c *Client) Info(ctx context.Context) (Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/info", nil)
	if err != nil {
		return Info{}, fmt.Errorf("server info: %w", err)
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("server info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("server info: unexpected status %s", resp.Status)
	}
	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Info{}, fmt.Errorf("server info: decode response: %w", err)
	}
	return info, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)
	return c.http.Do(req)
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("User-Agent", c.clientName)
	req.Header.Set("X-Session-Id", c.sessionID)
}
