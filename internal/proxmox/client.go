package proxmox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pvelab/provctl/internal/models"
)

const (
	APIPrefix      = "/api2/json"
	DefaultTimeout = 60 * time.Second

	authCookieName  = "PVEAuthCookie"
	csrfTokenHeader = "CSRFPreventionToken"
)

var (
	ErrNoCredentials = errors.New("no credentials: set an API token or a username/password pair")
)

// APIError carries a rejection from the cluster, including the message the
// cluster returned in the response body.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cluster returned %s", e.Status)
	}

	return fmt.Sprintf("cluster returned %s: %s", e.Status, e.Message)
}

type Config struct {
	Endpoint    string
	TokenID     string
	TokenSecret string
	Username    string
	Password    string
	InsecureTLS bool
	Timeout     time.Duration
}

// Client is an authenticated session against the Proxmox VE HTTP API. The
// credential state is set once, by New or Login, and never mutated afterwards.
type Client struct {
	endpoint   string
	http       *http.Client
	authHeader string
	username   string
	password   string
	ticket     string
	csrfToken  string
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// Login exchanges the username/password pair for a session ticket and
// anti-forgery token. It is a no-op in API-token mode.
func (c *Client) Login(ctx context.Context) error {
	if c.authHeader != "" {
		return nil
	}

	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	var session struct {
		Ticket    string `json:"ticket"`
		CSRFToken string `json:"CSRFPreventionToken"`
	}

	if err := c.do(ctx, http.MethodPost, "/access/ticket", form, &session); err != nil {
		return fmt.Errorf("failed to exchange credentials for ticket: %w", err)
	}

	c.ticket = session.Ticket
	c.csrfToken = session.CSRFToken

	return nil
}

func (c *Client) Version(ctx context.Context) (models.Version, error) {
	var version models.Version
	if err := c.get(ctx, "/version", &version); err != nil {
		return models.Version{}, fmt.Errorf("failed to get version: %w", err)
	}

	return version, nil
}

func (c *Client) Nodes(ctx context.Context) ([]models.ClusterNode, error) {
	var nodes []models.ClusterNode
	if err := c.get(ctx, "/nodes", &nodes); err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	return nodes, nil
}

func (c *Client) HAStatus(ctx context.Context) ([]models.HAStatusRecord, error) {
	var records []models.HAStatusRecord
	if err := c.get(ctx, "/cluster/ha/status/current", &records); err != nil {
		return nil, fmt.Errorf("failed to get ha status: %w", err)
	}

	return records, nil
}

func (c *Client) Storages(ctx context.Context) ([]models.StorageBackend, error) {
	var storages []models.StorageBackend
	if err := c.get(ctx, "/storage", &storages); err != nil {
		return nil, fmt.Errorf("failed to list storages: %w", err)
	}

	return storages, nil
}

func (c *Client) Bridges(ctx context.Context, node string) ([]models.NetworkBridge, error) {
	var bridges []models.NetworkBridge
	path := fmt.Sprintf("/nodes/%s/network?type=any_bridge", url.PathEscape(node))
	if err := c.get(ctx, path, &bridges); err != nil {
		return nil, fmt.Errorf("failed to list bridges: %w", err)
	}

	return bridges, nil
}

func (c *Client) VirtualSegments(ctx context.Context) ([]models.VirtualSegment, error) {
	var segments []models.VirtualSegment
	if err := c.get(ctx, "/cluster/sdn/vnets", &segments); err != nil {
		return nil, fmt.Errorf("failed to list virtual segments: %w", err)
	}

	return segments, nil
}

// NextID allocates the next free VM identifier. The cluster does not reserve
// it: a concurrent allocator may obtain the same value.
func (c *Client) NextID(ctx context.Context) (int, error) {
	var raw string
	if err := c.get(ctx, "/cluster/nextid", &raw); err != nil {
		return 0, fmt.Errorf("failed to get next id: %w", err)
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse next id %q: %w", raw, err)
	}

	return id, nil
}

func (c *Client) CreateVM(ctx context.Context, node string, form url.Values) error {
	path := fmt.Sprintf("/nodes/%s/qemu", url.PathEscape(node))
	if err := c.do(ctx, http.MethodPost, path, form, nil); err != nil {
		return fmt.Errorf("failed to create vm: %w", err)
	}

	return nil
}

func (c *Client) UpdateVMConfig(ctx context.Context, node string, vmid int, form url.Values) error {
	path := fmt.Sprintf("/nodes/%s/qemu/%d/config", url.PathEscape(node), vmid)
	if err := c.do(ctx, http.MethodPost, path, form, nil); err != nil {
		return fmt.Errorf("failed to update vm config: %w", err)
	}

	return nil
}

func (c *Client) VMConfig(ctx context.Context, node string, vmid int) (models.VMConfig, error) {
	var config models.VMConfig
	path := fmt.Sprintf("/nodes/%s/qemu/%d/config", url.PathEscape(node), vmid)
	if err := c.get(ctx, path, &config); err != nil {
		return models.VMConfig{}, fmt.Errorf("failed to get vm config: %w", err)
	}

	return config, nil
}

func (c *Client) CreateHAResource(ctx context.Context, enrollment models.HAEnrollment) error {
	form := url.Values{}
	form.Set("sid", enrollment.SID)
	form.Set("state", enrollment.State)
	form.Set("comment", enrollment.Comment)

	if err := c.do(ctx, http.MethodPost, "/cluster/ha/resources", form, nil); err != nil {
		return fmt.Errorf("failed to create ha resource: %w", err)
	}

	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	request, err := http.NewRequestWithContext(ctx, method, c.endpoint+APIPrefix+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	if form != nil {
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	c.authorize(request)

	response, err := c.http.Do(request)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	content, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return &APIError{
			StatusCode: response.StatusCode,
			Status:     response.Status,
			Message:    strings.TrimSpace(string(content)),
		}
	}

	if out == nil {
		return nil
	}

	wrapped := envelope{}
	if err := json.Unmarshal(content, &wrapped); err != nil {
		return fmt.Errorf("failed to unmarshal response envelope: %w", err)
	}

	if len(wrapped.Data) == 0 || string(wrapped.Data) == "null" {
		return nil
	}

	if err := json.Unmarshal(wrapped.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}

	return nil
}

func (c *Client) authorize(request *http.Request) {
	if c.authHeader != "" {
		request.Header.Set("Authorization", c.authHeader)
		return
	}

	if c.ticket != "" {
		request.AddCookie(&http.Cookie{Name: authCookieName, Value: c.ticket})
	}

	if c.csrfToken != "" && request.Method != http.MethodGet {
		request.Header.Set(csrfTokenHeader, c.csrfToken)
	}
}

func New(config Config) (*Client, error) {
	if config.TokenID == "" && config.Username == "" {
		return nil, ErrNoCredentials
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if config.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := &Client{
		endpoint: strings.TrimSuffix(config.Endpoint, "/"),
		http:     &http.Client{Timeout: timeout, Transport: transport},
		username: config.Username,
		password: config.Password,
	}

	if config.TokenID != "" {
		client.authHeader = fmt.Sprintf("PVEAPIToken=%s=%s", config.TokenID, config.TokenSecret)
	}

	return client, nil
}
