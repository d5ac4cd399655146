package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"license-agent/core/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	pathHealth        = "/lm/health"
	pathSnapshot      = "/lm/agent/snapshot"
	pathReport        = "/lm/features/report"
	pathJobs          = "/lm/jobs"
	pathClusterStatus = "/lm/cluster_statuses"
)

// Client defines the operations the agent performs against the backend inventory.
type Client interface {
	// Health checks that the backend is reachable and healthy.
	Health(ctx context.Context) error
	// Snapshot fetches the configurations and open jobs of this cluster.
	Snapshot(ctx context.Context) (*models.Snapshot, error)
	// SubmitReport sends a reconciliation report in a single request.
	SubmitReport(ctx context.Context, report *models.Report) error
	// CreateJob persists a job together with its bookings and returns the stored job.
	CreateJob(ctx context.Context, job models.Job) (*models.Job, error)
	// DeleteJob removes a job and all its bookings. Missing jobs are not an error.
	DeleteJob(ctx context.Context, slurmJobID string) error
	// PutClusterStatus records the agent heartbeat.
	PutClusterStatus(ctx context.Context, status models.ClusterStatus) error
}

// NewClient creates a long-lived backend client for the given cluster.
// The same client is shared by the engine, the ledger, the scheduler and the status endpoint.
func NewClient(cfg Config, clusterClientID string) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base url is empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeoutDuration,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeoutDuration,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeoutDuration,
	}
	base := &http.Client{Transport: transport, Timeout: timeoutDuration}

	c := &httpClient{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		clusterClientID: clusterClientID,
		http:            base,
	}

	if cfg.UsesOIDC() {
		cc := &clientcredentials.Config{
			ClientID:       cfg.OIDCClientID,
			ClientSecret:   cfg.OIDCClientSecret,
			TokenURL:       cfg.OIDCTokenURL,
			EndpointParams: url.Values{},
		}
		if cfg.OIDCAudience != "" {
			cc.EndpointParams.Set("audience", cfg.OIDCAudience)
		}
		// Token requests reuse the same transport and timeouts.
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		c.http = cc.Client(ctx)
		c.http.Timeout = timeoutDuration
	} else {
		c.token = cfg.Token
	}

	return c, nil
}

type httpClient struct {
	baseURL         string
	clusterClientID string
	token           string
	http            *http.Client
	health          singleflight.Group
}

func (c *httpClient) Health(ctx context.Context) error {
	// The scheduler's health task and GET /status share one in-flight probe.
	_, err, _ := c.health.Do("health", func() (interface{}, error) {
		return nil, c.do(ctx, "health check", http.MethodGet, pathHealth, nil, nil)
	})
	return err
}

func (c *httpClient) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	path := pathSnapshot + "?cluster_client_id=" + url.QueryEscape(c.clusterClientID)
	var snapshot models.Snapshot
	if err := c.do(ctx, "fetch snapshot", http.MethodGet, path, nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (c *httpClient) SubmitReport(ctx context.Context, report *models.Report) error {
	if report.ClusterClientID == "" {
		report.ClusterClientID = c.clusterClientID
	}
	return c.do(ctx, "submit report", http.MethodPut, pathReport, report, nil)
}

func (c *httpClient) CreateJob(ctx context.Context, job models.Job) (*models.Job, error) {
	if job.ClusterID == "" {
		job.ClusterID = c.clusterClientID
	}
	var created models.Job
	if err := c.do(ctx, "create job", http.MethodPost, pathJobs, job, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *httpClient) DeleteJob(ctx context.Context, slurmJobID string) error {
	path := fmt.Sprintf("%s/slurm_job_id/%s/cluster/%s", pathJobs, url.PathEscape(slurmJobID), url.PathEscape(c.clusterClientID))
	err := c.do(ctx, "delete job", http.MethodDelete, path, nil, nil)

	var unavailable *UnavailableError
	if errors.As(err, &unavailable) && unavailable.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

func (c *httpClient) PutClusterStatus(ctx context.Context, status models.ClusterStatus) error {
	if status.ClusterClientID == "" {
		status.ClusterClientID = c.clusterClientID
	}
	return c.do(ctx, "report cluster status", http.MethodPut, pathClusterStatus, status, nil)
}

func (c *httpClient) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &UnavailableError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &UnavailableError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UnavailableError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
