package bookings

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"license-agent/core/middleware/auth"
	"license-agent/core/middleware/rayid"

	"github.com/gofiber/fiber/v2"
)

// ErrAgentUnavailable is returned when the local agent cannot be reached.
var ErrAgentUnavailable = errors.New("license agent unavailable")

// DeadlineHeader carries the hook's deadline as Unix milliseconds. The agent
// drops a request whose deadline passed before it could be served.
const DeadlineHeader = "X-Hook-Deadline"

// deadlineMargin leaves the agent time to answer before the hook stops waiting.
const deadlineMargin = 500 * time.Millisecond

// APIError is a non-2xx answer of the local agent.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("agent returned status %d: %s", e.StatusCode, e.Message)
}

// Client is used by job hooks to reach the agent's local API.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
}

// NewClient creates a hook client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, timeout: timeout}
}

// Book asks the agent to book the job's licenses.
func (c *Client) Book(req BookRequest) (*BookResult, error) {
	a := fiber.Post(c.baseURL + "/bookings")
	if err := c.prepare(a, req.JobID); err != nil {
		return nil, err
	}
	a.JSON(req)

	var out BookResult
	if err := c.do(a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Release asks the agent to release the job's bookings.
func (c *Client) Release(jobID string) (*ReleaseResult, error) {
	a := fiber.Delete(c.baseURL + "/bookings/" + url.PathEscape(jobID))
	if err := c.prepare(a, jobID); err != nil {
		return nil, err
	}

	var out ReleaseResult
	if err := c.do(a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) prepare(a *fiber.Agent, jobID string) error {
	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return fmt.Errorf("%w: %w", ErrAgentUnavailable, err)
	}
	a.Timeout(c.timeout)
	if c.timeout > 2*deadlineMargin {
		deadline := time.Now().Add(c.timeout - deadlineMargin)
		a.Set(DeadlineHeader, strconv.FormatInt(deadline.UnixMilli(), 10))
	}
	a.Set(rayid.HeaderName, "job-"+jobID)
	if c.apiKey != "" {
		a.Set(auth.HeaderName, c.apiKey)
	}
	return nil
}

func (c *Client) do(a *fiber.Agent, out any) error {
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrAgentUnavailable, errors.Join(errs...))
	}
	if code < 200 || code > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &APIError{StatusCode: code, Message: msg}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode agent response: %w", err)
	}
	return nil
}
