package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"scribe/internal/daemon"
	"scribe/internal/queue"
)

// apiClient talks to the scribed HTTP API.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(address string) *apiClient {
	address = strings.TrimSpace(address)
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}
	return &apiClient{
		base: strings.TrimRight(address, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// jobView mirrors the daemon's job representation.
type jobView struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	InputPath    string            `json:"input_path"`
	ModelName    string            `json:"model_name"`
	Options      queue.Options     `json:"options"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Artifacts    map[string]string `json:"artifacts,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type resultView struct {
	ID          string            `json:"id"`
	Text        string            `json:"text"`
	DialectText string            `json:"dialect_text,omitempty"`
	Segments    []queue.Segment   `json:"segments"`
	Artifacts   map[string]string `json:"artifacts"`
}

type apiError struct {
	Error string `json:"error"`
}

func (c *apiClient) do(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *apiClient) Submit(req daemon.SubmitRequest) (jobView, error) {
	var job jobView
	err := c.do(http.MethodPost, "/api/jobs", req, &job)
	return job, err
}

func (c *apiClient) Job(id string) (jobView, error) {
	var job jobView
	err := c.do(http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &job)
	return job, err
}

func (c *apiClient) Result(id string) (resultView, error) {
	var result resultView
	err := c.do(http.MethodGet, "/api/jobs/"+url.PathEscape(id)+"/result", nil, &result)
	return result, err
}

func (c *apiClient) Retry(id string) (jobView, error) {
	var job jobView
	err := c.do(http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/retry", struct{}{}, &job)
	return job, err
}

func (c *apiClient) List(status string) ([]jobView, error) {
	path := "/api/queue"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var jobs []jobView
	err := c.do(http.MethodGet, path, nil, &jobs)
	return jobs, err
}

func (c *apiClient) Status() (daemon.Status, error) {
	var status daemon.Status
	err := c.do(http.MethodGet, "/api/status", nil, &status)
	return status, err
}

func (c *apiClient) Clear(scope string) (int64, error) {
	path := "/api/queue/clear"
	if scope != "" {
		path += "?scope=" + url.QueryEscape(scope)
	}
	var payload map[string]int64
	if err := c.do(http.MethodPost, path, struct{}{}, &payload); err != nil {
		return 0, err
	}
	return payload["removed"], nil
}
