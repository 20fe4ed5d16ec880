package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// snapshot mirrors the server's process snapshot JSON.
type snapshot struct {
	ID         string     `json:"id"`
	PID        int        `json:"pid"`
	Synthetic  bool       `json:"synthetic"`
	Executable string     `json:"executable"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	ExitCode   *int       `json:"exit_code,omitempty"`
	Signal     string     `json:"signal,omitempty"`
}

// APIClient talks to a running gamesup daemon.
type APIClient struct {
	baseURL string
	client  *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if baseURL == "" {
		baseURL = "http://localhost:8080/api"
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *APIClient) Launch(f LaunchFlags) (*snapshot, error) {
	body := map[string]any{
		"id":         f.ID,
		"executable": f.Executable,
		"args":       f.Args,
		"env":        f.Env,
		"work_dir":   f.WorkDir,
		"elevated":   f.Elevated,
		"capture":    f.Capture,
	}
	if f.GraceWindow > 0 {
		body["grace_window"] = f.GraceWindow.String()
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Post(c.baseURL+"/launch", "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var snap snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *APIClient) Kill(id string, force bool) error {
	u := c.baseURL + "/kill?id=" + url.QueryEscape(id)
	if force {
		u += "&force=true"
	}
	resp, err := c.client.Post(u, "application/json", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

func (c *APIClient) Status(id string) (*snapshot, error) {
	resp, err := c.client.Get(c.baseURL + "/status?id=" + url.QueryEscape(id))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var snap snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *APIClient) AllStatuses() ([]snapshot, error) {
	resp, err := c.client.Get(c.baseURL + "/status")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var byID map[string]snapshot
	if err := json.NewDecoder(resp.Body).Decode(&byID); err != nil {
		return nil, err
	}
	snaps := make([]snapshot, 0, len(byID))
	for _, s := range byID {
		snaps = append(snaps, s)
	}
	return snaps, nil
}

func (c *APIClient) Running(id string) (bool, error) {
	resp, err := c.client.Get(c.baseURL + "/running?id=" + url.QueryEscape(id))
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return false, apiError(resp)
	}
	var out struct {
		Running bool `json:"running"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Running, nil
}

func apiError(resp *http.Response) error {
	var errorResp struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
		return fmt.Errorf("API error: status %d", resp.StatusCode)
	}
	return fmt.Errorf("API error: %s", errorResp.Error)
}
