package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/weboryskills/practice/internal/config"
	"github.com/weboryskills/practice/internal/domain"
)

// daemonClient talks to a running practiced over HTTP
type daemonClient struct {
	baseURL string
	http    *http.Client
}

// newDaemonClient targets PRACTICE_DAEMON_URL or the default bind address
func newDaemonClient() *daemonClient {
	base := os.Getenv(config.EnvPrefix + "DAEMON_URL")
	if base == "" {
		base = "http://" + config.Default().Server.Addr()
	}
	return &daemonClient{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type progressView struct {
	UserID         string     `json:"userId"`
	XP             int        `json:"xp"`
	CurrentStreak  int        `json:"currentStreak"`
	LastActiveDate *time.Time `json:"lastActiveDate"`
	SessionsCount  int        `json:"sessionsCount"`
}

type apiError struct {
	Error   string `json:"error"`
	Details any    `json:"details"`
}

func (c *daemonClient) isRunning() bool {
	resp, err := c.http.Get(c.baseURL + "/v1/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *daemonClient) progress(userID string) (*progressView, error) {
	var out progressView
	if err := c.do(http.MethodGet, "/v1/progress", userID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *daemonClient) activities(userID string, limit int) ([]domain.Activity, error) {
	path := "/v1/activity"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var out struct {
		Activities []domain.Activity `json:"activities"`
	}
	if err := c.do(http.MethodGet, path, userID, &out); err != nil {
		return nil, err
	}
	return out.Activities, nil
}

func (c *daemonClient) do(method, path, userID string, out any) error {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-User-ID", userID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s (run 'practice start' first)", c.baseURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
