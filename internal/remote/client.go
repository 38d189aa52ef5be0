package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const baseURL = "https://archive.org"

// maxAttempts bounds every retried operation at 15 tries total (spec §4.1).
const maxAttempts = 15

// Credentials are the archive.org S3-style access/secret pair (spec §6).
type Credentials struct {
	Access string
	Secret string
}

// IAException represents a malformed or logically-unsound response body:
// bad JSON, an `error` field, a non-success task summary, or an empty body
// where a 404 wasn't confirmed (spec §4.1, §7).
type IAException struct {
	Msg string
}

func (e *IAException) Error() string { return "IA exception: " + e.Msg }

// Client fetches and caches remote item metadata, the cover-art index, and
// pending-task status for archive.org items (C1). One Client is shared by all
// tasks; each call names the item it targets.
type Client struct {
	HTTP  *http.Client
	Creds Credentials
}

// NewClient builds a client sharing one HTTP connection pool across all
// workers, capped at the dispatcher's concurrency (spec §5).
func NewClient(creds Credentials, concurrency int) *Client {
	transport := &http.Transport{
		MaxIdleConns:        concurrency,
		MaxIdleConnsPerHost: concurrency,
		MaxConnsPerHost:     concurrency,
	}
	return &Client{
		HTTP:  &http.Client{Transport: transport, Timeout: 60 * time.Second},
		Creds: creds,
	}
}

func (c *Client) authHeader() string {
	return fmt.Sprintf("LOW %s:%s", c.Creds.Access, c.Creds.Secret)
}

func (c *Client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.authHeader())
	return req, nil
}

// retry wraps fn in exponential backoff with jitter: initial delay ~1s,
// factor 2, up to maxAttempts tries, logging every retry and give-up on the
// task's logger (spec §4.1).
func retry(ctx context.Context, logger *logrus.Entry, op string, fn func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = time.Second
	eb.Multiplier = 2
	eb.RandomizationFactor = 0.5
	eb.MaxElapsedTime = 0

	bo := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(maxAttempts-1)), ctx)

	attempt := 0
	start := time.Now()
	err := backoff.RetryNotify(func() error {
		attempt++
		return fn()
	}, bo, func(err error, wait time.Duration) {
		logger.WithFields(logrus.Fields{
			"op": op, "attempt": attempt, "wait_seconds": wait.Seconds(),
			"elapsed_seconds": time.Since(start).Seconds(),
		}).Warnf("%s: retrying after error: %v", op, err)
	})
	if err != nil {
		logger.WithFields(logrus.Fields{
			"op": op, "attempts": attempt, "elapsed_seconds": time.Since(start).Seconds(),
		}).Errorf("%s: giving up: %v", op, err)
	}
	return err
}

// Metadata returns the parsed remote metadata JSON, consulting the on-disk
// cache first. An empty object is the legitimate 404 representation, but
// only after the 404 probe confirms it (spec §4.1).
func (c *Client) Metadata(ctx context.Context, logger *logrus.Entry, taskDir, identifier string) (map[string]any, error) {
	cachePath := filepath.Join(taskDir, "ia_metadata.json")
	if cached, ok := c.loadCachedJSON(logger, cachePath); ok {
		return cached, nil
	}

	var result map[string]any
	var raw []byte
	err := retry(ctx, logger, "fetch metadata", func() error {
		body, status, ferr := c.getBody(ctx, fmt.Sprintf("%s/metadata/%s", baseURL, identifier))
		if ferr != nil {
			return ferr
		}
		if status != http.StatusOK {
			return fmt.Errorf("unexpected status %d fetching metadata", status)
		}
		var m map[string]any
		if jerr := json.Unmarshal(body, &m); jerr != nil {
			return &IAException{Msg: fmt.Sprintf("malformed metadata JSON: %v", jerr)}
		}
		if errMsg, ok := m["error"]; ok {
			return &IAException{Msg: fmt.Sprintf("%v", errMsg)}
		}
		if len(m) == 0 {
			is404, derr := c.is404(ctx, logger, identifier)
			if derr != nil {
				return derr
			}
			if !is404 {
				return &IAException{Msg: "empty response on non-404 item"}
			}
		}
		raw = body
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	if werr := os.WriteFile(cachePath, raw, 0o644); werr != nil {
		logger.WithError(werr).Warn("failed to cache metadata response")
	}
	return result, nil
}

// CAAIndex returns the raw index.json bytes, or nil if the item has none
// (404). The body is intentionally left unparsed: whether it is well-formed
// JSON is itself a checked property (spec §4.1).
func (c *Client) CAAIndex(ctx context.Context, logger *logrus.Entry, taskDir, identifier string) ([]byte, error) {
	cachePath := filepath.Join(taskDir, "index.json")
	if data, err := os.ReadFile(cachePath); err == nil {
		logger.Info("loaded cached index.json")
		return data, nil
	}

	var result []byte
	var absent bool
	err := retry(ctx, logger, "fetch index.json", func() error {
		body, status, ferr := c.getBody(ctx, fmt.Sprintf("%s/download/%s/index.json", baseURL, identifier))
		if ferr != nil {
			return ferr
		}
		if status == http.StatusNotFound {
			absent = true
			return nil
		}
		if status != http.StatusOK {
			return fmt.Errorf("unexpected status %d fetching index.json", status)
		}
		result = body
		return nil
	})
	if err != nil {
		return nil, err
	}
	if absent {
		return nil, nil
	}
	if werr := os.WriteFile(cachePath, result, 0o644); werr != nil {
		logger.WithError(werr).Warn("failed to cache index.json response")
	}
	return result, nil
}

// HasPendingTasks reports whether the remote service has any uncompleted
// administrative operation queued for the item; never cached (spec §4.1).
func (c *Client) HasPendingTasks(ctx context.Context, logger *logrus.Entry, identifier string) (bool, error) {
	var pending bool
	err := retry(ctx, logger, "check pending tasks", func() error {
		url := fmt.Sprintf("%s/services/tasks.php?summary=1&identifier=%s", baseURL, identifier)
		body, status, ferr := c.getBody(ctx, url)
		if ferr != nil {
			return ferr
		}
		if status != http.StatusOK {
			return fmt.Errorf("unexpected status %d fetching task summary", status)
		}
		var resp struct {
			Success bool `json:"success"`
			Value   struct {
				Summary map[string]int `json:"summary"`
			} `json:"value"`
		}
		if jerr := json.Unmarshal(body, &resp); jerr != nil {
			return &IAException{Msg: fmt.Sprintf("malformed task summary JSON: %v", jerr)}
		}
		if !resp.Success {
			return &IAException{Msg: "task summary response was not successful"}
		}
		for _, count := range resp.Value.Summary {
			if count != 0 {
				pending = true
				break
			}
		}
		return nil
	})
	return pending, err
}

// is404 confirms an empty metadata body by probing /details/<id>.
func (c *Client) is404(ctx context.Context, logger *logrus.Entry, identifier string) (bool, error) {
	var is404 bool
	err := retry(ctx, logger, "confirm 404", func() error {
		_, status, ferr := c.getBody(ctx, fmt.Sprintf("%s/details/%s", baseURL, identifier))
		if ferr != nil {
			return ferr
		}
		is404 = status == http.StatusNotFound
		return nil
	})
	return is404, err
}

func (c *Client) getBody(ctx context.Context, url string) ([]byte, int, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// loadCachedJSON loads and parses a cached response. Corrupt cached JSON is
// treated as a miss, not an error (spec Design Notes).
func (c *Client) loadCachedJSON(logger *logrus.Entry, path string) (map[string]any, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		logger.WithError(err).Warn("cached JSON was corrupt, treating as cache miss")
		return nil, false
	}
	logger.Info("loaded cached metadata")
	return m, true
}

// ErrorKind maps an error to a stable identifier for InternalError::<kind>
// skip descriptions (spec §3, §4.4.3).
func ErrorKind(err error) string {
	if err == nil {
		return "Unknown"
	}
	if _, ok := err.(*IAException); ok {
		return "IAException"
	}
	var netErr interface{ Timeout() bool }
	if ok := (func() bool { var ok2 bool; netErr, ok2 = err.(interface{ Timeout() bool }); return ok2 })(); ok && netErr.Timeout() {
		return "Timeout"
	}
	return "TransportError"
}
