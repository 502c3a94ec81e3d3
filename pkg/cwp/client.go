/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cwp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/patrickmn/go-cache"

	awscache "github.com/cloudops/opsscripts/pkg/cache"
)

const (
	DefaultAPIVersion  = 1
	DefaultContentType = "text/csv"
)

// StatusError is returned when the API answers with anything other than 200
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s returned status %d", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("%s %s returned status %d, %s", e.Method, e.URL, e.Code, e.Body)
}

type Option func(*Client)

// WithRetries overrides the retry budget of the underlying retryablehttp client
func WithRetries(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.http.RetryMax = retryMax
		c.http.RetryWaitMin = waitMin
		c.http.RetryWaitMax = waitMax
	}
}

func WithLogger(log logr.Logger) Option {
	return func(c *Client) {
		c.http.Logger = leveledLogger{log: log}
	}
}

// Client talks to the security platform REST API. Tokens are cached per access key.
type Client struct {
	baseURL    string
	apiVersion int
	http       *retryablehttp.Client
	tokens     *cache.Cache
}

func NewClient(baseURL string, apiVersion int, opts ...Option) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.Logger = nil
	// surface the last response instead of "giving up after n attempts" so callers see the status
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiVersion: apiVersion,
		http:       httpClient,
		tokens:     cache.New(awscache.TokenTTL, awscache.DefaultCleanupInterval),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) url(endpoint string) string {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return fmt.Sprintf("%s/api/v%d%s", c.baseURL, c.apiVersion, endpoint)
}

type authenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authenticateResponse struct {
	Token string `json:"token"`
}

// Authenticate exchanges an access key pair for a bearer token
func (c *Client) Authenticate(ctx context.Context, accessKey, secretKey string) (string, error) {
	if token, ok := c.tokens.Get(accessKey); ok {
		return token.(string), nil
	}
	body, err := json.Marshal(authenticateRequest{Username: accessKey, Password: secretKey})
	if err != nil {
		return "", fmt.Errorf("encoding authenticate request, %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url("/authenticate"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building authenticate request, %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	out, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("authenticating, %w", err)
	}
	resp := authenticateResponse{}
	if err := json.Unmarshal(out, &resp); err != nil {
		return "", fmt.Errorf("decoding authenticate response, %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("authenticate response has no token")
	}
	c.tokens.SetDefault(accessKey, resp.Token)
	return resp.Token, nil
}

// Get fetches an API endpoint, e.g. /audits/incidents, returning the raw body
func (c *Client) Get(ctx context.Context, token, endpoint, contentType string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url(endpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %q, %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	out, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("getting %q, %w", endpoint, err)
	}
	return out, nil
}

func (c *Client) do(req *retryablehttp.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body, %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, StatusError{Method: req.Method, URL: req.URL.String(), Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// leveledLogger adapts logr to retryablehttp.LeveledLogger
type leveledLogger struct {
	log logr.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error(nil, msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.V(1).Info(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Info(msg, keysAndValues...)
}
