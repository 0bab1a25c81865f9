package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bagStore/models"
)

const maxErrorBody = 1 << 20

// ApiClient is the thin HTTP layer in front of the remote catalog api.
type ApiClient struct {
	baseURL *url.URL
	client  *http.Client
}

func NewApiClient(baseURL string, timeout time.Duration) (*ApiClient, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("api base url is empty")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url %q is not absolute", baseURL)
	}
	return &ApiClient{
		baseURL: u,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// resolve accepts either a path relative to the base url or an absolute url,
// which is what the api returns in the "next" field.
func (c *ApiClient) resolve(ref string, query url.Values) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if !u.IsAbs() {
		u = c.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(u.Path, "/"), RawQuery: u.RawQuery})
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *ApiClient) getJSON(ctx context.Context, ref string, query url.Values, out any) error {
	target, err := c.resolve(ref, query)
	if err != nil {
		log.Printf("getJSON: bad reference %q: %v", ref, err)
		return models.ErrBadRequest
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("getJSON %s: %v", target, err)
		return fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return models.ErrNotFoundError
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		log.Printf("getJSON %s: status=%d body=%s", target, res.StatusCode, strings.TrimSpace(string(body)))
		return fmt.Errorf("%w: status %d", models.ErrUpstream, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		log.Printf("getJSON %s: decode: %v", target, err)
		return fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	return nil
}

// getList decodes enumeration endpoints that answer either with a bare array
// or with a pagination envelope.
func getList[T any](ctx context.Context, c *ApiClient, ref string) ([]T, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, ref, nil, &raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []T
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
		}
		return list, nil
	}
	var page models.Page[T]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	return page.Results, nil
}

// postJSON returns the status and raw body so callers can interpret 4xx bodies.
func (c *ApiClient) postJSON(ctx context.Context, ref string, in any, headers map[string]string) (int, []byte, error) {
	target, err := c.resolve(ref, nil)
	if err != nil {
		return 0, nil, models.ErrBadRequest
	}
	b, err := json.Marshal(in)
	if err != nil {
		log.Printf("postJSON: marshal: %v", err)
		return 0, nil, models.ErrServerError
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(b))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := c.client.Do(req)
	if err != nil {
		log.Printf("postJSON %s: %v", target, err)
		return 0, nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	return res.StatusCode, body, nil
}
