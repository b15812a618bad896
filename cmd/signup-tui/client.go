package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"vatfiler/internal/registration/models"
)

// flowResponse mirrors the JSON the flow API returns.
type flowResponse struct {
	Stage     models.Stage              `json:"stage"`
	Mode      models.Mode               `json:"mode"`
	Completed bool                      `json:"completed"`
	Account   *models.RegisteredAccount `json:"account,omitempty"`
}

type apiError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

// flowClient talks to the flow API. The cookie jar carries the flow cookie
// from the first GET to the events POST.
type flowClient struct {
	baseURL string
	http    *http.Client
}

func newFlowClient(baseURL string) (*flowClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &flowClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Jar: jar},
	}, nil
}

// submit starts a flow and sends events as one batch.
func (c *flowClient) submit(ctx context.Context, events []models.Event) (*flowResponse, error) {
	if _, err := c.do(ctx, http.MethodGet, "/api/flows/current", nil); err != nil {
		return nil, fmt.Errorf("start flow: %w", err)
	}
	body, err := json.Marshal(map[string]any{"events": events})
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/flows/current/events", body)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if !resp.Completed {
		return nil, fmt.Errorf("register: flow did not complete (stage %s)", resp.Stage)
	}
	return resp, nil
}

func (c *flowClient) do(ctx context.Context, method, path string, body []byte) (*flowResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if err := json.NewDecoder(res.Body).Decode(&apiErr); err != nil || apiErr.Code == "" {
			return nil, fmt.Errorf("server returned %s", res.Status)
		}
		if apiErr.Description != "" {
			return nil, fmt.Errorf("%s: %s", apiErr.Code, apiErr.Description)
		}
		return nil, fmt.Errorf("%s", apiErr.Code)
	}
	var out flowResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
