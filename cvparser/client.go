// Package cvparser talks to the CV text-extraction service. The service
// accepts a document by upload or by URL and returns the structured fields
// it managed to pull out of the text.
package cvparser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const defaultRequestTimeout = 30 * time.Second

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type ParsedCV struct {
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone"`
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experience_years"`
	Education       []string `json:"education"`
	RawText         string   `json:"raw_text"`
}

type ParseResponse struct {
	Success  bool     `json:"success"`
	Source   string   `json:"source"`
	Filename string   `json:"filename"`
	Data     ParsedCV `json:"data"`
}

// ServiceError is a non-2xx reply from the parser, carrying the service's
// own detail message.
type ServiceError struct {
	StatusCode int
	Detail     string
}

func (e ServiceError) Error() string {
	return fmt.Sprintf("cv parser replied %d: %s", e.StatusCode, e.Detail)
}

type Client interface {
	ParseURL(ctx context.Context, sourceUrl string) (*ParseResponse, error)
	Health(ctx context.Context) error
}

var _ Client = new(restClient)

type restClient struct {
	baseUrl string
	client  HttpClient
}

func NewRestClient(baseUrl string) Client {
	return &restClient{
		baseUrl: strings.TrimSuffix(baseUrl, "/"),
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}
}

func (c *restClient) ParseURL(ctx context.Context, sourceUrl string) (*ParseResponse, error) {
	form := url.Values{}
	form.Set("url", sourceUrl)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl+"/parse", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ServiceError{StatusCode: resp.StatusCode, Detail: errorDetail(body)}
	}
	var parsed ParseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

func (c *restClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseUrl+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return ServiceError{StatusCode: resp.StatusCode, Detail: "health check failed"}
	}
	return nil
}

func errorDetail(body []byte) string {
	var fail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &fail); err == nil && fail.Detail != "" {
		return fail.Detail
	}
	return strings.TrimSpace(string(body))
}
