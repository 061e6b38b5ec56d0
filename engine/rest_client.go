package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hrflow/hrflow/logger"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const apiKeyHeader = "X-N8N-API-KEY"
const defaultRequestTimeout = 60 * time.Second

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseUrl        string
	WebhookBaseUrl string
	ApiKey         string
	RequestTimeout time.Duration
}

var _ Client = new(restClient)

type restClient struct {
	config Config
	client HttpClient
}

func NewRestClient(config Config) Client {
	timeout := config.RequestTimeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}
	return &restClient{
		config: config,
		client: &http.Client{Timeout: timeout},
	}
}

// UpsertDocument pushes the document under its stable name: an existing
// remote definition with the same name is updated in place, otherwise a new
// one is created. Lookup and update are retried on transient failures; the
// create call runs once so a slow engine cannot yield duplicates.
func (c *restClient) UpsertDocument(ctx context.Context, doc *Document) (*UpsertResult, error) {
	existingId, err := c.findByName(ctx, doc.Name)
	if err != nil {
		return nil, err
	}
	payload, err := doc.Encode()
	if err != nil {
		return nil, err
	}
	if existingId != "" {
		updateUrl := c.apiUrl("/workflows/" + existingId)
		if err := c.send(ctx, "update", http.MethodPut, updateUrl, payload, nil, true); err != nil {
			return nil, err
		}
		logger.Debug("engine document updated", zap.String("name", doc.Name), zap.String("remoteId", existingId))
		return &UpsertResult{RemoteId: existingId, Created: false}, nil
	}
	var created remoteWorkflow
	createUrl := c.apiUrl("/workflows")
	if err := c.send(ctx, "create", http.MethodPost, createUrl, payload, &created, false); err != nil {
		return nil, err
	}
	logger.Debug("engine document created", zap.String("name", doc.Name), zap.String("remoteId", string(created.Id)))
	return &UpsertResult{RemoteId: string(created.Id), Created: true}, nil
}

func (c *restClient) Activate(ctx context.Context, remoteId string) error {
	activateUrl := c.apiUrl("/workflows/" + remoteId + "/activate")
	return c.send(ctx, "activate", http.MethodPost, activateUrl, nil, nil, true)
}

// InvokeWebhook fires one run of the activated document. Never retried:
// a duplicate delivery would be a duplicate workflow run.
func (c *restClient) InvokeWebhook(ctx context.Context, webhookPath string, body map[string]any) (*WebhookResponse, error) {
	invokeUrl := strings.TrimSuffix(c.config.WebhookBaseUrl, "/") + "/webhook/" + webhookPath
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, invokeUrl, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, RequestError{Op: "webhook", URL: invokeUrl, Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, RequestError{Op: "webhook", URL: invokeUrl, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, RequestError{Op: "webhook", URL: invokeUrl, StatusCode: resp.StatusCode}
	}
	return &WebhookResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// remoteId tolerates both id encodings the engine has shipped: strings on
// current releases, bare numbers on older ones.
type remoteId string

func (r *remoteId) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch tv := v.(type) {
	case string:
		*r = remoteId(tv)
	case float64:
		*r = remoteId(strconv.FormatInt(int64(tv), 10))
	default:
		return fmt.Errorf("unexpected workflow id type %T", v)
	}
	return nil
}

type remoteWorkflow struct {
	Id   remoteId `json:"id"`
	Name string   `json:"name"`
}

type remoteWorkflowList struct {
	Data []remoteWorkflow `json:"data"`
}

func (c *restClient) findByName(ctx context.Context, name string) (string, error) {
	listUrl := c.apiUrl("/workflows") + "?name=" + url.QueryEscape(name)
	var list remoteWorkflowList
	if err := c.send(ctx, "lookup", http.MethodGet, listUrl, nil, &list, true); err != nil {
		return "", err
	}
	for _, wf := range list.Data {
		if wf.Name == name {
			return string(wf.Id), nil
		}
	}
	return "", nil
}

func (c *restClient) apiUrl(path string) string {
	return strings.TrimSuffix(c.config.BaseUrl, "/") + "/api/v1" + path
}

func (c *restClient) send(ctx context.Context, op string, method string, reqUrl string, payload []byte, out any, retryable bool) error {
	attempt := func(ctx context.Context) error {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqUrl, reqBody)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.ApiKey != "" {
			req.Header.Set(apiKeyHeader, c.config.ApiKey)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(RequestError{Op: op, URL: reqUrl, Err: err})
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return RequestError{Op: op, URL: reqUrl, Err: err}
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return retry.RetryableError(RequestError{Op: op, URL: reqUrl, StatusCode: resp.StatusCode})
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return RequestError{Op: op, URL: reqUrl, StatusCode: resp.StatusCode}
		}
		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return RequestError{Op: op, URL: reqUrl, Err: err}
			}
		}
		return nil
	}
	if !retryable {
		err := attempt(ctx)
		var re RequestError
		if errors.As(err, &re) {
			return re
		}
		return err
	}
	backoff := retry.WithMaxRetries(2, retry.NewConstant(250*time.Millisecond))
	return retry.Do(ctx, backoff, attempt)
}
