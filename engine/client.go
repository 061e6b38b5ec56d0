package engine

import (
	"context"
	"errors"
	"fmt"
)

type UpsertResult struct {
	RemoteId string `json:"remoteId"`
	Created  bool   `json:"created"`
}

type WebhookResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       []byte `json:"body"`
}

// Client is the contract the orchestrator drives one execution through:
// push the compiled document, activate it, fire its webhook.
type Client interface {
	UpsertDocument(ctx context.Context, doc *Document) (*UpsertResult, error)
	Activate(ctx context.Context, remoteId string) error
	InvokeWebhook(ctx context.Context, webhookPath string, body map[string]any) (*WebhookResponse, error)
}

// RequestError marks transport failures and non-2xx replies from the
// engine, so callers can tell an unreachable engine apart from their own
// mistakes. StatusCode is zero when the request never got a response.
type RequestError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("engine %s %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
}

func (e RequestError) Unwrap() error {
	return e.Err
}

func IsRequestError(err error) bool {
	var re RequestError
	return errors.As(err, &re)
}
