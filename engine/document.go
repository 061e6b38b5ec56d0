// Package engine carries the compiled document contract of the external
// automation engine and a REST client for pushing and running documents.
// JSON field names in this package are the wire contract and must not be
// renamed.
package engine

import (
	json "github.com/goccy/go-json"
)

const NODE_TYPE_WEBHOOK = "n8n-nodes-base.webhook"
const NODE_TYPE_SET = "n8n-nodes-base.set"
const NODE_TYPE_HTTP_REQUEST = "n8n-nodes-base.httpRequest"
const NODE_TYPE_EMAIL_SEND = "n8n-nodes-base.emailSend"
const NODE_TYPE_POSTGRES = "n8n-nodes-base.postgres"
const NODE_TYPE_IF = "n8n-nodes-base.if"
const NODE_TYPE_NO_OP = "n8n-nodes-base.noOp"

const CONNECTION_TYPE_MAIN = "main"

type Document struct {
	Name        string         `json:"name"`
	Nodes       []Node         `json:"nodes"`
	Connections Connections    `json:"connections"`
	Settings    map[string]any `json:"settings"`
}

type Node struct {
	Parameters  map[string]any           `json:"parameters"`
	Name        string                   `json:"name"`
	Type        string                   `json:"type"`
	TypeVersion int                      `json:"typeVersion"`
	Position    [2]float64               `json:"position"`
	Credentials map[string]CredentialRef `json:"credentials,omitempty"`
	WebhookId   string                   `json:"webhookId,omitempty"`
}

type CredentialRef struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type Connections map[string]NodePorts

type NodePorts struct {
	Main [][]Target `json:"main"`
}

type Target struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

func (d *Document) Encode() ([]byte, error) {
	return json.Marshal(d)
}

func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
