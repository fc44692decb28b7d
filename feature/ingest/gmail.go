// Package ingest fetches classified email events and feeds them through the
// reconciliation engine: Gmail is the message source, an OpenAI-compatible
// chat-completions endpoint does the extraction, and a keyword fallback
// covers classifier outages.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// MessageRef is one entry of a Gmail list response.
type MessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// MessagePart is one node of a Gmail MIME tree.
type MessagePart struct {
	MimeType string        `json:"mimeType"`
	Headers  []Header      `json:"headers"`
	Body     MessageBody   `json:"body"`
	Parts    []MessagePart `json:"parts"`
}

// Header is one RFC 2822 header of a message payload.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MessageBody carries base64url-encoded part content.
type MessageBody struct {
	Data string `json:"data"`
	Size int    `json:"size"`
}

// Message is a full Gmail message.
type Message struct {
	ID      string      `json:"id"`
	Payload MessagePart `json:"payload"`
}

type listResponse struct {
	Messages           []MessageRef `json:"messages"`
	NextPageToken      string       `json:"nextPageToken"`
	ResultSizeEstimate int          `json:"resultSizeEstimate"`
}

type modifyRequest struct {
	RemoveLabelIDs []string `json:"removeLabelIds,omitempty"`
	AddLabelIDs    []string `json:"addLabelIds,omitempty"`
}

// Source is one mailbox to pull messages from. Implementations list matching
// messages, fetch their full payload and acknowledge processing.
type Source interface {
	List(ctx context.Context) ([]MessageRef, error)
	Get(ctx context.Context, id string) (*Message, error)
	MarkRead(ctx context.Context, id string) error
}

// GmailSource reads a mailbox through the Gmail REST API.
type GmailSource struct {
	client     *resty.Client
	query      string
	maxResults int
}

// NewGmailSource creates a Source for the configured mailbox.
func NewGmailSource(cfg GmailConfig) *GmailSource {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.Token).
		SetHeader("Content-Type", "application/json").
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetRetryCount(cfg.Retries)

	return &GmailSource{
		client:     client,
		query:      cfg.Query,
		maxResults: cfg.MaxResults,
	}
}

// List returns references to the messages matching the configured query.
func (s *GmailSource) List(ctx context.Context) ([]MessageRef, error) {
	var result listResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("q", s.query).
		SetQueryParam("maxResults", fmt.Sprintf("%d", s.maxResults)).
		SetResult(&result).
		Get("/users/me/messages")
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list messages: HTTP %d: %s", resp.StatusCode(), resp.Body())
	}
	return result.Messages, nil
}

// Get fetches one message with its full MIME payload.
func (s *GmailSource) Get(ctx context.Context, id string) (*Message, error) {
	var msg Message
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("format", "full").
		SetResult(&msg).
		Get("/users/me/messages/" + id)
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get message %s: HTTP %d: %s", id, resp.StatusCode(), resp.Body())
	}
	return &msg, nil
}

// MarkRead removes the UNREAD label from a message.
func (s *GmailSource) MarkRead(ctx context.Context, id string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(modifyRequest{RemoveLabelIDs: []string{"UNREAD"}}).
		Post("/users/me/messages/" + id + "/modify")
	if err != nil {
		return fmt.Errorf("mark message %s read: %w", id, err)
	}
	if resp.IsError() {
		return fmt.Errorf("mark message %s read: HTTP %d: %s", id, resp.StatusCode(), resp.Body())
	}
	return nil
}
