// Package chatbot talks to the external question-answering service.
package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	FallbackUnreachable = "Could not reach the chatbot server"
	FallbackUnexpected  = "Unexpected chatbot response"
)

// Error carries the fixed text shown in place of a reply.
type Error struct {
	Fallback   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chatbot: %s: %v", e.Fallback, e.Err)
	}
	return "chatbot: " + e.Fallback
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Reply  string `json:"reply"`
	Answer string `json:"answer"`
	Result string `json:"result"`
}

// Ask posts the question once. Any failure comes back as *Error.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return "", &Error{Fallback: FallbackUnexpected, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Fallback: FallbackUnreachable, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Fallback: FallbackUnreachable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{
			Fallback:   fmt.Sprintf("Chatbot server error: %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Fallback: FallbackUnreachable, Err: err}
	}

	var out askResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &Error{Fallback: FallbackUnexpected, Err: err}
	}

	for _, s := range []string{out.Reply, out.Answer, out.Result} {
		if strings.TrimSpace(s) != "" {
			return s, nil
		}
	}
	return "", &Error{Fallback: FallbackUnexpected}
}
