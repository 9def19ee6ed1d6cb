package llm

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
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second
)

// Message is one entry of a chat conversation in the OpenAI API format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles used throughout the generation pipeline.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Tool advertises a structured-output target the model may invoke.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction carries the name and JSON Schema of a structured-output target.
type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ChatRequest is the body of a chat completion call.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Tools       []Tool    `json:"tools,omitempty"`
}

// ToolCall is one structured-output invocation returned by the model.
type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// Reply is the assistant message of the first choice: free text, structured
// tool invocations, or both.
type Reply struct {
	Content   string
	ToolCalls []ToolCall
}

// RemoteError reports a transport or service failure on a chat call.
// Status is the HTTP status code, or 0 when the request never got a response.
type RemoteError struct {
	Status int
	Msg    string
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("chat completion: status %d: %s", e.Status, e.Msg)
	}
	return fmt.Sprintf("chat completion: %s", e.Msg)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Client communicates with an OpenAI-compatible chat completion API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the default OpenAI endpoint.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// NewClientWithBaseURL creates a Client pointing at a custom base URL
// (OpenAI-compatible gateways, test servers).
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// chatResponse mirrors the JSON returned by POST /chat/completions.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat issues a single blocking chat completion call and returns the
// assistant reply. Failures are never retried here; callers own any
// retry policy.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (Reply, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Reply{}, fmt.Errorf("marshaling chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("creating chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Reply{}, &RemoteError{Msg: "executing request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Reply{}, &RemoteError{Status: resp.StatusCode, Msg: strings.TrimSpace(string(respBody))}
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Reply{}, &RemoteError{Msg: "decoding response", Err: err}
	}

	if len(result.Choices) == 0 {
		return Reply{}, nil
	}
	msg := result.Choices[0].Message
	return Reply{Content: msg.Content, ToolCalls: msg.ToolCalls}, nil
}
