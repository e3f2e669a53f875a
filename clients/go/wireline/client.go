// Package wireline provides a client for the wireline messaging API.
package wireline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a wireline API client. Token is the bearer credential returned
// by Login; it must be set for authenticated calls.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Account mirrors the server's account representation.
type Account struct {
	ID        string    `json:"id"`
	WaID      string    `json:"wa_id"`
	Name      string    `json:"name,omitempty"`
	Picture   string    `json:"picture,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Message mirrors the server's message representation.
type Message struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Status     string    `json:"status"`
}

// Conversation mirrors one chat-list entry.
type Conversation struct {
	MessageID   string    `json:"id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
	ChatPartner string    `json:"chat_partner"`
	PartnerName string    `json:"partner_name,omitempty"`
	PartnerWaID string    `json:"partner_wa_id,omitempty"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Register creates an account.
func (c *Client) Register(waID, name, picture string) (*Account, error) {
	var resp struct {
		Contact Account `json:"contact"`
	}
	body := map[string]string{"wa_id": waID, "name": name, "picture": picture}
	if err := c.do(http.MethodPost, "/api/v1/create-user", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Contact, nil
}

// Login obtains a bearer credential and stores it on the client.
func (c *Client) Login(waID string) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(http.MethodPost, "/api/v1/login-user", map[string]string{"wa_id": waID}, &resp); err != nil {
		return err
	}
	c.Token = resp.Token
	return nil
}

// WhoAmI verifies the stored credential and returns the wa_id it maps to.
func (c *Client) WhoAmI() (string, error) {
	var resp struct {
		WaID string `json:"wa_id"`
	}
	if err := c.do(http.MethodGet, "/api/v1/user-auth", nil, &resp); err != nil {
		return "", err
	}
	return resp.WaID, nil
}

// Send stores a message to the given wa_id.
func (c *Client) Send(to, message string) (*Message, error) {
	var resp struct {
		Data Message `json:"data"`
	}
	body := map[string]string{"to": to, "message": message}
	if err := c.do(http.MethodPost, "/api/v1/send-message", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// MarkSeen flips the most recent message addressed to waID to "seen".
func (c *Client) MarkSeen(waID string) error {
	body := map[string]string{"wa_id": waID, "status": "seen"}
	return c.do(http.MethodPost, "/api/v1/update-status", body, nil)
}

// Thread returns the full message history with the other party, oldest first.
func (c *Client) Thread(otherWaID string) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	path := "/api/v1/message/" + url.PathEscape(otherWaID)
	if err := c.do(http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// ChatList returns the conversation summaries, newest first.
func (c *Client) ChatList() ([]Conversation, error) {
	var resp struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := c.do(http.MethodGet, "/api/v1/chat-list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

func (c *Client) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
