// Package notify delivers takeover passcodes to a user's registered contact
// address through an external messaging gateway. The gateway is a black box
// to the authentication core: it only knows "send message to address X".
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// Dispatcher sends a passcode to a contact address. Implementations must not
// log the code.
type Dispatcher interface {
	SendCode(ctx context.Context, to, code string) error
}

// GatewayClient sends passcodes via an HTTP messaging gateway.
type GatewayClient struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
}

// NewGatewayClient returns a client for the given gateway endpoint. sender is
// optional.
func NewGatewayClient(apiKey, baseURL, sender string) *GatewayClient {
	return &GatewayClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SendCode posts the passcode message to the gateway. Does not log the code.
func (c *GatewayClient) SendCode(ctx context.Context, to, code string) error {
	if c.APIKey == "" || c.BaseURL == "" {
		return fmt.Errorf("notify: gateway not configured")
	}
	body := map[string]interface{}{
		"to":      to,
		"sender":  c.Sender,
		"subject": "SAFE DAY - Device takeover code",
		"message": fmt.Sprintf("Your device takeover code is %s. It expires in 5 minutes. If this was not you, contact Head Office.", code),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notify: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
