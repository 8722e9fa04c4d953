package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the billing provider's REST API. Requests are form encoded
// the way the provider expects.
type Client struct {
	secretKey  string
	apiURL     string
	httpClient *http.Client
}

// NewClient returns a client authenticated with the account's secret key.
func NewClient(secretKey string) *Client {
	return &Client{
		secretKey:  secretKey,
		apiURL:     "https://api.stripe.com/v1",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, form url.Values) (*http.Request, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("billing api: %s: %s", resp.Status, apiErr.Error.Message)
		}
		return fmt.Errorf("billing api: unexpected status %s", resp.Status)
	}
	return json.Unmarshal(data, out)
}

// CreateCustomer registers a customer for a local user.
func (c *Client) CreateCustomer(ctx context.Context, email string, userID int) (*Customer, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("metadata[user_id]", fmt.Sprintf("%d", userID))

	req, err := c.newRequest(ctx, http.MethodPost, "/customers", form)
	if err != nil {
		return nil, err
	}
	var customer Customer
	if err := c.do(req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreateCheckoutSession opens a hosted checkout page for a subscription
// purchase. The metadata is copied onto the subscription the provider
// creates, so later webhook deliveries can identify the user and plan.
func (c *Client) CreateCheckoutSession(ctx context.Context, customerID, priceID, planType string, userID int, successURL, cancelURL string) (*CheckoutSessionResponse, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("customer", customerID)
	form.Set("line_items[0][price]", priceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)
	form.Set("subscription_data[metadata][user_id]", fmt.Sprintf("%d", userID))
	form.Set("subscription_data[metadata][created_by_user_id]", fmt.Sprintf("%d", userID))
	form.Set("subscription_data[metadata][plan_type]", planType)

	req, err := c.newRequest(ctx, http.MethodPost, "/checkout/sessions", form)
	if err != nil {
		return nil, err
	}
	var session CheckoutSessionResponse
	if err := c.do(req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateBillingPortalSession opens the provider's self-service portal.
func (c *Client) CreateBillingPortalSession(ctx context.Context, customerID, returnURL string) (*PortalSessionResponse, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("return_url", returnURL)

	req, err := c.newRequest(ctx, http.MethodPost, "/billing_portal/sessions", form)
	if err != nil {
		return nil, err
	}
	var session PortalSessionResponse
	if err := c.do(req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSubscription fetches a subscription with its items expanded.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	req, err := c.newRequest(ctx, http.MethodGet,
		"/subscriptions/"+subscriptionID+"?expand[]=items.data", nil)
	if err != nil {
		return nil, err
	}
	var sub Subscription
	if err := c.do(req, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CancelSubscription schedules cancellation at the end of the paid period.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	form := url.Values{}
	form.Set("cancel_at_period_end", "true")

	req, err := c.newRequest(ctx, http.MethodPost, "/subscriptions/"+subscriptionID, form)
	if err != nil {
		return nil, err
	}
	var sub Subscription
	if err := c.do(req, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetPrice fetches a price object.
func (c *Client) GetPrice(ctx context.Context, priceID string) (*Price, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/prices/"+priceID, nil)
	if err != nil {
		return nil, err
	}
	var price Price
	if err := c.do(req, &price); err != nil {
		return nil, err
	}
	return &price, nil
}
