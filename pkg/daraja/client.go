package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	timestampLayout = "20060102150405"

	// transaction still being processed by the query endpoint
	errCodeProcessing = "500.001.1001"

	accountRefMaxLen = 12
)

var (
	// ErrNotConfigured means consumer key, secret or passkey is missing.
	ErrNotConfigured = errors.New("daraja: credentials not configured")
	// ErrAuthFailed covers OAuth rejections and unreachable token endpoint.
	ErrAuthFailed = errors.New("daraja: authentication failed")
	// ErrRejected is a synchronous non-zero ResponseCode from the STK endpoint.
	ErrRejected = errors.New("daraja: request rejected")
	// ErrStillProcessing means the query endpoint has no final result yet.
	ErrStillProcessing = errors.New("daraja: transaction still processing")
)

// Config mirrors the externally managed credential store.
type Config struct {
	Env             string // sandbox | production
	ConsumerKey     string
	ConsumerSecret  string
	ShortCode       string
	Passkey         string
	CallbackURL     string
}

// Client talks to the Daraja STK push API. Tokens are fetched per call rather
// than cached; their lifetime is short and per-call fetch keeps them fresh.
type Client struct {
	cfg        Config
	BaseURL    string
	HTTPClient *http.Client
	now        func() time.Time
}

func New(cfg Config) *Client {
	base := sandboxBaseURL
	if cfg.Env == "production" {
		base = productionBaseURL
	}
	return &Client{
		cfg:        cfg,
		BaseURL:    base,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
}

// Authenticate exchanges the consumer key/secret for a bearer token via the
// OAuth client-credentials endpoint.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	if c.cfg.ConsumerKey == "" || c.cfg.ConsumerSecret == "" || c.cfg.Passkey == "" {
		return "", ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d %s", ErrAuthFailed, resp.StatusCode, string(body))
	}
	var out tokenResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuthFailed)
	}
	return out.AccessToken, nil
}

// password derives the API password for a request: base64 of
// shortcode + passkey + timestamp. Dictated by the provider protocol.
func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp))
}

type STKPushRequest struct {
	Phone       string // normalized, 2547XXXXXXXX
	Amount      decimal.Decimal
	AccountRef  string
	Description string
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

func (c *Client) buildSTKPayload(req STKPushRequest) stkPushPayload {
	ts := c.now().Format(timestampLayout)
	accountRef := req.AccountRef
	if len(accountRef) > accountRefMaxLen {
		accountRef = accountRef[:accountRefMaxLen]
	}
	return stkPushPayload{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount.Round(0).String(),
		PartyA:            req.Phone,
		PartyB:            req.Phone,
		PhoneNumber:       req.Phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   req.Description,
	}
}

// STKPush authenticates and sends a push-payment prompt to the payer's phone.
// A non-"0" ResponseCode is a synchronous rejection returned as ErrRejected.
func (c *Client) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	payload := c.buildSTKPayload(req)
	var out STKPushResponse
	if err := c.post(ctx, token, "/mpesa/stkpush/v1/processrequest", payload, &out); err != nil {
		return nil, err
	}
	if out.ResponseCode != "0" {
		return nil, fmt.Errorf("%w: %s", ErrRejected, out.ResponseDescription)
	}
	log.Printf("[DARAJA] STK push accepted checkout_request_id=%s merchant_request_id=%s", out.CheckoutRequestID, out.MerchantRequestID)
	return &out, nil
}

type QueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

type queryPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// QueryStatus asks the provider for the outcome of an earlier push. Returns
// ErrStillProcessing while the payer has not yet responded.
func (c *Client) QueryStatus(ctx context.Context, checkoutRequestID string) (*QueryResponse, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	ts := c.now().Format(timestampLayout)
	payload := queryPayload{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(ts),
		Timestamp:         ts,
		CheckoutRequestID: checkoutRequestID,
	}
	var out QueryResponse
	if err := c.post(ctx, token, "/mpesa/stkpushquery/v1/query", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type apiError struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (c *Client) post(ctx context.Context, token, path string, payload, out interface{}) error {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("daraja: %s: %w", path, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.ErrorCode == errCodeProcessing {
			return ErrStillProcessing
		}
		return fmt.Errorf("daraja: %s: status %d %s", path, resp.StatusCode, string(respBody))
	}
	return json.Unmarshal(respBody, out)
}
