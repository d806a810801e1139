package vnpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/thanhcle/lunaria-backend/pkg/config"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
)

const (
	apiVersion     = "2.1.0"
	commandPay     = "pay"
	commandRefund  = "refund"
	orderTypeOther = "other"
	defaultLocale  = "vn"

	// Gateway status codes carried in vnp_TransactionStatus.
	StatusSuccess  = "00"
	StatusDeclined = "02"

	createDateLayout            = "20060102150405"
	responseBodyReadLimit int64 = 4096
)

var (
	errTmnCodeRequired    = errors.New("vnpay terminal code is required")
	errHashSecretRequired = errors.New("vnpay hash secret is required")
)

// Client talks to the VNPay redirect gateway and merchant transaction API.
type Client struct {
	httpClient   *http.Client
	tmnCode      string
	hashSecret   string
	payURL       string
	apiURL       string
	currencyCode string
	now          func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the time source used for vnp_CreateDate.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds the VNPay client from merchant configuration.
func NewClient(cfg config.VNPayConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.TmnCode) == "" {
		return nil, errTmnCodeRequired
	}
	if strings.TrimSpace(cfg.HashSecret) == "" {
		return nil, errHashSecretRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &Client{
		httpClient:   &http.Client{Timeout: timeout},
		tmnCode:      strings.TrimSpace(cfg.TmnCode),
		hashSecret:   strings.TrimSpace(cfg.HashSecret),
		payURL:       strings.TrimRight(cfg.PayURL, "/"),
		apiURL:       strings.TrimRight(cfg.APIURL, "/"),
		currencyCode: cfg.CurrencyCode,
		now:          time.Now,
	}
	if client.currencyCode == "" {
		client.currencyCode = "VND"
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// PayURLRequest carries everything needed to build a checkout redirect URL.
type PayURLRequest struct {
	TxnRef    string
	Amount    int64
	OrderInfo string
	ReturnURL string
	IPAddr    string
	BankCode  string
	Locale    string
}

// PayURLResult is the built redirect plus the creation timestamp it was
// signed with. The timestamp identifies the transaction on later refund
// calls, so callers persist it.
type PayURLResult struct {
	URL        string
	CreateDate string
}

// BuildPayURL assembles the signed redirect URL the customer is sent to.
// Amount is in whole VND; the gateway wire format multiplies it by 100.
func (c *Client) BuildPayURL(req PayURLRequest) (*PayURLResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "vnpay client not configured")
	}
	if strings.TrimSpace(req.TxnRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}
	if req.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if strings.TrimSpace(req.ReturnURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return URL is required")
	}

	locale := req.Locale
	if locale == "" {
		locale = defaultLocale
	}
	createDate := c.now().Format(createDateLayout)
	params := map[string]string{
		"vnp_Version":    apiVersion,
		"vnp_Command":    commandPay,
		"vnp_TmnCode":    c.tmnCode,
		"vnp_Locale":     locale,
		"vnp_CurrCode":   c.currencyCode,
		"vnp_TxnRef":     req.TxnRef,
		"vnp_OrderInfo":  req.OrderInfo,
		"vnp_OrderType":  orderTypeOther,
		"vnp_Amount":     strconv.FormatInt(req.Amount*100, 10),
		"vnp_ReturnUrl":  req.ReturnURL,
		"vnp_IpAddr":     req.IPAddr,
		"vnp_CreateDate": createDate,
	}
	if req.BankCode != "" {
		params["vnp_BankCode"] = req.BankCode
	}

	hashData, signature := signQuery(c.hashSecret, params)
	return &PayURLResult{
		URL:        fmt.Sprintf("%s?%s&vnp_SecureHash=%s", c.payURL, hashData, signature),
		CreateDate: createDate,
	}, nil
}

// ReturnResult is the verified outcome of a gateway redirect back to us.
type ReturnResult struct {
	TxnRef            string
	TransactionNo     string
	BankCode          string
	PayDate           string
	ResponseCode      string
	TransactionStatus string
	// Amount is in whole VND, already divided back from the wire format.
	Amount int64
}

// Paid reports whether the gateway settled the transaction.
func (r ReturnResult) Paid() bool {
	return r.TransactionStatus == StatusSuccess
}

// Declined reports whether the customer's bank rejected the transaction.
func (r ReturnResult) Declined() bool {
	return r.TransactionStatus == StatusDeclined
}

// VerifyReturn validates the gateway signature on a return redirect and maps
// the parameters. A bad signature yields a CodeForbidden error.
func (c *Client) VerifyReturn(query url.Values) (*ReturnResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "vnpay client not configured")
	}
	received := query.Get("vnp_SecureHash")
	if received == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing gateway signature")
	}

	params := make(map[string]string, len(query))
	for key := range query {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		params[key] = query.Get(key)
	}
	_, expected := signQuery(c.hashSecret, params)
	if !signaturesEqual(expected, received) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "gateway signature mismatch")
	}

	rawAmount := query.Get("vnp_Amount")
	amount, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse gateway amount")
	}

	return &ReturnResult{
		TxnRef:            query.Get("vnp_TxnRef"),
		TransactionNo:     query.Get("vnp_TransactionNo"),
		BankCode:          query.Get("vnp_BankCode"),
		PayDate:           query.Get("vnp_PayDate"),
		ResponseCode:      query.Get("vnp_ResponseCode"),
		TransactionStatus: query.Get("vnp_TransactionStatus"),
		Amount:            amount / 100,
	}, nil
}

// RefundRequest describes a merchant-initiated refund through the
// transaction API.
type RefundRequest struct {
	TxnRef string
	Amount int64
	// TransactionDate is the vnp_CreateDate the checkout redirect was built
	// with, yyyyMMddHHmmss.
	TransactionDate string
	TransactionNo   string
	// TransactionType is "02" for a full refund, "03" for partial.
	TransactionType string
	CreateBy        string
	IPAddr          string
	OrderInfo       string
}

// RefundResponse is the merchant API reply for a refund command.
type RefundResponse struct {
	ResponseID    string `json:"vnp_ResponseId"`
	Command       string `json:"vnp_Command"`
	ResponseCode  string `json:"vnp_ResponseCode"`
	Message       string `json:"vnp_Message"`
	TxnRef        string `json:"vnp_TxnRef"`
	Amount        string `json:"vnp_Amount"`
	TransactionNo string `json:"vnp_TransactionNo"`
}

// Accepted reports whether the gateway accepted the refund command.
func (r RefundResponse) Accepted() bool {
	return r.ResponseCode == StatusSuccess
}

// Refund sends a refund command for a previously settled transaction.
func (c *Client) Refund(ctx context.Context, req RefundRequest) (*RefundResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "vnpay client not configured")
	}
	if strings.TrimSpace(req.TxnRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}
	if req.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if strings.TrimSpace(req.TransactionDate) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "original transaction date is required")
	}

	transactionType := req.TransactionType
	if transactionType == "" {
		transactionType = "02"
	}
	orderInfo := req.OrderInfo
	if orderInfo == "" {
		orderInfo = fmt.Sprintf("Refund order %s", req.TxnRef)
	}

	now := c.now()
	requestID := strconv.FormatInt(now.UnixMilli(), 10)
	createDate := now.Format(createDateLayout)
	wireAmount := strconv.FormatInt(req.Amount*100, 10)

	signature := signFields(c.hashSecret,
		requestID, apiVersion, commandRefund, c.tmnCode,
		transactionType, req.TxnRef, wireAmount, req.TransactionNo,
		req.TransactionDate, req.CreateBy, createDate, req.IPAddr, orderInfo)

	payload := map[string]string{
		"vnp_RequestId":       requestID,
		"vnp_Version":         apiVersion,
		"vnp_Command":         commandRefund,
		"vnp_TmnCode":         c.tmnCode,
		"vnp_TransactionType": transactionType,
		"vnp_TxnRef":          req.TxnRef,
		"vnp_Amount":          wireAmount,
		"vnp_OrderInfo":       orderInfo,
		"vnp_TransactionNo":   req.TransactionNo,
		"vnp_TransactionDate": req.TransactionDate,
		"vnp_CreateBy":        req.CreateBy,
		"vnp_CreateDate":      createDate,
		"vnp_IpAddr":          req.IPAddr,
		"vnp_SecureHash":      signature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal refund request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build refund request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute refund request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "refund request failed")
	}

	var apiResp RefundResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode refund response")
	}
	return &apiResp, nil
}
