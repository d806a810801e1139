package vnpay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/thanhcle/lunaria-backend/pkg/config"
)

func testConfig() config.VNPayConfig {
	return config.VNPayConfig{
		TmnCode:      "LUNARIA1",
		HashSecret:   "sandbox-secret",
		PayURL:       "https://gateway.test/vpcpay.html",
		APIURL:       "https://gateway.test/merchant_webapi/api/transaction",
		CurrencyCode: "VND",
		Timeout:      5 * time.Second,
	}
}

func fixedClock() func() time.Time {
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestBuildPayURLSignedAndVerifiable(t *testing.T) {
	client, err := NewClient(testConfig(), WithClock(fixedClock()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	built, err := client.BuildPayURL(PayURLRequest{
		TxnRef:    "AB12CD34EF",
		Amount:    255000,
		OrderInfo: "Thanh toan don hang AB12CD34EF",
		ReturnURL: "https://shop.test/api/public/payments/vnpay-return",
		IPAddr:    "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("build pay url: %v", err)
	}
	if built.CreateDate != "20240315103000" {
		t.Fatalf("unexpected create date %q", built.CreateDate)
	}

	parsed, err := url.Parse(built.URL)
	if err != nil {
		t.Fatalf("parse pay url: %v", err)
	}
	query := parsed.Query()
	if got := query.Get("vnp_Amount"); got != "25500000" {
		t.Fatalf("amount not in wire format: %q", got)
	}
	if got := query.Get("vnp_CreateDate"); got != "20240315103000" {
		t.Fatalf("unexpected create date %q", got)
	}
	if query.Get("vnp_SecureHash") == "" {
		t.Fatal("pay url missing signature")
	}

	// The gateway echoes the same signing scheme back on the return
	// redirect; a URL we signed must verify against our own secret.
	query.Set("vnp_TransactionStatus", StatusSuccess)
	query.Set("vnp_ResponseCode", "00")
	params := make(map[string]string)
	for k := range query {
		if k == "vnp_SecureHash" {
			continue
		}
		params[k] = query.Get(k)
	}
	_, sig := signQuery("sandbox-secret", params)
	query.Set("vnp_SecureHash", sig)

	result, err := client.VerifyReturn(query)
	if err != nil {
		t.Fatalf("verify return: %v", err)
	}
	if !result.Paid() {
		t.Fatalf("expected paid result, got %+v", result)
	}
	if result.Amount != 255000 {
		t.Fatalf("amount not divided back: %d", result.Amount)
	}
	if result.TxnRef != "AB12CD34EF" {
		t.Fatalf("unexpected txn ref %q", result.TxnRef)
	}
}

func TestVerifyReturnRejectsTamperedAmount(t *testing.T) {
	client, err := NewClient(testConfig(), WithClock(fixedClock()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	params := map[string]string{
		"vnp_TmnCode":           "LUNARIA1",
		"vnp_TxnRef":            "AB12CD34EF",
		"vnp_Amount":            "25500000",
		"vnp_ResponseCode":      "00",
		"vnp_TransactionStatus": StatusSuccess,
	}
	_, sig := signQuery("sandbox-secret", params)

	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("vnp_SecureHash", sig)
	query.Set("vnp_Amount", "100")

	if _, err := client.VerifyReturn(query); err == nil {
		t.Fatal("tampered query passed verification")
	}
}

func TestVerifyReturnDeclined(t *testing.T) {
	client, err := NewClient(testConfig())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	params := map[string]string{
		"vnp_TxnRef":            "AB12CD34EF",
		"vnp_Amount":            "25500000",
		"vnp_ResponseCode":      "24",
		"vnp_TransactionStatus": StatusDeclined,
	}
	_, sig := signQuery("sandbox-secret", params)
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("vnp_SecureHash", sig)

	result, err := client.VerifyReturn(query)
	if err != nil {
		t.Fatalf("verify return: %v", err)
	}
	if result.Paid() || !result.Declined() {
		t.Fatalf("expected declined result, got %+v", result)
	}
}

func TestSignQueryEncodesSpacesAsPlus(t *testing.T) {
	hashData, _ := signQuery("secret", map[string]string{
		"vnp_OrderInfo": "Thanh toan don hang",
		"vnp_TxnRef":    "ABC",
	})
	if !strings.Contains(hashData, "Thanh+toan+don+hang") {
		t.Fatalf("spaces not encoded as plus: %q", hashData)
	}
	if !strings.HasPrefix(hashData, "vnp_OrderInfo=") {
		t.Fatalf("keys not sorted: %q", hashData)
	}
}

func TestRefundSignsPipeJoinedFields(t *testing.T) {
	var capturedBody map[string]string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if err := json.Unmarshal(bodyBytes, &capturedBody); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		respBody := `{"vnp_ResponseId":"1","vnp_Command":"refund","vnp_ResponseCode":"00","vnp_Message":"Success","vnp_TxnRef":"AB12CD34EF"}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), WithClock(fixedClock()), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	resp, err := client.Refund(context.Background(), RefundRequest{
		TxnRef:          "AB12CD34EF",
		Amount:          255000,
		TransactionDate: "20240315103000",
		TransactionNo:   "14226112",
		CreateBy:        "system",
		IPAddr:          "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if !resp.Accepted() {
		t.Fatalf("expected accepted refund, got %+v", resp)
	}

	expected := signFields("sandbox-secret",
		capturedBody["vnp_RequestId"], apiVersion, commandRefund, "LUNARIA1",
		"02", "AB12CD34EF", "25500000", "14226112",
		"20240315103000", "system", capturedBody["vnp_CreateDate"], "203.0.113.7",
		capturedBody["vnp_OrderInfo"])
	if capturedBody["vnp_SecureHash"] != expected {
		t.Fatalf("refund signature mismatch: %q", capturedBody["vnp_SecureHash"])
	}
	if capturedBody["vnp_TransactionType"] != "02" {
		t.Fatalf("default transaction type not applied: %q", capturedBody["vnp_TransactionType"])
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
