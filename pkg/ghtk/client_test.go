package ghtk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/thanhcle/lunaria-backend/pkg/config"
)

func testConfig() config.GHTKConfig {
	return config.GHTKConfig{
		Token:        "test-token",
		Endpoint:     "http://carrier.test",
		Timeout:      5 * time.Second,
		PickName:     "Lunaria Store",
		PickTel:      "0901234567",
		PickAddress:  "12 Nguyen Trai",
		PickProvince: "Hà Nội",
		PickDistrict: "Quận Thanh Xuân",
	}
}

func TestPostShipmentReturnsLabel(t *testing.T) {
	var capturedURL string
	var capturedToken string
	var capturedBody map[string]any

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedToken = req.Header.Get("Token")
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if err := json.Unmarshal(bodyBytes, &capturedBody); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		respBody := `{"success":true,"order":{"label":"S1.A1.17373471"}}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	label, err := client.PostShipment(context.Background(), ShipmentRequest{
		OrderID: "AB12CD34EF",
		Products: []ShipmentProduct{
			{Name: "Áo thun", Price: 120000, Quantity: 2, Weight: 0.2},
		},
		Name:      "Tran Van A",
		Tel:       "0912345678",
		Address:   "45 Le Loi",
		Province:  "Đà Nẵng",
		District:  "Quận Hải Châu",
		Ward:      "Phường Thạch Thang",
		PickMoney: 255000,
		Value:     240000,
	})
	if err != nil {
		t.Fatalf("post shipment: %v", err)
	}
	if label != "S1.A1.17373471" {
		t.Fatalf("unexpected label %q", label)
	}
	if capturedURL != "http://carrier.test/services/shipment/order" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedToken != "test-token" {
		t.Fatal("token header missing")
	}

	order, ok := capturedBody["order"].(map[string]any)
	if !ok {
		t.Fatalf("order payload missing: %+v", capturedBody)
	}
	if order["pick_province"] != "Hà Nội" {
		t.Fatalf("pickup origin not applied: %v", order["pick_province"])
	}
	if order["hamlet"] != "Khác" {
		t.Fatalf("default hamlet not applied: %v", order["hamlet"])
	}
	if order["pick_money"] != float64(255000) {
		t.Fatalf("unexpected pick money %v", order["pick_money"])
	}
}

func TestPostShipmentRejected(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		respBody := `{"success":false,"message":"Địa chỉ không hợp lệ"}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.PostShipment(context.Background(), ShipmentRequest{
		OrderID:  "AB12CD34EF",
		Products: []ShipmentProduct{{Name: "Áo thun", Quantity: 1}},
	})
	if err == nil {
		t.Fatal("expected rejection error")
	}
}

func TestCancelShipmentAlreadyCancelledIsSuccess(t *testing.T) {
	var capturedURL string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		respBody := `{"success":false,"message":"Đơn hàng đã hủy trước đó"}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := client.CancelShipment(context.Background(), "S1.A1.17373471"); err != nil {
		t.Fatalf("already-cancelled shipment should not error: %v", err)
	}
	if capturedURL != "http://carrier.test/services/shipment/cancel/S1.A1.17373471" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
}

func TestCancelShipmentRefused(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		respBody := `{"success":false,"message":"Đơn hàng đang giao"}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := client.CancelShipment(context.Background(), "S1.A1.17373471"); err == nil {
		t.Fatal("expected refusal error")
	}
}

func TestShipmentFee(t *testing.T) {
	var capturedURL string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		respBody := `{"success":true,"fee":{"fee":32000}}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	fee, err := client.ShipmentFee(context.Background(), FeeRequest{
		Address:  "45 Le Loi",
		Province: "Đà Nẵng",
		District: "Quận Hải Châu",
		Weight:   400,
		Value:    240000,
	})
	if err != nil {
		t.Fatalf("shipment fee: %v", err)
	}
	if fee != 32000 {
		t.Fatalf("unexpected fee %d", fee)
	}
	if !strings.Contains(capturedURL, "/services/shipment/fee?") {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if !strings.Contains(capturedURL, "pick_province=") {
		t.Fatalf("pickup origin missing from query: %q", capturedURL)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
