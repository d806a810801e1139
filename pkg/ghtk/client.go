package ghtk

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
	shipmentOrderPath      = "/services/shipment/order"
	shipmentCancelPath     = "/services/shipment/cancel"
	shipmentFeePath        = "/services/shipment/fee"
	tokenHeader            = "Token"
	defaultFreeShip        = "1"
	bodyReadLimit    int64 = 4096
)

var errTokenRequired = errors.New("carrier token is required")

// PickupPoint is the fixed shop origin every shipment is collected from.
type PickupPoint struct {
	Name     string
	Tel      string
	Address  string
	Province string
	District string
}

// Client talks to the GiaoHangTietKiem shipment API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	pickup     PickupPoint
	hamlet     string
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

// NewClient builds the carrier client from configuration.
func NewClient(cfg config.GHTKConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errTokenRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		token:      strings.TrimSpace(cfg.Token),
		pickup: PickupPoint{
			Name:     cfg.PickName,
			Tel:      cfg.PickTel,
			Address:  cfg.PickAddress,
			Province: cfg.PickProvince,
			District: cfg.PickDistrict,
		},
		hamlet: cfg.Hamlet,
	}
	if client.hamlet == "" {
		client.hamlet = "Khác"
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ShipmentProduct is a line item declared on the carrier manifest.
type ShipmentProduct struct {
	Name     string  `json:"name"`
	Price    int64   `json:"price"`
	Quantity int     `json:"quantity"`
	Weight   float64 `json:"weight"`
}

// ShipmentRequest describes a new delivery order handed to the carrier.
type ShipmentRequest struct {
	OrderID  string
	Products []ShipmentProduct

	// Receiver.
	Name     string
	Tel      string
	Address  string
	Province string
	District string
	Ward     string

	// PickMoney is the cash amount the courier collects on delivery;
	// zero for prepaid orders.
	PickMoney int64
	// Value is the declared goods value used for carrier insurance.
	Value   int64
	Note    string
	Express bool
}

type shipmentOrderPayload struct {
	ID            string `json:"id"`
	PickName      string `json:"pick_name"`
	PickTel       string `json:"pick_tel"`
	PickAddress   string `json:"pick_address"`
	PickProvince  string `json:"pick_province"`
	PickDistrict  string `json:"pick_district"`
	Name          string `json:"name"`
	Tel           string `json:"tel"`
	Address       string `json:"address"`
	Province      string `json:"province"`
	District      string `json:"district"`
	Ward          string `json:"ward"`
	Hamlet        string `json:"hamlet"`
	IsFreeship    string `json:"is_freeship"`
	PickMoney     int64  `json:"pick_money"`
	Value         int64  `json:"value"`
	Note          string `json:"note,omitempty"`
	Transport     string `json:"transport"`
	DeliverOption string `json:"deliver_option"`
}

type apiEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Order   *struct {
		Label string `json:"label"`
	} `json:"order"`
	Fee *struct {
		Fee int64 `json:"fee"`
	} `json:"fee"`
}

// PostShipment registers a delivery order and returns the carrier label.
func (c *Client) PostShipment(ctx context.Context, req ShipmentRequest) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "carrier client not configured")
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order ID is required")
	}
	if len(req.Products) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shipment requires at least one product")
	}

	deliverOption := "none"
	if req.Express {
		deliverOption = "xteam"
	}
	payload := struct {
		Products []ShipmentProduct    `json:"products"`
		Order    shipmentOrderPayload `json:"order"`
	}{
		Products: req.Products,
		Order: shipmentOrderPayload{
			ID:            req.OrderID,
			PickName:      c.pickup.Name,
			PickTel:       c.pickup.Tel,
			PickAddress:   c.pickup.Address,
			PickProvince:  c.pickup.Province,
			PickDistrict:  c.pickup.District,
			Name:          req.Name,
			Tel:           req.Tel,
			Address:       req.Address,
			Province:      req.Province,
			District:      req.District,
			Ward:          req.Ward,
			Hamlet:        c.hamlet,
			IsFreeship:    defaultFreeShip,
			PickMoney:     req.PickMoney,
			Value:         req.Value,
			Note:          req.Note,
			Transport:     "road",
			DeliverOption: deliverOption,
		},
	}

	envelope, err := c.do(ctx, http.MethodPost, shipmentOrderPath, payload)
	if err != nil {
		return "", err
	}
	if !envelope.Success {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("carrier rejected shipment: %s", envelope.Message))
	}
	if envelope.Order == nil || envelope.Order.Label == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "carrier response missing shipment label")
	}
	return envelope.Order.Label, nil
}

// CancelShipment voids a shipment by its carrier label. A shipment the
// carrier has already cancelled is treated as success.
func (c *Client) CancelShipment(ctx context.Context, label string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "carrier client not configured")
	}
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipment label is required")
	}

	path := fmt.Sprintf("%s/%s", shipmentCancelPath, url.PathEscape(trimmed))
	envelope, err := c.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return err
	}
	if !envelope.Success && !alreadyCancelled(envelope.Message) {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("carrier refused cancellation: %s", envelope.Message))
	}
	return nil
}

// FeeRequest describes a delivery fee quote lookup.
type FeeRequest struct {
	Address  string
	Province string
	District string
	// Weight is the total parcel weight in grams.
	Weight int64
	// Value is the declared goods value in VND.
	Value   int64
	Express bool
}

// ShipmentFee quotes the delivery fee for a destination in whole VND.
func (c *Client) ShipmentFee(ctx context.Context, req FeeRequest) (int64, error) {
	if c == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "carrier client not configured")
	}
	if strings.TrimSpace(req.Province) == "" || strings.TrimSpace(req.District) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "destination province and district are required")
	}

	deliverOption := "none"
	if req.Express {
		deliverOption = "xteam"
	}
	query := url.Values{}
	query.Set("pick_province", c.pickup.Province)
	query.Set("pick_district", c.pickup.District)
	query.Set("province", req.Province)
	query.Set("district", req.District)
	query.Set("address", req.Address)
	query.Set("weight", strconv.FormatInt(req.Weight, 10))
	query.Set("value", strconv.FormatInt(req.Value, 10))
	query.Set("deliver_option", deliverOption)

	envelope, err := c.do(ctx, http.MethodGet, shipmentFeePath+"?"+query.Encode(), nil)
	if err != nil {
		return 0, err
	}
	if !envelope.Success {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("carrier fee lookup failed: %s", envelope.Message))
	}
	if envelope.Fee == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "carrier response missing fee")
	}
	return envelope.Fee.Fee, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*apiEnvelope, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal carrier request")
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build carrier request")
	}
	httpReq.Header.Set(tokenHeader, c.token)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute carrier request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, bodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read carrier response")
	}

	// The carrier reports business failures inside the envelope, often
	// with a non-200 status; surface the envelope and let callers decide.
	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), "decode carrier response")
	}
	return &envelope, nil
}

// The carrier reports an already-voided shipment as a failure; the order is
// in the state we want either way.
func alreadyCancelled(message string) bool {
	lowered := strings.ToLower(message)
	return strings.Contains(lowered, "đã hủy") || strings.Contains(lowered, "already cancel")
}
