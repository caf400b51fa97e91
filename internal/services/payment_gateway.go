package services

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/config"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// GatewayEnvironmentURLs maps environment names to charge endpoint URLs
var GatewayEnvironmentURLs = map[string]string{
	"sandbox":    "https://sandboxipg.payhive.lk/charge",
	"production": "https://ipg.payhive.lk/charge",
}

// ChargeRequest carries everything the gateway needs for one charge. The
// reservation ID doubles as the merchant invoice reference, which is what
// makes retrying a charge for the same reservation safe on the gateway side.
type ChargeRequest struct {
	ReservationID uuid.UUID
	Amount        float64
	Currency      string
	CustomerName  string
	CustomerPhone string
}

// ChargeOutcome is the gateway's verdict on a charge attempt.
type ChargeOutcome struct {
	Succeeded  bool
	GatewayRef string
	Message    string
}

// PaymentGateway executes charges against the external payment collaborator.
// Charge must be safe to retry for the same reservation.
type PaymentGateway interface {
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeOutcome, error)
}

// HTTPPaymentGateway is the production gateway client.
type HTTPPaymentGateway struct {
	config *config.PaymentConfig
	logger *logrus.Logger
	client *http.Client
}

// NewHTTPPaymentGateway creates a new gateway client
func NewHTTPPaymentGateway(cfg *config.PaymentConfig, logger *logrus.Logger) *HTTPPaymentGateway {
	return &HTTPPaymentGateway{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured reports whether merchant credentials are present.
func (g *HTTPPaymentGateway) IsConfigured() bool {
	return g.config.MerchantKey != "" && g.config.MerchantToken != ""
}

// checkValue creates the SHA-512 request signature:
// hash1 = SHA512(merchantToken) uppercase hex,
// then SHA512("merchantKey|invoiceId|amount|currency|hash1") uppercase hex.
func (g *HTTPPaymentGateway) checkValue(invoiceID, amount, currency string) string {
	hash1 := sha512.Sum512([]byte(g.config.MerchantToken))
	hash1Hex := strings.ToUpper(hex.EncodeToString(hash1[:]))

	data := fmt.Sprintf("%s|%s|%s|%s|%s", g.config.MerchantKey, invoiceID, amount, currency, hash1Hex)
	hash2 := sha512.Sum512([]byte(data))
	return strings.ToUpper(hex.EncodeToString(hash2[:]))
}

type gatewayChargeRequest struct {
	MerchantKey   string `json:"merchantKey"`
	InvoiceID     string `json:"invoiceId"`
	Amount        string `json:"amount"`
	CurrencyCode  string `json:"currencyCode"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
	ReturnURL     string `json:"returnUrl,omitempty"`
	WebhookURL    string `json:"webhookUrl,omitempty"`
	CheckValue    string `json:"checkValue"`
}

type gatewayChargeResponse struct {
	Status        string `json:"status"` // "success" or "error"
	PaymentStatus string `json:"paymentStatus"`
	UID           string `json:"uid"`
	Message       string `json:"message,omitempty"`
}

// Charge executes a synchronous charge. A declined card comes back as a
// non-succeeded outcome with a nil error; transport and protocol failures are
// returned as errors so the coordinator can treat them as payment failure.
func (g *HTTPPaymentGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeOutcome, error) {
	if !g.IsConfigured() {
		return nil, fmt.Errorf("payment gateway not configured: missing merchant credentials")
	}

	endpointURL, ok := GatewayEnvironmentURLs[g.config.Environment]
	if !ok {
		endpointURL = GatewayEnvironmentURLs["sandbox"]
	}

	invoiceID := req.ReservationID.String()
	amount := fmt.Sprintf("%.2f", req.Amount)
	currency := req.Currency
	if currency == "" {
		currency = "LKR"
	}

	body := &gatewayChargeRequest{
		MerchantKey:   g.config.MerchantKey,
		InvoiceID:     invoiceID,
		Amount:        amount,
		CurrencyCode:  currency,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		ReturnURL:     g.config.ReturnURL,
		WebhookURL:    g.config.WebhookURL,
		CheckValue:    g.checkValue(invoiceID, amount, currency),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	g.logger.WithFields(logrus.Fields{
		"invoice_id":  invoiceID,
		"amount":      amount,
		"environment": g.config.Environment,
	}).Info("Sending charge to payment gateway")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed gatewayChargeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}

	outcome := &ChargeOutcome{
		Succeeded:  parsed.Status == "success" && strings.EqualFold(parsed.PaymentStatus, "success"),
		GatewayRef: parsed.UID,
		Message:    parsed.Message,
	}
	return outcome, nil
}
