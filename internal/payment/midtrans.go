package payment

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cbtpro/cbtpro-backend/internal/config"
	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// ErrGateway wraps every failure talking to Midtrans.
var ErrGateway = errors.New("payment gateway error")

// SnapRequest describes a single-item Snap checkout.
type SnapRequest struct {
	OrderID     string
	GrossAmount int64
	FirstName   string
	LastName    string
	Email       string
	ItemID      string
	ItemName    string
}

// SnapResult is what the client needs to open the Snap checkout.
type SnapResult struct {
	Token       string
	RedirectURL string
}

// MidtransGateway creates Snap transactions and verifies HTTP notifications.
type MidtransGateway struct {
	client    snap.Client
	serverKey string
}

// NewMidtransGateway configures a Snap client for the configured environment.
// Outbound calls are bounded by cfg.PaymentTimeout and never retried.
func NewMidtransGateway(cfg *config.Config) *MidtransGateway {
	midtrans.DefaultGoHttpClient = &http.Client{Timeout: cfg.PaymentTimeout}

	env := midtrans.Sandbox
	if strings.EqualFold(cfg.MidtransEnvironment, "production") {
		env = midtrans.Production
	}

	g := &MidtransGateway{serverKey: cfg.MidtransServerKey}
	g.client.New(cfg.MidtransServerKey, env)
	return g
}

// CreateSnapToken opens a Snap transaction.
func (g *MidtransGateway) CreateSnapToken(ctx context.Context, req SnapRequest) (*SnapResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.GrossAmount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.FirstName,
			LName: req.LastName,
			Email: req.Email,
		},
		CreditCard: &snap.CreditCardDetails{Secure: true},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    req.ItemID,
				Name:  req.ItemName,
				Price: req.GrossAmount,
				Qty:   1,
			},
		},
	}

	resp, merr := g.client.CreateTransaction(snapReq)
	if merr != nil {
		return nil, fmt.Errorf("%w: %s", ErrGateway, merr.Error())
	}
	if resp == nil || resp.Token == "" {
		return nil, fmt.Errorf("%w: empty snap token", ErrGateway)
	}
	return &SnapResult{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// VerifySignature checks signature_key against
// SHA512(order_id + status_code + gross_amount + server_key).
func (g *MidtransGateway) VerifySignature(n *model.PaymentNotification) bool {
	return VerifySignature(n, g.serverKey)
}

// Signature computes the notification signature Midtrans sends.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature compares in constant time.
func VerifySignature(n *model.PaymentNotification, serverKey string) bool {
	if n == nil || n.SignatureKey == "" {
		return false
	}
	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	got := strings.ToLower(n.SignatureKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

// MapTransactionStatus maps a Midtrans transaction_status onto a
// subscription status. Unknown values stay pending.
func MapTransactionStatus(status string) model.SubscriptionStatus {
	switch status {
	case "capture", "settlement":
		return model.SubscriptionActive
	case "deny", "cancel", "expire":
		return model.SubscriptionExpired
	default:
		return model.SubscriptionPending
	}
}
