package dto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"smartwallet-gateway/internal/core/domain"
)

// Amount is a minor-unit value that clients may send either as a JSON string
// ("1000") or as a JSON integer (1000).
type Amount string

// UnmarshalJSON accepts a string or a bare number. Numbers keep their literal
// text so "10.5" or "-3" reach validation unchanged.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("amount must be a string or a number")
		}
		*a = Amount(n.String())
		return nil
	}
}

// AmountBody is an amount with its asset, as Open Payments writes it.
type AmountBody struct {
	Value      string `json:"value" binding:"required,minor_units"`
	AssetCode  string `json:"assetCode" binding:"required,max=16"`
	AssetScale uint8  `json:"assetScale"`
}

// ToDomain converts the body to a domain.Amount.
func (a AmountBody) ToDomain() domain.Amount {
	return domain.Amount{Value: a.Value, AssetCode: a.AssetCode, AssetScale: a.AssetScale}
}

// IncomingPaymentRequest is the body of POST /api/incoming-payment.
// AssetCode and AssetScale are accepted but the receiver wallet's asset wins.
type IncomingPaymentRequest struct {
	ReceiverWalletURL string `json:"receiverWalletUrl" binding:"required,wallet_url" sanitize:"trim"`
	Amount            Amount `json:"amount" binding:"required,minor_units"`
	AssetCode         string `json:"assetCode,omitempty" binding:"omitempty,max=16"`
	AssetScale        *uint8 `json:"assetScale,omitempty"`
}

// IncomingPaymentResponse is the result of POST /api/incoming-payment.
type IncomingPaymentResponse struct {
	IncomingPayment *domain.IncomingPayment `json:"incomingPayment"`
	WalletAddress   *domain.WalletAddress   `json:"walletAddress"`
}

// QuoteRequest is the body of POST /api/quote.
type QuoteRequest struct {
	SenderWalletURL    string `json:"senderWalletUrl" binding:"required,wallet_url" sanitize:"trim"`
	ReceiverPaymentURL string `json:"receiverPaymentUrl" binding:"required,safe_url" sanitize:"trim"`
}

// QuoteResponse is the result of POST /api/quote.
type QuoteResponse struct {
	Quote         *domain.Quote         `json:"quote"`
	WalletAddress *domain.WalletAddress `json:"walletAddress"`
}

// OutgoingPaymentInitiateRequest is the body of POST /api/outgoing-payment/initiate.
type OutgoingPaymentInitiateRequest struct {
	SenderWalletURL string      `json:"senderWalletUrl" binding:"required,wallet_url" sanitize:"trim"`
	QuoteID         string      `json:"quoteId" binding:"required,safe_url" sanitize:"trim"`
	DebitAmount     *AmountBody `json:"debitAmount" binding:"required"`
}

// OutgoingPaymentInitiateResponse carries what the sender needs to approve
// the payment. GrantID is the continuation URI.
type OutgoingPaymentInitiateResponse struct {
	GrantID       string `json:"grantId"`
	InteractURL   string `json:"interactUrl"`
	ContinueToken string `json:"continueToken"`
}

// OutgoingPaymentCompleteRequest is the body of POST /api/outgoing-payment/complete.
type OutgoingPaymentCompleteRequest struct {
	SenderWalletURL string `json:"senderWalletUrl" binding:"required,wallet_url" sanitize:"trim"`
	GrantID         string `json:"grantId" binding:"required,safe_url" sanitize:"trim"`
	ContinueToken   string `json:"continueToken" binding:"required" sanitize:"trim"`
	QuoteID         string `json:"quoteId" binding:"required,safe_url" sanitize:"trim"`
	InteractRef     string `json:"interactRef,omitempty" sanitize:"trim"`
}

// OutgoingPaymentCompleteResponse is the result of POST /api/outgoing-payment/complete.
type OutgoingPaymentCompleteResponse struct {
	OutgoingPayment *domain.OutgoingPayment `json:"outgoingPayment"`
}

// TransferRequest is the body of POST /api/transfer/simple.
type TransferRequest struct {
	SenderWalletURL   string `json:"senderWalletUrl" binding:"required,wallet_url" sanitize:"trim"`
	ReceiverWalletURL string `json:"receiverWalletUrl" binding:"required,wallet_url" sanitize:"trim"`
	Amount            Amount `json:"amount" binding:"required,minor_units"`
	Currency          string `json:"currency,omitempty" binding:"omitempty,max=16"`
}

// TransferResponse is the result of POST /api/transfer/simple.
type TransferResponse struct {
	TransferID       string                  `json:"transferId"`
	IncomingPayment  *domain.IncomingPayment `json:"incomingPayment"`
	Quote            *domain.Quote           `json:"quote"`
	AuthorizationURL string                  `json:"authorizationUrl"`
	GrantID          string                  `json:"grantId"`
	ContinueToken    string                  `json:"continueToken"`
	SenderWallet     *domain.WalletAddress   `json:"senderWallet"`
	ReceiverWallet   *domain.WalletAddress   `json:"receiverWallet"`
}

// TransferCompleteRequest is the optional body of POST /api/transfer/:id/complete.
type TransferCompleteRequest struct {
	InteractRef string `json:"interactRef,omitempty" sanitize:"trim"`
}

// TransferCompleteResponse is the result of POST /api/transfer/:id/complete.
type TransferCompleteResponse struct {
	OutgoingPayment *domain.OutgoingPayment `json:"outgoingPayment"`
	Transfer        *domain.TransferAttempt `json:"transfer"`
}
