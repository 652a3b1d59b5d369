package domain

import "time"

// IncomingPayment is the receiver-side record of a transfer.
type IncomingPayment struct {
	ID             string     `json:"id"`
	WalletAddress  string     `json:"walletAddress"`
	IncomingAmount *Amount    `json:"incomingAmount,omitempty"`
	ReceivedAmount *Amount    `json:"receivedAmount,omitempty"`
	Completed      bool       `json:"completed"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Quote prices moving funds from the sender wallet to an incoming payment.
type Quote struct {
	ID            string     `json:"id"`
	WalletAddress string     `json:"walletAddress"`
	Receiver      string     `json:"receiver"`
	DebitAmount   Amount     `json:"debitAmount"`
	ReceiveAmount Amount     `json:"receiveAmount"`
	Method        string     `json:"method"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// OutgoingPayment is the sender-side record; creating it completes the
// transfer.
type OutgoingPayment struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"walletAddress"`
	QuoteID       string    `json:"quoteId"`
	Receiver      string    `json:"receiver,omitempty"`
	DebitAmount   *Amount   `json:"debitAmount,omitempty"`
	ReceiveAmount *Amount   `json:"receiveAmount,omitempty"`
	SentAmount    *Amount   `json:"sentAmount,omitempty"`
	Failed        bool      `json:"failed"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PaymentMethodILP is the settlement method every quote uses.
const PaymentMethodILP = "ilp"

// IncomingPaymentSpec is the body of an incoming-payment creation.
type IncomingPaymentSpec struct {
	WalletAddress  string
	IncomingAmount Amount
	ExpiresAt      *time.Time
	Metadata       map[string]any
}

// QuoteSpec is the body of a quote creation.
type QuoteSpec struct {
	WalletAddress string
	Receiver      string
	Method        string
}

// OutgoingPaymentSpec is the body of an outgoing-payment creation.
type OutgoingPaymentSpec struct {
	WalletAddress string
	QuoteID       string
	Metadata      map[string]any
}
