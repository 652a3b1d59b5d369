package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"smartwallet-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TokenService issues and validates REST façade API tokens.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
}

// AuditService records façade write operations.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Service Ports (Business Logic) ---

// TransferService is the payment choreography. Each operation is one or more
// ordered steps; see the step comments on the implementation.
type TransferService interface {
	ResolveWallet(ctx context.Context, walletURL string) (*domain.WalletAddress, error)
	ResolveWallets(ctx context.Context, senderURL, receiverURL string) (*domain.WalletAddress, *domain.WalletAddress, error)
	CreateIncomingPayment(ctx context.Context, req IncomingPaymentRequest) (*IncomingPaymentResult, error)
	CreateQuote(ctx context.Context, req QuoteRequest) (*QuoteResult, error)
	InitiateOutgoingPayment(ctx context.Context, req OutgoingPaymentInitiation) (*PendingAuthorization, error)
	CompleteOutgoingPayment(ctx context.Context, req OutgoingPaymentCompletion) (*domain.OutgoingPayment, error)
	PrepareTransfer(ctx context.Context, req TransferRequest) (*PreparedTransfer, error)
	GetTransfer(ctx context.Context, id uuid.UUID) (*domain.TransferAttempt, error)
	CompleteTransfer(ctx context.Context, id uuid.UUID, interactRef string) (*CompletedTransfer, error)
}

// IncomingPaymentRequest asks for an incoming payment on the receiver wallet.
// AssetCode and AssetScale are advisory only: the receiver wallet's own asset
// always wins.
type IncomingPaymentRequest struct {
	ReceiverWalletURL string
	Amount            string
	AssetCode         string
	AssetScale        *uint8
}

// IncomingPaymentResult is the created payment and the wallet it belongs to.
type IncomingPaymentResult struct {
	IncomingPayment *domain.IncomingPayment
	WalletAddress   *domain.WalletAddress
}

// QuoteRequest asks the sender wallet to quote paying an incoming payment.
type QuoteRequest struct {
	SenderWalletURL string
	Receiver        string // incoming payment URL
}

// QuoteResult is the quote and the sender wallet it was issued for.
type QuoteResult struct {
	Quote         *domain.Quote
	WalletAddress *domain.WalletAddress
}

// OutgoingPaymentInitiation asks for an interactive outgoing-payment grant.
type OutgoingPaymentInitiation struct {
	SenderWalletURL string
	QuoteID         string
	DebitAmount     domain.Amount
}

// PendingAuthorization is what the wallet owner and the caller need to
// finish the transfer. GrantID is the continuation URI.
type PendingAuthorization struct {
	GrantID       string
	InteractURL   string
	ContinueToken string
}

// OutgoingPaymentCompletion resumes an authorized outgoing-payment grant.
type OutgoingPaymentCompletion struct {
	SenderWalletURL string
	GrantID         string
	ContinueToken   string
	QuoteID         string
	InteractRef     string
}

// TransferRequest runs steps 1–4 of a peer-to-peer transfer.
type TransferRequest struct {
	SenderWalletURL   string
	ReceiverWalletURL string
	Amount            string
	Currency          string // informational; never used for the payment asset
}

// PreparedTransfer is the state handed to the caller while the sender
// approves the outgoing payment.
type PreparedTransfer struct {
	TransferID      uuid.UUID
	IncomingPayment *domain.IncomingPayment
	Quote           *domain.Quote
	Authorization   PendingAuthorization
	SenderWallet    *domain.WalletAddress
	ReceiverWallet  *domain.WalletAddress
}

// CompletedTransfer is a stored attempt after its outgoing payment exists.
type CompletedTransfer struct {
	Transfer        *domain.TransferAttempt
	OutgoingPayment *domain.OutgoingPayment
}
