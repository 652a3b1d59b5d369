package ports

//go:generate mockgen -source=openpayments.go -destination=mocks/mock_openpayments.go -package=mocks

import (
	"context"

	"smartwallet-gateway/internal/core/domain"
)

// PaymentClient is the capability set of an Open Payments client holding a
// signing identity. Each call is a single request/response; the client keeps
// no session state besides the identity it was built with.
//
// Failures are *apperror.AppError values: RES_001 when a wallet cannot be
// resolved, GRANT_002 when a continuation comes before user approval, OP_001
// for every other upstream failure.
type PaymentClient interface {
	ResolveWallet(ctx context.Context, walletURL string) (*domain.WalletAddress, error)
	RequestGrant(ctx context.Context, authServer string, req domain.GrantRequest) (*domain.Grant, error)
	ContinueGrant(ctx context.Context, continueURI, continueToken, interactRef string) (*domain.Grant, error)
	CreateIncomingPayment(ctx context.Context, resourceServer, accessToken string, spec domain.IncomingPaymentSpec) (*domain.IncomingPayment, error)
	CreateQuote(ctx context.Context, resourceServer, accessToken string, spec domain.QuoteSpec) (*domain.Quote, error)
	CreateOutgoingPayment(ctx context.Context, resourceServer, accessToken string, spec domain.OutgoingPaymentSpec) (*domain.OutgoingPayment, error)
}
