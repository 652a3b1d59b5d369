package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartwallet-gateway/internal/adapter/metrics"
	"smartwallet-gateway/internal/core/domain"
	"smartwallet-gateway/internal/core/ports"
	"smartwallet-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Choreography step names, used as metric labels.
const (
	stepResolveWallets  = "resolve_wallets"
	stepIncomingPayment = "incoming_payment"
	stepQuote           = "quote"
	stepOutgoingGrant   = "outgoing_grant"
	stepContinueGrant   = "continue_grant"
	stepOutgoingPayment = "outgoing_payment"
)

// TransferServiceImpl implements ports.TransferService on top of an Open
// Payments client. It holds no per-transfer state; pending transfers live in
// the repository.
type TransferServiceImpl struct {
	client   ports.PaymentClient
	repo     ports.TransferRepository
	cache    ports.TransferCache // optional
	cacheTTL time.Duration
	encSvc   ports.EncryptionService
	metrics  *metrics.Recorder
	log      zerolog.Logger
	now      func() time.Time
}

// NewTransferService creates a new TransferServiceImpl. cache and rec may be
// nil.
func NewTransferService(
	client ports.PaymentClient,
	repo ports.TransferRepository,
	cache ports.TransferCache,
	cacheTTL time.Duration,
	encSvc ports.EncryptionService,
	rec *metrics.Recorder,
	log zerolog.Logger,
) *TransferServiceImpl {
	return &TransferServiceImpl{
		client:   client,
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		encSvc:   encSvc,
		metrics:  rec,
		log:      log,
		now:      time.Now,
	}
}

var _ ports.TransferService = (*TransferServiceImpl)(nil)

// ResolveWallet looks up a single wallet address.
func (s *TransferServiceImpl) ResolveWallet(ctx context.Context, walletURL string) (*domain.WalletAddress, error) {
	if walletURL == "" {
		return nil, apperror.Validation("walletUrl is required")
	}
	return s.client.ResolveWallet(ctx, walletURL)
}

// ResolveWallets is step 1: both lookups run in parallel.
func (s *TransferServiceImpl) ResolveWallets(ctx context.Context, senderURL, receiverURL string) (*domain.WalletAddress, *domain.WalletAddress, error) {
	if senderURL == "" || receiverURL == "" {
		return nil, nil, apperror.Validation("senderWalletUrl and receiverWalletUrl are required")
	}

	var sender, receiver *domain.WalletAddress
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := s.client.ResolveWallet(gctx, senderURL)
		sender = w
		return err
	})
	g.Go(func() error {
		w, err := s.client.ResolveWallet(gctx, receiverURL)
		receiver = w
		return err
	})
	err := g.Wait()
	s.record(stepResolveWallets, err)
	if err != nil {
		return nil, nil, err
	}
	return sender, receiver, nil
}

// CreateIncomingPayment is step 2 on its own: resolve the receiver, then
// create an incoming payment in the receiver's asset.
func (s *TransferServiceImpl) CreateIncomingPayment(ctx context.Context, req ports.IncomingPaymentRequest) (*ports.IncomingPaymentResult, error) {
	if req.ReceiverWalletURL == "" {
		return nil, apperror.Validation("receiverWalletUrl is required")
	}
	amount, err := validateAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	receiver, err := s.client.ResolveWallet(ctx, req.ReceiverWalletURL)
	if err != nil {
		return nil, err
	}

	if req.AssetCode != "" && req.AssetCode != receiver.AssetCode ||
		req.AssetScale != nil && *req.AssetScale != receiver.AssetScale {
		s.log.Warn().
			Str("wallet", receiver.ID).
			Str("requested_asset", req.AssetCode).
			Str("wallet_asset", receiver.AssetCode).
			Msg("ignoring caller asset, using receiver wallet asset")
	}

	payment, err := s.createIncomingPayment(ctx, receiver, amount)
	if err != nil {
		return nil, err
	}
	return &ports.IncomingPaymentResult{IncomingPayment: payment, WalletAddress: receiver}, nil
}

// CreateQuote is step 3 on its own.
func (s *TransferServiceImpl) CreateQuote(ctx context.Context, req ports.QuoteRequest) (*ports.QuoteResult, error) {
	if req.SenderWalletURL == "" || req.Receiver == "" {
		return nil, apperror.Validation("senderWalletUrl and receiverPaymentUrl are required")
	}

	sender, err := s.client.ResolveWallet(ctx, req.SenderWalletURL)
	if err != nil {
		return nil, err
	}

	quote, err := s.createQuote(ctx, sender, req.Receiver)
	if err != nil {
		return nil, err
	}
	return &ports.QuoteResult{Quote: quote, WalletAddress: sender}, nil
}

// InitiateOutgoingPayment is step 4: request the interactive outgoing-payment
// grant and hand back what the wallet owner needs to approve it.
func (s *TransferServiceImpl) InitiateOutgoingPayment(ctx context.Context, req ports.OutgoingPaymentInitiation) (*ports.PendingAuthorization, error) {
	if req.SenderWalletURL == "" || req.QuoteID == "" {
		return nil, apperror.Validation("senderWalletUrl and quoteId are required")
	}
	if !domain.IsPositiveMinorUnits(req.DebitAmount.Value) || req.DebitAmount.AssetCode == "" {
		return nil, apperror.Validation("debitAmount must carry a positive value and an asset code")
	}

	sender, err := s.client.ResolveWallet(ctx, req.SenderWalletURL)
	if err != nil {
		return nil, err
	}
	return s.requestOutgoingGrant(ctx, sender, req.DebitAmount)
}

// CompleteOutgoingPayment is steps 5b and 6: continue the grant, then create
// the outgoing payment. GRANT_002 means the owner has not approved yet and the
// same call may be retried.
func (s *TransferServiceImpl) CompleteOutgoingPayment(ctx context.Context, req ports.OutgoingPaymentCompletion) (*domain.OutgoingPayment, error) {
	if req.SenderWalletURL == "" || req.GrantID == "" || req.ContinueToken == "" || req.QuoteID == "" {
		return nil, apperror.Validation("senderWalletUrl, grantId, continueToken and quoteId are required")
	}

	grant, err := s.continueGrant(ctx, req.GrantID, req.ContinueToken, req.InteractRef)
	if err != nil {
		return nil, err
	}

	sender, err := s.client.ResolveWallet(ctx, req.SenderWalletURL)
	if err != nil {
		return nil, err
	}
	return s.createOutgoingPayment(ctx, sender, grant, req.QuoteID)
}

// PrepareTransfer runs steps 1 to 4 and stores the attempt while the sender
// approves the payment. Nothing created upstream is rolled back on failure.
func (s *TransferServiceImpl) PrepareTransfer(ctx context.Context, req ports.TransferRequest) (*ports.PreparedTransfer, error) {
	if req.SenderWalletURL == "" || req.ReceiverWalletURL == "" {
		return nil, apperror.Validation("senderWalletUrl and receiverWalletUrl are required")
	}
	amount, err := validateAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	attempt := &domain.TransferAttempt{
		ID:        uuid.New(),
		State:     domain.TransferStateInit,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	log := s.log.With().Str("transfer_id", attempt.ID.String()).Logger()

	// 1. Wallets
	sender, receiver, err := s.ResolveWallets(ctx, req.SenderWalletURL, req.ReceiverWalletURL)
	if err != nil {
		return nil, err
	}
	attempt.SenderWallet = sender.ID
	attempt.ReceiverWallet = receiver.ID
	s.advance(attempt, domain.TransferStateWalletsResolved)
	if req.Currency != "" && req.Currency != receiver.AssetCode {
		log.Warn().Str("currency", req.Currency).Str("wallet_asset", receiver.AssetCode).Msg("ignoring requested currency")
	}

	// 2. Incoming payment
	incoming, err := s.createIncomingPayment(ctx, receiver, amount)
	if err != nil {
		return nil, err
	}
	attempt.IncomingPaymentID = incoming.ID
	s.advance(attempt, domain.TransferStateIncomingPaymentCreated)

	// 3. Quote
	quote, err := s.createQuote(ctx, sender, incoming.ID)
	if err != nil {
		return nil, err
	}
	attempt.QuoteID = quote.ID
	debit := quote.DebitAmount
	attempt.DebitAmount = &debit
	s.advance(attempt, domain.TransferStateQuoted)

	// 4. Outgoing grant
	auth, err := s.requestOutgoingGrant(ctx, sender, quote.DebitAmount)
	if err != nil {
		return nil, err
	}
	s.advance(attempt, domain.TransferStateOutgoingGrantRequested)

	tokenEnc, err := s.encSvc.Encrypt(auth.ContinueToken)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt continue token: %w", err))
	}
	attempt.ContinueURI = auth.GrantID
	attempt.ContinueTokenEnc = tokenEnc
	attempt.InteractURL = auth.InteractURL
	s.advance(attempt, domain.TransferStateAwaitingAuthorization)

	if err := s.repo.Create(ctx, attempt); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create transfer attempt: %w", err))
	}
	s.cacheAttempt(ctx, attempt)

	log.Info().
		Str("sender", sender.ID).
		Str("receiver", receiver.ID).
		Str("amount", amount).
		Str("quote_id", quote.ID).
		Msg("transfer awaiting authorization")

	return &ports.PreparedTransfer{
		TransferID:      attempt.ID,
		IncomingPayment: incoming,
		Quote:           quote,
		Authorization:   *auth,
		SenderWallet:    sender,
		ReceiverWallet:  receiver,
	}, nil
}

// GetTransfer returns a stored attempt, TRF_001 when unknown.
func (s *TransferServiceImpl) GetTransfer(ctx context.Context, id uuid.UUID) (*domain.TransferAttempt, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Str("transfer_id", id.String()).Msg("transfer cache read failed, falling through to store")
		}
		if cached != nil {
			return cached, nil
		}
	}

	attempt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get transfer attempt: %w", err))
	}
	if attempt == nil {
		return nil, apperror.ErrTransferNotFound()
	}
	s.cacheAttempt(ctx, attempt)
	return attempt, nil
}

// CompleteTransfer resumes a stored attempt after the sender approved the
// grant. The attempt is claimed first, so overlapping calls for the same id
// continue the grant at most once; the losers get TRF_002. GRANT_002 puts it
// back to awaiting authorization; any other upstream failure marks it FAILED.
func (s *TransferServiceImpl) CompleteTransfer(ctx context.Context, id uuid.UUID, interactRef string) (*ports.CompletedTransfer, error) {
	attempt, err := s.GetTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !attempt.CanComplete() {
		return nil, apperror.ErrTransferState(string(attempt.State))
	}
	if err := s.claim(ctx, attempt); err != nil {
		return nil, err
	}

	token, err := s.encSvc.Decrypt(attempt.ContinueTokenEnc)
	if err != nil {
		s.release(ctx, attempt)
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt continue token: %w", err))
	}

	// 5b. Continuation
	grant, err := s.continueGrant(ctx, attempt.ContinueURI, token, interactRef)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeGrantNotReady) {
			s.release(ctx, attempt)
			return nil, err
		}
		return nil, s.fail(ctx, attempt, domain.TransferStateCompleting, err)
	}
	s.advance(attempt, domain.TransferStateGrantFinalized)

	// 6. Outgoing payment
	sender, err := s.client.ResolveWallet(ctx, attempt.SenderWallet)
	if err != nil {
		return nil, s.fail(ctx, attempt, domain.TransferStateCompleting, err)
	}
	payment, err := s.createOutgoingPayment(ctx, sender, grant, attempt.QuoteID)
	if err != nil {
		return nil, s.fail(ctx, attempt, domain.TransferStateCompleting, err)
	}

	attempt.OutgoingPaymentID = payment.ID
	s.advance(attempt, domain.TransferStateCompleted)
	if err := s.save(ctx, attempt, domain.TransferStateCompleting); err != nil {
		return nil, err
	}

	s.log.Info().Str("transfer_id", attempt.ID.String()).Str("outgoing_payment_id", payment.ID).Msg("transfer completed")
	return &ports.CompletedTransfer{Transfer: attempt, OutgoingPayment: payment}, nil
}

// ---- Steps ----

func (s *TransferServiceImpl) createIncomingPayment(ctx context.Context, receiver *domain.WalletAddress, amount string) (*domain.IncomingPayment, error) {
	payment, err := func() (*domain.IncomingPayment, error) {
		grant, err := s.client.RequestGrant(ctx, receiver.AuthServer, domain.GrantRequest{
			Access: []domain.AccessRequest{{
				Type:    domain.AccessIncomingPayment,
				Actions: []string{domain.ActionCreate},
			}},
		})
		if err != nil {
			return nil, err
		}
		if !grant.IsFinalized() {
			return nil, apperror.ErrGrantNotFinalized(string(domain.AccessIncomingPayment))
		}

		return s.client.CreateIncomingPayment(ctx, receiver.ResourceServer, grant.AccessToken, domain.IncomingPaymentSpec{
			WalletAddress: receiver.ID,
			IncomingAmount: domain.Amount{
				Value:      amount,
				AssetCode:  receiver.AssetCode,
				AssetScale: receiver.AssetScale,
			},
		})
	}()
	s.record(stepIncomingPayment, err)
	return payment, err
}

func (s *TransferServiceImpl) createQuote(ctx context.Context, sender *domain.WalletAddress, receiver string) (*domain.Quote, error) {
	quote, err := func() (*domain.Quote, error) {
		grant, err := s.client.RequestGrant(ctx, sender.AuthServer, domain.GrantRequest{
			Access: []domain.AccessRequest{{
				Type:    domain.AccessQuote,
				Actions: []string{domain.ActionCreate},
			}},
		})
		if err != nil {
			return nil, err
		}
		if !grant.IsFinalized() {
			return nil, apperror.ErrGrantNotFinalized(string(domain.AccessQuote))
		}

		return s.client.CreateQuote(ctx, sender.ResourceServer, grant.AccessToken, domain.QuoteSpec{
			WalletAddress: sender.ID,
			Receiver:      receiver,
			Method:        domain.PaymentMethodILP,
		})
	}()
	s.record(stepQuote, err)
	return quote, err
}

func (s *TransferServiceImpl) requestOutgoingGrant(ctx context.Context, sender *domain.WalletAddress, debit domain.Amount) (*ports.PendingAuthorization, error) {
	grant, err := s.client.RequestGrant(ctx, sender.AuthServer, domain.GrantRequest{
		Access: []domain.AccessRequest{{
			Type:       domain.AccessOutgoingPayment,
			Actions:    []string{domain.ActionCreate},
			Identifier: sender.ID,
			Limits:     &domain.AccessLimits{DebitAmount: &debit},
		}},
		Interactive: true,
	})
	if err == nil && (grant.InteractRedirect == "" || grant.ContinueURI == "" || grant.ContinueToken == "") {
		err = apperror.ErrAdapter(0, "outgoing payment grant did not request interaction", nil)
	}
	s.record(stepOutgoingGrant, err)
	if err != nil {
		return nil, err
	}

	return &ports.PendingAuthorization{
		GrantID:       grant.ContinueURI,
		InteractURL:   grant.InteractRedirect,
		ContinueToken: grant.ContinueToken,
	}, nil
}

func (s *TransferServiceImpl) continueGrant(ctx context.Context, continueURI, token, interactRef string) (*domain.Grant, error) {
	grant, err := s.client.ContinueGrant(ctx, continueURI, token, interactRef)
	if err == nil && !grant.IsFinalized() {
		err = apperror.ErrGrantNotReady(errors.New("continuation returned no access token"))
	}
	s.record(stepContinueGrant, err)
	if err != nil {
		return nil, err
	}
	return grant, nil
}

func (s *TransferServiceImpl) createOutgoingPayment(ctx context.Context, sender *domain.WalletAddress, grant *domain.Grant, quoteID string) (*domain.OutgoingPayment, error) {
	payment, err := s.client.CreateOutgoingPayment(ctx, sender.ResourceServer, grant.AccessToken, domain.OutgoingPaymentSpec{
		WalletAddress: sender.ID,
		QuoteID:       quoteID,
	})
	s.record(stepOutgoingPayment, err)
	return payment, err
}

// ---- Attempt bookkeeping ----

func (s *TransferServiceImpl) advance(attempt *domain.TransferAttempt, next domain.TransferState) {
	if !attempt.State.CanTransition(next) {
		s.log.Error().
			Str("transfer_id", attempt.ID.String()).
			Str("from", string(attempt.State)).
			Str("to", string(next)).
			Msg("illegal transfer state transition")
		return
	}
	attempt.State = next
	attempt.UpdatedAt = s.now().UTC()
}

// claim moves an awaiting attempt to COMPLETING. Only one caller can win it.
func (s *TransferServiceImpl) claim(ctx context.Context, attempt *domain.TransferAttempt) error {
	s.advance(attempt, domain.TransferStateCompleting)
	return s.save(ctx, attempt, domain.TransferStateAwaitingAuthorization)
}

// release hands a claimed attempt back so the caller can retry later.
func (s *TransferServiceImpl) release(ctx context.Context, attempt *domain.TransferAttempt) {
	s.advance(attempt, domain.TransferStateAwaitingAuthorization)
	if err := s.save(ctx, attempt, domain.TransferStateCompleting); err != nil {
		s.log.Error().Err(err).Str("transfer_id", attempt.ID.String()).Msg("failed to release transfer attempt")
	}
}

// fail records cause on the attempt and returns it unchanged for the caller.
// expected is the state the attempt was stored in.
func (s *TransferServiceImpl) fail(ctx context.Context, attempt *domain.TransferAttempt, expected domain.TransferState, cause error) error {
	s.advance(attempt, domain.TransferStateFailed)
	attempt.FailureReason = cause.Error()
	if err := s.save(ctx, attempt, expected); err != nil {
		s.log.Error().Err(err).Str("transfer_id", attempt.ID.String()).Msg("failed to persist failed transfer")
	}
	s.log.Warn().Err(cause).Str("transfer_id", attempt.ID.String()).Msg("transfer failed")
	return cause
}

// save writes attempt if the stored copy is still in state expected. A lost
// race reports the state the winner left behind.
func (s *TransferServiceImpl) save(ctx context.Context, attempt *domain.TransferAttempt, expected domain.TransferState) error {
	err := s.repo.Update(ctx, attempt, expected)
	if errors.Is(err, domain.ErrTransferStateConflict) {
		return s.conflict(ctx, attempt.ID)
	}
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("update transfer attempt: %w", err))
	}
	s.cacheAttempt(ctx, attempt)
	return nil
}

func (s *TransferServiceImpl) conflict(ctx context.Context, id uuid.UUID) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("get transfer attempt: %w", err))
	}
	if current == nil {
		return apperror.ErrTransferNotFound()
	}
	s.cacheAttempt(ctx, current)
	return apperror.ErrTransferState(string(current.State))
}

func (s *TransferServiceImpl) cacheAttempt(ctx context.Context, attempt *domain.TransferAttempt) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, attempt, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("transfer_id", attempt.ID.String()).Msg("failed to cache transfer attempt")
	}
}

func (s *TransferServiceImpl) record(step string, err error) {
	switch {
	case err == nil:
		s.metrics.Step(step, metrics.OutcomeOK)
	case apperror.HasCode(err, apperror.CodeGrantNotReady):
		s.metrics.Step(step, metrics.OutcomeNotYet)
	default:
		s.metrics.Step(step, metrics.OutcomeError)
	}
}

// validateAmount accepts a positive integer in minor units and returns it
// without leading zeros.
func validateAmount(amount string) (string, error) {
	if !domain.IsPositiveMinorUnits(amount) {
		return "", apperror.Validation("amount must be a positive integer in minor units")
	}
	return domain.CanonicalMinorUnits(amount), nil
}
