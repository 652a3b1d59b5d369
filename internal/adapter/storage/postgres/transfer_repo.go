package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"smartwallet-gateway/internal/core/domain"
	"smartwallet-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransferRepo implements ports.TransferRepository. Pending transfers
// survive a restart between redirect and continuation.
type TransferRepo struct {
	pool Pool
}

// NewTransferRepo creates a new TransferRepo.
func NewTransferRepo(pool Pool) *TransferRepo {
	return &TransferRepo{pool: pool}
}

var _ ports.TransferRepository = (*TransferRepo)(nil)

const transferColumns = `id, state, sender_wallet, receiver_wallet, amount, incoming_payment_id, quote_id,
	debit_amount, continue_uri, continue_token_enc, interact_url, outgoing_payment_id, failure_reason,
	created_at, updated_at`

// Create inserts a new transfer attempt.
func (r *TransferRepo) Create(ctx context.Context, a *domain.TransferAttempt) error {
	debit, err := encodeAmount(a.DebitAmount)
	if err != nil {
		return err
	}

	query := `INSERT INTO transfer_attempts (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = r.pool.Exec(ctx, query,
		a.ID, string(a.State), a.SenderWallet, a.ReceiverWallet, a.Amount,
		a.IncomingPaymentID, a.QuoteID, debit, a.ContinueURI, a.ContinueTokenEnc,
		a.InteractURL, a.OutgoingPaymentID, a.FailureReason, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transfer attempt: %w", err)
	}
	return nil
}

// GetByID fetches an attempt; nil when absent.
func (r *TransferRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.TransferAttempt, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_attempts WHERE id = $1`

	a := &domain.TransferAttempt{}
	var state string
	var debit []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &state, &a.SenderWallet, &a.ReceiverWallet, &a.Amount,
		&a.IncomingPaymentID, &a.QuoteID, &debit, &a.ContinueURI, &a.ContinueTokenEnc,
		&a.InteractURL, &a.OutgoingPaymentID, &a.FailureReason, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer attempt: %w", err)
	}
	a.State = domain.TransferState(state)
	if len(debit) > 0 {
		a.DebitAmount = &domain.Amount{}
		if err := json.Unmarshal(debit, a.DebitAmount); err != nil {
			return nil, fmt.Errorf("decode debit amount: %w", err)
		}
	}
	return a, nil
}

// Update writes the mutable fields of an attempt whose stored state is still
// expected. Zero affected rows means another writer moved it first, or the
// row is gone; the two are told apart with a follow-up read.
func (r *TransferRepo) Update(ctx context.Context, a *domain.TransferAttempt, expected domain.TransferState) error {
	query := `UPDATE transfer_attempts
		SET state = $2, outgoing_payment_id = $3, failure_reason = $4, updated_at = $5
		WHERE id = $1 AND state = $6`

	tag, err := r.pool.Exec(ctx, query, a.ID, string(a.State), a.OutgoingPaymentID, a.FailureReason, a.UpdatedAt, string(expected))
	if err != nil {
		return fmt.Errorf("update transfer attempt: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM transfer_attempts WHERE id = $1)`, a.ID).Scan(&exists); err != nil {
		return fmt.Errorf("update transfer attempt: %w", err)
	}
	if !exists {
		return fmt.Errorf("update transfer attempt: %s not found", a.ID)
	}
	return domain.ErrTransferStateConflict
}

func encodeAmount(a *domain.Amount) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode debit amount: %w", err)
	}
	return b, nil
}
