package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TransferState is a step of the peer-to-peer transfer choreography.
type TransferState string

const (
	TransferStateInit                   TransferState = "INIT"
	TransferStateWalletsResolved        TransferState = "WALLETS_RESOLVED"
	TransferStateIncomingPaymentCreated TransferState = "INCOMING_PAYMENT_CREATED"
	TransferStateQuoted                 TransferState = "QUOTED"
	TransferStateOutgoingGrantRequested TransferState = "OUTGOING_GRANT_REQUESTED"
	TransferStateAwaitingAuthorization  TransferState = "AWAITING_AUTHORIZATION"
	TransferStateCompleting             TransferState = "COMPLETING"
	TransferStateGrantFinalized         TransferState = "GRANT_FINALIZED"
	TransferStateCompleted              TransferState = "COMPLETED"
	TransferStateFailed                 TransferState = "FAILED"
)

var transferTransitions = map[TransferState][]TransferState{
	TransferStateInit:                   {TransferStateWalletsResolved},
	TransferStateWalletsResolved:        {TransferStateIncomingPaymentCreated},
	TransferStateIncomingPaymentCreated: {TransferStateQuoted},
	TransferStateQuoted:                 {TransferStateOutgoingGrantRequested},
	TransferStateOutgoingGrantRequested: {TransferStateAwaitingAuthorization, TransferStateGrantFinalized},
	TransferStateAwaitingAuthorization:  {TransferStateCompleting},
	TransferStateCompleting:             {TransferStateGrantFinalized, TransferStateAwaitingAuthorization},
	TransferStateGrantFinalized:         {TransferStateCompleted},
}

// ErrTransferStateConflict is returned by a conditional update when the stored
// attempt is no longer in the expected state.
var ErrTransferStateConflict = errors.New("transfer attempt state changed concurrently")

// IsTerminal returns true for the absorbing states.
func (s TransferState) IsTerminal() bool {
	return s == TransferStateCompleted || s == TransferStateFailed
}

// CanTransition reports whether the choreography may move from s to next.
// Failed is reachable from every non-terminal state.
func (s TransferState) CanTransition(next TransferState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == TransferStateFailed {
		return true
	}
	for _, allowed := range transferTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransferAttempt records a two-step transfer between the redirect issuance
// and the continuation so it can be resumed by id. The continuation token is
// stored encrypted.
type TransferAttempt struct {
	ID                uuid.UUID     `json:"id"`
	State             TransferState `json:"state"`
	SenderWallet      string        `json:"senderWallet"`
	ReceiverWallet    string        `json:"receiverWallet"`
	Amount            string        `json:"amount"`
	IncomingPaymentID string        `json:"incomingPaymentId,omitempty"`
	QuoteID           string        `json:"quoteId,omitempty"`
	DebitAmount       *Amount       `json:"debitAmount,omitempty"`
	ContinueURI       string        `json:"continueUri,omitempty"`
	ContinueTokenEnc  string        `json:"-"`
	InteractURL       string        `json:"interactUrl,omitempty"`
	OutgoingPaymentID string        `json:"outgoingPaymentId,omitempty"`
	FailureReason     string        `json:"failureReason,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// CanComplete reports whether the attempt is waiting on a continuation.
func (t *TransferAttempt) CanComplete() bool {
	return t.State == TransferStateAwaitingAuthorization
}
