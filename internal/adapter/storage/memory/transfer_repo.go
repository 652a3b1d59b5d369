// Package memory holds process-local stores used when no database is
// configured. Their contents are lost on restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"smartwallet-gateway/internal/core/domain"
	"smartwallet-gateway/internal/core/ports"

	"github.com/google/uuid"
)

// TransferRepo implements ports.TransferRepository in memory.
type TransferRepo struct {
	mu       sync.RWMutex
	attempts map[uuid.UUID]domain.TransferAttempt
}

// NewTransferRepo creates an empty TransferRepo.
func NewTransferRepo() *TransferRepo {
	return &TransferRepo{attempts: make(map[uuid.UUID]domain.TransferAttempt)}
}

var _ ports.TransferRepository = (*TransferRepo)(nil)

// Create stores a new attempt. The id must be unused.
func (r *TransferRepo) Create(_ context.Context, attempt *domain.TransferAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.attempts[attempt.ID]; ok {
		return fmt.Errorf("transfer attempt %s already exists", attempt.ID)
	}
	r.attempts[attempt.ID] = copyAttempt(attempt)
	return nil
}

// GetByID returns a copy of the attempt, or nil if absent.
func (r *TransferRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.TransferAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.attempts[id]
	if !ok {
		return nil, nil
	}
	out := copyAttempt(&a)
	return &out, nil
}

// Update replaces a stored attempt if its state is still expected.
func (r *TransferRepo) Update(_ context.Context, attempt *domain.TransferAttempt, expected domain.TransferState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.attempts[attempt.ID]
	if !ok {
		return fmt.Errorf("transfer attempt %s not found", attempt.ID)
	}
	if stored.State != expected {
		return domain.ErrTransferStateConflict
	}
	r.attempts[attempt.ID] = copyAttempt(attempt)
	return nil
}

func copyAttempt(a *domain.TransferAttempt) domain.TransferAttempt {
	c := *a
	if a.DebitAmount != nil {
		d := *a.DebitAmount
		c.DebitAmount = &d
	}
	return c
}
