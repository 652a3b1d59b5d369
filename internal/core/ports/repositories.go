package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"time"

	"smartwallet-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// TransferRepository persists transfer attempts so a pending authorization
// can be resumed by id.
type TransferRepository interface {
	Create(ctx context.Context, attempt *domain.TransferAttempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TransferAttempt, error) // nil, nil when absent
	// Update writes attempt only if the stored state still equals expected,
	// otherwise it returns domain.ErrTransferStateConflict.
	Update(ctx context.Context, attempt *domain.TransferAttempt, expected domain.TransferState) error
}

// TransferCache is the Redis fast path in front of TransferRepository.
type TransferCache interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.TransferAttempt, error) // nil, nil on miss
	Set(ctx context.Context, attempt *domain.TransferAttempt, ttl time.Duration) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}
