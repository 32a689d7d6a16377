package authority

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
	events "curio/pkg/platform/events"
	"curio/pkg/platform/sentinel"
	"curio/pkg/requestcontext"
)

// Capability tags what a grant permits. Only transfers exist today; the
// tagged record keeps room for distinguishing further capabilities without
// changing the allow-list shape.
type Capability string

const CapabilityTransfer Capability = "transfer"

// Grant records one allow-list entry.
type Grant struct {
	Capability Capability
	GrantedAt  time.Time
}

// Store is the slice of the registry store the authority mutates.
type Store interface {
	ReassignOwner(ctx context.Context, tokenID domain.TokenID, newOwner domain.AccountID) error
	FindItemOwner(ctx context.Context, tokenID domain.TokenID) (domain.AccountID, error)
}

// Emitter publishes committed events; failures are logged, never surfaced.
type Emitter interface {
	Emit(ctx context.Context, event events.Event) error
}

// Authority is the sole gate through which item ownership may be mutated
// after mint. Mutation is restricted to callers on an explicit allow-list
// managed by the registry's administrator.
type Authority struct {
	mu     sync.RWMutex
	admin  domain.AccountID
	grants map[domain.AccountID]Grant

	store   Store
	emitter Emitter
	logger  *slog.Logger
}

func New(admin domain.AccountID, store Store, emitter Emitter, logger *slog.Logger) *Authority {
	return &Authority{
		admin:   admin,
		grants:  make(map[domain.AccountID]Grant),
		store:   store,
		emitter: emitter,
		logger:  logger,
	}
}

// SetAuthorized toggles whether caller may invoke Transfer. Only the
// administrator may change the allow-list.
func (a *Authority) SetAuthorized(ctx context.Context, caller domain.AccountID, enabled bool) error {
	invoker := requestcontext.Caller(ctx)
	if invoker.IsNil() || invoker != a.admin {
		return dErrors.New(dErrors.CodeUnauthorized, "only the administrator may change transfer authorization")
	}
	if caller.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "caller address is required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if enabled {
		a.grants[caller] = Grant{Capability: CapabilityTransfer, GrantedAt: requestcontext.Now(ctx)}
	} else {
		delete(a.grants, caller)
	}
	return nil
}

// IsAuthorized reports whether caller holds a transfer grant.
func (a *Authority) IsAuthorized(caller domain.AccountID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	grant, ok := a.grants[caller]
	return ok && grant.Capability == CapabilityTransfer
}

// Transfer moves ownership of tokenID to newOwner. It is the only legal
// ownership mutation path: the invoking caller must hold a transfer grant.
// The ownership-changed notification is emitted after the store commit.
func (a *Authority) Transfer(ctx context.Context, tokenID domain.TokenID, newOwner domain.AccountID) error {
	invoker := requestcontext.Caller(ctx)
	if !a.IsAuthorized(invoker) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not authorized to transfer ownership")
	}
	if newOwner.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "new owner is required")
	}

	previous, err := a.store.FindItemOwner(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "token %d does not exist", tokenID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve current owner")
	}

	if err := a.store.ReassignOwner(ctx, tokenID, newOwner); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "token %d does not exist", tokenID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reassign owner")
	}

	a.emit(ctx, events.Event{
		ID:           uuid.NewString(),
		Action:       events.ActionOwnershipTransferred,
		Actor:        previous,
		Counterparty: newOwner,
		TokenID:      tokenID,
		RequestID:    requestcontext.RequestID(ctx),
		Timestamp:    requestcontext.Now(ctx),
	})
	return nil
}

func (a *Authority) emit(ctx context.Context, event events.Event) {
	if a.emitter == nil {
		return
	}
	if err := a.emitter.Emit(ctx, event); err != nil {
		a.logger.Warn("event emission failed", "action", event.Action, "error", err)
	}
}
