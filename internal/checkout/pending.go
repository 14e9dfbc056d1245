package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/beautivra/storefront/internal/domain"
	"github.com/beautivra/storefront/internal/storage"
)

// PendingOrderKey is where the reference to the order awaiting payment lives.
const PendingOrderKey = "beautivra-pending-order"

type PendingOrders struct {
	storage storage.Storage
}

func NewPendingOrders(s storage.Storage) *PendingOrders {
	return &PendingOrders{storage: s}
}

func (p *PendingOrders) Save(ctx context.Context, ref domain.PendingOrderReference) error {
	data, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("failed to marshal pending order: %w", err)
	}
	if err := p.storage.Set(ctx, PendingOrderKey, data); err != nil {
		return fmt.Errorf("failed to save pending order: %w", err)
	}
	return nil
}

// Load returns nil when no reference is stored or the stored one is
// unreadable.
func (p *PendingOrders) Load(ctx context.Context) *domain.PendingOrderReference {
	data, err := p.storage.Get(ctx, PendingOrderKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "pending order load failed", "error", err)
		}
		return nil
	}

	var ref domain.PendingOrderReference
	if err := json.Unmarshal(data, &ref); err != nil {
		slog.WarnContext(ctx, "error parsing pending order", "error", err)
		return nil
	}
	return &ref
}

func (p *PendingOrders) Delete(ctx context.Context) error {
	if err := p.storage.Delete(ctx, PendingOrderKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete pending order: %w", err)
	}
	return nil
}
