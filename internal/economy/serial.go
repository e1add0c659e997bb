package economy

import (
	"context"
	"fmt"
	"time"

	"idle_tapper/internal/domain"

	"github.com/google/uuid"
)

// Counter is a persistent monotonic counter store (Redis INCR or equivalent).
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, keys ...string) error
}

// SerialPolicy decides whether a save reset also resets the per-tier counters.
type SerialPolicy string

const (
	SerialsIndependent   SerialPolicy = "independent"
	SerialsResetWithSave SerialPolicy = "with_save"
)

// SerialCounter hands out per-tier serials. Counters live outside the save
// blob, keyed by namespace, so a save reset does not touch them unless the
// policy says so.
type SerialCounter struct {
	store      Counter
	namespace  string
	productTag string
}

func NewSerialCounter(store Counter, namespace, productTag string) *SerialCounter {
	if productTag == "" {
		productTag = "TAPPER"
	}
	return &SerialCounter{store: store, namespace: namespace, productTag: productTag}
}

func (c *SerialCounter) key(tier domain.Rarity) string {
	return c.namespace + ":serial:" + string(tier)
}

// Next returns "#<PREFIX>-<NNNN> | <tag>" for the tier's next counter value.
func (c *SerialCounter) Next(ctx context.Context, tier domain.Rarity) (string, error) {
	prefix, ok := serialPrefix[tier]
	if !ok {
		return "", fmt.Errorf("serial for unknown rarity %q", tier)
	}
	n, err := c.store.Incr(ctx, c.key(tier))
	if err != nil {
		return "", fmt.Errorf("next serial %s: %w", tier, err)
	}
	return FormatSerial(prefix, n, c.productTag), nil
}

// Reset clears every tier counter.
func (c *SerialCounter) Reset(ctx context.Context) error {
	keys := make([]string, 0, len(domain.Rarities))
	for _, r := range domain.Rarities {
		keys = append(keys, c.key(r))
	}
	return c.store.Delete(ctx, keys...)
}

func FormatSerial(prefix string, n int64, productTag string) string {
	return fmt.Sprintf("#%s-%04d | %s", prefix, n, productTag)
}

// DrawCards rolls n cards. Serials are reserved before anything is returned,
// so a failure yields no cards at all.
func DrawCards(ctx context.Context, rng RandomSource, serials *SerialCounter, n int, now time.Time) ([]domain.CardInstance, error) {
	cards := make([]domain.CardInstance, 0, n)
	for i := 0; i < n; i++ {
		tier := RollRarity(rng)
		serial, err := serials.Next(ctx, tier)
		if err != nil {
			return nil, err
		}
		cards = append(cards, domain.CardInstance{
			ID:         uuid.NewString(),
			Rarity:     tier,
			Serial:     serial,
			ObtainedAt: now.UTC(),
		})
	}
	return cards, nil
}
