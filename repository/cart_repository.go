package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/storefront/models"
)

// CartRepository stores cart sessions keyed by the client's session id.
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (*models.CartSession, error)
	SaveCart(ctx context.Context, cart *models.CartSession) error
	DeleteCart(ctx context.Context, sessionID string) error
	// UpdateCart applies fn to the stored cart (an empty one when the session
	// has none) and saves the result atomically. fn may run more than once
	// under contention. An error from fn aborts without writing.
	UpdateCart(ctx context.Context, sessionID string, fn func(*models.CartSession) error) (*models.CartSession, error)
}

// ErrCartContention is returned when UpdateCart keeps losing the race for a
// session.
var ErrCartContention = errors.New("cart is being modified concurrently")

const maxCartUpdateAttempts = 10

type redisCartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartRepository(client *redis.Client, ttl time.Duration) CartRepository {
	return &redisCartRepository{client: client, ttl: ttl}
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

// GetCart returns nil, nil when the session has no cart.
func (r *redisCartRepository) GetCart(ctx context.Context, sessionID string) (*models.CartSession, error) {
	data, err := r.client.Get(ctx, cartKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	var cart models.CartSession
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return &cart, nil
}

// SaveCart writes the cart and refreshes its TTL.
func (r *redisCartRepository) SaveCart(ctx context.Context, cart *models.CartSession) error {
	cart.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, cartKey(cart.SessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (r *redisCartRepository) DeleteCart(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (r *redisCartRepository) UpdateCart(ctx context.Context, sessionID string, fn func(*models.CartSession) error) (*models.CartSession, error) {
	key := cartKey(sessionID)
	var updated *models.CartSession

	txf := func(tx *redis.Tx) error {
		cart := &models.CartSession{SessionID: sessionID}
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("failed to read cart: %w", err)
		default:
			if err := json.Unmarshal(data, cart); err != nil {
				return fmt.Errorf("failed to decode cart: %w", err)
			}
		}

		if err := fn(cart); err != nil {
			return err
		}
		cart.SessionID = sessionID
		cart.UpdatedAt = time.Now().UTC()
		out, err := json.Marshal(cart)
		if err != nil {
			return err
		}

		// EXEC fails with TxFailedErr if the key changed since GET
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, r.ttl)
			return nil
		})
		if err == nil {
			updated = cart
		}
		return err
	}

	for attempt := 0; attempt < maxCartUpdateAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, ErrCartContention
}
