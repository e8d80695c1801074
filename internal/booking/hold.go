package booking

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"societyhub/internal/model"
)

// HoldManager parks a slot in Redis with a short TTL while a member fills
// in the booking form. Holds are advisory UX only; the store transaction
// remains the source of truth for admission.
type HoldManager struct {
	client *redis.Client
	ttl    time.Duration
}

func NewHoldManager(client *redis.Client, ttl time.Duration) *HoldManager {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &HoldManager{client: client, ttl: ttl}
}

func holdKey(facilityID int64, date time.Time, start, end model.TimeOfDay) string {
	return fmt.Sprintf("hold:facility:%d:%s:%d-%d",
		facilityID, date.Format("2006-01-02"), start.Minutes(), end.Minutes())
}

// Hold takes the slot for the user. Returns ErrSlotHeld when another user
// already holds it; re-holding your own slot refreshes the TTL.
func (h *HoldManager) Hold(ctx context.Context, facilityID int64, date time.Time, start, end model.TimeOfDay, userID int64) error {
	key := holdKey(facilityID, date, start, end)
	value := strconv.FormatInt(userID, 10)

	ok, err := h.client.SetNX(ctx, key, value, h.ttl).Result()
	if err != nil {
		return fmt.Errorf("set hold: %w", err)
	}
	if ok {
		return nil
	}

	owner, err := h.client.Get(ctx, key).Result()
	if err == redis.Nil {
		// Expired between SetNX and Get; retry once.
		ok, err = h.client.SetNX(ctx, key, value, h.ttl).Result()
		if err != nil {
			return fmt.Errorf("set hold: %w", err)
		}
		if ok {
			return nil
		}
		return ErrSlotHeld
	}
	if err != nil {
		return fmt.Errorf("get hold: %w", err)
	}
	if owner == value {
		return h.client.Expire(ctx, key, h.ttl).Err()
	}
	return ErrSlotHeld
}

// Release drops the user's hold. Another user's hold is left untouched.
func (h *HoldManager) Release(ctx context.Context, facilityID int64, date time.Time, start, end model.TimeOfDay, userID int64) error {
	key := holdKey(facilityID, date, start, end)
	owner, err := h.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get hold: %w", err)
	}
	if owner != strconv.FormatInt(userID, 10) {
		return nil
	}
	return h.client.Del(ctx, key).Err()
}

// HeldByOther reports whether someone other than userID holds the slot.
func (h *HoldManager) HeldByOther(ctx context.Context, facilityID int64, date time.Time, start, end model.TimeOfDay, userID int64) (bool, error) {
	owner, err := h.client.Get(ctx, holdKey(facilityID, date, start, end)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return owner != strconv.FormatInt(userID, 10), nil
}
