package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const propertyViewsKey = "property:counters:views"

// ViewCounter buffers property detail views in a Redis hash and periodically
// applies them to properties.view_count in one batched statement.
type ViewCounter struct {
	rdb *redis.Client
	db  *gorm.DB
}

func NewViewCounter(rdb *redis.Client, db *gorm.DB) *ViewCounter {
	return &ViewCounter{rdb: rdb, db: db}
}

// AddPropertyView increments the pending view counter for a property.
func (vc *ViewCounter) AddPropertyView(ctx context.Context, propertyID string) error {
	return vc.rdb.HIncrBy(ctx, propertyViewsKey, propertyID, 1).Err()
}

// Pending returns the views recorded for a property since the last flush.
func (vc *ViewCounter) Pending(ctx context.Context, propertyID string) (int64, error) {
	n, err := vc.rdb.HGet(ctx, propertyViewsKey, propertyID).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// Flush drains the pending counters and returns how many properties were
// updated. The hash is renamed before reading so increments arriving during
// the flush land in a fresh hash.
func (vc *ViewCounter) Flush(ctx context.Context) (int, error) {
	tmpKey := fmt.Sprintf("%s:tmp:%d", propertyViewsKey, time.Now().UnixNano())
	if err := vc.rdb.Rename(ctx, propertyViewsKey, tmpKey).Err(); err != nil {
		if err == redis.Nil || strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return 0, nil
		}
		return 0, err
	}
	defer vc.rdb.Del(context.WithoutCancel(ctx), tmpKey)

	data, err := vc.rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return 0, err
	}
	sql, args, n := buildFlushSQL(data)
	if n == 0 {
		return 0, nil
	}
	if err := vc.db.WithContext(ctx).Exec(sql, args...).Error; err != nil {
		return 0, err
	}
	return n, nil
}

type increment struct {
	id  string
	inc int64
}

// buildFlushSQL turns a drained hash into
// UPDATE properties SET view_count = view_count + CASE id WHEN ? THEN ? ... END WHERE id IN (...).
// Fields that are not property ids or carry no increment are dropped.
func buildFlushSQL(data map[string]string) (string, []interface{}, int) {
	pairs := make([]increment, 0, len(data))
	for k, v := range data {
		if _, err := uuid.Parse(k); err != nil {
			continue
		}
		inc, err := strconv.ParseInt(v, 10, 64)
		if err != nil || inc <= 0 {
			continue
		}
		pairs = append(pairs, increment{id: k, inc: inc})
	}
	if len(pairs) == 0 {
		return "", nil, 0
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })

	var b strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	b.WriteString("UPDATE properties SET view_count = view_count + CASE id")
	for _, p := range pairs {
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, p.id, p.inc)
	}
	b.WriteString(" ELSE 0 END WHERE id IN (")
	for i, p := range pairs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		args = append(args, p.id)
	}
	b.WriteString(")")
	return b.String(), args, len(pairs)
}
