// Package remote implements remote ledger replicas and the remote event feed.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

// putIfNewer stores a record only when its change stamp is newer than the
// stamp already indexed for it.
// KEYS[1] record hash, KEYS[2] change index; ARGV[1] id, ARGV[2] stamp, ARGV[3] payload.
var putIfNewer = redis.NewScript(`
local current = redis.call('ZSCORE', KEYS[2], ARGV[1])
if current and tonumber(current) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
return 1
`)

// Record kinds stored in redis.
const (
	kindUsers      = "users"
	kindAccounts   = "accounts"
	kindCategories = "categories"
	kindContacts   = "contacts"
	kindEntries    = "entries"
)

// RedisReplica keeps the ledger in redis: one hash of JSON records per kind
// plus a sorted set indexing record ids by change time in microseconds.
type RedisReplica struct {
	client *redis.Client
	prefix string
}

// NewRedisReplica creates a replica over client. The replica owns the client
// and closes it on Detach.
func NewRedisReplica(client *redis.Client, prefix string) *RedisReplica {
	return &RedisReplica{
		client: client,
		prefix: prefix,
	}
}

// Name identifies the backend in logs.
func (r *RedisReplica) Name() string {
	return "redis"
}

// Attach checks that redis is reachable.
func (r *RedisReplica) Attach(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

// Detach closes the redis client.
func (r *RedisReplica) Detach(context.Context) error {
	if err := r.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}

func (r *RedisReplica) recordsKey(kind string) string {
	return r.prefix + ":" + kind
}

func (r *RedisReplica) changesKey(kind string) string {
	return r.prefix + ":" + kind + ":changes"
}

// Push writes each record whose change stamp is newer than the remote copy.
// When only some records fail the error wraps ErrRemotePartialFailure.
func (r *RedisReplica) Push(ctx context.Context, changes *adapter.ChangeSet) error {
	var written, skipped int
	var errs []error

	tally := func(w, s int, e []error) {
		written += w
		skipped += s
		errs = append(errs, e...)
	}
	tally(pushAll(ctx, r, kindUsers, changes.Users, func(u *entity.User) (string, time.Time) {
		return u.ID.String(), changeStamp(u.UpdatedAt, u.DeletedAt)
	}))
	tally(pushAll(ctx, r, kindAccounts, changes.Accounts, func(a *entity.Account) (string, time.Time) {
		return a.ID.String(), changeStamp(a.UpdatedAt, a.DeletedAt)
	}))
	tally(pushAll(ctx, r, kindCategories, changes.Categories, func(c *entity.Category) (string, time.Time) {
		return c.ID.String(), changeStamp(c.UpdatedAt, c.DeletedAt)
	}))
	tally(pushAll(ctx, r, kindContacts, changes.Contacts, func(c *entity.Contact) (string, time.Time) {
		return c.ID.String(), changeStamp(c.UpdatedAt, c.DeletedAt)
	}))
	tally(pushAll(ctx, r, kindEntries, changes.Entries, func(e *entity.LedgerEntry) (string, time.Time) {
		return e.ID.String(), changeStamp(e.UpdatedAt, e.DeletedAt)
	}))

	slog.Debug("Pushed changes to redis", "written", written, "skipped", skipped, "failed", len(errs))

	switch {
	case len(errs) == 0:
		return nil
	case written+skipped > 0:
		return fmt.Errorf("%w: %d of %d records failed: %w",
			domainerror.ErrRemotePartialFailure, len(errs), changes.Len(), errors.Join(errs...))
	default:
		return errors.Join(errs...)
	}
}

func pushAll[T any](ctx context.Context, r *RedisReplica, kind string, records []T, key func(T) (string, time.Time)) (int, int, []error) {
	var written, skipped int
	var errs []error
	for _, record := range records {
		id, stamp := key(record)
		payload, err := json.Marshal(record)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to encode %s %s: %w", kind, id, err))
			continue
		}

		n, err := putIfNewer.Run(ctx, r.client,
			[]string{r.recordsKey(kind), r.changesKey(kind)},
			id, stamp.UnixMicro(), payload,
		).Int()
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to push %s %s: %w", kind, id, err))
			continue
		}
		if n == 1 {
			written++
		} else {
			skipped++
		}
	}
	return written, skipped, errs
}

// Pull reads every record changed after since. Records stamped within the
// same microsecond as since are returned again; merging them is a no-op.
func (r *RedisReplica) Pull(ctx context.Context, since time.Time) (*adapter.ChangeSet, error) {
	floor := "-inf"
	if !since.IsZero() {
		floor = strconv.FormatInt(since.UnixMicro(), 10)
	}

	changes := &adapter.ChangeSet{}
	var err error
	if changes.Users, err = pullAll[*entity.User](ctx, r, kindUsers, floor); err != nil {
		return nil, err
	}
	if changes.Accounts, err = pullAll[*entity.Account](ctx, r, kindAccounts, floor); err != nil {
		return nil, err
	}
	if changes.Categories, err = pullAll[*entity.Category](ctx, r, kindCategories, floor); err != nil {
		return nil, err
	}
	if changes.Contacts, err = pullAll[*entity.Contact](ctx, r, kindContacts, floor); err != nil {
		return nil, err
	}
	if changes.Entries, err = pullAll[*entity.LedgerEntry](ctx, r, kindEntries, floor); err != nil {
		return nil, err
	}
	return changes, nil
}

func pullAll[T any](ctx context.Context, r *RedisReplica, kind, floor string) ([]T, error) {
	ids, err := r.client.ZRangeByScore(ctx, r.changesKey(kind), &redis.ZRangeBy{Min: floor, Max: "+inf"}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list changed %s: %w", kind, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	payloads, err := r.client.HMGet(ctx, r.recordsKey(kind), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read changed %s: %w", kind, err)
	}

	records := make([]T, 0, len(payloads))
	for i, payload := range payloads {
		raw, ok := payload.(string)
		if !ok {
			slog.Warn("Remote record missing from hash", "kind", kind, "id", ids[i])
			continue
		}
		var record T
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			slog.Warn("Skipping undecodable remote record", "kind", kind, "id", ids[i], "error", err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// changeStamp is the latest of the update and deletion times.
func changeStamp(updated time.Time, deleted *time.Time) time.Time {
	if deleted != nil && deleted.After(updated) {
		return *deleted
	}
	return updated
}
