package modqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	redisQueuePrefix = "modqueue/"
	redisEntriesKey  = redisQueuePrefix + "entries"
	redisReportsKey  = redisQueuePrefix + "reports"
	redisSeqKey      = redisQueuePrefix + "seq"
	// payloads which were popped but could not be decoded, kept for inspection
	redisCorruptKey  = redisQueuePrefix + "corrupt"
)

// Pops the lowest-scored member and takes its payload in one atomic step. A member without a payload is an error and stays out of the queue; returns nil on an empty queue.
var redisPopScript = redis.NewScript(`
local res = redis.call('ZPOPMIN', KEYS[1])
if #res == 0 then
	return false
end
local member = res[1]
local payload = redis.call('HGET', KEYS[2], member)
redis.call('HDEL', KEYS[2], member)
if not payload then
	return redis.error_reply('queued report ' .. member .. ' has no payload')
end
return payload
`)

// Queue shared between daemon instances, stored as a redis sorted set.
//
// Scores are the negated severity, so ZPOPMIN returns the most severe entry. Members are the zero-padded sequence number, which makes redis' lexicographic tie-break equal to ascending sequence order. Report payloads are kept in a hash keyed by the same member.
type RedisQueue struct {
	Client *redis.Client
}

var _ Queue = (*RedisQueue)(nil)

func NewRedisQueue(redisURL string) (*RedisQueue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisQueue{Client: rdb}, nil
}

func redisMember(seq int64) string {
	return fmt.Sprintf("%020d", seq)
}

func (q *RedisQueue) Push(ctx context.Context, e *Entry) error {
	buf, err := json.Marshal(e)
	if err != nil {
		return err
	}
	member := redisMember(e.Sequence)
	// payload is written before the sorted-set member, so a concurrent pop never sees a member without a payload
	multi := q.Client.TxPipeline()
	multi.HSet(ctx, redisReportsKey, member, buf)
	multi.ZAdd(ctx, redisEntriesKey, redis.Z{Score: -effectiveSeverity(e.Severity), Member: member})
	_, err = multi.Exec(ctx)
	return err
}

func (q *RedisQueue) Pop(ctx context.Context) (*Entry, error) {
	raw, err := redisPopScript.Run(ctx, q.Client, []string{redisEntriesKey, redisReportsKey}).Text()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	e, err := decodeEntry(raw)
	if err != nil {
		// the entry is already out of the queue; park the payload rather than drop it
		var seq struct {
			Sequence int64 `json:"sequence"`
		}
		_ = json.Unmarshal([]byte(raw), &seq)
		if herr := q.Client.HSet(ctx, redisCorruptKey, redisMember(seq.Sequence), raw).Err(); herr != nil {
			return nil, fmt.Errorf("%w (and failed to park payload: %v)", err, herr)
		}
		return nil, err
	}
	return e, nil
}

func decodeEntry(raw string) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("decoding queued report: %w", err)
	}
	if e.Report == nil {
		return nil, fmt.Errorf("decoding queued report %d: missing report", e.Sequence)
	}
	return &e, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.Client.ZCard(ctx, redisEntriesKey).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (q *RedisQueue) List(ctx context.Context) ([]*Entry, error) {
	members, err := q.Client.ZRange(ctx, redisEntriesKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []*Entry{}, nil
	}
	vals, err := q.Client.HMGet(ctx, redisReportsKey, members...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Entry, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// popped concurrently
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, fmt.Errorf("decoding queued report %s: %w", members[i], err)
		}
		out = append(out, &e)
	}
	return out, nil
}

func (q *RedisQueue) NextSequence(ctx context.Context) (int64, error) {
	return q.Client.Incr(ctx, redisSeqKey).Result()
}
