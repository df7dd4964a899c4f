package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Enqueuer 提交审核任务，内容创建接口只依赖这一能力
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// Queue 审核任务队列，至少投递一次
type Queue interface {
	Enqueuer
	// Dequeue 阻塞至多 timeout 取出一个任务，超时返回 nil, nil
	Dequeue(ctx context.Context, timeout time.Duration) (*Delivery, error)
	Ack(ctx context.Context, d *Delivery) error
	// Retry 重新入队，超过最大次数时转入死信并返回 true
	Retry(ctx context.Context, d *Delivery) (bool, error)
	// Bury 直接转入死信
	Bury(ctx context.Context, d *Delivery) error
}

// Delivery 一次出队的任务
type Delivery struct {
	Job Job
	raw string
}

// QueueStats 各列表长度
type QueueStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Dead       int64 `json:"dead"`
}

// RedisQueue 基于 Redis 列表的可靠队列
//
// 出队时原子地从 pending 移到 processing，确认后从 processing 删除；
// 进程崩溃留在 processing 中的任务由 Recover 放回 pending。
type RedisQueue struct {
	client      redis.Cmdable
	pending     string
	processing  string
	dead        string
	maxAttempts int
}

// NewRedisQueue 创建队列，键名以 prefix 开头
func NewRedisQueue(client redis.Cmdable, prefix string, maxAttempts int) *RedisQueue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RedisQueue{
		client:      client,
		pending:     prefix + ":pending",
		processing:  prefix + ":processing",
		dead:        prefix + ":dead",
		maxAttempts: maxAttempts,
	}
}

// Enqueue 提交任务
func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	if _, err := newRecord(job.Kind); err != nil {
		return err
	}
	raw, err := job.encode()
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.client.LPush(ctx, q.pending, raw).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", job, err)
	}
	return nil
}

// Dequeue 取出任务，无法解析的负载直接转入死信并返回 ErrMalformedJob
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	raw, err := q.client.BRPopLPush(ctx, q.pending, q.processing, timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}

	job, err := decodeJob(raw)
	if err != nil {
		if buryErr := q.move(ctx, raw, q.dead, raw); buryErr != nil {
			return nil, errors.Join(err, buryErr)
		}
		return nil, err
	}
	return &Delivery{Job: job, raw: raw}, nil
}

// Ack 确认任务完成
func (q *RedisQueue) Ack(ctx context.Context, d *Delivery) error {
	if err := q.client.LRem(ctx, q.processing, 1, d.raw).Err(); err != nil {
		return fmt.Errorf("ack %s: %w", d.Job, err)
	}
	return nil
}

// Retry 失败任务重新入队
func (q *RedisQueue) Retry(ctx context.Context, d *Delivery) (bool, error) {
	next := d.Job
	next.Attempts++
	if next.Attempts >= q.maxAttempts {
		return true, q.Bury(ctx, d)
	}

	raw, err := next.encode()
	if err != nil {
		return false, fmt.Errorf("encode job: %w", err)
	}
	if err := q.move(ctx, d.raw, q.pending, raw); err != nil {
		return false, fmt.Errorf("retry %s: %w", d.Job, err)
	}
	return false, nil
}

// Bury 转入死信
func (q *RedisQueue) Bury(ctx context.Context, d *Delivery) error {
	if err := q.move(ctx, d.raw, q.dead, d.raw); err != nil {
		return fmt.Errorf("bury %s: %w", d.Job, err)
	}
	return nil
}

// Recover 把 processing 中遗留的任务放回 pending，启动时调用
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.client.RPopLPush(ctx, q.processing, q.pending).Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("recover: %w", err)
		}
		n++
	}
}

// Stats 队列长度
func (q *RedisQueue) Stats(ctx context.Context) (QueueStats, error) {
	var pending, processing, dead *redis.IntCmd
	_, err := q.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pending = pipe.LLen(ctx, q.pending)
		processing = pipe.LLen(ctx, q.processing)
		dead = pipe.LLen(ctx, q.dead)
		return nil
	})
	if err != nil {
		return QueueStats{}, fmt.Errorf("queue stats: %w", err)
	}
	return QueueStats{Pending: pending.Val(), Processing: processing.Val(), Dead: dead.Val()}, nil
}

// move 原子地从 processing 删除 raw 并把 payload 推入 dst
func (q *RedisQueue) move(ctx context.Context, raw, dst, payload string) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processing, 1, raw)
		pipe.LPush(ctx, dst, payload)
		return nil
	})
	return err
}
