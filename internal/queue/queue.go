package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

// Queue is a Postgres-backed, at-least-once job queue with visibility
// timeout semantics.
// ⭐ SSOT: 잡 메시지 전달은 이 큐로만
//
// A received message is invisible to other consumers until visible_at
// passes; archiving makes the delivery final. Messages are never deleted -
// archived_at is the tombstone.
type Queue struct {
	pool       *pgxpool.Pool
	visibility time.Duration
}

// Message is one delivery of a queued job message
type Message struct {
	MsgID        int64
	ReceiveCount int
	Payload      contracts.JobMessage
}

// New creates a queue with the given visibility window. The window must
// exceed the job lease so a live worker's message can't be redelivered
// under it.
func New(pool *pgxpool.Pool, visibility time.Duration) *Queue {
	return &Queue{pool: pool, visibility: visibility}
}

// Enqueue makes a job message immediately visible
func (q *Queue) Enqueue(ctx context.Context, msg *contracts.JobMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal job message: %w", err)
	}

	query := `
		INSERT INTO jobs.queue (payload, enqueued_at, visible_at, receive_count)
		VALUES ($1, NOW(), NOW(), 0)
	`

	if _, err := q.pool.Exec(ctx, query, payload); err != nil {
		return contracts.Transient("queue.enqueue", err)
	}

	return nil
}

// Receive takes the oldest visible message and hides it for the visibility
// window. SKIP LOCKED keeps concurrent pollers from blocking on each
// other's candidate row. Returns (nil, nil) when the queue is empty.
func (q *Queue) Receive(ctx context.Context) (*Message, error) {
	query := `
		UPDATE jobs.queue
		SET visible_at = NOW() + $1,
			receive_count = receive_count + 1
		WHERE msg_id = (
			SELECT msg_id
			FROM jobs.queue
			WHERE archived_at IS NULL AND visible_at <= NOW()
			ORDER BY msg_id
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING msg_id, receive_count, payload
	`

	var msg Message
	var payload []byte

	err := q.pool.QueryRow(ctx, query, q.visibility).Scan(&msg.MsgID, &msg.ReceiveCount, &payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, contracts.Transient("queue.receive", err)
	}

	if err := json.Unmarshal(payload, &msg.Payload); err != nil {
		// A poison payload would redeliver forever - archive it here
		if aerr := q.Archive(ctx, msg.MsgID); aerr != nil {
			return nil, aerr
		}
		return nil, fmt.Errorf("malformed queue payload msg_id=%d: %w", msg.MsgID, err)
	}

	return &msg, nil
}

// Archive finalizes a delivery so the message is never redelivered
func (q *Queue) Archive(ctx context.Context, msgID int64) error {
	query := `UPDATE jobs.queue SET archived_at = NOW() WHERE msg_id = $1`

	if _, err := q.pool.Exec(ctx, query, msgID); err != nil {
		return contracts.Transient("queue.archive", err)
	}

	return nil
}

// Depth returns the count of visible, unarchived messages
func (q *Queue) Depth(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM jobs.queue
		WHERE archived_at IS NULL AND visible_at <= NOW()
	`

	var depth int
	if err := q.pool.QueryRow(ctx, query).Scan(&depth); err != nil {
		return 0, contracts.Transient("queue.depth", err)
	}

	return depth, nil
}
