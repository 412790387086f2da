// Package notify fans committed transactions out to subscribers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"presence_dao/contract"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Message is what subscribers receive for every committed instruction.
type Message struct {
	TxID      string   `json:"tx_id"`
	Action    string   `json:"action"`
	Sender    string   `json:"sender"`
	Timestamp int64    `json:"timestamp"`
	Ret       string   `json:"ret"`
	Logs      []string `json:"logs"`
}

// NewMessage copies the parts of a result worth broadcasting.
func NewMessage(res *contract.Result, sender string, ts int64) Message {
	return Message{
		TxID:      res.TxID,
		Action:    res.Action,
		Sender:    sender,
		Timestamp: ts,
		Ret:       res.Ret,
		Logs:      res.Logs,
	}
}

// Publisher is best effort: a failed publish never fails the transaction.
type Publisher interface {
	Publish(ctx context.Context, msg Message)
	Close() error
}

// Nop drops every message.
type Nop struct{}

func (Nop) Publish(context.Context, Message) {}
func (Nop) Close() error                     { return nil }

// Channel is the pub/sub channel for a deployment.
func Channel(programID string) string {
	return fmt.Sprintf("presence-dao:%s:tx", programID)
}

// RedisPublisher publishes JSON messages on a Redis channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisPublisher connects and pings the server.
func NewRedisPublisher(ctx context.Context, opts RedisOptions, channel string, logger *zap.Logger) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.String("channel", channel))
	return newRedisPublisher(rdb, channel, logger), nil
}

func newRedisPublisher(rdb *redis.Client, channel string, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{client: rdb, channel: channel, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Warn("Failed to encode tx message", zap.String("tx", msg.TxID), zap.Error(err))
		return
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn("Failed to publish Redis message",
			zap.String("channel", p.channel),
			zap.String("tx", msg.TxID),
			zap.Error(err))
		return
	}
	p.logger.Debug("Published tx message",
		zap.String("channel", p.channel),
		zap.String("tx", msg.TxID))
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
