// Package amqp carries statement jobs over a RabbitMQ direct exchange.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/spending-dashboard/internal/jobs"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Client publishes and consumes NormalizeStatementJob messages.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	workers      int
	store        jobs.JobStore
	log          zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient dials url and declares the durable exchange and queue.
// store may be nil; when set, job state transitions are recorded in it.
func NewClient(url, exchangeName, queueName string, workers int, store jobs.JobStore, log zerolog.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if workers <= 0 {
		workers = 1
	}
	c := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		workers:      workers,
		store:        store,
		log:          log,
	}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return c, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name
	err = c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	if err := c.channel.Qos(c.workers, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	return nil
}

// PublishNormalizeStatement implements jobs.Publisher.
func (c *Client) PublishNormalizeStatement(ctx context.Context, job *jobs.NormalizeStatementJob) error {
	job.Prepare(uuid.NewString, time.Now())
	c.saveJob(ctx, job)
	return c.publish(ctx, job)
}

func (c *Client) publish(ctx context.Context, job *jobs.NormalizeStatementJob) error {
	body, err := encodeJob(job)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			MessageId:    job.JobID,
			Type:         string(job.GetType()),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.log.Info().
		Str("job_id", job.JobID).
		Str("user_id", job.UserID).
		Str("period", string(job.Period)).
		Str("exchange", c.exchangeName).
		Str("queue", c.queueName).
		Msg("Published statement job")

	return nil
}

// Start implements jobs.Consumer. Deliveries are handled by the configured number of workers.
func (c *Client) Start(ctx context.Context, handler jobs.JobHandler) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.consume(ctx, msgs, handler)
		}()
	}

	c.log.Info().Str("queue", c.queueName).Int("workers", c.workers).Msg("Started consuming statement jobs")
	return nil
}

func (c *Client) consume(ctx context.Context, msgs <-chan amqp091.Delivery, handler jobs.JobHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-msgs:
			if !ok {
				c.log.Warn().Msg("Delivery channel closed")
				return
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

// handleDelivery acks on success. A failed job is recorded and its message dropped.
func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler jobs.JobHandler) {
	job, err := decodeJob(d.Body)
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to decode job message")
		_ = d.Nack(false, false)
		return
	}

	log := c.log.With().Str("job_id", job.JobID).Logger()

	job.Status = jobs.JobStatusRunning
	started := time.Now()
	job.StartedAt = &started
	job.CompletedAt = nil
	c.saveJob(ctx, job)

	err = handler(ctx, job)
	completed := time.Now()
	job.CompletedAt = &completed

	if err == nil {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		c.saveJob(ctx, job)
		_ = d.Ack(false)
		log.Info().Int("saved", job.Saved).Msg("Statement job completed")
		return
	}

	job.Status = jobs.JobStatusFailed
	job.Error = err.Error()
	c.saveJob(ctx, job)
	// no requeue: a redelivery would persist the statement's rows again
	_ = d.Nack(false, false)
	log.Error().Err(err).Int("saved", job.Saved).Msg("Statement job failed")
}

func (c *Client) saveJob(ctx context.Context, job *jobs.NormalizeStatementJob) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveJob(ctx, job); err != nil {
		c.log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to save job state")
	}
}

// Stop implements jobs.Consumer.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements jobs.Publisher.
func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func encodeJob(job *jobs.NormalizeStatementJob) ([]byte, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	return body, nil
}

func decodeJob(body []byte) (*jobs.NormalizeStatementJob, error) {
	var job jobs.NormalizeStatementJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	switch {
	case job.JobID == "":
		return nil, errors.New("job message without job_id")
	case job.UserID == "":
		return nil, errors.New("job message without user_id")
	case job.StatementURI == "":
		return nil, errors.New("job message without statement_uri")
	}
	return &job, nil
}

var _ jobs.Publisher = (*Client)(nil)
var _ jobs.Consumer = (*Client)(nil)
