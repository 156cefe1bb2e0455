// Package queue implements the marketplace-A intake adapter (C1): a
// long-polling SQS consumer that feeds orchestrator.InboundEvent values into
// the pipeline and acks/retries based on the reported outcome, grounded on
// _examples/original_source/src/services/sqs_consumer.py's receive/process/
// delete loop and rate-limited with golang.org/x/time/rate the way
// _examples/coachpo-meltica-gateway's provider adapters throttle outbound
// calls.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/time/rate"

	"github.com/northfield/repricer/internal/config"
	"github.com/northfield/repricer/internal/domain/model"
	"github.com/northfield/repricer/internal/orchestrator"
)

// API is the subset of *sqs.Client the consumer depends on, narrowed so
// tests can substitute a fake.
type API interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer long-polls a single SQS queue and hands each message to an
// orchestrator, deleting on OutcomeOK and leaving the message for SQS's
// built-in redelivery on OutcomeRetry, except that a message whose
// ApproximateReceiveCount has reached MaxReceiveCount is deleted.
type Consumer struct {
	client API
	cfg    config.QueueConfig
	limiter *rate.Limiter
	logger *slog.Logger

	receivedTotal  atomic.Int64
	processedTotal atomic.Int64
	emptyPolls     atomic.Int64
}

// New constructs a Consumer bound to the given queue URL.
func New(client API, cfg config.QueueConfig, logger *slog.Logger) *Consumer {
	limit := rate.Limit(cfg.PollRatePerSecond)
	if limit <= 0 {
		limit = rate.Inf
	}
	return &Consumer{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Run polls until ctx is canceled, dispatching each message through
// process. process must return a terminal orchestrator.Outcome.
func (c *Consumer) Run(ctx context.Context, process func(context.Context, orchestrator.InboundEvent) orchestrator.Outcome) {
	consecutiveEmpty := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return
		}

		messages, err := c.receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.ErrorContext(ctx, "sqs receive failed", "error", err)
			time.Sleep(5 * time.Second)
			continue
		}

		if len(messages) == 0 {
			consecutiveEmpty++
			c.emptyPolls.Add(1)
			if consecutiveEmpty >= 5 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Duration(min(consecutiveEmpty*2, 30)) * time.Second):
				}
			}
			continue
		}
		consecutiveEmpty = 0
		c.receivedTotal.Add(int64(len(messages)))

		var wg sync.WaitGroup
		for _, msg := range messages {
			msg := msg
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.handleMessage(ctx, msg, process)
			}()
		}
		wg.Wait()
	}
}

func (c *Consumer) receive(ctx context.Context) ([]types.Message, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(c.cfg.URL),
		MaxNumberOfMessages:   c.cfg.BatchSize,
		WaitTimeSeconds:       c.cfg.WaitTimeSeconds,
		VisibilityTimeout:     c.cfg.VisibilityTimeout,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{types.MessageSystemAttributeNameApproximateReceiveCount},
	})
	if err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Consumer) handleMessage(ctx context.Context, msg types.Message, process func(context.Context, orchestrator.InboundEvent) orchestrator.Outcome) {
	ev := orchestrator.InboundEvent{Source: model.SourceMarketplaceA, Payload: []byte(aws.ToString(msg.Body))}

	outcome := process(ctx, ev)
	c.processedTotal.Add(1)

	switch outcome {
	case orchestrator.OutcomeOK:
		c.delete(ctx, msg)
	case orchestrator.OutcomeRetry:
		if c.exceededMaxReceives(msg) {
			c.logger.WarnContext(ctx, "message exceeded max receive count, deleting", "message_id", aws.ToString(msg.MessageId))
			c.delete(ctx, msg)
			return
		}
		c.logger.InfoContext(ctx, "leaving message for redelivery", "message_id", aws.ToString(msg.MessageId))
	}
}

func (c *Consumer) exceededMaxReceives(msg types.Message) bool {
	raw, ok := msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]
	if !ok {
		return false
	}
	var count int32
	if _, err := fmt.Sscanf(raw, "%d", &count); err != nil {
		return false
	}
	return count >= c.cfg.MaxReceiveCount
}

// Stats is a point-in-time snapshot of the consumer's lifetime counters,
// rendered by the periodic stats log.
type Stats struct {
	Received  int64
	Processed int64
	EmptyPolls int64
}

// Snapshot returns the consumer's current counters.
func (c *Consumer) Snapshot() Stats {
	return Stats{
		Received:   c.receivedTotal.Load(),
		Processed:  c.processedTotal.Load(),
		EmptyPolls: c.emptyPolls.Load(),
	}
}

func (c *Consumer) delete(ctx context.Context, msg types.Message) {
	if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.cfg.URL),
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		c.logger.ErrorContext(ctx, "delete message failed", "message_id", aws.ToString(msg.MessageId), "error", err)
	}
}
