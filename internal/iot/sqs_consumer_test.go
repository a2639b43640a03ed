package iot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"parking_ledger/internal/domain"
	"parking_ledger/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	mu       sync.Mutex
	batches  [][]types.Message
	deleted  []string
	receives int
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receives++
	if len(f.batches) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return &sqs.ReceiveMessageOutput{Messages: batch}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, *params.ReceiptHandle)
	return &sqs.DeleteMessageOutput{}, nil
}

type scriptedHandler map[string]error

func (h scriptedHandler) HandleGateMessage(_ context.Context, body string) (*domain.GateOutcome, error) {
	if err := h[body]; err != nil {
		return nil, err
	}
	return &domain.GateOutcome{EventID: body}, nil
}

func message(body, receipt string) types.Message {
	return types.Message{Body: aws.String(body), ReceiptHandle: aws.String(receipt), MessageId: aws.String(receipt)}
}

func TestPollDeletesHandledAndMalformed(t *testing.T) {
	client := &fakeSQS{batches: [][]types.Message{{
		message("ok", "r-ok"),
		message("bad", "r-bad"),
		message("storage", "r-storage"),
		{ReceiptHandle: aws.String("r-empty")},
	}}}
	handler := scriptedHandler{
		"bad":     fmt.Errorf("%w: json", service.ErrMalformedGateEvent),
		"storage": fmt.Errorf("%w: locked", service.ErrStorage),
	}
	consumer := NewSQSConsumer(client, "https://sqs.example/queue", handler)

	consumer.poll(context.Background())

	assert.ElementsMatch(t, []string{"r-ok", "r-bad", "r-empty"}, client.deleted)
}

func TestStartStopsOnCancel(t *testing.T) {
	client := &fakeSQS{}
	consumer := NewSQSConsumer(client, "q", scriptedHandler{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}

type failingReceive struct{ fakeSQS }

func (f *failingReceive) ReceiveMessage(context.Context, *sqs.ReceiveMessageInput, ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return nil, errors.New("network unreachable")
}

func TestPollBacksOffOnReceiveError(t *testing.T) {
	consumer := NewSQSConsumer(&failingReceive{}, "q", scriptedHandler{})
	consumer.retryDelay = 10 * time.Millisecond

	start := time.Now()
	consumer.poll(context.Background())
	assert.GreaterOrEqual(t, time.Since(start), consumer.retryDelay, "poll did not wait before retrying")
}
