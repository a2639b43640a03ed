package iot

import (
	"context"
	"errors"
	"time"

	"parking_ledger/internal/domain"
	"parking_ledger/internal/service"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	log "github.com/sirupsen/logrus"
)

// SQSClient is the part of the SQS client the consumer uses.
type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// GateHandler processes one gate event message body.
type GateHandler interface {
	HandleGateMessage(ctx context.Context, body string) (*domain.GateOutcome, error)
}

type SQSConsumer struct {
	sqsClient  SQSClient
	queueURL   string
	handler    GateHandler
	retryDelay time.Duration
}

func NewSQSConsumer(client SQSClient, queueURL string, handler GateHandler) *SQSConsumer {
	return &SQSConsumer{
		sqsClient:  client,
		queueURL:   queueURL,
		handler:    handler,
		retryDelay: 5 * time.Second,
	}
}

// Start long-polls the gate queue until ctx is cancelled.
func (c *SQSConsumer) Start(ctx context.Context) error {
	log.WithField("queue", c.queueURL).Info("SQS Consumer: aguardando eventos das cancelas")
	for {
		if ctx.Err() != nil {
			log.Info("SQS Consumer: contexto cancelado, encerrando")
			return nil
		}
		c.poll(ctx)
	}
}

func (c *SQSConsumer) poll(ctx context.Context) {
	result, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &c.queueURL,
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   60,
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.WithError(err).Error("SQS Consumer: erro ao receber mensagens")
		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
		}
		return
	}

	for _, message := range result.Messages {
		if message.Body == nil {
			log.Warn("SQS Consumer: mensagem sem corpo, removendo")
			c.deleteMessage(ctx, message.ReceiptHandle)
			continue
		}

		outcome, err := c.handler.HandleGateMessage(ctx, *message.Body)
		switch {
		case err == nil:
			log.WithFields(log.Fields{
				"event_id":       outcome.EventID,
				"plate":          outcome.Plate,
				"barrier_opened": outcome.BarrierOpened,
			}).Info("SQS Consumer: evento processado")
			c.deleteMessage(ctx, message.ReceiptHandle)
		case errors.Is(err, service.ErrMalformedGateEvent):
			log.WithError(err).Warn("SQS Consumer: evento descartado")
			c.deleteMessage(ctx, message.ReceiptHandle)
		default:
			// Left in the queue; it comes back after the visibility timeout.
			log.WithError(err).WithField("message_id", stringValue(message.MessageId)).
				Error("SQS Consumer: falha ao processar, mensagem será reentregue")
		}
	}
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		log.Warn("SQS Consumer: receipt handle vazio, mensagem não removida")
		return
	}
	_, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		log.WithError(err).Error("SQS Consumer: erro ao remover mensagem")
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
