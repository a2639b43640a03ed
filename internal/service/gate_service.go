package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"parking_ledger/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrMalformedGateEvent marks a queue message that can never be processed. The
// consumer drops it instead of waiting for redelivery.
var ErrMalformedGateEvent = errors.New("evento de cancela inválido")

const barrierTopicPrefix = "parking/command/barriers/"

// BarrierPublisher is the part of the IoT Data Plane client used to drive barriers.
type BarrierPublisher interface {
	Publish(ctx context.Context, params *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

// PlateRecognizer reads a plate out of a camera frame.
type PlateRecognizer interface {
	ProcessImageForLPR(ctx context.Context, imageBytes []byte) (string, float32, error)
}

// GateService turns gate controller events into ledger operations and opens the
// barrier when the ledger accepts them.
type GateService struct {
	ledger    *ParkingLedger
	lpr       PlateRecognizer
	publisher BarrierPublisher
}

// NewGateService wires the ledger to the barriers. lpr may be nil, in which case
// events must carry the plate.
func NewGateService(ledger *ParkingLedger, lpr PlateRecognizer, publisher BarrierPublisher) *GateService {
	return &GateService{ledger: ledger, lpr: lpr, publisher: publisher}
}

// HandleGateMessage processes one queue message body. A nil error means the message
// is done with, even when the vehicle was refused. Errors other than
// ErrMalformedGateEvent are worth retrying.
func (s *GateService) HandleGateMessage(ctx context.Context, body string) (*domain.GateOutcome, error) {
	var event domain.GateEvent
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGateEvent, err)
	}
	if event.Direction != domain.GateDirectionEntry && event.Direction != domain.GateDirectionExit {
		return nil, fmt.Errorf("%w: direção desconhecida %q", ErrMalformedGateEvent, event.Direction)
	}
	if event.Plate == "" && event.ImageBase64 == "" {
		return nil, fmt.Errorf("%w: evento sem placa e sem imagem", ErrMalformedGateEvent)
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	logger := log.WithFields(log.Fields{
		"event_id":  event.EventID,
		"device_id": event.DeviceID,
		"direction": event.Direction,
	})
	outcome := &domain.GateOutcome{EventID: event.EventID, Direction: event.Direction}

	rawPlate := event.Plate
	if rawPlate == "" {
		plate, err := s.recognize(ctx, event.ImageBase64)
		if err != nil {
			if errors.Is(err, ErrPlateNotRecognized) {
				outcome.Reason = err.Error()
				logger.Info("GateService: placa não reconhecida, cancela permanece fechada")
				return outcome, nil
			}
			return nil, err
		}
		rawPlate = plate
	}

	var plate string
	var err error
	switch event.Direction {
	case domain.GateDirectionEntry:
		var receipt *domain.EntryReceipt
		if receipt, err = s.ledger.RegisterEntry(ctx, rawPlate); err == nil {
			plate = receipt.Plate
		}
	case domain.GateDirectionExit:
		var receipt *domain.ExitReceipt
		if receipt, err = s.ledger.RegisterExit(ctx, rawPlate); err == nil {
			plate = receipt.Plate
		}
	}
	if err != nil {
		if errors.Is(err, ErrStorage) {
			return nil, err
		}
		outcome.Plate = rawPlate
		outcome.Reason = err.Error()
		logger.WithError(err).Info("GateService: veículo recusado")
		return outcome, nil
	}

	outcome.Plate = plate
	requestID, err := s.OpenBarrier(ctx, event.Direction, plate)
	if err != nil {
		// The session is already recorded; replaying the event would be refused.
		logger.WithError(err).Error("GateService: falha ao abrir a cancela")
		outcome.Reason = err.Error()
		return outcome, nil
	}
	outcome.BarrierOpened = true
	outcome.RequestID = requestID
	return outcome, nil
}

// OpenBarrier publishes an open command to the barrier for direction and returns
// the request id sent with it.
func (s *GateService) OpenBarrier(ctx context.Context, direction domain.GateDirection, plate string) (string, error) {
	if direction != domain.GateDirectionEntry && direction != domain.GateDirectionExit {
		return "", fmt.Errorf("direção desconhecida %q", direction)
	}
	if s.publisher == nil {
		return "", errors.New("cliente IoT Data Plane não configurado")
	}

	requestID := uuid.NewString()
	payload, err := json.Marshal(domain.BarrierControlCommandPayload{
		Command:   "open",
		RequestID: requestID,
		Plate:     plate,
	})
	if err != nil {
		return "", fmt.Errorf("erro ao serializar comando da cancela: %w", err)
	}

	topic := barrierTopicPrefix + string(direction)
	_, err = s.publisher.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(topic),
		Qos:     1,
		Payload: payload,
	})
	if err != nil {
		return "", fmt.Errorf("erro ao publicar comando MQTT: %w", err)
	}
	log.WithFields(log.Fields{"topic": topic, "request_id": requestID, "plate": plate}).Info("GateService: comando de abertura enviado")
	return requestID, nil
}

func (s *GateService) recognize(ctx context.Context, imageBase64 string) (string, error) {
	if s.lpr == nil {
		return "", fmt.Errorf("%w: reconhecimento de placas desativado", ErrMalformedGateEvent)
	}
	image, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", fmt.Errorf("%w: imagem base64 inválida: %v", ErrMalformedGateEvent, err)
	}
	plate, _, err := s.lpr.ProcessImageForLPR(ctx, image)
	return plate, err
}
