package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"parking_ledger/internal/domain"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	log "github.com/sirupsen/logrus"
)

var ErrPlateNotRecognized = errors.New("nenhuma placa reconhecida na imagem")

// TextDetector is the part of the Rekognition client the LPR service uses.
type TextDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

type LPRService struct {
	detector TextDetector
}

func NewLPRService(detector TextDetector) *LPRService {
	return &LPRService{detector: detector}
}

// ProcessImageForLPR sends the frame to Rekognition and returns the normalized plate
// with the highest confidence among the detected lines and words.
func (s *LPRService) ProcessImageForLPR(ctx context.Context, imageBytes []byte) (string, float32, error) {
	if s == nil || s.detector == nil {
		return "", 0, errors.New("cliente Rekognition não configurado")
	}

	result, err := s.detector.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: imageBytes},
	})
	if err != nil {
		log.WithError(err).Error("LPRService: falha no DetectText")
		return "", 0, fmt.Errorf("erro no Rekognition: %w", err)
	}

	var detected []string
	var bestPlate string
	var bestConfidence float32
	for _, td := range result.TextDetections {
		if td.Type != types.TextTypesLine && td.Type != types.TextTypesWord {
			continue
		}
		if td.DetectedText == nil || td.Confidence == nil {
			continue
		}
		// Mercosul plates are often read with a dot or a space in the middle.
		raw := strings.ReplaceAll(*td.DetectedText, ".", "")
		detected = append(detected, fmt.Sprintf("%s (%.2f)", raw, *td.Confidence))

		plate, err := domain.NormalizePlate(raw)
		if err != nil {
			continue
		}
		if *td.Confidence > bestConfidence {
			bestConfidence = *td.Confidence
			bestPlate = plate
		}
	}

	if bestPlate == "" {
		log.WithField("texts", strings.Join(detected, ", ")).Info("LPRService: nenhum texto compatível com placa")
		return "", 0, fmt.Errorf("%w (textos: %s)", ErrPlateNotRecognized, strings.Join(detected, ", "))
	}
	log.WithFields(log.Fields{"plate": bestPlate, "confidence": bestConfidence}).Info("LPRService: placa reconhecida")
	return bestPlate, bestConfidence, nil
}
