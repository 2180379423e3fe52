package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"time"

	"github.com/melvy13/fruitveg-classifier-app/classifier"
	"github.com/melvy13/fruitveg-classifier-app/media"
	"github.com/melvy13/fruitveg-classifier-app/models"
	"github.com/melvy13/fruitveg-classifier-app/nutrition"
	"github.com/melvy13/fruitveg-classifier-app/realtime"
	"github.com/melvy13/fruitveg-classifier-app/repository"
)

var (
	// ErrImageWrite means the normalized capture could not be saved
	ErrImageWrite = errors.New("failed to save captured image")
	// ErrNutritionNotFound means the predicted label has no reference entry
	ErrNutritionNotFound = errors.New("nutrition data not found")
)

// ImageSaver persists a normalized capture and returns its relative path
type ImageSaver interface {
	SaveCapture(img image.Image, now time.Time) (string, error)
}

// Notifier receives history change events. *realtime.Hub satisfies it.
type Notifier interface {
	Broadcast(event realtime.Event)
}

// SweepRequester is poked after history is cleared so orphaned images
// get removed without waiting for the next interval
type SweepRequester interface {
	RequestSweep()
}

// RankedLabel is a top-N entry with its human name
type RankedLabel struct {
	Label       string  `json:"label"`
	DisplayName string  `json:"display_name"`
	Probability float32 `json:"probability"`
}

// Outcome is everything one classification produced. The three error fields
// record non-fatal failures; the result itself is still valid when they are set.
type Outcome struct {
	Label       string             `json:"label"`
	DisplayName string             `json:"display_name"`
	Confidence  float32            `json:"confidence"`
	Top         []RankedLabel      `json:"top_predictions"`
	Nutrition   *nutrition.Display `json:"nutrition"`
	ImagePath   string             `json:"image_path,omitempty"`
	HistoryID   *uint              `json:"history_id"`
	CapturedAt  *int64             `json:"captured_at,omitempty"`
	Timestamp   int64              `json:"timestamp"`
	Result      classifier.Result  `json:"-"`

	ImageErr     error `json:"-"`
	NutritionErr error `json:"-"`
	StoreErr     error `json:"-"`
}

// Warnings lists the non-fatal failures as messages
func (o *Outcome) Warnings() []string {
	var out []string
	for _, err := range []error{o.ImageErr, o.NutritionErr, o.StoreErr} {
		if err != nil {
			out = append(out, err.Error())
		}
	}
	return out
}

// ClassificationService runs the capture pipeline:
// decode, letterbox, save, tensor, infer, rank, nutrition, history.
type ClassificationService struct {
	inferencer classifier.Inferencer
	labels     []string
	table      *nutrition.Table
	images     ImageSaver
	history    repository.HistoryRepositoryInterface
	notifier   Notifier
	sweeper    SweepRequester
	inputSize  int
	topN       int
	now        func() time.Time
}

// Options are the optional collaborators and knobs of ClassificationService
type Options struct {
	InputSize int // defaults to media.DefaultTargetSize
	TopN      int // defaults to classifier.DefaultTopN
	Notifier  Notifier
	Sweeper   SweepRequester
	Now       func() time.Time
}

// NewClassificationService creates a new classification service. images and
// history may be nil for a dry run that persists nothing.
func NewClassificationService(
	inferencer classifier.Inferencer,
	labels []string,
	table *nutrition.Table,
	images ImageSaver,
	history repository.HistoryRepositoryInterface,
	opts Options,
) *ClassificationService {
	s := &ClassificationService{
		inferencer: inferencer,
		labels:     labels,
		table:      table,
		images:     images,
		history:    history,
		notifier:   opts.Notifier,
		sweeper:    opts.Sweeper,
		inputSize:  opts.InputSize,
		topN:       opts.TopN,
		now:        opts.Now,
	}
	if s.inputSize <= 0 {
		s.inputSize = media.DefaultTargetSize
	}
	if s.topN <= 0 {
		s.topN = classifier.DefaultTopN
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Classify runs the whole pipeline on one encoded image. Decode and inference
// failures abort and are returned; image, nutrition and history failures are
// recorded on the Outcome instead.
func (s *ClassificationService) Classify(ctx context.Context, src io.Reader) (*Outcome, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read upload: %v", media.ErrInvalidImage, err)
	}

	img, err := media.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	meta := media.ReadCaptureMetadata(bytes.NewReader(data))

	normalized, err := media.Letterbox(img, s.inputSize)
	if err != nil {
		return nil, err
	}

	now := s.now()
	outcome := &Outcome{Timestamp: now.UnixMilli(), CapturedAt: meta.TakenAt}

	if s.images != nil {
		imagePath, err := s.images.SaveCapture(normalized, now)
		if err != nil {
			log.Printf("services.classify: failed to save capture: %v", err)
			outcome.ImageErr = fmt.Errorf("%w: %w", ErrImageWrite, err)
		} else {
			outcome.ImagePath = imagePath
		}
	}

	tensor := media.ToTensor(normalized)
	result, err := classifier.Classify(ctx, s.inferencer, tensor, s.labels)
	if err != nil {
		return nil, err
	}
	outcome.Result = result
	outcome.Label = result.Label
	outcome.Confidence = result.Confidence
	outcome.DisplayName = s.table.DisplayName(result.Label)

	top := result.Top(s.topN)
	outcome.Top = make([]RankedLabel, len(top))
	for i, p := range top {
		outcome.Top[i] = RankedLabel{Label: p.Label, DisplayName: s.table.DisplayName(p.Label), Probability: p.Probability}
	}

	display, err := s.table.Display(result.Label)
	if err != nil {
		log.Printf("services.classify: %v", err)
		outcome.NutritionErr = fmt.Errorf("%w for label '%s'", ErrNutritionNotFound, result.Label)
	} else {
		outcome.Nutrition = &display
	}

	if s.history == nil || outcome.ImagePath == "" || outcome.Nutrition == nil {
		log.Printf("services.classify: %s classified, history skipped", result.Label)
		return outcome, nil
	}

	rec := &models.ClassificationHistory{
		Label:          result.Label,
		DisplayName:    display.DisplayName,
		Confidence:     result.Confidence,
		ImagePath:      outcome.ImagePath,
		Timestamp:      outcome.Timestamp,
		TopPredictions: classifier.FormatPredictions(top),
		CapturedAt:     meta.TakenAt,
		SchemaVersion:  models.CurrentSchemaVersion,
	}
	rec.ApplyNutrition(display)

	id, err := s.history.Insert(rec)
	if err != nil {
		log.Printf("services.classify: %v", err)
		outcome.StoreErr = err
		return outcome, nil
	}
	outcome.HistoryID = &id
	log.Printf("services.classify: saved %s (%.3f) as history %d", result.Label, result.Confidence, id)

	s.notify(realtime.Event{
		Type:       realtime.EventHistoryCreated,
		HistoryID:  id,
		Label:      rec.Label,
		Confidence: rec.Confidence,
		ImagePath:  rec.ImagePath,
		Timestamp:  rec.Timestamp,
	})
	return outcome, nil
}

// DeleteHistory removes one record. The image file stays on disk until the
// orphan sweeper finds it.
func (s *ClassificationService) DeleteHistory(id uint) error {
	if err := s.history.Delete(id); err != nil {
		return err
	}
	s.notify(realtime.Event{Type: realtime.EventHistoryDeleted, HistoryID: id})
	return nil
}

// ClearHistory removes every record and asks for an orphan sweep
func (s *ClassificationService) ClearHistory() error {
	if err := s.history.DeleteAll(); err != nil {
		return err
	}
	s.notify(realtime.Event{Type: realtime.EventHistoryCleared})
	if s.sweeper != nil {
		s.sweeper.RequestSweep()
	}
	return nil
}

func (s *ClassificationService) notify(event realtime.Event) {
	if s.notifier != nil {
		s.notifier.Broadcast(event)
	}
}
