package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hejijunhao/oktify/internal/engine/classifier"
	"github.com/hejijunhao/oktify/internal/engine/extractor"
	"github.com/hejijunhao/oktify/internal/model"
)

// Stats counts how the engine disposed of the events it was given.
type Stats struct {
	Processed  int
	Extracted  int
	Irrelevant int // classified outside the engine's category
	Skipped    int // malformed: a required field was missing
}

// Engine orchestrates the classify → extract steps for one category.
type Engine struct {
	category  model.Category
	extractor extractor.Extractor
	log       *zap.Logger
	stats     Stats
}

// New creates an Engine that keeps only events of category c.
func New(c model.Category, log *zap.Logger) (*Engine, error) {
	x, ok := extractor.For(c)
	if !ok {
		return nil, fmt.Errorf("engine: category %v is not reportable", c)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{category: c, extractor: x, log: log}, nil
}

// Process classifies and extracts a single raw event. It reports ok=false for
// events that are irrelevant or malformed; those are counted, never returned
// as errors.
func (e *Engine) Process(ev model.RawEvent) (row model.NormalizedRow, ok bool, err error) {
	e.stats.Processed++

	if c := classifier.Classify(ev); c != e.category {
		e.stats.Irrelevant++
		return model.NormalizedRow{}, false, nil
	}

	row, err = e.extractor.Extract(ev)
	if errors.Is(err, model.ErrMalformedEvent) {
		e.stats.Skipped++
		e.log.Warn("skipping malformed event",
			zap.String("event_id", ev.UUID),
			zap.String("event_type", ev.EventType),
			zap.Error(err))
		return model.NormalizedRow{}, false, nil
	}
	if err != nil {
		return model.NormalizedRow{}, false, err
	}

	e.stats.Extracted++
	return row, true, nil
}

// Category is the category this engine reports.
func (e *Engine) Category() model.Category { return e.category }

// Stats returns the counts accumulated so far.
func (e *Engine) Stats() Stats { return e.stats }
