package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/hbgo/capture/internal/dates"
)

// Mode selects which engine tiers an extraction request may use.
type Mode string

const (
	// ModeAuto tries system text recognition, then the bundled OCR engine.
	ModeAuto Mode = "auto"
	// ModeSystem pins the platform text-detection tier.
	ModeSystem Mode = "system"
	// ModeLocal pins the local vision model.
	ModeLocal Mode = "local"
	// ModeCloud pins the cloud vision model.
	ModeCloud Mode = "cloud"
	// ModeNone disables extraction entirely; the caller enters fields by hand.
	ModeNone Mode = "none"
)

// ErrNoEngine is returned for ModeNone requests: nothing ran, nothing failed.
var ErrNoEngine = errors.New("no recognition engine configured")

// Progress is one incremental status update during extraction. It is an
// observation channel only and never feeds back into control flow.
type Progress struct {
	Status   string  `json:"status"`
	Fraction float64 `json:"fraction"`
}

// ProgressFunc receives progress updates. May be nil.
type ProgressFunc func(Progress)

// Options configures one extraction request.
type Options struct {
	Mode         Mode
	AutoFallback bool
	DateFormat   dates.Format
	// LocalModel selects the local vision model for this request. Changing
	// it retires the previous model handle.
	LocalModel string
	Progress   ProgressFunc
}

// ModelSetter is implemented by engines whose model can be switched at
// runtime.
type ModelSetter interface {
	SetModel(modelName string)
}

// Orchestrator runs one extraction request through an ordered list of engine
// tiers, strictly sequentially, and normalizes whichever tier succeeds first
// into a Result.
type Orchestrator struct {
	system   Engine
	localOCR Engine
	localAI  Engine
	cloud    Engine

	now func() time.Time
}

// NewOrchestrator wires the four engine tiers. Any engine may be nil; nil
// tiers are skipped when building the fallback order.
func NewOrchestrator(system, localOCR, localAI, cloud Engine) *Orchestrator {
	return &Orchestrator{
		system:   system,
		localOCR: localOCR,
		localAI:  localAI,
		cloud:    cloud,
		now:      time.Now,
	}
}

// NewOrchestratorWithClock is NewOrchestrator with an injectable clock for
// tests.
func NewOrchestratorWithClock(system, localOCR, localAI, cloud Engine, now func() time.Time) *Orchestrator {
	o := NewOrchestrator(system, localOCR, localAI, cloud)
	o.now = now
	return o
}

// tiers builds the ordered engine list for a request. The fallback order is a
// plain slice so policy is testable without any engine running.
func (o *Orchestrator) tiers(mode Mode, autoFallback bool) []Engine {
	var list []Engine
	switch mode {
	case ModeNone:
		return nil
	case ModeSystem:
		list = append(list, o.system)
		if autoFallback {
			list = append(list, o.localOCR)
		}
	case ModeLocal:
		list = append(list, o.localAI)
		if autoFallback {
			list = append(list, o.cloud)
		}
	case ModeCloud:
		list = append(list, o.cloud)
	default: // ModeAuto
		list = append(list, o.system, o.localOCR)
	}

	out := list[:0]
	for _, e := range list {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// fallbackable reports whether an engine failure should advance to the next
// tier rather than end the request.
func fallbackable(err error) bool {
	return errors.Is(err, ErrCapabilityUnavailable) ||
		errors.Is(err, ErrEmptyResult) ||
		errors.Is(err, ErrMalformedResponse)
}

// Extract converts the input to PNG, walks the engine tiers in order, and
// normalizes the first successful output. A canceled context stops the walk
// between tiers; after cancellation no result is produced and no further
// progress callbacks fire.
func (o *Orchestrator) Extract(ctx context.Context, data []byte, contentType string, opts Options) (*Result, error) {
	report := func(status string, fraction float64) {
		if opts.Progress != nil && ctx.Err() == nil {
			opts.Progress(Progress{Status: status, Fraction: fraction})
		}
	}

	engines := o.tiers(opts.Mode, opts.AutoFallback)
	if len(engines) == 0 {
		return nil, ErrNoEngine
	}

	if opts.LocalModel != "" && o.localAI != nil {
		if setter, ok := o.localAI.(ModelSetter); ok {
			setter.SetModel(opts.LocalModel)
		}
	}

	if strings.EqualFold(strings.TrimSpace(contentType), "application/pdf") {
		report("Converting PDF to image", 0)
	}
	png, err := prepareImage(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("preparing input: %w", err)
	}
	report("Input ready", 0.1)

	var lastErr error
	for i, engine := range engines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		report(fmt.Sprintf("Trying %s recognition", engine.Source()), 0.1+0.8*float64(i)/float64(len(engines)))

		out, err := engine.Scan(ctx, png)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%s: %w", engine.Source(), err)
			if fallbackable(err) && i < len(engines)-1 {
				slog.Warn("Engine tier failed, falling back", "engine", engine.Source(), "error", err)
				continue
			}
			return nil, lastErr
		}

		// An abandoned request delivers nothing, even when the tier won.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := o.normalize(out, engine.Source(), opts.DateFormat)
		report("Recognition complete", 1)
		return result, nil
	}

	// Unreachable: the last tier either returned a result or its error.
	return nil, lastErr
}

// normalize converts either engine output variant into the canonical Result.
//
// Raw text goes through the line-heuristic field extractor; structured AI
// fields are validated directly. Either way a date that fails validation is
// replaced with today, chosen here explicitly rather than letting an engine
// fabricate one. A non-receipt photo keeps no date and a zero amount.
func (o *Orchestrator) normalize(out *Output, source Source, format dates.Format) *Result {
	now := o.now()

	if out.Kind == OutputText {
		fields := ParseText(out.Text, format)
		date := dates.ValidateDate(fields.Date, now)
		if date == "" {
			date = dates.Today(now)
		}
		return &Result{
			Date:      date,
			Time:      dates.ValidateTime(fields.Time),
			Amount:    fields.Amount,
			Merchant:  fields.Merchant,
			IsReceipt: true,
			Source:    source,
		}
	}

	f := out.Fields
	result := &Result{
		Merchant:      f.Merchant,
		CategoryGuess: f.CategoryGuess,
		PaymentMethod: f.PaymentMethod,
		ItemsSummary:  f.ItemsSummary,
		TagsGuess:     f.Tags,
		IsReceipt:     f.IsReceipt,
		Source:        source,
	}

	if !f.IsReceipt {
		result.Amount = "0.00"
		return result
	}

	date := dates.ValidateDate(f.Date, now)
	if date == "" {
		date = dates.ValidateDate(dates.NormalizeDate(f.Date, format), now)
	}
	if date == "" {
		date = dates.Today(now)
	}
	result.Date = date
	result.Time = dates.ValidateTime(f.Time)
	result.Amount = fmt.Sprintf("%.2f", math.Abs(f.Amount))
	return result
}
