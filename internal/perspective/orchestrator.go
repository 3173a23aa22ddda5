package perspective

import (
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// DetectRequest is the input handed to a Detector.
type DetectRequest struct {
	Image       image.Image
	Orientation Orientation
	Options     DetectOptions
}

// Detector finds candidate document quadrilaterals in a raster image.
//
// Implementations return candidates in normalized, y-up coordinates. An
// error means the backend could not process the frame; an empty slice means
// nothing was found.
type Detector interface {
	Detect(req DetectRequest) ([]Candidate, error)
}

// Observer receives every completed Outcome, typically for metrics.
type Observer interface {
	ObserveOutcome(Outcome)
}

// State is a step of the correction state machine.
type State string

const (
	StateIdle              State = "idle"
	StateDetecting         State = "detecting"
	StateSelecting         State = "selecting"
	StateNoCandidate       State = "no_candidate"
	StateFallbackSynthesis State = "fallback_synthesis"
	StateWarping           State = "warping"
	StateDetectionFailed   State = "detection_failed"
	StateRenderFailed      State = "render_failed"
	StateDone              State = "done"
)

// Outcome fully describes one correction request.
type Outcome struct {
	RunID string `json:"run_id"`

	// Image is the corrected image, or the original on passthrough.
	Image image.Image `json:"-"`

	DidApplyCorrection bool `json:"did_apply_correction"`
	UsedFallback       bool `json:"used_fallback"`

	// Confidence is set only when a detected candidate was warped.
	Confidence *float64 `json:"confidence,omitempty"`

	ElapsedMs float64 `json:"elapsed_ms"`

	// Quad is the pixel quad that was handed to the renderer, if any.
	Quad *Quadrilateral `json:"quad,omitempty"`

	// States is the ordered state-machine trace, ending in StateDone.
	States []State `json:"states"`

	// Err is the absorbed failure behind a passthrough, if any.
	Err error `json:"-"`
}

// Passthrough reports whether the original image was returned unchanged.
func (o Outcome) Passthrough() bool {
	return !o.DidApplyCorrection
}

// Corrector sequences detection, selection, fallback and warping.
// It keeps no state between requests.
type Corrector struct {
	detector Detector
	renderer *Renderer
	observer Observer
	logger   *log.Logger
}

// Option configures a Corrector.
type Option func(*Corrector)

// WithRenderer shares an existing Renderer.
func WithRenderer(r *Renderer) Option {
	return func(c *Corrector) { c.renderer = r }
}

// WithObserver registers an outcome observer.
func WithObserver(o Observer) Option {
	return func(c *Corrector) { c.observer = o }
}

// WithLogger replaces the default standard logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Corrector) { c.logger = l }
}

// NewCorrector creates a Corrector. A nil detector disables detection, so
// every request takes the no-candidate branch.
func NewCorrector(detector Detector, opts ...Option) *Corrector {
	c := &Corrector{
		detector: detector,
		renderer: NewRenderer(),
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Correct runs the pipeline once and blocks until it completes.
//
// Detector failures, degenerate geometry and render failures are absorbed
// into a passthrough Outcome. The returned error is non-nil only for an
// image with no pixels. cfg is not re-validated; callers check it with
// Config.Validate where it enters the process.
func (c *Corrector) Correct(img image.Image, o Orientation, cfg Config) (Outcome, error) {
	if img == nil || img.Bounds().Empty() {
		return Outcome{}, fmt.Errorf("%w: no pixel data", ErrInvalidImage)
	}

	run := &correctionRun{
		id:     uuid.New().String(),
		c:      c,
		img:    img,
		orient: o.Normalize(),
		cfg:    cfg,
		states: []State{StateIdle},
	}

	start := time.Now()
	out := run.execute()
	out.ElapsedMs = float64(time.Since(start).Microseconds()) / 1000.0

	c.logger.Printf("[%s] Correction finished: applied=%t fallback=%t states=%v elapsed=%.1fms",
		run.id, out.DidApplyCorrection, out.UsedFallback, out.States, out.ElapsedMs)

	if c.observer != nil {
		c.observer.ObserveOutcome(out)
	}
	return out, nil
}

// AsyncResult is delivered by CorrectAsync.
type AsyncResult struct {
	Outcome Outcome
	Err     error
}

// CorrectAsync runs Correct on a new goroutine and delivers exactly one
// result on the returned channel. A started request cannot be cancelled.
func (c *Corrector) CorrectAsync(img image.Image, o Orientation, cfg Config) <-chan AsyncResult {
	ch := make(chan AsyncResult, 1)
	go func() {
		out, err := c.Correct(img, o, cfg)
		ch <- AsyncResult{Outcome: out, Err: err}
	}()
	return ch
}

// correctionRun is one state-machine instance.
type correctionRun struct {
	id     string
	c      *Corrector
	img    image.Image
	orient Orientation
	cfg    Config
	states []State
}

func (r *correctionRun) enter(s State) {
	r.states = append(r.states, s)
}

func (r *correctionRun) logf(format string, args ...interface{}) {
	r.c.logger.Printf("[%s] "+format, append([]interface{}{r.id}, args...)...)
}

func (r *correctionRun) execute() Outcome {
	b := r.img.Bounds()
	extent := Size{Width: float64(b.Dx()), Height: float64(b.Dy())}

	// Step 1: Detect
	r.enter(StateDetecting)
	candidates, err := r.detect()
	if err != nil {
		r.logf("Detection failed: %v", err)
		r.enter(StateDetectionFailed)
		return r.passthrough(err)
	}
	r.logf("Detector returned %d candidate(s)", len(candidates))

	// Step 2: Select
	if len(candidates) > 0 {
		r.enter(StateSelecting)
		if cand, ok := SelectCandidate(candidates, r.cfg.SelectionPolicy); ok {
			r.logf("Selected candidate with confidence %.2f and area %.3f (%s)",
				cand.Confidence, cand.BoundingBoxArea, r.cfg.SelectionPolicy)
			quad := cand.Quad.Scale(extent)
			r.enter(StateWarping)
			warped, err := r.c.renderer.Warp(r.img, quad, Size{})
			if err != nil {
				// Terminal: a detected quad never retries through fallback.
				r.logf("Warp of detected quad failed: %v", err)
				r.enter(StateRenderFailed)
				return r.passthrough(err)
			}
			confidence := cand.Confidence
			r.enter(StateDone)
			return Outcome{
				RunID:              r.id,
				Image:              warped,
				DidApplyCorrection: true,
				Confidence:         &confidence,
				Quad:               &quad,
				States:             r.states,
			}
		}
	}

	// Step 3: Nothing usable
	r.enter(StateNoCandidate)
	if !r.cfg.FallbackEnabled {
		r.logf("No candidate and fallback disabled, passing through")
		return r.passthrough(nil)
	}

	r.enter(StateFallbackSynthesis)
	fb, err := SynthesizeFallback(extent, r.orient)
	if err != nil {
		r.logf("Fallback synthesis failed: %v", err)
		return r.passthrough(err)
	}
	cropped := imaging.Crop(r.img, fb.PixelRect(b))
	r.logf("Fallback quad for orientation %s inside %dx%d crop", r.orient, cropped.Bounds().Dx(), cropped.Bounds().Dy())

	r.enter(StateWarping)
	warped, err := r.c.renderer.Warp(cropped, fb.Quad, fb.Crop.Size())
	if err != nil {
		r.logf("Warp of fallback quad failed: %v", err)
		r.enter(StateRenderFailed)
		return r.passthrough(err)
	}

	quad := fb.Quad
	r.enter(StateDone)
	return Outcome{
		RunID:              r.id,
		Image:              warped,
		DidApplyCorrection: true,
		UsedFallback:       true,
		Quad:               &quad,
		States:             r.states,
	}
}

func (r *correctionRun) detect() ([]Candidate, error) {
	if r.c.detector == nil {
		return nil, nil
	}
	candidates, err := r.c.detector.Detect(DetectRequest{
		Image:       r.img,
		Orientation: r.orient,
		Options:     r.cfg.DetectorOptions(),
	})
	if err != nil {
		if !errors.Is(err, ErrDetectorUnavailable) {
			err = fmt.Errorf("%w: %w", ErrDetectorUnavailable, err)
		}
		return nil, err
	}
	return candidates, nil
}

func (r *correctionRun) passthrough(err error) Outcome {
	r.enter(StateDone)
	return Outcome{
		RunID:  r.id,
		Image:  r.img,
		States: r.states,
		Err:    err,
	}
}
