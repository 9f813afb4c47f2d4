// Package source provides synthetic paced frame producers for demo
// sessions and load testing.
package source

import (
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"

	"golang.org/x/time/rate"

	"github.com/zsiec/blend/internal/compositor"
	"github.com/zsiec/blend/internal/gpu"
	"github.com/zsiec/blend/internal/logger"
	"github.com/zsiec/blend/internal/metrics"
)

// FrameQueue is the compositor surface a generator produces into.
type FrameQueue interface {
	QueueInputFrame(streamID int, frame *compositor.Frame) error
	SignalEndOfStream(streamID int) error
}

// Config describes one synthetic stream.
type Config struct {
	Name      string
	StreamID  int
	Width     int
	Height    int
	FrameRate float64 // frames per second
	Frames    int     // total frames to produce
	Pattern   string  // solid, bars or checker
}

// Generator produces a fixed number of test-pattern frames at a steady
// rate, with non-decreasing timestamps, then signals end of stream.
type Generator struct {
	cfg     Config
	queue   FrameQueue
	pool    *gpu.Pool
	limiter *rate.Limiter
	logger  logger.Logger
	seed    uint32

	framesProduced *metrics.Counter
}

// NewGenerator builds a generator feeding queue. Textures are recycled
// through the generator's own pool as the compositor releases them.
func NewGenerator(cfg Config, queue FrameQueue, log logger.Logger) *Generator {
	if log == nil {
		log = logger.NewNullLogger()
	}

	h := fnv.New32a()
	h.Write([]byte(cfg.Name))

	return &Generator{
		cfg:     cfg,
		queue:   queue,
		pool:    gpu.NewPool(cfg.Width, cfg.Height, 4, log),
		limiter: rate.NewLimiter(rate.Limit(cfg.FrameRate), 1),
		logger: log.WithFields(map[string]interface{}{
			"component": "source",
			"source":    cfg.Name,
			"stream_id": cfg.StreamID,
		}),
		seed: h.Sum32(),
		framesProduced: metrics.NewCounter("source_frames_produced_total",
			map[string]string{"source": cfg.Name}),
	}
}

// Run produces all configured frames, pacing them at the configured
// rate, and ends the stream. It returns early if ctx is canceled or the
// compositor rejects a frame; the stream is not ended in that case.
func (g *Generator) Run(ctx context.Context) error {
	interval := int64(1e6 / g.cfg.FrameRate)

	for i := 0; i < g.cfg.Frames; i++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		tex := g.pool.Get()
		g.drawPattern(tex.Image(), i)

		pts := int64(i) * interval
		frame := compositor.NewFrame(tex, pts, nil, func() {
			g.pool.Put(tex)
		})

		if err := g.queue.QueueInputFrame(g.cfg.StreamID, frame); err != nil {
			// Rejected frames stay with the producer.
			g.pool.Put(tex)
			return fmt.Errorf("queueing frame %d: %w", i, err)
		}
		g.framesProduced.Inc()
	}

	g.logger.WithField("frames", g.cfg.Frames).Info("Source finished producing")
	return g.queue.SignalEndOfStream(g.cfg.StreamID)
}

func (g *Generator) drawPattern(img *image.NRGBA, frame int) {
	switch g.cfg.Pattern {
	case "bars":
		g.drawBars(img, frame)
	case "checker":
		g.drawChecker(img, frame)
	default:
		g.drawSolid(img, frame)
	}
}

// drawSolid fills the frame with one color derived from the source name
// and pulsing with the frame index.
func (g *Generator) drawSolid(img *image.NRGBA, frame int) {
	c := color.NRGBA{
		R: uint8(g.seed),
		G: uint8(g.seed >> 8),
		B: uint8(g.seed>>16 + uint32(frame)*8),
		A: 255,
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

var barColors = []color.NRGBA{
	{R: 192, G: 192, B: 192, A: 255},
	{R: 192, G: 192, B: 0, A: 255},
	{R: 0, G: 192, B: 192, A: 255},
	{R: 0, G: 192, B: 0, A: 255},
	{R: 192, G: 0, B: 192, A: 255},
	{R: 192, G: 0, B: 0, A: 255},
	{R: 0, G: 0, B: 192, A: 255},
}

// drawBars paints vertical color bars, shifting one bar per frame so
// motion is visible in the composited output.
func (g *Generator) drawBars(img *image.NRGBA, frame int) {
	b := img.Bounds()
	w := b.Dx()
	barW := w / len(barColors)
	if barW == 0 {
		barW = 1
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			idx := ((x-b.Min.X)/barW + frame) % len(barColors)
			img.SetNRGBA(x, y, barColors[idx])
		}
	}
}

// drawChecker paints an 8px checkerboard whose phase flips each frame.
func (g *Generator) drawChecker(img *image.NRGBA, frame int) {
	const cell = 8
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			on := ((x-b.Min.X)/cell+(y-b.Min.Y)/cell+frame)%2 == 0
			if on {
				img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{A: 255})
			}
		}
	}
}
