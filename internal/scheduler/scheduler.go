// Package scheduler implements the parallel encoding scheduler
// (component G): a bounded worker pool that consumes chunks, optionally
// runs target-quality search, drives each chunk's encoder passes through
// the external tool gateway, verifies output, and records durable
// progress through the resume store.
package scheduler

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/splitreel/splitreel/internal/chunk"
	"github.com/splitreel/splitreel/internal/encoder"
	"github.com/splitreel/splitreel/internal/errors"
	"github.com/splitreel/splitreel/internal/gateway"
	"github.com/splitreel/splitreel/internal/resume"
	"github.com/splitreel/splitreel/internal/tq"
)

// FrameCounter probes an encoded file's frame count, used for the
// post-encode output verification step.
type FrameCounter interface {
	FrameCount(path string) (int, error)
}

// Progress receives per-chunk frame-count deltas as the encoder reports
// them, the write-through collaborator mentioned in §5's shared-resource
// policy.
type Progress interface {
	// Advance publishes a monotonic-per-chunk frame delta.
	Advance(chunkName string, delta int)
}

// Options bundles everything one scheduler run needs beyond the chunk
// queue itself.
type Options struct {
	Encoder         encoder.Tag
	EncoderArgs     []string
	Passes          int
	ReuseFirstPass  bool
	Target          float64 // 0 disables target-quality search
	QualityMin      int
	QualityMax      int
	TQProbes        int
	ProbingRate     int
	Workers         int
	VerifyOutput    bool
	MaxChunkRetries int

	Resume   *resume.Store
	Prober   tq.Prober
	Counter  FrameCounter
	Progress Progress
}

// attemptResult discriminates one chunk-attempt outcome, replacing
// exception-for-control-flow with an explicit result per §9's design
// note.
type attemptResult int

const (
	attemptOK attemptResult = iota
	attemptTransient
	attemptFatal
)

// Run drains chunks with a bounded pool of opts.Workers concurrent
// workers (capped to len(chunks)), retrying each chunk's failures up to
// opts.MaxChunkRetries times before the whole run is marked fatal. It
// returns the first fatal error encountered; on user interrupt
// (ctx.Done) in-flight encoder processes are killed through the
// cancelled context and no new chunks are scheduled.
func Run(ctx context.Context, chunks []chunk.Chunk, opts Options) error {
	workers := opts.Workers
	if workers > len(chunks) {
		workers = len(chunks)
	}
	if workers < 1 {
		workers = 1
	}

	sem := semaphore.NewWeighted(int64(workers))
	g, ctx := errgroup.WithContext(ctx)

	for i := range chunks {
		c := chunks[i]
		if err := sem.Acquire(ctx, 1); err != nil {
			break // context cancelled; stop scheduling new chunks
		}
		g.Go(func() error {
			defer sem.Release(1)
			return runChunk(ctx, c, opts)
		})
	}

	return g.Wait()
}

// runChunk drives one chunk through retries until it succeeds or is
// fatal.
func runChunk(ctx context.Context, c chunk.Chunk, opts Options) error {
	attempts := 0
	for {
		result, err := attemptChunk(ctx, c, opts)
		switch result {
		case attemptOK:
			return nil
		case attemptFatal:
			return err
		case attemptTransient:
			attempts++
			if attempts > opts.MaxChunkRetries {
				return errors.Wrap(errors.KindChunkEncode,
					"scheduler: chunk "+c.Name+" failed after "+itoa(attempts)+" attempts", err)
			}
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// attemptChunk performs one full attempt at encoding c: optional
// target-quality search, N passes, output verification, resume-store
// update. Errors from user interrupt are fatal immediately; any other
// encoder failure is transient (eligible for retry by the caller).
func attemptChunk(ctx context.Context, c chunk.Chunk, opts Options) (attemptResult, error) {
	if ctx.Err() != nil {
		return attemptFatal, errors.NewInterrupted()
	}

	if opts.Target > 0 {
		q, err := tq.Search(c, opts.Target, opts.QualityMin, opts.QualityMax, opts.TQProbes, opts.ProbingRate, opts.Prober)
		if err != nil {
			if errors.IsInterrupted(err) {
				return attemptFatal, err
			}
			return attemptTransient, err
		}
		c.AssignedQuality = &q
	}

	passes := opts.Passes
	startPass := 1
	if opts.ReuseFirstPass && passes >= 2 {
		startPass = 2
	}

	for pass := startPass; pass <= passes; pass++ {
		pipeline, err := encoder.Compose(opts.Encoder, opts.EncoderArgs, encoder.ChunkInput{
			InputCommand: c.InputCommand,
			Frames:       c.Frames,
			FpfPath:      c.FpfPath,
		}, pass, passes, c.OutputPath)
		if err != nil {
			return attemptFatal, err
		}

		encoderCmd := pipeline.EncoderCmd
		if c.AssignedQuality != nil {
			encoderCmd, err = encoder.RewriteQuality(opts.Encoder, encoderCmd, *c.AssignedQuality)
			if err != nil {
				return attemptFatal, err
			}
		}

		previous := 0
		err = gateway.Run(ctx, pipeline.DecoderCmd, encoderCmd, func(line string) {
			frames, matched, fatal := encoder.MatchProgressLine(opts.Encoder, line)
			if fatal || !matched {
				return
			}
			if delta := frames - previous; delta > 0 {
				if opts.Progress != nil {
					opts.Progress.Advance(c.Name, delta)
				}
				previous = frames
			}
		})
		if err != nil {
			if errors.IsInterrupted(err) {
				return attemptFatal, err
			}
			return attemptTransient, err
		}
	}

	if opts.VerifyOutput {
		frames, err := opts.Counter.FrameCount(c.OutputPath)
		if err != nil {
			return attemptTransient, err
		}
		if frames != c.Frames {
			return attemptTransient, errors.NewFrameCountMismatch(c.Name, c.Frames, frames)
		}
		if err := opts.Resume.MarkDone(c.Name, frames); err != nil {
			return attemptTransient, err
		}
		return attemptOK, nil
	}

	if err := opts.Resume.MarkDone(c.Name, c.Frames); err != nil {
		return attemptTransient, err
	}
	return attemptOK, nil
}
