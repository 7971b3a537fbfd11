package render

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/compose"
	"github.com/user/clipdeck/pkg/pipeline"
	"github.com/user/clipdeck/pkg/ports"
)

type writeCloser = io.WriteCloser

type framesInput struct {
	plan       pipeline.Plan
	media      *compose.Media
	compositor *compose.Compositor
	encoder    ports.VideoEncoder
	out        io.Writer
	progress   ProgressFunc
}

// framesStage composes every frame of a plan and encodes them in order.
// It returns the number of frames written.
type framesStage struct {
	workers int
	sink    ports.DebugSink
	logger  ports.Logger
}

func (s *framesStage) Execute(ctx context.Context, in framesInput) (int, error) {
	plan := in.plan
	cfg := ports.EncoderConfig{
		Width:   plan.Width,
		Height:  plan.Height,
		FPS:     plan.FPS,
		Quality: plan.Quality,
		Audio:   plan.Audio,
	}
	if err := in.encoder.Begin(in.out, cfg); err != nil {
		return 0, apperr.New(apperr.KindRenderFailed, "begin encoding", err)
	}

	s.logger.Debug("Compositing %d frames with %d workers", plan.TotalFrames, s.workers)

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan pipeline.FrameJob)
	results := make(chan pipeline.ComposedFrame, s.workers)
	// A token is taken per frame handed out and returned once the frame is
	// encoded, so at most cap(window) frames are held in memory.
	window := make(chan struct{}, 2*s.workers)

	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < plan.TotalFrames; i++ {
			select {
			case window <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case jobs <- pipeline.FrameJob{Index: i, Time: plan.FrameTime(i)}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			return s.worker(gctx, in, jobs, results)
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	written := 0
	g.Go(func() error {
		var err error
		written, err = s.encodeInOrder(gctx, in, results, window)
		return err
	})

	if err := g.Wait(); err != nil {
		return written, err
	}
	if err := in.encoder.End(); err != nil {
		return written, apperr.New(apperr.KindRenderFailed, "finish encoding", err)
	}
	return written, nil
}

func (s *framesStage) worker(ctx context.Context, in framesInput, jobs <-chan pipeline.FrameJob, results chan<- pipeline.ComposedFrame) error {
	for job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := in.media.Frame(job.Time, in.plan.Camera)
		if err != nil {
			return apperr.AtFrame(apperr.KindRenderFailed, "decode", job.Index, err)
		}
		img, err := in.compositor.Compose(frame)
		if err != nil {
			return apperr.AtFrame(apperr.KindRenderFailed, "compose", job.Index, err)
		}
		select {
		case results <- pipeline.ComposedFrame{Index: job.Index, Image: img}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// encodeInOrder is the single consumer of results. Audio is read here
// because the improver must see blocks in presentation order.
func (s *framesStage) encodeInOrder(ctx context.Context, in framesInput, results <-chan pipeline.ComposedFrame, window <-chan struct{}) (int, error) {
	plan := in.plan
	reorder := pipeline.NewReorder[pipeline.ComposedFrame](0)
	var improve *improver
	if plan.Audio != nil && plan.Improve {
		improve = newImprover(plan.Audio.Channels)
	}
	debug := s.sink != nil && s.sink.Enabled()

	written := 0
	for written < plan.TotalFrames {
		var frame pipeline.ComposedFrame
		select {
		case f, ok := <-results:
			if !ok {
				if err := ctx.Err(); err != nil {
					return written, err
				}
				return written, apperr.AtFrame(apperr.KindRenderFailed, "compose", reorder.Next(), fmt.Errorf("frame was never composed"))
			}
			frame = f
		case <-ctx.Done():
			return written, ctx.Err()
		}

		for _, f := range reorder.Push(frame.Index, frame) {
			if err := ctx.Err(); err != nil {
				return written, err
			}
			audio, err := s.audioFor(in, f.Index, improve)
			if err != nil {
				return written, apperr.AtFrame(apperr.KindRenderFailed, "read audio", f.Index, err)
			}
			if err := in.encoder.EncodeFrame(f.Image, audio); err != nil {
				return written, apperr.AtFrame(apperr.KindRenderFailed, "encode", f.Index, err)
			}
			if debug {
				if err := s.sink.SaveComposedFrame(f.Index, f.Image); err != nil {
					s.logger.Warn("Failed to save debug output: %v", err)
				}
			}
			written++
			in.progress(FrameRendered{CurrentFrame: f.Index})
			<-window
		}
	}
	return written, nil
}

func (s *framesStage) audioFor(in framesInput, index int, improve *improver) ([]int16, error) {
	plan := in.plan
	if plan.Audio == nil {
		return nil, nil
	}
	buf := make([]int16, plan.Audio.SamplesPerFrame(index, plan.FPS)*plan.Audio.Channels)
	if err := in.media.Audio.ReadAt(buf, plan.AudioTime(index)); err != nil {
		return nil, err
	}
	if improve != nil {
		improve.Process(buf)
	}
	return buf, nil
}
