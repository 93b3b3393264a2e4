package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:   	Run bursts through the decoders and print the frames.
 *
 * Description:	There is a separate goroutine, with its own
 *		ChannelDecoder, for each frequency.  Decoded frames
 *		from all of them go to a single queue for serial
 *		processing.
 *
 *		reader		Reads bursts and hands each to the goroutine
 *				for its frequency, starting one the first
 *				time a frequency shows up.
 *
 *		decoders	One per frequency.  Each runs DecodeBurst
 *				and pushes complete frames on the queue.
 *
 *		consumer	Waits for something to show up in the queue,
 *				parses it and writes it to every output.
 *
 *		When the input is exhausted the decoders finish, the
 *		consumer drains what is left in the queue, and Run
 *		returns.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Bursts waiting for a busy decoder.
const DECODER_BACKLOG = 16

type Receiver struct {
	Queue   *FrameQueue
	Stats   *Statistics
	Outputs Outputs

	// Zero means the default.
	MaxFrameLength          int
	MaxFrameLengthCorrected int
}

func NewReceiver(stats *Statistics, outputs Outputs) *Receiver {
	return &Receiver{ //nolint:exhaustruct
		Queue:   NewFrameQueue(stats),
		Stats:   stats,
		Outputs: outputs,
	}
}

func (rx *Receiver) new_decoder(freq uint32) *ChannelDecoder {
	var d = NewChannelDecoder(freq, rx.Queue, rx.Stats)
	if rx.MaxFrameLength > 0 || rx.MaxFrameLengthCorrected > 0 {
		d.SetLimits(
			IfThenElse(rx.MaxFrameLength > 0, rx.MaxFrameLength, MAX_FRAME_LENGTH),
			IfThenElse(rx.MaxFrameLengthCorrected > 0, rx.MaxFrameLengthCorrected, MAX_FRAME_LENGTH_CORRECTED))
	}
	return d
}

/*-------------------------------------------------------------------
 *
 * Name:        Run
 *
 * Purpose:     Decode every burst from r.
 *
 * Returns:	nil when the input was processed completely, otherwise
 *		the first error from reading or from ctx.
 *
 *--------------------------------------------------------------------*/

func (rx *Receiver) Run(ctx context.Context, r io.Reader) error {
	var g, gctx = errgroup.WithContext(ctx)

	// Cancelled once no more frames can be pushed.
	var drainCtx, drained = context.WithCancel(gctx)
	defer drained()

	var decoders sync.WaitGroup

	g.Go(func() error {
		defer func() {
			decoders.Wait()
			drained()
		}()

		var channels = map[uint32]chan *Burst{}
		defer func() {
			for _, ch := range channels {
				close(ch)
			}
		}()

		return ReadBursts(r, func(b *Burst) error {
			var ch, ok = channels[b.Freq]
			if !ok {
				ch = make(chan *Burst, DECODER_BACKLOG)
				channels[b.Freq] = ch

				var d = rx.new_decoder(b.Freq)
				decoders.Add(1)
				go func() {
					defer decoders.Done()
					for b := range ch {
						d.DecodeBurst(b.Info, b.Bits)
					}
				}()
				logger.Debug("Started decoder", "freq", b.Freq)
			}

			select {
			case ch <- b:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	g.Go(func() error {
		for {
			var q, err = rx.Queue.Pop(drainCtx)
			if err != nil {
				// Input finished and queue empty, or we are shutting down.
				return gctx.Err()
			}
			rx.process(q)
		}
	})

	var err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() == nil {
		return nil
	}
	return err
}

func (rx *Receiver) process(q *QueuedFrame) {
	var f, err = ParseAVLC(q, rx.Stats)
	if err != nil {
		logger.Debug("Dropping frame", "freq", q.Freq, "idx", q.Index, "err", err)
		debug_hex_dump("frame", q.Data)
		return
	}

	rx.Outputs.Write(f)
}
