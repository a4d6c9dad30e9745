// ABOUTME: Passive recording tee writing tapped PCM to disk
// ABOUTME: Drops chunks instead of blocking when the writer falls behind
package record

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/livethru/livethru-go/pkg/audio"
)

// FileType identifies a recording container format.
type FileType string

// FileTypeWAV is the only supported container.
const FileTypeWAV FileType = "wav"

// ErrUnsupportedFileType is returned for any container other than WAV.
var ErrUnsupportedFileType = errors.New("unsupported recording file type")

// chunkQueueDepth bounds how far the writer may fall behind before taps
// start dropping.
const chunkQueueDepth = 64

// Recorder tees an audio signal to a file. Tap never blocks and never
// allocates on the steady path, so it is safe to call from hardware
// callbacks; a writer goroutine drains the tapped chunks to disk. A
// Recorder supports exactly one Start/Stop cycle.
type Recorder struct {
	file   *os.File
	enc    *wav.Encoder
	format audio.Format

	chunks chan []int32
	pool   sync.Pool
	quit   chan struct{}
	donech chan struct{}

	started atomic.Bool
	stopped atomic.Bool
	dropped atomic.Int64

	ints []int // reused conversion buffer, writer goroutine only
}

// NewRecorder opens the target file and prepares the encoder. The recorder
// accepts taps only between Start and Stop.
func NewRecorder(path string, fileType FileType, format audio.Format) (*Recorder, error) {
	if fileType != FileTypeWAV {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, fileType)
	}
	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("record: unsupported bit depth %d", format.BitDepth)
	}
	if format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("record: invalid format %+v", format)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("record: create %s: %w", path, err)
	}

	return &Recorder{
		file:   f,
		enc:    wav.NewEncoder(f, format.SampleRate, format.BitDepth, format.Channels, 1),
		format: format,
		chunks: make(chan []int32, chunkQueueDepth),
		quit:   make(chan struct{}),
		donech: make(chan struct{}),
	}, nil
}

// Start launches the writer goroutine. Starting twice is a no-op.
func (r *Recorder) Start() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go r.writeLoop()
}

// Tap hands a copy of the samples to the writer. When the queue is full the
// chunk is dropped and counted rather than blocking the caller.
func (r *Recorder) Tap(samples []int32) {
	if !r.started.Load() || r.stopped.Load() {
		return
	}

	var chunk []int32
	if p, ok := r.pool.Get().(*[]int32); ok && cap(*p) >= len(samples) {
		chunk = (*p)[:len(samples)]
	} else {
		chunk = make([]int32, len(samples))
	}
	copy(chunk, samples)

	select {
	case r.chunks <- chunk:
	default:
		r.dropped.Add(1)
		r.pool.Put(&chunk)
	}
}

// Stop drains pending chunks, finalizes the container header and closes the
// file. Stopping an unstarted recorder just closes the file.
func (r *Recorder) Stop() error {
	if !r.stopped.CompareAndSwap(false, true) {
		return nil
	}
	if r.started.Load() {
		close(r.quit)
		<-r.donech
	}

	encErr := r.enc.Close()
	closeErr := r.file.Close()
	if encErr != nil {
		return fmt.Errorf("record: finalize: %w", encErr)
	}
	if closeErr != nil {
		return fmt.Errorf("record: close: %w", closeErr)
	}
	return nil
}

// Dropped returns the number of tapped chunks discarded because the writer
// fell behind.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

func (r *Recorder) writeLoop() {
	defer close(r.donech)
	for {
		select {
		case chunk := <-r.chunks:
			r.writeChunk(chunk)
		case <-r.quit:
			for {
				select {
				case chunk := <-r.chunks:
					r.writeChunk(chunk)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeChunk(chunk []int32) {
	if cap(r.ints) < len(chunk) {
		r.ints = make([]int, len(chunk))
	}
	ints := r.ints[:len(chunk)]

	switch r.format.BitDepth {
	case 16:
		for i, s := range chunk {
			ints[i] = int(audio.SampleToInt16(s))
		}
	default: // 24-bit: internal samples already hold the 24-bit value
		for i, s := range chunk {
			ints[i] = int(s)
		}
	}

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: r.format.Channels,
			SampleRate:  r.format.SampleRate,
		},
		Data:           ints,
		SourceBitDepth: r.format.BitDepth,
	}
	// Write errors after open are rare (disk full); keep writing, the
	// final header from Close reflects what landed.
	_ = r.enc.Write(buf)

	r.pool.Put(&chunk)
}
