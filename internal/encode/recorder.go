package encode

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
)

const jpegQuality = 95

// Recorder states.
const (
	stateIdle = iota
	stateRecording
	stateStopped
)

// Result is the single completion value an encoding session delivers.
// Either Data holds the assembled artifact or Err explains the failure.
type Result struct {
	Data   []byte
	Frames int
	Err    error
}

// Recorder is one encoding session. Frames are written while recording;
// Stop assembles the buffered chunks into the final artifact and delivers
// it exactly once on the Done channel.
type Recorder struct {
	format Format
	width  int
	height int
	fps    int
	logger *slog.Logger

	mu     sync.Mutex
	state  int
	chunks [][]byte
	fault  error

	done chan Result
}

// NewRecorder creates a recorder for the given format and geometry.
func NewRecorder(format Format, width, height, fps int, logger *slog.Logger) (*Recorder, error) {
	if !Supported(format) {
		return nil, fmt.Errorf("unsupported format %q", format.Name)
	}
	if width < 1 || height < 1 || fps < 1 {
		return nil, fmt.Errorf("invalid recorder geometry %dx%d@%d", width, height, fps)
	}
	return &Recorder{
		format: format,
		width:  width,
		height: height,
		fps:    fps,
		logger: logger,
		done:   make(chan Result, 1),
	}, nil
}

// Format returns the format this recorder produces.
func (r *Recorder) Format() Format {
	return r.format
}

// Start begins the session. Starting twice is a fault.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateIdle {
		return fmt.Errorf("recorder already started")
	}
	r.state = stateRecording
	if r.logger != nil {
		r.logger.Debug("recorder started", "format", r.format.Name, "fps", r.fps)
	}
	return nil
}

// WriteFrame encodes one frame and buffers it as a data chunk. The frame
// must match the recorder geometry exactly.
func (r *Recorder) WriteFrame(img image.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateRecording {
		return fmt.Errorf("recorder is not recording")
	}

	bounds := img.Bounds()
	if bounds.Dx() != r.width || bounds.Dy() != r.height {
		err := fmt.Errorf("frame is %dx%d, recorder expects %dx%d",
			bounds.Dx(), bounds.Dy(), r.width, r.height)
		r.fault = err
		return err
	}

	chunk, err := r.encodeFrame(img)
	if err != nil {
		r.fault = err
		return err
	}
	r.chunks = append(r.chunks, chunk)
	return nil
}

func (r *Recorder) encodeFrame(img image.Image) ([]byte, error) {
	switch r.format.Codec {
	case CodecMJPEG:
		buf := new(bytes.Buffer)
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encode JPEG frame: %w", err)
		}
		return buf.Bytes(), nil
	case CodecRaw:
		return encodeDIB(img), nil
	}
	return nil, fmt.Errorf("unsupported codec %q", r.format.Codec)
}

// FrameCount returns the number of frames written so far.
func (r *Recorder) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chunks)
}

// Stop ends the session, assembles the artifact, and delivers the result
// on Done. Stop is idempotent; only the first call has any effect.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == stateStopped {
		return nil
	}
	if r.state == stateIdle {
		return fmt.Errorf("recorder was never started")
	}
	r.state = stateStopped

	if r.fault != nil {
		r.done <- Result{Err: r.fault}
		return nil
	}
	if len(r.chunks) == 0 {
		// Zero chunks is not a recorder fault; the controller decides
		// what an empty capture means.
		r.done <- Result{}
		return nil
	}

	data, err := r.assemble()
	if err != nil {
		r.done <- Result{Err: err}
		return nil
	}

	if r.logger != nil {
		r.logger.Debug("recorder finalized",
			"frames", len(r.chunks), "bytes", len(data), "format", r.format.Name)
	}
	r.done <- Result{Data: data, Frames: len(r.chunks)}
	return nil
}

func (r *Recorder) assemble() ([]byte, error) {
	switch r.format.Container {
	case ContainerAVI:
		buf := new(bytes.Buffer)
		if err := writeAVI(buf, r.chunks, r.format.Codec, r.width, r.height, r.fps); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case ContainerStream:
		buf := new(bytes.Buffer)
		for _, c := range r.chunks {
			buf.Write(c)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported container %q", r.format.Container)
}

// Done returns the channel the session result is delivered on. The result
// arrives after Stop and is sent exactly once.
func (r *Recorder) Done() <-chan Result {
	return r.done
}
