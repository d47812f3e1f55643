// Package encode implements the pure-Go encoding session behind an export.
// A Recorder accepts frames, buffers encoded data chunks, and on stop
// assembles them into a single playable artifact. No external encoder
// binary is involved at any point.
package encode

import "fmt"

// Codec identifiers.
const (
	CodecMJPEG = "MJPG"
	CodecRaw   = "DIB "
)

// Container identifiers.
const (
	ContainerAVI    = "avi"
	ContainerStream = "mjpeg"
)

// Format describes one container/codec combination the recorder can
// produce.
type Format struct {
	Name      string
	Codec     string
	Container string
	Ext       string
	MIME      string
}

// PreferredFormats returns the ordered format preference list. Export
// selects the first supported entry: MJPEG-in-AVI, then uncompressed
// frames in AVI, then a bare MJPEG stream as the generic fallback.
func PreferredFormats() []Format {
	return []Format{
		{Name: "mjpeg-avi", Codec: CodecMJPEG, Container: ContainerAVI, Ext: "avi", MIME: "video/x-msvideo"},
		{Name: "raw-avi", Codec: CodecRaw, Container: ContainerAVI, Ext: "avi", MIME: "video/x-msvideo"},
		{Name: "mjpeg-stream", Codec: CodecMJPEG, Container: ContainerStream, Ext: "mjpeg", MIME: "video/x-motion-jpeg"},
	}
}

// Supported reports whether the recorder can produce the format.
func Supported(f Format) bool {
	switch f.Container {
	case ContainerAVI:
		return f.Codec == CodecMJPEG || f.Codec == CodecRaw
	case ContainerStream:
		return f.Codec == CodecMJPEG
	}
	return false
}

// SelectFormat returns the first supported format from the preference
// list.
func SelectFormat() (Format, error) {
	for _, f := range PreferredFormats() {
		if Supported(f) {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("no supported output format available")
}
