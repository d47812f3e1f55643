package encode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
)

// binaryWriter wraps an io.Writer and accumulates the first error,
// preventing silently-ignored write failures throughout the AVI assembly.
type binaryWriter struct {
	w   io.Writer
	err error
}

func (bw *binaryWriter) fourCC(s string) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write([]byte(s))
}

func (bw *binaryWriter) u32(v uint32) {
	if bw.err != nil {
		return
	}
	bw.err = binary.Write(bw.w, binary.LittleEndian, v)
}

func (bw *binaryWriter) u16(v uint16) {
	if bw.err != nil {
		return
	}
	bw.err = binary.Write(bw.w, binary.LittleEndian, v)
}

func (bw *binaryWriter) bytes(data []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(data)
}

// writeAVI assembles an AVI container around the already-encoded frame
// chunks and writes it to w. Every chunk is one video frame; chunk sizes
// may vary (MJPEG) or be constant (uncompressed DIB).
func writeAVI(w io.Writer, frames [][]byte, codec string, width, height, fps int) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to containerize")
	}

	frameCount := uint32(len(frames))
	imgW := uint32(width)
	imgH := uint32(height)
	usPerFrame := uint32(1_000_000 / fps)

	// AVI requires even-aligned chunks.
	var moviSize, totalBytes, maxChunk uint32
	moviSize = 4
	for _, f := range frames {
		padded := uint32(len(f))
		if padded%2 != 0 {
			padded++
		}
		moviSize += 8 + padded
		totalBytes += uint32(len(f))
		if uint32(len(f)) > maxChunk {
			maxChunk = uint32(len(f))
		}
	}

	idx1Size := uint32(8 + frameCount*16)
	hdrlSize := uint32(4 + 64 + 124) // "hdrl" + avih + strl
	fileSize := 4 + (8 + hdrlSize) + (8 + moviSize) + idx1Size

	bw := &binaryWriter{w: w}

	// ── RIFF Header ──
	bw.fourCC("RIFF")
	bw.u32(fileSize)
	bw.fourCC("AVI ")

	// ── hdrl LIST ──
	bw.fourCC("LIST")
	bw.u32(hdrlSize)
	bw.fourCC("hdrl")

	// avih (56 bytes)
	bw.fourCC("avih")
	bw.u32(56)
	bw.u32(usPerFrame)
	bw.u32(totalBytes / frameCount * uint32(fps)) // max bytes/sec
	bw.u32(0)                                     // padding granularity
	bw.u32(0x10)                                  // AVIF_HASINDEX
	bw.u32(frameCount)
	bw.u32(0)        // initial frames
	bw.u32(1)        // streams
	bw.u32(maxChunk) // suggested buffer
	bw.u32(imgW)
	bw.u32(imgH)
	bw.u32(0) // reserved ×4
	bw.u32(0)
	bw.u32(0)
	bw.u32(0)

	// strl LIST (116 bytes)
	bw.fourCC("LIST")
	bw.u32(116)
	bw.fourCC("strl")

	// strh (56 bytes)
	bw.fourCC("strh")
	bw.u32(56)
	bw.fourCC("vids")
	bw.fourCC(codec)
	bw.u32(0) // flags
	bw.u16(0) // priority
	bw.u16(0) // language
	bw.u32(0) // initial frames
	bw.u32(1) // scale
	bw.u32(uint32(fps))
	bw.u32(0) // start
	bw.u32(frameCount)
	bw.u32(maxChunk) // suggested buffer
	bw.u32(0)        // quality
	bw.u32(0)        // sample size
	bw.u16(0)        // rect left
	bw.u16(0)        // rect top
	bw.u16(uint16(imgW))
	bw.u16(uint16(imgH))

	// strf, a BITMAPINFOHEADER (40 bytes)
	bw.fourCC("strf")
	bw.u32(40)
	bw.u32(40)
	bw.u32(imgW)
	bw.u32(imgH)
	bw.u16(1)  // planes
	bw.u16(24) // bpp
	if codec == CodecRaw {
		bw.u32(0) // BI_RGB
	} else {
		bw.fourCC(codec)
	}
	bw.u32(imgW * imgH * 3)
	bw.u32(0) // x pels/m
	bw.u32(0) // y pels/m
	bw.u32(0) // clr used
	bw.u32(0) // clr important

	// ── movi LIST ──
	bw.fourCC("LIST")
	bw.u32(moviSize)
	bw.fourCC("movi")

	padByte := []byte{0}
	for _, f := range frames {
		bw.fourCC("00dc")
		bw.u32(uint32(len(f)))
		bw.bytes(f)
		if len(f)%2 != 0 {
			bw.bytes(padByte)
		}
	}

	// ── idx1 ──
	bw.fourCC("idx1")
	bw.u32(frameCount * 16)

	offset := uint32(4) // from movi start
	for _, f := range frames {
		bw.fourCC("00dc")
		bw.u32(0x10) // AVIIF_KEYFRAME
		bw.u32(offset)
		bw.u32(uint32(len(f)))
		padded := uint32(len(f))
		if padded%2 != 0 {
			padded++
		}
		offset += 8 + padded
	}

	if bw.err != nil {
		return fmt.Errorf("write AVI: %w", bw.err)
	}
	return nil
}

// encodeDIB converts an image into an uncompressed bottom-up BGR frame
// with 4-byte aligned rows, as AVI DIB streams expect.
func encodeDIB(img image.Image) []byte {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	rowSize := (w*3 + 3) &^ 3

	buf := bytes.NewBuffer(make([]byte, 0, rowSize*h))
	row := make([]byte, rowSize)
	for y := bounds.Max.Y - 1; y >= bounds.Min.Y; y-- {
		i := 0
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			row[i] = byte(b >> 8)
			row[i+1] = byte(g >> 8)
			row[i+2] = byte(r >> 8)
			i += 3
		}
		for ; i < rowSize; i++ {
			row[i] = 0
		}
		buf.Write(row)
	}
	return buf.Bytes()
}
