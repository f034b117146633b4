package analyze

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
)

// AudioMeta is what the speech table records about the analysed audio.
// Frame size and stride are fixed model constants, not read from the file.
type AudioMeta struct {
	SampleRate    int     `json:"sample_rate"`
	FrameSizeMS   float64 `json:"frame_size_ms"`
	FrameStrideMS float64 `json:"frame_stride_ms"`
	DurationSec   float64 `json:"duration_sec"`
}

// DefaultAudioMeta is assumed when the probe fails. 16 kHz mono ~10 s is
// the nominal chunk shape producers send.
func DefaultAudioMeta() AudioMeta {
	return AudioMeta{SampleRate: 16000, FrameSizeMS: 25.0, FrameStrideMS: 10.0, DurationSec: 10.0}
}

// ProbeWAV reads the RIFF header for the sample rate and computes the
// duration from the data chunk length. Any parse failure yields the
// defaults; a bad header never fails the chunk.
func ProbeWAV(path string) AudioMeta {
	meta, err := probeWAV(path)
	if err != nil {
		return DefaultAudioMeta()
	}
	return meta
}

var errNotWAV = errors.New("not a RIFF/WAVE file")

func probeWAV(path string) (AudioMeta, error) {
	meta := DefaultAudioMeta()

	f, err := os.Open(path)
	if err != nil {
		return meta, err
	}
	defer f.Close()

	var header [12]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return meta, err
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return meta, errNotWAV
	}

	var byteRate uint32
	var haveFmt, haveData bool
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(f, chunk[:]); err != nil {
			break
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return meta, errNotWAV
			}
			var fmtChunk [16]byte
			if _, err := io.ReadFull(f, fmtChunk[:]); err != nil {
				return meta, err
			}
			meta.SampleRate = int(binary.LittleEndian.Uint32(fmtChunk[4:8]))
			byteRate = binary.LittleEndian.Uint32(fmtChunk[8:12])
			haveFmt = true
			if size > 16 {
				if _, err := f.Seek(int64(size-16), io.SeekCurrent); err != nil {
					return meta, err
				}
			}
		case "data":
			if byteRate > 0 {
				meta.DurationSec = float64(size) / float64(byteRate)
			}
			haveData = true
		default:
			if _, err := f.Seek(int64(size), io.SeekCurrent); err != nil {
				return meta, err
			}
		}
		// Chunks are word-aligned; odd sizes carry a pad byte.
		if size%2 == 1 {
			if _, err := f.Seek(1, io.SeekCurrent); err != nil {
				return meta, err
			}
		}
		if haveFmt && haveData {
			return meta, nil
		}
	}

	if !haveFmt {
		return DefaultAudioMeta(), errNotWAV
	}
	return meta, nil
}
