package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const wavHeaderSize = 44

// ErrInvalidWAV is returned by DecodeWAV for input that is not a 16-bit PCM
// RIFF/WAVE file.
var ErrInvalidWAV = errors.New("audio: invalid wav")

type wavHeader struct {
	RIFF          [4]byte
	ChunkSize     uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	Format        uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

// writeWAV writes interleaved samples as a canonical 16-bit PCM WAV file.
func writeWAV(w io.Writer, samples []int16, channels, sampleRate int) error {
	if channels <= 0 || sampleRate <= 0 {
		return fmt.Errorf("audio: wav: %d channels at %d Hz", channels, sampleRate)
	}
	dataSize := len(samples) * 2
	if dataSize > math.MaxUint32-wavHeaderSize {
		return fmt.Errorf("audio: wav: recording too long (%d samples)", len(samples))
	}

	h := wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + dataSize),
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		Format:        1,
		Channels:      uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * 2),
		BlockAlign:    uint16(channels * 2),
		BitsPerSample: 16,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(dataSize),
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("audio: wav header: %w", err)
	}
	if len(samples) == 0 {
		return nil
	}
	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("audio: wav data: %w", err)
	}
	return nil
}

// WAVInfo describes a decoded recording.
type WAVInfo struct {
	Channels   int
	SampleRate int
	Frames     int
}

// DecodeWAV parses a canonical 16-bit PCM WAV file as written by
// StopCapture and returns its interleaved samples.
func DecodeWAV(data []byte) (WAVInfo, []int16, error) {
	if len(data) < wavHeaderSize {
		return WAVInfo{}, nil, fmt.Errorf("%w: %d bytes", ErrInvalidWAV, len(data))
	}

	var h wavHeader
	if _, err := binary.Decode(data[:wavHeaderSize], binary.LittleEndian, &h); err != nil {
		return WAVInfo{}, nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if string(h.RIFF[:]) != "RIFF" || string(h.WAVE[:]) != "WAVE" || string(h.Data[:]) != "data" {
		return WAVInfo{}, nil, fmt.Errorf("%w: bad chunk ids", ErrInvalidWAV)
	}
	if h.Format != 1 || h.BitsPerSample != 16 || h.Channels == 0 {
		return WAVInfo{}, nil, fmt.Errorf("%w: format %d, %d bits, %d channels",
			ErrInvalidWAV, h.Format, h.BitsPerSample, h.Channels)
	}

	body := data[wavHeaderSize:]
	if uint64(h.DataSize) > uint64(len(body)) {
		return WAVInfo{}, nil, fmt.Errorf("%w: truncated data chunk", ErrInvalidWAV)
	}
	samples := make([]int16, h.DataSize/2)
	if _, err := binary.Decode(body[:len(samples)*2], binary.LittleEndian, samples); err != nil {
		return WAVInfo{}, nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}

	info := WAVInfo{
		Channels:   int(h.Channels),
		SampleRate: int(h.SampleRate),
		Frames:     len(samples) / int(h.Channels),
	}
	return info, samples, nil
}
