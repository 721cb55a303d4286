package transcode

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/RyanBlaney/sonido-match/logging"
)

const (
	wavFormatPCM        = 1
	wavFormatIEEEFloat  = 3
	wavFormatExtensible = 0xFFFE
)

// DecodeFile reads a WAV file into interleaved float64 samples
func DecodeFile(path string) (data *AudioData, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open wav file failed")
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			err = multierr.Append(err, closeErr)
		}
	}()

	return Decode(file, filepath.Base(path))
}

// Decode reads a WAV stream. name is recorded in the metadata.
func Decode(r io.ReadSeeker, name string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "wav_decoder",
		"function":  "Decode",
		"file":      name,
	})

	format, err := probeFormat(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse wav format failed")
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "rewind wav reader failed")
	}

	decoder := wav.NewDecoder(r)
	if err := decoder.FwdToPCM(); err != nil {
		return nil, errors.Wrap(err, "decode wav header failed")
	}

	channels := int(decoder.NumChans)
	if channels <= 0 {
		return nil, errors.Errorf("invalid channel count: %d", decoder.NumChans)
	}
	sampleRate := int(decoder.SampleRate)
	if sampleRate <= 0 {
		return nil, errors.Errorf("invalid sample rate: %dHz", sampleRate)
	}

	var pcm []float64
	kind := "pcm"
	switch {
	case format.isFloat():
		kind = "float"
		pcm, err = readFloatPCM(decoder, channels)
	case format.isPCM():
		var buf *audio.IntBuffer
		buf, err = decoder.FullPCMBuffer()
		if err != nil {
			return nil, errors.Wrap(err, "decode wav data failed")
		}
		pcm, err = intToFloat(buf, channels, int(decoder.BitDepth))
	default:
		return nil, errors.Errorf("unsupported wav format: code=%d", format.code)
	}
	if err != nil {
		return nil, err
	}

	data := NewAudioData(pcm, sampleRate, channels, name)
	data.Metadata.Format = kind
	data.Metadata.BitDepth = int(decoder.BitDepth)

	logger.Debug("Decoded WAV", logging.Fields{
		"sample_rate": sampleRate,
		"channels":    channels,
		"bit_depth":   decoder.BitDepth,
		"duration":    data.Duration.String(),
	})

	return data, nil
}

type wavFormat struct {
	code      uint16
	subFormat uint16 // first two bytes of the extensible GUID
}

func (f wavFormat) isFloat() bool {
	return f.code == wavFormatIEEEFloat || (f.code == wavFormatExtensible && f.subFormat == wavFormatIEEEFloat)
}

func (f wavFormat) isPCM() bool {
	return f.code == wavFormatPCM || (f.code == wavFormatExtensible && f.subFormat == wavFormatPCM)
}

// probeFormat walks the RIFF chunks up to "fmt " and reads the format tag,
// which go-audio/wav does not expose for extensible files
func probeFormat(r io.ReadSeeker) (wavFormat, error) {
	var format wavFormat
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return format, errors.Wrap(err, "rewind wav reader failed")
	}

	parser := riff.New(r)
	if err := parser.ParseHeaders(); err != nil {
		if parser.ID != riff.RiffID {
			return format, errors.New("not a RIFF/WAVE file")
		}
		return format, errors.Wrap(err, "read RIFF header failed")
	}
	if parser.Format != riff.WavFormatID {
		return format, errors.New("not a RIFF/WAVE file")
	}

	for {
		chunk, err := parser.NextChunk()
		if err != nil {
			return format, errors.Wrap(err, "fmt chunk not found")
		}
		if chunk.ID != riff.FmtID {
			chunk.Drain()
			continue
		}

		if chunk.Size < 16 || chunk.Size > 1<<10 {
			return format, errors.Errorf("invalid fmt chunk size: %d bytes", chunk.Size)
		}
		buf := make([]byte, chunk.Size)
		if _, err := io.ReadFull(chunk, buf); err != nil {
			return format, errors.Wrap(err, "read fmt chunk failed")
		}

		format.code = binary.LittleEndian.Uint16(buf[0:2])
		if format.code == wavFormatExtensible {
			if len(buf) < 26 {
				return format, errors.New("fmt chunk too short for extensible format")
			}
			format.subFormat = binary.LittleEndian.Uint16(buf[24:26])
		}
		return format, nil
	}
}

// intToFloat scales integer PCM to [-1, 1]. 8-bit WAV is unsigned.
func intToFloat(buf *audio.IntBuffer, channels, decoderBitDepth int) ([]float64, error) {
	if buf == nil || buf.Format == nil {
		return nil, errors.New("invalid PCM buffer or format")
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = decoderBitDepth
	}
	if bitDepth <= 0 {
		return nil, errors.New("unknown source bit depth")
	}
	if rem := len(buf.Data) % channels; rem != 0 {
		return nil, errors.Errorf("wav data length (%d samples) is not divisible by channel count (%d)", len(buf.Data), channels)
	}

	scale := math.Pow(2, float64(bitDepth)-1)
	offset := 0.0
	if bitDepth == 8 {
		offset = scale
	}

	pcm := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		pcm[i] = (float64(v) - offset) / scale
	}
	return pcm, nil
}

func readFloatPCM(decoder *wav.Decoder, channels int) ([]float64, error) {
	if decoder.PCMChunk == nil {
		return nil, errors.New("PCM chunk not found")
	}

	bytesPerSample := int(decoder.BitDepth) / 8
	if bytesPerSample != 4 && bytesPerSample != 8 {
		return nil, errors.Errorf("unsupported float bit depth: %d", decoder.BitDepth)
	}

	raw := make([]byte, decoder.PCMSize)
	if _, err := io.ReadFull(decoder.PCMChunk, raw); err != nil {
		return nil, errors.Wrap(err, "read PCM chunk failed")
	}
	if rem := len(raw) % (bytesPerSample * channels); rem != 0 {
		return nil, errors.Errorf("wav data length (%d bytes) is not divisible by frame size (%d)", len(raw), bytesPerSample*channels)
	}

	pcm := make([]float64, len(raw)/bytesPerSample)
	for i := range pcm {
		b := raw[i*bytesPerSample : (i+1)*bytesPerSample]
		var sample float64
		if bytesPerSample == 4 {
			sample = float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		} else {
			sample = math.Float64frombits(binary.LittleEndian.Uint64(b))
		}
		if math.IsNaN(sample) || math.IsInf(sample, 0) {
			return nil, errors.Errorf("invalid float PCM sample at index %d", i)
		}
		pcm[i] = sample
	}
	return pcm, nil
}
