package transcode

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func writeTestWav(t *testing.T, path string, sampleRate, bitDepth, numChannels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	enc := wav.NewEncoder(f, sampleRate, bitDepth, numChannels, 1)
	buf := &audio.IntBuffer{
		Data: data,
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  sampleRate,
		},
		SourceBitDepth: bitDepth,
	}

	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

func floatWav(t *testing.T, sampleRate, numChannels int, data []float32) []byte {
	t.Helper()

	const fmtChunkSize = 16
	blockAlign := numChannels * 4
	dataSize := len(data) * 4

	var buf bytes.Buffer
	write := func(v any) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}

	buf.WriteString("RIFF")
	write(uint32(4 + (8 + fmtChunkSize) + (8 + dataSize)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	write(uint32(fmtChunkSize))
	write(uint16(wavFormatIEEEFloat))
	write(uint16(numChannels))
	write(uint32(sampleRate))
	write(uint32(sampleRate * blockAlign))
	write(uint16(blockAlign))
	write(uint16(32))
	buf.WriteString("data")
	write(uint32(dataSize))
	for _, s := range data {
		write(s)
	}
	return buf.Bytes()
}

func TestDecodeFile_Stereo16Bit(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeTestWav(t, path, 8000, 16, 2, []int{16384, -16384, 0, 32767, -32768, 8192})

	data, err := DecodeFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, data.SampleRate)
	assert.Equal(t, 2, data.Channels)
	assert.Equal(t, 3, data.Frames())
	assert.Equal(t, "stereo.wav", data.Filename())
	assert.Equal(t, "pcm", data.Metadata.Format)
	assert.Equal(t, 16, data.Metadata.BitDepth)
	assert.InDeltaSlice(t, []float64{0.5, -0.5, 0, 32767.0 / 32768, -1, 0.25}, data.PCM, 1e-9)
	assert.Equal(t, 375*time.Microsecond, data.Duration)

	channels := data.Deinterleave()
	require.Len(t, channels, 2)
	assert.InDeltaSlice(t, []float64{0.5, 0, -1}, channels[0], 1e-9)
	assert.InDelta(t, 0.5*32767/32768, data.Mono()[1], 1e-9)
}

func TestDecode_Float32(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	raw := floatWav(t, 22050, 1, []float32{0.25, -0.75, 1})

	data, err := Decode(bytes.NewReader(raw), "float.wav")
	require.NoError(t, err)

	assert.Equal(t, "float", data.Metadata.Format)
	assert.Equal(t, 1, data.Channels)
	assert.InDeltaSlice(t, []float64{0.25, -0.75, 1}, data.PCM, 1e-9)
	assert.Equal(t, data.PCM, data.Mono())
}

func TestDecode_RejectsNonWav(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	_, err := Decode(bytes.NewReader([]byte("definitely not a riff file")), "junk.wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a RIFF/WAVE file")
}

func TestProbeFormat_ExtensibleAfterJunk(t *testing.T) {
	var buf bytes.Buffer
	write := func(v any) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}

	buf.WriteString("RIFF")
	write(uint32(4 + (8 + 6) + (8 + 40)))
	buf.WriteString("WAVE")
	buf.WriteString("JUNK")
	write(uint32(6))
	buf.Write(make([]byte, 6))
	buf.WriteString("fmt ")
	write(uint32(40))
	write(uint16(wavFormatExtensible))
	write(uint16(2))      // channels
	write(uint32(48000))  // sample rate
	write(uint32(384000)) // byte rate
	write(uint16(8))      // block align
	write(uint16(32))     // bits per sample
	write(uint16(22))     // extension size
	write(uint16(32))     // valid bits
	write(uint32(3))      // channel mask
	write(uint16(wavFormatIEEEFloat))
	buf.Write(make([]byte, 14)) // rest of the sub-format GUID

	format, err := probeFormat(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, uint16(wavFormatExtensible), format.code)
	assert.True(t, format.isFloat())
	assert.False(t, format.isPCM())
}

func TestProbeFormat_MissingFmtChunk(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(4)))
	buf.WriteString("WAVE")

	_, err := probeFormat(bytes.NewReader(buf.Bytes()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fmt chunk not found")
}

func TestDecodeFile_Missing(t *testing.T) {
	_, err := DecodeFile(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewAudioData(t *testing.T) {
	data := NewAudioData(make([]float64, 88200), 44100, 2, "a.wav")

	assert.Equal(t, time.Second, data.Duration)
	assert.Equal(t, 44100, data.Frames())
	assert.Len(t, data.Mono(), 44100)
}
