// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats, decoded buffers and sample conversions
package audio

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes the shape of one audio stream. Every buffer exchanged
// with a given stream uses this format; samples are interleaved int32
// holding 24-bit left-justified PCM.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// SamplesPerFrame returns the number of interleaved samples in one frame.
func (f Format) SamplesPerFrame() int {
	return f.Channels
}

// Equal reports whether two formats describe the same stream shape.
func (f Format) Equal(other Format) bool {
	return f.SampleRate == other.SampleRate &&
		f.Channels == other.Channels &&
		f.BitDepth == other.BitDepth
}

// Buffer represents decoded PCM audio held entirely in memory.
type Buffer struct {
	Samples []int32 // interleaved, 24-bit range
	Format  Format
}

// FrameCount returns the number of frames in the buffer.
func (b *Buffer) FrameCount() int {
	if b.Format.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Format.Channels
}

// SampleToInt16 converts an int32 sample to int16 (for 16-bit sinks)
func SampleToInt16(sample int32) int16 {
	return int16(sample >> 8)
}

// SampleFromInt16 converts an int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// Clamp24 saturates a mixing sum to the 24-bit sample range.
func Clamp24(sum int64) int32 {
	if sum > Max24Bit {
		return Max24Bit
	}
	if sum < Min24Bit {
		return Min24Bit
	}
	return int32(sum)
}
