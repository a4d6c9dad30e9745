// ABOUTME: Tests for audio types
// ABOUTME: Tests format helpers and sample conversion functions
package audio

import "testing"

func TestFormatEqual(t *testing.T) {
	a := Format{SampleRate: 48000, Channels: 2, BitDepth: 24}
	b := Format{SampleRate: 48000, Channels: 2, BitDepth: 24}
	c := Format{SampleRate: 44100, Channels: 2, BitDepth: 24}

	if !a.Equal(b) {
		t.Error("identical formats reported unequal")
	}
	if a.Equal(c) {
		t.Error("different sample rates reported equal")
	}
}

func TestBufferFrameCount(t *testing.T) {
	buf := Buffer{
		Samples: make([]int32, 1024),
		Format:  Format{SampleRate: 48000, Channels: 2, BitDepth: 24},
	}
	if got := buf.FrameCount(); got != 512 {
		t.Errorf("expected 512 frames, got %d", got)
	}

	var empty Buffer
	if got := empty.FrameCount(); got != 0 {
		t.Errorf("expected 0 frames for zero buffer, got %d", got)
	}
}

func TestSampleFromInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected int32
	}{
		{"zero", 0, 0},
		{"positive", 100, 100 << 8},
		{"negative", -100, -100 << 8},
		{"max", 32767, 32767 << 8},
		{"min", -32768, -32768 << 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected int16
	}{
		{"zero", 0, 0},
		{"positive", 100 << 8, 100},
		{"negative", -100 << 8, -100},
		{"24bit positive", 1000000, 3906}, // 1000000 >> 8 = 3906
		{"24bit negative", -1000000, -3907},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleToInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleFrom24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    [3]byte
		expected int32
	}{
		{"zero", [3]byte{0, 0, 0}, 0},
		{"positive", [3]byte{0x56, 0x34, 0x12}, 0x123456},
		{"negative", [3]byte{0x00, 0xFF, 0xFF}, -256},
		{"max positive", [3]byte{0xFF, 0xFF, 0x7F}, Max24Bit},
		{"max negative", [3]byte{0x00, 0x00, 0x80}, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFrom24Bit(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestRoundTrip24Bit(t *testing.T) {
	samples := []int32{0, 100000, -100000, Max24Bit, Min24Bit}

	for _, original := range samples {
		bytes := SampleTo24Bit(original)
		result := SampleFrom24Bit(bytes)
		if result != original {
			t.Errorf("round-trip failed: %d -> %v -> %d", original, bytes, result)
		}
	}
}

func TestClamp24(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		expected int32
	}{
		{"in range", 12345, 12345},
		{"negative in range", -12345, -12345},
		{"over", int64(Max24Bit) * 2, Max24Bit},
		{"under", int64(Min24Bit) * 2, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp24(tt.input); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}
