// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Buffer types and sample conversion functions
// Package audio provides fundamental audio types for the livethru engine.
//
// This package defines the core types used throughout the library:
//   - Format: Describes audio stream format (sample rate, channels, bit depth)
//   - Buffer: Decoded PCM audio held entirely in memory
//
// It also provides utilities for converting between sample representations:
//   - 16-bit ↔ 24-bit conversions
//   - int32 ↔ packed byte conversions
//   - saturating 24-bit clamping for mixing
//
// Example:
//
//	format := audio.Format{
//	    SampleRate: 48000,
//	    Channels:   2,
//	    BitDepth:   24,
//	}
//
//	// Convert 16-bit sample to 24-bit range
//	sample24 := audio.SampleFromInt16(sample16)
package audio
