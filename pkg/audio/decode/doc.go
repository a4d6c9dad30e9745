// ABOUTME: Audio decoder package for multiple container support
// ABOUTME: Provides whole-file decoding for WAV, MP3, FLAC, Vorbis, Opus and raw PCM
// Package decode loads audio files into in-memory PCM buffers.
//
// Supports: WAV, MP3, FLAC, Ogg Vorbis, Ogg Opus, raw PCM (16-bit and 24-bit)
//
// All decoders output int32 samples in 24-bit range for consistent hi-res
// audio processing. File routes by extension and conforms the result to a
// target format: channel layout is converted between mono and stereo, a
// sample rate mismatch is an error.
//
// Example:
//
//	buf, err := decode.File("tone.wav", engine.PlayerFormat())
package decode
