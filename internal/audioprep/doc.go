// Package audioprep normalizes input media into the canonical waveform the
// transcription backends expect: mono, 16kHz WAV. When ffmpeg is not
// available the input is copied through unchanged.
package audioprep
