// Package artifacts encodes a transcription result into its output formats.
//
// The encoders are pure transformations over io.Writer sinks: plain text,
// line-delimited JSON, SRT, and WebVTT. Emit writes all four into a per-job
// directory, isolating per-format failures so one broken sink never blocks
// the others.
package artifacts
