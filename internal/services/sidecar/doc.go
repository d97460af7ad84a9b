// Package sidecar is a deterministic transcription backend for tests and
// environments without engine models. Ground-truth transcripts stored as
// JSON next to the audio file are returned verbatim; otherwise the filename
// stem becomes a single low-confidence segment.
package sidecar
