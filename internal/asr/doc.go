// Package asr defines the transcription backend capability: the request and
// segment types every engine adapter speaks, plus confidence normalization
// shared across adapters.
package asr
