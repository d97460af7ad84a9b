// Package whisperx adapts the WhisperX engine, invoked through uvx, to the
// transcription backend interface.
//
// WhisperX writes its output next to the prepared audio as JSON; the adapter
// parses that into timed segments and normalizes word scores into segment
// confidences.
package whisperx
