// Package pipeline drives one transcription job from claim to terminal
// state: acquire, prepare, transcribe, postprocess, emit artifacts,
// finalize.
//
// Failures are classified at the pipeline boundary. Permanent errors mark
// the job failed and are swallowed so the task can be acknowledged;
// transient errors propagate to the task queue for redelivery.
package pipeline
