// Package textproc holds the text postprocessing capability set applied to
// transcription segments: language resolution, inverse text normalization,
// normalization, punctuation restoration, and dialect lexicon mapping.
//
// Thai is the primary target; English and Lao are handled where the rules
// differ. All functions are pure string transformations.
package textproc
