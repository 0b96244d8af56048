// Package transform optimises individual pack assets.
//
// Images are decoded in-process, scaled down to fit the configured bounding
// box, and re-encoded (photographic formats as lossy WebP). Video and audio
// are piped through ffmpeg under a hard timeout. Every operation returns an
// Outcome; a failed optimisation is never an error to the caller, it is an
// Outcome carrying the original bytes plus the reason.
package transform
