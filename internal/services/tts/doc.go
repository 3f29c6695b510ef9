// Package tts wraps the Azure Cognitive Services text-to-speech REST API
// behind the Synthesizer interface the narration pool consumes.
package tts
