// Package muxer joins the retimed slide video with the narration audio track
// using ffmpeg, and measures media durations with ffprobe.
package muxer
