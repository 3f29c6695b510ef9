// Package timing computes the per-slide display schedule that aligns slide
// transitions with narration boundaries. The computed total is exact: the
// muxer consumes the same millisecond total the renderer is retimed to.
package timing
