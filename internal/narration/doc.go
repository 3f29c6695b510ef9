// Package narration runs the bounded synthesis fan-out for the narrating
// stage and reassembles clips in slide order.
package narration
