// Package artifacts manages the on-disk lifecycle of job outputs, including
// the retention purge that erases expired terminal jobs.
package artifacts
