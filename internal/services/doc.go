// Package services defines the error taxonomy shared by collaborator
// wrappers and stage handlers, plus context annotation helpers used to tag
// log lines with job, stage, and correlation identifiers.
package services
