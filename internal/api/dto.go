package api

import (
	"time"

	"slidecast/internal/deck"
	"slidecast/internal/queue"
)

// jobSummary is the list-view projection of a job.
type jobSummary struct {
	ID              string     `json:"id"`
	SourceName      string     `json:"source_name"`
	State           string     `json:"state"`
	PercentComplete int        `json:"percent_complete"`
	ErrorKind       string     `json:"error_kind,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// jobDetail is the full status projection.
type jobDetail struct {
	jobSummary
	Settings     deck.Settings         `json:"settings"`
	Stages       []queue.StageTelemetry `json:"stages"`
	ErrorMessage string                `json:"error_message,omitempty"`
	SlideCount   int                   `json:"slide_count,omitempty"`
	VideoReady   bool                  `json:"video_ready"`
}

func summarize(job *queue.Job) jobSummary {
	return jobSummary{
		ID:              job.ID,
		SourceName:      job.SourceName,
		State:           string(job.State),
		PercentComplete: job.State.PercentComplete(),
		ErrorKind:       job.ErrorKind,
		CreatedAt:       job.CreatedAt,
		FinishedAt:      job.FinishedAt,
	}
}

func detail(job *queue.Job) jobDetail {
	stages := job.Stages
	if stages == nil {
		stages = []queue.StageTelemetry{}
	}
	return jobDetail{
		jobSummary:   summarize(job),
		Settings:     job.Settings,
		Stages:       stages,
		ErrorMessage: job.ErrorMessage,
		SlideCount:   len(job.Notes),
		VideoReady:   job.State == queue.StateCompleted && job.Artifact(queue.RoleFinalVideo) != "",
	}
}
