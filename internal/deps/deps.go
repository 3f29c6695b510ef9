// Package deps verifies the external binaries slidecast shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"slidecast/internal/config"
)

// Requirement defines an external tool the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
}

// Status reports the availability of a tool.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Detail      string
}

// ForConfig lists the tools the configured pipeline will execute.
func ForConfig(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "Renderer", Command: cfg.Tools.RendererBin, Description: "Renders decks to video and extracts speaker notes"},
		{Name: "FFmpeg", Command: cfg.Tools.FFmpegBin, Description: "Muxes narration audio into the final video"},
		{Name: "FFprobe", Command: cfg.Tools.FFprobeBin, Description: "Measures clip durations for the narration timeline"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
