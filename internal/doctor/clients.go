package doctor

import (
	"context"
	"fmt"

	"github.com/thoreinstein/conductor/internal/platform"
)

// ClientDetectionCheck reports which host applications are installed.
type ClientDetectionCheck struct {
	Registry *platform.Registry
}

var _ Check = (*ClientDetectionCheck)(nil)

// NewClientDetectionCheck creates a client detection check.
func NewClientDetectionCheck(r *platform.Registry) *ClientDetectionCheck {
	return &ClientDetectionCheck{Registry: r}
}

// Name returns the unique identifier for this check.
func (c *ClientDetectionCheck) Name() string {
	return "client-detection"
}

// Category returns the grouping for this check.
func (c *ClientDetectionCheck) Category() string {
	return "client"
}

// Run detects every registered client.
func (c *ClientDetectionCheck) Run(context.Context) *CheckResult {
	results := platform.DetectAll(c.Registry)

	clients := make(map[string]any, len(results))
	var detected, unreadable int
	for _, d := range results {
		info := map[string]any{
			"detected":    d.Detected,
			"config_path": d.ConfigPath,
			"servers":     d.ServerCount,
		}
		if d.Error != "" {
			info["error"] = d.Error
			unreadable++
		}
		clients[d.ClientID] = info
		if d.Detected {
			detected++
		}
	}

	details := map[string]any{
		"clients":    clients,
		"detected":   detected,
		"unreadable": unreadable,
		"total":      len(results),
	}

	if detected == 0 {
		return &CheckResult{
			Name:     c.Name(),
			Category: c.Category(),
			Status:   SeverityWarning,
			Message:  "no MCP clients detected; conductor has nothing to sync",
			Details:  details,
			FixHint:  "install a supported client (conductor client list shows them)",
		}
	}

	msg := fmt.Sprintf("%d of %d client(s) detected", detected, len(results))
	return &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Status:   SeverityPass,
		Message:  msg,
		Details:  details,
	}
}
