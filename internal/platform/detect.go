package platform

import (
	"os"
	"time"

	"github.com/thoreinstein/conductor/internal/mcp"
)

// Detection summarizes a client's installation and current host config.
type Detection struct {
	ClientID    string    `json:"clientId"`
	DisplayName string    `json:"displayName"`
	Detected    bool      `json:"detected"`
	ConfigPath  string    `json:"configPath,omitempty"`
	ServerCount int       `json:"serverCount"`
	ServerNames []string  `json:"serverNames"`
	ModifiedAt  time.Time `json:"configUpdatedAt,omitzero"`

	// NativeHeaders is false for hosts that reach remote servers through
	// the mcp-remote proxy.
	NativeHeaders bool `json:"nativeHeaders"`

	// Error is set when the config file exists but could not be read.
	Error string `json:"error,omitempty"`
}

// Detect inspects c without modifying anything.
func Detect(c *Client) *Detection {
	d := &Detection{
		ClientID:    c.ID,
		DisplayName: c.DisplayName,
		Detected:    c.Installed(),
		ConfigPath:  c.ConfigPath(),
		ServerNames: []string{},
	}
	if f := c.Format(); f != nil {
		d.NativeHeaders = f.Capabilities().NativeHeaders
	}
	if d.ConfigPath == "" {
		return d
	}
	if info, err := os.Stat(d.ConfigPath); err == nil {
		d.ModifiedAt = info.ModTime().UTC()
	}

	servers, err := c.ReadServers()
	if err != nil {
		d.Error = err.Error()
		return d
	}
	d.ServerNames = mcp.Names(servers)
	d.ServerCount = len(servers)
	return d
}

// DetectAll inspects every client in r, in registration order.
func DetectAll(r *Registry) []*Detection {
	all := r.All()
	out := make([]*Detection, 0, len(all))
	for _, c := range all {
		out = append(out, Detect(c))
	}
	return out
}
