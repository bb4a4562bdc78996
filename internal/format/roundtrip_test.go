package format

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/conductor/internal/mcp"
)

func TestRoundTrip_NamesAndTransports(t *testing.T) {
	servers := []*mcp.Server{
		stdio("filesystem", "npx", "-y", "@modelcontextprotocol/server-filesystem", "/tmp"),
		remote("events", "https://events.test/sse", mcp.TransportSSE),
		remote("api", "https://api.test/mcp", mcp.TransportStreamableHTTP),
	}
	want := map[string]mcp.Transport{
		"filesystem": mcp.TransportStdio,
		"events":     mcp.TransportSSE,
		"api":        mcp.TransportStreamableHTTP,
	}

	for _, f := range allFormats() {
		t.Run(f.ID(), func(t *testing.T) {
			out, err := f.Serialize(servers, nil, nil)
			require.NoError(t, err)

			parsed, err := f.Parse(out)
			require.NoError(t, err)

			got := map[string]mcp.Transport{}
			for _, s := range parsed {
				got[s.Name] = s.Transport
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestSerialize_RemovesOrphansKeepsForeign(t *testing.T) {
	first := []*mcp.Server{stdio("a", "a"), stdio("b", "b")}

	for _, f := range allFormats() {
		t.Run(f.ID(), func(t *testing.T) {
			out, err := f.Serialize(first, nil, nil)
			require.NoError(t, err)

			// A user-added entry from a second, independent write.
			out, err = f.Serialize([]*mcp.Server{stdio("user", "u")}, out, nil)
			require.NoError(t, err)

			out, err = f.Serialize([]*mcp.Server{stdio("a", "a2")}, out, []string{"a", "b"})
			require.NoError(t, err)

			parsed, err := f.Parse(out)
			require.NoError(t, err)
			names := mcp.Names(parsed)
			sort.Strings(names)
			assert.Equal(t, []string{"a", "user"}, names)
		})
	}
}

func TestSerialize_Idempotent(t *testing.T) {
	servers := []*mcp.Server{stdio("a", "a", "x"), remote("r", "https://r.test/sse", mcp.TransportSSE)}

	for _, f := range allFormats() {
		t.Run(f.ID(), func(t *testing.T) {
			once, err := f.Serialize(servers, nil, nil)
			require.NoError(t, err)
			twice, err := f.Serialize(servers, once, []string{"a", "r"})
			require.NoError(t, err)
			assert.Equal(t, string(once), string(twice))
		})
	}
}
