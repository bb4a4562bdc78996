package platform

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/format"
	"github.com/thoreinstein/conductor/internal/paths"
)

// jetbrainsIDEs are the config directory prefixes of JetBrains IDEs that
// support MCP.
var jetbrainsIDEs = []string{
	"IntelliJIdea",
	"WebStorm",
	"PyCharm",
	"GoLand",
	"RustRover",
	"CLion",
	"Rider",
	"PhpStorm",
	"DataGrip",
}

// Builtin returns the supported clients with locations derived from d,
// in display order.
func Builtin(d paths.Dirs) []*Client {
	standard := func(id string, caps format.Capabilities) func(string) format.Format {
		f := format.NewMCPServers(id, caps)
		return func(string) format.Format { return f }
	}
	proxied := format.Capabilities{DisabledFlag: true}
	native := format.Capabilities{NativeHeaders: true, DisabledFlag: true}

	return []*Client{
		{
			ID:          ClaudeDesktop,
			DisplayName: "Claude Desktop",
			candidates:  fixed(d.AppSupport("Claude", "claude_desktop_config.json")),
			formatFor:   standard(ClaudeDesktop, proxied),
			markers:     appMarkers(d, "Claude.app"),
		},
		{
			ID:          ClaudeCode,
			DisplayName: "Claude Code",
			candidates:  fixed(d.InHome(".claude.json"), d.InHome(".claude", "settings.json")),
			formatFor:   standard(ClaudeCode, native),
			markers:     []string{d.InHome(".claude")},
			binaries:    []string{"claude"},
		},
		{
			ID:          Cursor,
			DisplayName: "Cursor",
			candidates:  fixed(d.InHome(".cursor", "mcp.json")),
			formatFor:   standard(Cursor, proxied),
			markers:     append(appMarkers(d, "Cursor.app"), d.InHome(".cursor")),
		},
		{
			ID:          VSCode,
			DisplayName: "VS Code",
			candidates:  fixed(d.AppSupport("Code", "User", "mcp.json"), d.AppSupport("Code", "User", "settings.json")),
			formatFor:   vscodeFormat(VSCode),
			markers:     appMarkers(d, "Visual Studio Code.app"),
			binaries:    []string{"code"},
		},
		{
			ID:          Windsurf,
			DisplayName: "Windsurf",
			candidates:  fixed(d.InHome(".codeium", "windsurf", "mcp_config.json"), d.InHome(".windsurf", "mcp_config.json")),
			formatFor:   standard(Windsurf, proxied),
			markers:     append(appMarkers(d, "Windsurf.app"), d.InHome(".codeium", "windsurf")),
		},
		{
			ID:          Zed,
			DisplayName: "Zed",
			candidates:  fixed(zedSettings(d)),
			formatFor:   func(string) format.Format { return format.NewZed(Zed) },
			markers:     appMarkers(d, "Zed.app"),
			binaries:    []string{"zed"},
		},
		{
			ID:          JetBrains,
			DisplayName: "JetBrains IDE",
			candidates: func() []string {
				if p := jetbrainsConfig(d); p != "" {
					return []string{p}
				}
				return nil
			},
			formatFor: func(string) format.Format { return format.NewJetBrains(JetBrains) },
			markers: appMarkers(d,
				"IntelliJ IDEA.app", "WebStorm.app", "PyCharm.app", "GoLand.app",
				"RustRover.app", "CLion.app", "Rider.app", "PhpStorm.app"),
		},
		{
			ID:          Codex,
			DisplayName: "OpenAI Codex",
			candidates:  fixed(d.InHome(".codex", "config.toml"), d.DotConfig("codex", "config.toml")),
			formatFor:   func(string) format.Format { return format.NewCodex(Codex) },
			markers:     []string{d.InHome(".codex")},
			binaries:    []string{"codex"},
		},
		{
			ID:          Antigravity,
			DisplayName: "Antigravity",
			candidates: fixed(
				d.AppSupport("Antigravity", "User", "mcp.json"),
				d.AppSupport("Antigravity", "User", "settings.json"),
			),
			formatFor: vscodeFormat(Antigravity),
			markers:   appMarkers(d, "Antigravity.app"),
		},
	}
}

func fixed(candidates ...string) func() []string {
	return func() []string { return candidates }
}

// appMarkers returns macOS application bundle paths; other systems have no
// equivalent fixed location.
func appMarkers(d paths.Dirs, apps ...string) []string {
	if d.OS != "darwin" {
		return nil
	}
	out := make([]string, 0, len(apps))
	for _, a := range apps {
		out = append(out, filepath.Join("/Applications", a))
	}
	return out
}

// vscodeFormat picks the dedicated mcp.json shape or the nested
// settings.json shape from the file name.
func vscodeFormat(id string) func(string) format.Format {
	mcpJSON := format.NewVSCodeMCP(id)
	settings := format.NewVSCodeSettings(id)
	return func(path string) format.Format {
		if filepath.Base(path) == "settings.json" {
			return settings
		}
		return mcpJSON
	}
}

func zedSettings(d paths.Dirs) string {
	if d.OS == "windows" {
		return d.AppSupport("Zed", "settings.json")
	}
	return d.DotConfig("zed", "settings.json")
}

// jetbrainsConfig returns options/mcp.xml inside the newest JetBrains IDE
// config directory that has an options directory, or "".
func jetbrainsConfig(d paths.Dirs) string {
	root := d.AppSupport("JetBrains")
	entries, err := os.ReadDir(root)
	if err != nil {
		return ""
	}

	var best, bestVersion string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		for _, prefix := range jetbrainsIDEs {
			version, ok := strings.CutPrefix(e.Name(), prefix)
			if !ok || !newerVersion(version, bestVersion) {
				continue
			}
			options := filepath.Join(root, e.Name(), "options")
			if dirExists(options) {
				best, bestVersion = filepath.Join(options, "mcp.xml"), version
			}
		}
	}
	return best
}

// newerVersion compares dotted IDE versions such as "2024.3" numerically
// where possible.
func newerVersion(a, b string) bool {
	if b == "" {
		return true
	}
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		if len(as[i]) != len(bs[i]) {
			return len(as[i]) > len(bs[i])
		}
		return as[i] > bs[i]
	}
	return len(as) > len(bs)
}

// BuiltinIDs returns the IDs of the supported clients in display order.
func BuiltinIDs() []string {
	clients := Builtin(paths.Dirs{})
	out := make([]string, 0, len(clients))
	for _, c := range clients {
		out = append(out, c.ID)
	}
	return out
}

// Format kinds accepted for user-defined clients.
const (
	KindMCPServers       = "mcpServers"
	KindMCPServersNative = "mcpServers-native"
	KindVSCode           = "vscode"
	KindVSCodeSettings   = "vscode-settings"
	KindZed              = "zed"
	KindJetBrains        = "jetbrains"
	KindCodex            = "codex"
)

// FormatKinds lists the accepted format kinds.
func FormatKinds() []string {
	return []string{KindMCPServers, KindMCPServersNative, KindVSCode, KindVSCodeSettings, KindZed, KindJetBrains, KindCodex}
}

// NewFormat returns the format named by kind for a client with id.
func NewFormat(kind, id string) (format.Format, error) {
	switch kind {
	case KindMCPServers, "":
		return format.NewMCPServers(id, format.Capabilities{DisabledFlag: true}), nil
	case KindMCPServersNative:
		return format.NewMCPServers(id, format.Capabilities{NativeHeaders: true, DisabledFlag: true}), nil
	case KindVSCode:
		return format.NewVSCodeMCP(id), nil
	case KindVSCodeSettings:
		return format.NewVSCodeSettings(id), nil
	case KindZed:
		return format.NewZed(id), nil
	case KindJetBrains:
		return format.NewJetBrains(id), nil
	case KindCodex:
		return format.NewCodex(id), nil
	default:
		return nil, errors.Newf("unknown format %q (want one of %s)", kind, strings.Join(FormatKinds(), ", "))
	}
}
