package install

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestInstaller(t *testing.T) *Installer {
	t.Helper()
	dir := t.TempDir()
	return &Installer{
		SettingsPath:   filepath.Join(dir, ".claude", "settings.json"),
		ClaudeJSONPath: filepath.Join(dir, ".claude.json"),
		Binary:         "switchboard",
	}
}

func readFile(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return out
}

func writeFile(t *testing.T, path string, v map[string]any) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func hookCommands(t *testing.T, settings map[string]any, event string) []string {
	t.Helper()
	hooks, _ := settings["hooks"].(map[string]any)
	entries, _ := hooks[event].([]any)
	var commands []string
	for _, raw := range entries {
		entry, _ := raw.(map[string]any)
		inner, _ := entry["hooks"].([]any)
		for _, h := range inner {
			hm, _ := h.(map[string]any)
			if cmd, ok := hm["command"].(string); ok {
				commands = append(commands, cmd)
			}
		}
	}
	return commands
}

func TestInstallCreatesBothFiles(t *testing.T) {
	ins := newTestInstaller(t)
	if err := ins.Install(); err != nil {
		t.Fatal(err)
	}

	settings := readFile(t, ins.SettingsPath)
	if _, ok := settings["hooks"]; !ok {
		t.Fatal("hooks missing from settings")
	}
	if _, ok := settings["mcpServers"]; ok {
		t.Fatal("mcpServers leaked into settings.json")
	}

	claudeJSON := readFile(t, ins.ClaudeJSONPath)
	servers, _ := claudeJSON["mcpServers"].(map[string]any)
	entry, _ := servers["switchboard"].(map[string]any)
	if entry == nil {
		t.Fatalf("mcp entry missing: %v", claudeJSON)
	}
	if entry["type"] != "stdio" || entry["command"] != "switchboard" {
		t.Fatalf("mcp entry = %v", entry)
	}
	args, _ := entry["args"].([]any)
	if len(args) != 1 || args[0] != "mcp" {
		t.Fatalf("mcp args = %v", args)
	}
}

func TestInstallAddsAllHookEvents(t *testing.T) {
	ins := newTestInstaller(t)
	if err := ins.Install(); err != nil {
		t.Fatal(err)
	}
	settings := readFile(t, ins.SettingsPath)
	for _, event := range []string{"SessionStart", "PreToolUse", "UserPromptSubmit", "Notification", "Stop"} {
		if cmds := hookCommands(t, settings, event); len(cmds) != 1 {
			t.Errorf("event %s: commands = %v", event, cmds)
		}
	}
	if cmds := hookCommands(t, settings, "Stop"); cmds[0] != "switchboard hook-mailbox" {
		t.Fatalf("stop command = %v", cmds)
	}
}

func TestInstallPreservesExistingSettings(t *testing.T) {
	ins := newTestInstaller(t)
	writeFile(t, ins.SettingsPath, map[string]any{
		"autoUpdatesChannel": "latest",
		"hooks": map[string]any{
			"PreToolUse": []any{
				map[string]any{"hooks": []any{map[string]any{"type": "command", "command": "python other.py"}}},
			},
		},
	})

	if err := ins.Install(); err != nil {
		t.Fatal(err)
	}
	settings := readFile(t, ins.SettingsPath)
	if settings["autoUpdatesChannel"] != "latest" {
		t.Fatalf("unrelated key lost: %v", settings)
	}

	cmds := hookCommands(t, settings, "PreToolUse")
	var foundOther, foundOurs bool
	for _, c := range cmds {
		if strings.Contains(c, "other.py") {
			foundOther = true
		}
		if strings.Contains(c, "switchboard") {
			foundOurs = true
		}
	}
	if !foundOther || !foundOurs {
		t.Fatalf("commands = %v", cmds)
	}
}

func TestInstallPreservesClaudeJSON(t *testing.T) {
	ins := newTestInstaller(t)
	writeFile(t, ins.ClaudeJSONPath, map[string]any{
		"numStartups": 42,
		"projects":    map[string]any{"foo": map[string]any{"bar": true}},
	})

	if err := ins.Install(); err != nil {
		t.Fatal(err)
	}
	claudeJSON := readFile(t, ins.ClaudeJSONPath)
	if claudeJSON["numStartups"] != float64(42) {
		t.Fatalf("numStartups = %v", claudeJSON["numStartups"])
	}
	if _, ok := claudeJSON["mcpServers"]; !ok {
		t.Fatal("mcpServers missing")
	}
}

func TestInstallRemovesStaleMCPFromSettings(t *testing.T) {
	ins := newTestInstaller(t)
	writeFile(t, ins.SettingsPath, map[string]any{
		"mcpServers": map[string]any{"switchboard": map[string]any{"command": "old"}},
	})

	if err := ins.Install(); err != nil {
		t.Fatal(err)
	}
	settings := readFile(t, ins.SettingsPath)
	if _, ok := settings["mcpServers"]; ok {
		t.Fatal("stale mcpServers not removed from settings.json")
	}
}

func TestInstallIdempotent(t *testing.T) {
	ins := newTestInstaller(t)
	if err := ins.Install(); err != nil {
		t.Fatal(err)
	}
	if err := ins.Install(); err != nil {
		t.Fatal(err)
	}

	settings := readFile(t, ins.SettingsPath)
	hooks, _ := settings["hooks"].(map[string]any)
	for event := range hooks {
		var ours int
		for _, c := range hookCommands(t, settings, event) {
			if strings.Contains(c, "switchboard") {
				ours++
			}
		}
		if ours != 1 {
			t.Errorf("event %s has %d of our entries", event, ours)
		}
	}
}

func TestUninstallRemovesEverything(t *testing.T) {
	ins := newTestInstaller(t)
	if err := ins.Install(); err != nil {
		t.Fatal(err)
	}
	if err := ins.Uninstall(); err != nil {
		t.Fatal(err)
	}

	settings := readFile(t, ins.SettingsPath)
	if _, ok := settings["hooks"]; ok {
		t.Fatalf("hooks remain: %v", settings)
	}
	claudeJSON := readFile(t, ins.ClaudeJSONPath)
	if servers, ok := claudeJSON["mcpServers"].(map[string]any); ok {
		if _, present := servers["switchboard"]; present {
			t.Fatal("mcp entry remains")
		}
	}
}

func TestUninstallPreservesOthers(t *testing.T) {
	ins := newTestInstaller(t)
	writeFile(t, ins.SettingsPath, map[string]any{
		"autoUpdatesChannel": "latest",
		"hooks": map[string]any{
			"PreToolUse": []any{
				map[string]any{"hooks": []any{map[string]any{"type": "command", "command": "python other.py"}}},
			},
		},
	})
	writeFile(t, ins.ClaudeJSONPath, map[string]any{"numStartups": 42})

	if err := ins.Install(); err != nil {
		t.Fatal(err)
	}
	if err := ins.Uninstall(); err != nil {
		t.Fatal(err)
	}

	settings := readFile(t, ins.SettingsPath)
	if settings["autoUpdatesChannel"] != "latest" {
		t.Fatalf("settings lost: %v", settings)
	}
	cmds := hookCommands(t, settings, "PreToolUse")
	if len(cmds) != 1 || !strings.Contains(cmds[0], "other.py") {
		t.Fatalf("foreign hook lost: %v", cmds)
	}

	claudeJSON := readFile(t, ins.ClaudeJSONPath)
	if claudeJSON["numStartups"] != float64(42) {
		t.Fatalf("claude.json lost data: %v", claudeJSON)
	}
}

func TestUninstallWhenNotInstalled(t *testing.T) {
	ins := newTestInstaller(t)
	if err := ins.Uninstall(); err != nil {
		t.Fatal(err)
	}
	settings := readFile(t, ins.SettingsPath)
	if len(settings) != 0 {
		t.Fatalf("settings = %v", settings)
	}
}
