// Package install wires the broker into Claude Code's global config:
// hook entries in ~/.claude/settings.json and an MCP server entry in
// ~/.claude.json. Both files are merged, never overwritten, so entries
// belonging to other tools survive.
package install

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// marker identifies our entries inside shared config files. Any hook
// command containing it is considered ours on reinstall and uninstall.
const marker = "switchboard"

// Installer reads and writes the two Claude Code config files.
type Installer struct {
	// SettingsPath is ~/.claude/settings.json (hooks live here).
	SettingsPath string
	// ClaudeJSONPath is ~/.claude.json (MCP servers live here).
	ClaudeJSONPath string
	// Binary is the command hooks and the MCP entry invoke.
	Binary string
}

// NewInstaller targets the current user's Claude Code config.
func NewInstaller() (*Installer, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home dir: %w", err)
	}
	return &Installer{
		SettingsPath:   filepath.Join(home, ".claude", "settings.json"),
		ClaudeJSONPath: filepath.Join(home, ".claude.json"),
		Binary:         marker,
	}, nil
}

type hookCommand struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"`
}

type hookEntry struct {
	Matcher string        `json:"matcher,omitempty"`
	Hooks   []hookCommand `json:"hooks"`
}

// hookEvents returns our hook entries per Claude Code event.
func (i *Installer) hookEvents() map[string][]hookEntry {
	cmd := func(sub string, timeout int) []hookCommand {
		return []hookCommand{{Type: "command", Command: i.Binary + " " + sub, Timeout: timeout}}
	}
	return map[string][]hookEntry{
		"SessionStart":     {{Matcher: "startup|resume", Hooks: cmd("hook-register", 15)}},
		"PreToolUse":       {{Hooks: cmd("hook-inbox", 5)}},
		"UserPromptSubmit": {{Hooks: cmd("hook-inbox", 5)}},
		"Notification":     {{Matcher: "idle_prompt", Hooks: cmd("hook-inbox", 5)}},
		"Stop":             {{Hooks: cmd("hook-mailbox", 10)}},
	}
}

// Install merges our hooks into settings.json and the MCP server entry
// into .claude.json. Re-running replaces our entries instead of
// duplicating them.
func (i *Installer) Install() error {
	settings, err := readJSONFile(i.SettingsPath)
	if err != nil {
		return err
	}

	hooks, _ := settings["hooks"].(map[string]any)
	if hooks == nil {
		hooks = map[string]any{}
	}
	for event, entries := range i.hookEvents() {
		existing, _ := hooks[event].([]any)
		kept := removeOwnEntries(existing)
		for _, e := range entries {
			kept = append(kept, toAny(e))
		}
		hooks[event] = kept
	}
	settings["hooks"] = hooks

	// MCP servers belong in .claude.json; drop stale copies here
	delete(settings, "mcpServers")

	if err := writeJSONFile(i.SettingsPath, settings); err != nil {
		return err
	}

	claudeJSON, err := readJSONFile(i.ClaudeJSONPath)
	if err != nil {
		return err
	}
	servers, _ := claudeJSON["mcpServers"].(map[string]any)
	if servers == nil {
		servers = map[string]any{}
	}
	servers[marker] = map[string]any{
		"type":    "stdio",
		"command": i.Binary,
		"args":    []any{"mcp"},
	}
	claudeJSON["mcpServers"] = servers
	return writeJSONFile(i.ClaudeJSONPath, claudeJSON)
}

// Uninstall removes our hooks and MCP server entry, leaving everything
// else untouched. Missing files are not an error.
func (i *Installer) Uninstall() error {
	settings, err := readJSONFile(i.SettingsPath)
	if err != nil {
		return err
	}

	if hooks, ok := settings["hooks"].(map[string]any); ok {
		for event, raw := range hooks {
			entries, _ := raw.([]any)
			kept := removeOwnEntries(entries)
			if len(kept) == 0 {
				delete(hooks, event)
			} else {
				hooks[event] = kept
			}
		}
		if len(hooks) == 0 {
			delete(settings, "hooks")
		} else {
			settings["hooks"] = hooks
		}
	}
	delete(settings, "mcpServers")

	if err := writeJSONFile(i.SettingsPath, settings); err != nil {
		return err
	}

	claudeJSON, err := readJSONFile(i.ClaudeJSONPath)
	if err != nil {
		return err
	}
	if servers, ok := claudeJSON["mcpServers"].(map[string]any); ok {
		delete(servers, marker)
		if len(servers) == 0 {
			delete(claudeJSON, "mcpServers")
		} else {
			claudeJSON["mcpServers"] = servers
		}
	}
	return writeJSONFile(i.ClaudeJSONPath, claudeJSON)
}

// removeOwnEntries filters out hook entries whose command mentions our
// binary.
func removeOwnEntries(entries []any) []any {
	kept := make([]any, 0, len(entries))
	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			kept = append(kept, raw)
			continue
		}
		if !entryIsOurs(entry) {
			kept = append(kept, raw)
		}
	}
	return kept
}

func entryIsOurs(entry map[string]any) bool {
	hooks, _ := entry["hooks"].([]any)
	for _, raw := range hooks {
		h, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if cmd, _ := h["command"].(string); strings.Contains(cmd, marker) {
			return true
		}
	}
	return false
}

func toAny(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func readJSONFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		// unparseable config is treated as empty rather than fatal
		return map[string]any{}, nil
	}
	return out, nil
}

func writeJSONFile(path string, v map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
