package hook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// identityFile lives under the project's .claude directory and tells the
// later hooks which agent this project registered as.
const identityFile = ".bridge-identity"

// Identity is what the register hook leaves behind for the other hooks.
type Identity struct {
	Name      string `json:"name"`
	SessionID string `json:"session_id"`
}

// WriteIdentity persists the identity under cwd/.claude.
func WriteIdentity(cwd string, id Identity) error {
	dir := filepath.Join(cwd, ".claude")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, identityFile), data, 0o644)
}

// ReadIdentity returns the agent name recorded for the project, or an
// empty string when none exists. Legacy files holding a bare name still
// parse.
func ReadIdentity(cwd string) string {
	raw, err := os.ReadFile(filepath.Join(cwd, ".claude", identityFile))
	if err != nil {
		return ""
	}
	trimmed := strings.TrimSpace(string(raw))
	var id Identity
	if err := json.Unmarshal([]byte(trimmed), &id); err == nil {
		return id.Name
	}
	return trimmed
}
