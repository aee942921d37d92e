// Package sessions discovers Claude Code session transcripts on the local
// machine and links them to registered agents.
package sessions

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/switchboard-hq/switchboard/internal/domain/agent"
)

// Session is one transcript file inside a project directory.
type Session struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Branch    string `json:"branch"`
	CWD       string `json:"cwd"`
	Timestamp string `json:"timestamp"`
	Agent     string `json:"agent"`
}

// Project groups the sessions recorded under one project directory.
type Project struct {
	Path         string    `json:"path"`
	Name         string    `json:"name"`
	SessionCount int       `json:"sessionCount"`
	Agent        *string   `json:"agent"`
	Sessions     []Session `json:"sessions"`
}

// Scanner reads project directories under Dir, typically
// ~/.claude/projects.
type Scanner struct {
	Dir string
}

// DefaultDir returns the standard Claude projects directory for the
// current user.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", "projects")
}

// DecodePath reverses the dash encoding Claude applies to project paths
// when naming transcript directories. A leading drive letter followed by
// a double dash becomes "X:/", every other dash becomes a separator.
func DecodePath(encoded string) string {
	if len(encoded) >= 3 && encoded[1] == '-' && encoded[2] == '-' && isLetter(encoded[0]) {
		return string(encoded[0]) + ":/" + strings.ReplaceAll(encoded[3:], "-", "/")
	}
	return strings.ReplaceAll(encoded, "-", "/")
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// ReadMeta returns the first usable record from a session transcript.
// Blank lines, unparseable lines and file history snapshots are skipped.
// Missing or empty files yield an empty map.
func ReadMeta(path string) map[string]any {
	f, err := os.Open(path)
	if err != nil {
		return map[string]any{}
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if t, _ := rec["type"].(string); t == "file-history-snapshot" {
			continue
		}
		return rec
	}
	return map[string]any{}
}

// Discover walks the projects directory and returns every project with
// its sessions. Registered agents are linked by path at the project
// level and by session id at the session level. A missing directory is
// not an error.
func (s *Scanner) Discover(agents []agent.Agent) ([]Project, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Project{}, nil
		}
		return nil, err
	}

	projects := make([]Project, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := DecodePath(e.Name())
		proj := Project{
			Path:     path,
			Name:     filepath.Base(path),
			Sessions: []Session{},
		}
		for _, a := range agents {
			if pathsEqual(a.Path, path) {
				name := a.Name
				proj.Agent = &name
				break
			}
		}

		files, err := filepath.Glob(filepath.Join(s.Dir, e.Name(), "*.jsonl"))
		if err != nil {
			continue
		}
		sort.Strings(files)
		for _, fp := range files {
			meta := ReadMeta(fp)
			sess := Session{
				ID:        strings.TrimSuffix(filepath.Base(fp), ".jsonl"),
				Slug:      str(meta, "slug"),
				Branch:    str(meta, "gitBranch"),
				CWD:       str(meta, "cwd"),
				Timestamp: str(meta, "timestamp"),
			}
			for _, a := range agents {
				if a.SessionID() == sess.ID {
					sess.Agent = a.Name
					break
				}
			}
			proj.Sessions = append(proj.Sessions, sess)
		}
		proj.SessionCount = len(proj.Sessions)
		projects = append(projects, proj)
	}
	return projects, nil
}

func pathsEqual(a, b string) bool {
	return filepath.ToSlash(filepath.Clean(a)) == filepath.ToSlash(filepath.Clean(b))
}

func str(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
