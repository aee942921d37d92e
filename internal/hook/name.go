package hook

import "strings"

// genericParents are folder names too common to disambiguate projects, so
// they never become a name prefix.
var genericParents = map[string]bool{
	"desktop":           true,
	"projects":          true,
	"repos":             true,
	"code":              true,
	"src":               true,
	"home":              true,
	"users":             true,
	"documents":         true,
	"downloads":         true,
	"coding":            true,
	"work":              true,
	"dev":               true,
	"github":            true,
	"gitlab":            true,
	"bitbucket":         true,
	"coding-projects":   true,
	"my-projects":       true,
	"personal-projects": true,
}

// DeriveAgentName builds an agent name from a project path. The parent
// folder becomes a prefix so that two projects with the same folder name
// stay distinct, unless the parent is too generic to help.
func DeriveAgentName(cwd string) string {
	normalized := strings.TrimRight(strings.ReplaceAll(cwd, `\`, "/"), "/")
	parts := strings.Split(normalized, "/")

	folder := "unknown"
	if len(parts) > 0 && parts[len(parts)-1] != "" {
		folder = parts[len(parts)-1]
	}
	parent := ""
	if len(parts) >= 2 {
		parent = parts[len(parts)-2]
	}

	folder = strings.ReplaceAll(strings.ToLower(folder), " ", "-")
	parent = strings.ReplaceAll(strings.ToLower(parent), " ", "-")

	if parent == "" || genericParents[parent] {
		return folder
	}
	return parent + "-" + folder
}
