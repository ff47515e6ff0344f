package dispatch

import (
	"slices"
	"strings"

	"github.com/Paranoid-AF/saycmd/resolve"
	"github.com/adrg/xdg"
)

// ShellFolders maps well-known location names to paths.
type ShellFolders map[string]string

// DefaultShellFolders returns the user's standard directories with the
// given overrides applied. An override with an empty path removes the entry.
func DefaultShellFolders(overrides map[string]string) ShellFolders {
	sf := ShellFolders{
		"download":  xdg.UserDirs.Download,
		"documents": xdg.UserDirs.Documents,
		"desktop":   xdg.UserDirs.Desktop,
		"pictures":  xdg.UserDirs.Pictures,
		"music":     xdg.UserDirs.Music,
		"videos":    xdg.UserDirs.Videos,
	}
	for name, path := range overrides {
		key := strings.ToLower(strings.TrimSpace(name))
		if path == "" {
			delete(sf, key)
			continue
		}
		sf[key] = path
	}
	return sf
}

// Lookup finds the folder for name: an exact key first, then the closest key.
func (sf ShellFolders) Lookup(name string) (key, path string, ok bool) {
	key = strings.ToLower(strings.TrimSpace(name))
	if key == "" || len(sf) == 0 {
		return "", "", false
	}
	if p := sf[key]; p != "" {
		return key, p, true
	}

	keys := make([]string, 0, len(sf))
	for k, p := range sf {
		if p != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	if best := resolve.CloseMatches(key, keys, 1, resolve.DefaultCutoff); len(best) > 0 {
		return best[0], sf[best[0]], true
	}
	return "", "", false
}
