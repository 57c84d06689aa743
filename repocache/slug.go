package repocache

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	nonAlnum    = regexp.MustCompile(`[^A-Za-z0-9]+`)
	validSlug   = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	validSHAArg = regexp.MustCompile(`^[0-9a-f]{12,40}$`)
)

// shortSHALen is the length of the commit id prefix naming a worktree.
const shortSHALen = 12

// Slug derives a filesystem-safe repository name from a URL.
//
// The URL is reduced to host and path (credentials, scheme and a trailing
// .git are dropped, SSH user@host:path is treated like host/path), then
// every run of characters other than ASCII letters and digits becomes a
// single underscore.
//
// Examples:
//   - https://github.com/my/repo.git → github_com_my_repo
//   - git@github.com:my/repo → github_com_my_repo
//   - https://token@gitlab.com/group/sub/repo → gitlab_com_group_sub_repo
func Slug(rawURL string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(normalizeURL(rawURL), "_"), "_")
}

// normalizeURL reduces a repository URL to host/path.
func normalizeURL(rawURL string) string {
	rawURL = strings.TrimSuffix(strings.TrimSpace(rawURL), "/")
	rawURL = strings.TrimSuffix(rawURL, ".git")

	// SSH URLs (git@host:path)
	if strings.Contains(rawURL, "@") && strings.Contains(rawURL, ":") && !strings.Contains(rawURL, "://") {
		parts := strings.SplitN(rawURL, "@", 2)
		return strings.Replace(parts[1], ":", "/", 1)
	}

	parsed, err := url.Parse(rawURL)
	if err == nil && parsed.Host != "" {
		return parsed.Host + parsed.Path
	}

	return rawURL
}

// ValidSlug reports whether s has the form Slug produces.
func ValidSlug(s string) bool {
	return validSlug.MatchString(s)
}

// ValidSHA reports whether s is a lowercase commit id of 12 to 40 hex
// characters, the forms Lookup accepts.
func ValidSHA(s string) bool {
	return validSHAArg.MatchString(s)
}

func shortSHA(sha string) string {
	if len(sha) < shortSHALen {
		return sha
	}
	return sha[:shortSHALen]
}
