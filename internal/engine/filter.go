package engine

import (
	"path"
	"strings"

	"ghindexer/internal/model"
)

// FilterRepos narrows the active repositories of a child sync. With include
// patterns a repository must match at least one; it must match no exclude
// pattern.
func FilterRepos(repos []model.Repository, include, exclude []string) []model.Repository {
	if len(include) == 0 && len(exclude) == 0 {
		return repos
	}

	var filtered []model.Repository
	for _, r := range repos {
		fullName := r.FullName()

		// If Include is set, must match at least one
		if len(include) > 0 && !matchesAnyPattern(include, fullName, r.Name) {
			continue
		}

		// If Exclude is set, must not match any
		if len(exclude) > 0 && matchesAnyPattern(exclude, fullName, r.Name) {
			continue
		}

		filtered = append(filtered, r)
	}
	return filtered
}

func matchesAnyPattern(patterns []string, fullName, repoName string) bool {
	for _, p := range patterns {
		if matchPattern(p, fullName, repoName) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, fullName, repoName string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	// If the pattern includes an owner component (contains '/'), match against full name.
	// Otherwise match against repo name only so patterns like "*-service" work across orgs.
	if strings.Contains(pattern, "/") {
		matched, _ := path.Match(pattern, fullName)
		return matched
	}
	matched, _ := path.Match(pattern, repoName)
	return matched
}
