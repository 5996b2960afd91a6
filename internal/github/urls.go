package github

import (
	"fmt"
	"strings"
)

const webBaseURL = "https://github.com"

// RepoURL is the browser URL of owner/name.
func RepoURL(fullName string) string {
	return webBaseURL + "/" + strings.Trim(fullName, "/")
}

// ZipURL is the archive download URL for a branch.
func ZipURL(fullName, branch string) string {
	return RepoURL(fullName) + "/archive/refs/heads/" + branch + ".zip"
}

// ParseFullName splits "owner/name".
func ParseFullName(fullName string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.Trim(fullName, "/"), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository name %q: want owner/name", fullName)
	}
	return owner, repo, nil
}
