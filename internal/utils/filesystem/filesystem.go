// Package filesystem maps asset URLs onto safe relative paths
package filesystem

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// maxComponentLen keeps single path components under common filesystem limits
const maxComponentLen = 100

var (
	invalidChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	multipleDots = regexp.MustCompile(`\.{2,}`)
)

// ExtractDomain returns the host of rawURL as a directory name. A non
// default port is kept as "host_port" so dev servers on different ports do
// not share a directory.
func ExtractDomain(rawURL string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("empty URL")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}

	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("no hostname found in URL %q", rawURL)
	}
	if port := u.Port(); port != "" && !defaultPort(u.Scheme, port) {
		host += "_" + port
	}

	if cleaned := CleanPathComponent(host); cleaned != "" {
		return cleaned, nil
	}
	return "unknown", nil
}

func defaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}

// CleanSourcePath turns a URL path into a relative filesystem path. Every
// component is cleaned and "." or ".." segments are dropped, so the result
// never leaves the directory it is joined onto.
func CleanSourcePath(path string) string {
	var parts []string
	for _, component := range strings.Split(path, "/") {
		cleaned := CleanPathComponent(component)
		if cleaned == "" || cleaned == "." || cleaned == ".." {
			continue
		}
		parts = append(parts, cleaned)
	}

	if len(parts) == 0 {
		return "unknown.js"
	}
	return filepath.Join(parts...)
}

// CleanPathComponent makes one path component safe on every platform
func CleanPathComponent(component string) string {
	component = invalidChars.ReplaceAllString(component, "_")
	component = multipleDots.ReplaceAllString(component, ".")
	component = strings.Trim(component, ". ")
	component = strings.ReplaceAll(component, " ", "_")

	if len(component) > maxComponentLen {
		component = component[:maxComponentLen]
	}
	return component
}
