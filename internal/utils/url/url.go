package url

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ResolveAsset resolves an emitted file name against the bundle's public path.
// Absolute file URLs are returned as-is. An empty public path leaves the file
// name untouched.
func ResolveAsset(publicPath, file string) (string, error) {
	u, err := url.Parse(file)
	if err != nil {
		return "", fmt.Errorf("invalid asset %q: %w", file, err)
	}

	// If the input is already an absolute URL, return it as-is
	if u.IsAbs() || publicPath == "" {
		return u.String(), nil
	}

	base, err := url.Parse(publicPath)
	if err != nil {
		return "", fmt.Errorf("invalid public path %q: %w", publicPath, err)
	}

	return base.ResolveReference(u).String(), nil
}

// ToAbsoluteURL resolves input against an absolute base such as a dev server
// origin
func ToAbsoluteURL(baseStr, inputStr string) (string, error) {
	u, err := url.Parse(inputStr)
	if err != nil {
		return "", err
	}

	if u.IsAbs() {
		return u.String(), nil
	}

	base, err := url.Parse(baseStr)
	if err != nil {
		return "", err
	}
	if !base.IsAbs() {
		return "", fmt.Errorf("base URL %q is not absolute", baseStr)
	}

	return base.ResolveReference(u).String(), nil
}

// ResourcePath strips loader prefixes ("loader!") and the query string from a
// module identifier, leaving the path of the underlying source file
func ResourcePath(identifier string) string {
	if i := strings.LastIndex(identifier, "!"); i >= 0 {
		identifier = identifier[i+1:]
	}
	if i := strings.IndexAny(identifier, "?#"); i >= 0 {
		identifier = identifier[:i]
	}
	return identifier
}

// WithinTree reports whether dir is root or one of its descendants
func WithinTree(root, dir string) bool {
	root = path.Clean(root)
	dir = path.Clean(dir)
	if root == dir {
		return true
	}
	if root == "/" {
		return strings.HasPrefix(dir, "/")
	}
	return strings.HasPrefix(dir, root+"/")
}
