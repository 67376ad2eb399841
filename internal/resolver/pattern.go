package resolver

import (
	"regexp"
	"strings"
	"sync"

	"github.com/jsh-team/chunkbroker/internal/stats"
)

var (
	patternCache  sync.Map // logical name -> *regexp.Regexp
	externalCache sync.Map // logical name -> *regexp.Regexp

	leadingRelative = regexp.MustCompile(`^(\.\.?/)+`)
)

// normalize strips leading "./" and "../" segments from a logical name
func normalize(name string) string {
	return leadingRelative.ReplaceAllString(name, "")
}

// Pattern returns the compiled module identifier pattern for a logical name.
// The name must end on a path segment boundary and may be followed by
// "/index", a js/mjs/jsx/ts/tsx extension and a query suffix.
func Pattern(name string) *regexp.Regexp {
	if re, ok := patternCache.Load(name); ok {
		return re.(*regexp.Regexp)
	}

	re := regexp.MustCompile(
		`(?:^|[/!])` + regexp.QuoteMeta(normalize(name)) +
			`(?:/index)?(?:\.(?:m?jsx?|tsx?))?(?:[?#].*)?$`,
	)
	actual, _ := patternCache.LoadOrStore(name, re)
	return actual.(*regexp.Regexp)
}

// externalPattern matches modules resolved out of node_modules for a bare
// package name
func externalPattern(name string) *regexp.Regexp {
	if re, ok := externalCache.Load(name); ok {
		return re.(*regexp.Regexp)
	}

	re := regexp.MustCompile(`(?:^|[/!])node_modules/` + regexp.QuoteMeta(name) + `(?:/|$)`)
	actual, _ := externalCache.LoadOrStore(name, re)
	return actual.(*regexp.Regexp)
}

// isBare reports whether a logical name looks like a package specifier
// rather than a path
func isBare(name string) bool {
	return !strings.HasPrefix(name, ".") && !strings.HasPrefix(name, "/")
}

// MatchModule reports whether the module's identifier or readable name
// matches the logical name pattern
func MatchModule(module *stats.Module, name string) bool {
	return matchWith(Pattern(name), module, normalize(name))
}

func matchWith(re *regexp.Regexp, module *stats.Module, needle string) bool {
	// substring check first, the regexp is far more expensive
	if strings.Contains(module.Identifier, needle) && re.MatchString(module.Identifier) {
		return true
	}
	return module.Name != "" && strings.Contains(module.Name, needle) && re.MatchString(module.Name)
}
