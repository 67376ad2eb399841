package emitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsh-team/chunkbroker/internal/stats"
)

func homeStats() *stats.Stats {
	return &stats.Stats{
		PublicPath: "/static/",
		Chunks: []*stats.Chunk{
			{
				ID:      stats.NumericID(0),
				Names:   []string{"main"},
				Entry:   true,
				Initial: true,
				Files:   []string{"main.js", "main.js.map", "main.css"},
			},
			{
				ID:    stats.NumericID(1),
				Files: []string{"1.js", "1.js.map"},
				Modules: []*stats.Module{
					{
						ID:              stats.NumericID(42),
						Identifier:      "/app/src/pages/Home/index.js",
						ProvidedExports: stats.Exports{"default"},
						Issuer:          "/app/src/routes.js",
					},
				},
			},
		},
	}
}

func TestTwoNamesOneFile(t *testing.T) {
	m, err := Render(homeStats(), []string{"pages/Home", "Home/index"}, Options{})
	require.NoError(t, err)

	require.Len(t, m.Scripts, 2)
	assert.Equal(t, "/static/main.js", m.Scripts[0].Src)
	assert.Empty(t, m.Scripts[0].Chunks)
	assert.Equal(t, "/static/1.js", m.Scripts[1].Src)
	assert.Equal(t, []string{"pages/Home", "Home/index"}, m.Scripts[1].Chunks)

	assert.Equal(t,
		`<script id="__LAZY_CHUNKS__" type="application/json">{"pages/Home":42,"Home/index":42}</script>`,
		m.Island)

	out := m.String()
	assert.Contains(t, out, `data-chunks="pages/Home,Home/index"`)
	assert.Equal(t, 1, strings.Count(out, `src="/static/1.js"`))
}

func TestScriptModes(t *testing.T) {
	m, err := Render(homeStats(), []string{"pages/Home"}, Options{})
	require.NoError(t, err)
	assert.True(t, m.Scripts[0].Async, "entry chunks load async by default")
	assert.False(t, m.Scripts[1].Async)

	m, err = Render(homeStats(), []string{"pages/Home"}, Options{Mode: ModeDefer})
	require.NoError(t, err)
	assert.False(t, m.Scripts[0].Async)

	m, err = Render(homeStats(), []string{"pages/Home"}, Options{Mode: ModeAsync})
	require.NoError(t, err)
	assert.True(t, m.Scripts[1].Async)
}

func TestScriptTag(t *testing.T) {
	out, err := Emit(homeStats(), []string{"pages/Home"}, Options{Nonce: "abc", CrossOrigin: "anonymous"})
	require.NoError(t, err)

	assert.Contains(t, out,
		`<script src="/static/1.js" type="text/javascript" defer nonce="abc" crossorigin="anonymous" data-chunks="pages/Home" onload="this.setAttribute('data-loaded','true')"></script>`)
	assert.Contains(t, out, `<link rel="stylesheet" href="/static/main.css" nonce="abc" crossorigin="anonymous">`)
	assert.NotContains(t, out, ".map")
}

func TestPreloadsEntryFirst(t *testing.T) {
	s := homeStats()
	// put the lazy chunk first in the snapshot
	s.Chunks[0], s.Chunks[1] = s.Chunks[1], s.Chunks[0]

	m, err := Render(s, []string{"pages/Home"}, Options{Preload: true})
	require.NoError(t, err)

	require.Len(t, m.Preloads, 3)
	assert.Equal(t, `<link rel="preload" href="/static/main.js" as="script">`, m.Preloads[0])
	assert.Equal(t, `<link rel="preload" href="/static/main.css" as="style">`, m.Preloads[1])
	assert.Equal(t, `<link rel="preload" href="/static/1.js" as="script">`, m.Preloads[2])

	out := m.String()
	assert.Less(t, strings.Index(out, "rel=\"preload\""), strings.Index(out, "<script"))
}

func TestUnsatisfiedNameAbsent(t *testing.T) {
	m, err := Render(homeStats(), []string{"pages/Missing"}, Options{})
	require.NoError(t, err)

	require.Len(t, m.Scripts, 1)
	assert.Empty(t, m.Modules)
	assert.Equal(t, `<script id="__LAZY_CHUNKS__" type="application/json">{}</script>`, m.Island)
}

func TestModuleWithoutDefaultExport(t *testing.T) {
	s := homeStats()
	s.Chunks[1].Modules[0].ProvidedExports = stats.Exports{"named"}

	m, err := Render(s, []string{"pages/Home"}, Options{})
	require.NoError(t, err)
	assert.NotContains(t, m.Modules, "pages/Home")
}

func TestPrefersRealModuleOverShim(t *testing.T) {
	s := &stats.Stats{
		Chunks: []*stats.Chunk{
			{
				ID:    stats.StringID("pages"),
				Files: []string{"pages.js"},
				Modules: []*stats.Module{
					{
						// pages/Home.js imported by its own directory index
						ID:              stats.StringID("shim"),
						Identifier:      "/app/src/pages/Home.js",
						ProvidedExports: stats.Exports{"default"},
						Issuer:          "/app/src/pages/index.js",
					},
					{
						ID:              stats.StringID("real"),
						Identifier:      "/app/src/components/pages/Home.js",
						ProvidedExports: stats.Exports{"default"},
						Issuer:          "/app/src/routes.js",
					},
				},
			},
		},
	}

	m, err := Render(s, []string{"pages/Home"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, stats.StringID("real"), m.Modules["pages/Home"])
	assert.Contains(t, m.Island, `{"pages/Home":"real"}`)
}

func TestIslandEscapesMarkup(t *testing.T) {
	s := &stats.Stats{
		Chunks: []*stats.Chunk{
			{
				ID:    stats.NumericID(1),
				Files: []string{"x.js"},
				Modules: []*stats.Module{
					{
						ID:              stats.StringID("</script><b>"),
						Identifier:      "/app/x.js",
						ProvidedExports: stats.Exports{"default"},
					},
				},
			},
		},
	}

	m, err := Render(s, []string{"x"}, Options{IslandID: "chunks"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(m.Island, `<script id="chunks" type="application/json">`))
	assert.Equal(t, 1, strings.Count(m.Island, "</script>"))
}

func TestNilStats(t *testing.T) {
	out, err := Emit(nil, []string{"a"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, `<script id="__LAZY_CHUNKS__" type="application/json">{}</script>`, out)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeEntryAsync, "defer": ModeDefer, "ASYNC": ModeAsync, "entry-async": ModeEntryAsync} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("eager")
	assert.Error(t, err)
}
