package stats

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsh-team/chunkbroker/internal/utils/fetch"
)

const sampleStats = `{
  "publicPath": "/static/",
  "chunks": [
    {"id": 0, "names": ["main"], "entry": true, "initial": true, "files": ["main.js"], "siblings": [], "parents": [],
     "modules": [{"id": 12, "identifier": "/app/src/index.js", "name": "./src/index.js", "providedExports": null}]},
    {"id": "home", "names": [], "files": ["home.js", "home.js.map"], "siblings": [2], "parents": [0],
     "modules": [{"id": "./src/pages/Home.js", "identifier": "/app/src/pages/Home.js", "providedExports": ["default"]}]},
    null
  ]
}`

func TestDecode(t *testing.T) {
	s, err := Decode(strings.NewReader(sampleStats))
	require.NoError(t, err)

	assert.Equal(t, "/static/", s.PublicPath)
	require.Len(t, s.Chunks, 2)

	main := s.Chunks[0]
	assert.Equal(t, NumericID(0), main.ID)
	assert.True(t, main.AlwaysLoaded())
	assert.Empty(t, main.Modules[0].ProvidedExports)
	assert.False(t, main.Modules[0].ExportsDefault())

	home := s.Chunks[1]
	assert.Equal(t, StringID("home"), home.ID)
	assert.False(t, home.ID.IsNumeric())
	assert.Equal(t, []ID{NumericID(2)}, home.Siblings)
	assert.True(t, home.Modules[0].ExportsDefault())
}

func TestIDRoundTrip(t *testing.T) {
	ids := map[string]ID{
		"num": NumericID(7),
		"str": StringID("7"),
	}

	out, err := json.Marshal(ids)
	require.NoError(t, err)
	assert.JSONEq(t, `{"num": 7, "str": "7"}`, string(out))

	var back map[string]ID
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, ids, back)
	assert.NotEqual(t, back["num"], back["str"])
}

func TestIDRejectsGarbage(t *testing.T) {
	var id ID
	assert.Error(t, id.UnmarshalJSON([]byte("{}")))
	assert.NoError(t, id.UnmarshalJSON([]byte("null")))
	assert.True(t, id.IsZero())
}

func TestIndexFirstWins(t *testing.T) {
	first := &Chunk{ID: NumericID(1), Files: []string{"a.js"}}
	second := &Chunk{ID: NumericID(1), Files: []string{"b.js"}}
	s := &Stats{Chunks: []*Chunk{first, second}}

	assert.Same(t, first, s.Index()[NumericID(1)])
}

func TestLoadRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stats.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleStats))
	}))
	defer server.Close()

	fetcher := fetch.NewAssetFetcher(6000, server.Client())

	s, err := Load(context.Background(), server.URL+"/stats.json", fetcher)
	require.NoError(t, err)
	assert.Len(t, s.Chunks, 2)

	_, err = Load(context.Background(), server.URL+"/missing.json", fetcher)
	var statusErr *fetch.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}
