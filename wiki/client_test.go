package wiki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves a tiny subset of the MediaWiki action API.
type fakeAPI struct {
	requests atomic.Int32
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)

	q := r.URL.Query()
	w.Header().Set("Content-Type", "application/json")

	if q.Get("format") != "json" || q.Get("formatversion") != "2" {
		http.Error(w, "bad format", http.StatusBadRequest)

		return
	}

	write := func(v any) { _ = json.NewEncoder(w).Encode(v) }
	page := func(p map[string]any) map[string]any {
		return map[string]any{"query": map[string]any{"pages": []any{p}}}
	}

	switch {
	case q.Get("action") == "opensearch":
		write([]any{q.Get("search"), []string{"Pizza", "Pizza Hut"}, []string{"", ""}, []string{"", ""}})

	case q.Get("list") == "random":
		write(map[string]any{"query": map[string]any{"random": []any{map[string]any{"id": 1, "ns": 0, "title": "Zebra"}}}})

	case q.Get("titles") == "Missing":
		write(page(map[string]any{"title": "Missing", "missing": true}))

	case q.Get("titles") == "Broken":
		write(map[string]any{"error": map[string]any{"code": "internal_api_error", "info": "boom"}})

	case q.Get("prop") == "extracts":
		write(page(map[string]any{
			"title":   "Pizza",
			"extract": "<p><b>Pizza</b> is a dish<sup>[1]</sup> from <a href=\"/wiki/Naples\">Naples</a>.</p><p>Second   paragraph.</p>",
		}))

	case q.Get("prop") == "links" && q.Get("plcontinue") == "":
		resp := page(map[string]any{
			"title": "Pizza",
			"links": []any{map[string]any{"ns": 0, "title": "Cheese"}, map[string]any{"ns": 0, "title": "Naples"}},
		})
		resp["continue"] = map[string]any{"plcontinue": "24768|0|Tomato", "continue": "||"}
		write(resp)

	case q.Get("prop") == "links":
		write(page(map[string]any{
			"title": "Pizza",
			"links": []any{map[string]any{"ns": 0, "title": "Tomato"}},
		}))

	default:
		http.Error(w, "unexpected request", http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeAPI) {
	t.Helper()

	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithRateLimit(0, 0)}, opts...)

	return NewClient(srv.URL, opts...), api
}

func TestClient_LinksFollowsContinuation(t *testing.T) {
	c, api := newTestClient(t)

	links, err := c.Links(context.Background(), "Pizza")
	require.NoError(t, err)

	assert.Equal(t, []string{"Cheese", "Naples", "Tomato"}, links)
	assert.EqualValues(t, 2, api.requests.Load())
}

func TestClient_LinksAreCached(t *testing.T) {
	c, api := newTestClient(t)

	first, err := c.Links(context.Background(), "Pizza")
	require.NoError(t, err)

	first[0] = "Mutated"

	second, err := c.Links(context.Background(), "pizza")
	require.NoError(t, err)

	assert.Equal(t, "Cheese", second[0])
	assert.EqualValues(t, 2, api.requests.Load())
}

func TestClient_CacheDisabled(t *testing.T) {
	c, api := newTestClient(t, WithCacheTTL(0))

	for range 2 {
		_, err := c.Links(context.Background(), "Pizza")
		require.NoError(t, err)
	}

	assert.EqualValues(t, 4, api.requests.Load())
}

func TestClient_Missing(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Links(context.Background(), "Missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Extract(context.Background(), "Missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_APIError(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Links(context.Background(), "Broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal_api_error")
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(0, 0))

	_, err := c.Extract(context.Background(), "Pizza")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_Extract(t *testing.T) {
	c, _ := newTestClient(t)

	text, err := c.Extract(context.Background(), "Pizza")
	require.NoError(t, err)

	assert.Equal(t, "Pizza is a dish from Naples.\nSecond paragraph.", text)
}

func TestClient_Random(t *testing.T) {
	c, _ := newTestClient(t)

	title, err := c.Random(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Zebra", title)
}

func TestClient_Search(t *testing.T) {
	c, _ := newTestClient(t)

	titles, err := c.Search(context.Background(), "piz")
	require.NoError(t, err)
	assert.Equal(t, []string{"Pizza", "Pizza Hut"}, titles)

	titles, err = c.Search(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, titles)
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	c, _ := newTestClient(t, WithRateLimit(0.001, 1))

	_, err := c.Random(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = c.Random(ctx)
	assert.Error(t, err)
}

func TestRandomPair_Distinct(t *testing.T) {
	g, err := ParseGraph([]byte(testGraph))
	require.NoError(t, err)

	for range 10 {
		start, goal, err := RandomPair(context.Background(), g)
		if err != nil {
			continue
		}
		assert.NotEqual(t, start, goal)
	}
}

func TestRandomPair_SingleArticle(t *testing.T) {
	c, _ := newTestClient(t)

	_, _, err := RandomPair(context.Background(), c)
	assert.Error(t, err)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "", PlainText("  "))
	assert.Equal(t, "already plain", PlainText(" already plain "))
	assert.Equal(t, "one\ntwo", PlainText("<ul><li>one</li><li>two</li></ul>"))
	assert.Equal(t, "a\nb", PlainText("<p>a<br>b</p><script>x()</script>"))
}
