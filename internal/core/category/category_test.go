package category

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "breaking-news-42", CacheKey("Breaking News", "42"))
	assert.Equal(t, "politics-99", CacheKey("Politics", "99"))
	assert.Equal(t, "local-news-7", CacheKey("  Local \t News ", "7"))
}

func TestCacheKeyDistinctPairs(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range All {
		for _, id := range []string{"1", "2", "abc"} {
			k := CacheKey(string(c), id)
			assert.False(t, seen[k], "duplicate key %s", k)
			seen[k] = true
		}
	}
}

func TestParse(t *testing.T) {
	c, ok := Parse("local-news")
	require.True(t, ok)
	assert.Equal(t, LocalNews, c)

	c, ok = Parse("BREAKING news")
	require.True(t, ok)
	assert.Equal(t, BreakingNews, c)

	_, ok = Parse("Weather")
	assert.False(t, ok)
}

func TestUpstreamMapping(t *testing.T) {
	c, ok := FromUpstream("General")
	require.True(t, ok)
	assert.Equal(t, LocalNews, c)

	_, ok = FromUpstream("gossip")
	assert.False(t, ok)

	assert.Equal(t, "general", UpstreamSlug(Technology))
	assert.Equal(t, "breaking-news", UpstreamSlug(BreakingNews))
}

func TestEmbeddedStylesCoverAllCategories(t *testing.T) {
	for _, c := range All {
		st := StyleFor(string(c))
		assert.Len(t, st.Colors, 3, c)
		assert.NotEmpty(t, st.Style, c)
	}
	assert.Equal(t, []string{"#FF4444", "#CC0000", "#8B0000"}, StyleFor("Breaking News").Colors)
	assert.Equal(t, StyleFor("Local News"), StyleFor("Weather"))
}

func TestLoadStylesOverride(t *testing.T) {
	original := StyleFor("Sports")
	t.Cleanup(func() {
		stylesMu.Lock()
		styles[Sports] = original
		stylesMu.Unlock()
	})

	path := filepath.Join(t.TempDir(), "styles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sports:\n  colors: [\"#000000\"]\n  style: mono\n"), 0o644))
	require.NoError(t, LoadStyles(path))

	assert.Equal(t, []string{"#000000"}, StyleFor("Sports").Colors)
	assert.Equal(t, "mono", StyleFor("Sports").Style)
}

func TestLoadStylesRejectsUnknownCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "styles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Weather:\n  style: sunny\n"), 0o644))
	assert.Error(t, LoadStyles(path))
}
