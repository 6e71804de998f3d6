package generator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentforge/contentforge/internal/model"
)

func fixedNow() time.Time {
	return time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
}

func newTestGenerator(t *testing.T, seed uint64) *Generator {
	t.Helper()
	g, err := New(WithSeed(seed), WithNow(fixedNow))
	require.NoError(t, err)
	return g
}

func testKeywords(n int) []model.TrendingKeyword {
	base := []model.TrendingKeyword{
		{Keyword: "AI Shorts", SearchVolume: 9000},
		{Keyword: "Faceless Channels", SearchVolume: 7000},
		{Keyword: "Reels Remix", SearchVolume: 5000},
		{Keyword: "Creator Economy", SearchVolume: 4000},
		{Keyword: "Vertical Video", SearchVolume: 3000},
		{Keyword: "Micro Vlogs", SearchVolume: 2000},
	}
	return base[:n]
}

func TestGenerate_YouTube_Shape(t *testing.T) {
	g := newTestGenerator(t, 1)

	content, err := g.Generate(context.Background(), model.PlatformYouTube, "Healthy Vegan Recipes", false, nil)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(content.Titles), 3)
	assert.LessOrEqual(t, len(content.Titles), 5)
	assert.Nil(t, content.Captions)

	// Base pool (8) + youtube extras (5) = 13 unique tags, all returned.
	assert.Len(t, content.Hashtags, 13)
}

func TestGenerate_Instagram_Shape(t *testing.T) {
	g := newTestGenerator(t, 2)

	content, err := g.Generate(context.Background(), model.PlatformInstagram, "Street Photography", false, nil)
	require.NoError(t, err)

	assert.Nil(t, content.Titles)
	require.Len(t, content.Captions, 3)
	assert.Equal(t, "Casual", content.Captions[0].Style)
	assert.Equal(t, "Motivational", content.Captions[1].Style)
	assert.Equal(t, "Trendy", content.Captions[2].Style)
	for _, c := range content.Captions {
		assert.Contains(t, c.Text, "Street Photography")
	}
}

func TestGenerate_HashtagProperties(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		g := newTestGenerator(t, seed)

		for _, platform := range []model.Platform{model.PlatformYouTube, model.PlatformInstagram} {
			content, err := g.Generate(context.Background(), platform, "Sourdough Baking", true, testKeywords(6))
			require.NoError(t, err)

			assert.LessOrEqual(t, len(content.Hashtags), 15)
			assert.GreaterOrEqual(t, len(content.Hashtags), 10)

			seen := make(map[string]struct{})
			for _, h := range content.Hashtags {
				assert.True(t, strings.HasPrefix(h, "#"), "hashtag %q missing # prefix", h)
				assert.NotContains(t, h, " ")
				_, dup := seen[h]
				assert.False(t, dup, "duplicate hashtag %q", h)
				seen[h] = struct{}{}
			}
		}
	}
}

func TestGenerate_YearInterpolation(t *testing.T) {
	g := newTestGenerator(t, 3)

	content, err := g.Generate(context.Background(), model.PlatformYouTube, "Home Espresso", false, nil)
	require.NoError(t, err)

	assert.Contains(t, content.Hashtags, "#homeespresso2026")
}

func TestGenerate_NoPrecision_NoTrendTitles(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		g := newTestGenerator(t, seed)

		content, err := g.Generate(context.Background(), model.PlatformYouTube, "Healthy Vegan Recipes", false, nil)
		require.NoError(t, err)

		for _, title := range content.Titles {
			assert.NotContains(t, title, "Supercharge")
			assert.NotContains(t, title, "Revolutionize")
		}
	}
}

func TestGenerate_PrecisionIgnoredWithoutKeywords(t *testing.T) {
	g := newTestGenerator(t, 4)

	content, err := g.Generate(context.Background(), model.PlatformYouTube, "Healthy Vegan Recipes", true, nil)
	require.NoError(t, err)

	for _, title := range content.Titles {
		assert.NotContains(t, title, "Supercharge")
	}
	assert.Len(t, content.Hashtags, 13)
}

func TestGenerate_Instagram_TrendCaptions(t *testing.T) {
	g := newTestGenerator(t, 5)

	content, err := g.Generate(context.Background(), model.PlatformInstagram, "Lo-fi Beats", true, testKeywords(2))
	require.NoError(t, err)

	require.Len(t, content.Captions, 3)
	assert.Equal(t, "Casual", content.Captions[0].Style)
	assert.Contains(t, content.Captions[0].Text, "AI Shorts")
	assert.Equal(t, "Motivational", content.Captions[1].Style)
	assert.Contains(t, content.Captions[1].Text, "Faceless Channels")
	// Third caption is never rewritten.
	assert.Contains(t, content.Captions[2].Text, "officially the vibe")
}

func TestGenerate_Instagram_TrendFallback(t *testing.T) {
	g := newTestGenerator(t, 6)

	// Only one keyword: the second trend caption falls back to its placeholder.
	content, err := g.Generate(context.Background(), model.PlatformInstagram, "Lo-fi Beats", true, testKeywords(1))
	require.NoError(t, err)

	require.Len(t, content.Captions, 3)
	assert.Contains(t, content.Captions[0].Text, "AI Shorts")
	assert.Contains(t, content.Captions[1].Text, "InstaGold")
}

func TestGenerate_KeywordHashtagsStripped(t *testing.T) {
	// Keyword hashtags must have whitespace removed.
	found := false
	for seed := uint64(0); seed < 30 && !found; seed++ {
		g := newTestGenerator(t, seed)
		content, err := g.Generate(context.Background(), model.PlatformInstagram, "Lo-fi Beats", true, testKeywords(1))
		require.NoError(t, err)
		for _, h := range content.Hashtags {
			if h == "#AIShorts" {
				found = true
			}
		}
	}
	assert.True(t, found, "expected #AIShorts to appear in at least one sample")
}

func TestGenerate_UnknownPlatform(t *testing.T) {
	g := newTestGenerator(t, 7)

	_, err := g.Generate(context.Background(), model.Platform("tiktok"), "Anything", false, nil)
	assert.Error(t, err)
}

func TestGenerate_SimulatedLatency(t *testing.T) {
	g, err := New(WithSeed(8), WithNow(fixedNow), WithSimulatedLatency(time.Millisecond, 2*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = g.Generate(context.Background(), model.PlatformYouTube, "Bouldering", false, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond)
}

func TestGenerate_LatencyCancelable(t *testing.T) {
	g, err := New(WithSeed(9), WithSimulatedLatency(time.Minute, time.Minute))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err = g.Generate(ctx, model.PlatformYouTube, "Bouldering", false, nil)
	assert.Error(t, err)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "healthyveganrecipes", Slug("Healthy Vegan Recipes"))
	assert.Equal(t, "lofibeats", Slug("  Lo fi   Beats "))
	assert.Equal(t, "café", Slug("Café"))
}

func TestKeywordAt(t *testing.T) {
	kws := testKeywords(1)
	assert.Equal(t, "AI Shorts", keywordAt(kws, 0, "HotTopic"))
	assert.Equal(t, "NewTrend", keywordAt(kws, 1, "NewTrend"))
	assert.Equal(t, "HotTopic", keywordAt([]model.TrendingKeyword{{Keyword: ""}}, 0, "HotTopic"))
}

func TestSample(t *testing.T) {
	g := newTestGenerator(t, 10)

	assert.Empty(t, sample(g.rng, []int{1, 2, 3}, 0))
	assert.Empty(t, sample[int](g.rng, nil, 3))
	assert.Len(t, sample(g.rng, []int{1, 2, 3}, 2), 2)
	assert.ElementsMatch(t, []int{1, 2, 3}, sample(g.rng, []int{1, 2, 3}, 10))
}
