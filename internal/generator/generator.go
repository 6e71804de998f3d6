// Package generator produces titles, captions and hashtags for a topic
// using template expansion and randomized sampling.
package generator

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/contentforge/contentforge/internal/model"
)

const (
	defaultLatencyMin = 500 * time.Millisecond
	defaultLatencyMax = 1500 * time.Millisecond
)

// Generator renders content bundles from the embedded template pack.
// It is pure aside from its random source and the optional simulated
// latency.
type Generator struct {
	pack       *templatePack
	rng        *rand.Rand
	now        func() time.Time
	latencyMin time.Duration
	latencyMax time.Duration
	simulate   bool
}

// Option configures the Generator.
type Option func(*Generator)

// WithSeed makes sampling deterministic for tests.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithNow overrides the clock used for the {year} placeholder.
func WithNow(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithSimulatedLatency enables the 500-1500ms artificial delay that
// paces interactive use. Off by default so non-interactive callers and
// tests are not slowed down.
func WithSimulatedLatency(min, max time.Duration) Option {
	return func(g *Generator) {
		g.simulate = true
		if min > 0 {
			g.latencyMin = min
		}
		if max >= g.latencyMin {
			g.latencyMax = max
		}
	}
}

// New creates a Generator from the embedded template pack.
func New(opts ...Option) (*Generator, error) {
	pack, err := loadTemplatePack()
	if err != nil {
		return nil, err
	}
	g := &Generator{
		pack:       pack,
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:        time.Now,
		latencyMin: defaultLatencyMin,
		latencyMax: defaultLatencyMax,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate produces a content bundle for the given platform and topic.
// Trending keywords are only consulted when precision is enabled. The
// returned bundle is freshly allocated and owned by the caller.
func (g *Generator) Generate(ctx context.Context, platform model.Platform, topic string, precision bool, keywords []model.TrendingKeyword) (*model.GeneratedContent, error) {
	if !platform.Valid() {
		return nil, eris.Errorf("generator: unsupported platform %q", platform)
	}

	v := vars{
		topic: topic,
		slug:  Slug(topic),
		year:  g.now().Format("2006"),
	}

	var content model.GeneratedContent
	switch platform {
	case model.PlatformYouTube:
		content = g.generateYouTube(v, precision, keywords)
	case model.PlatformInstagram:
		content = g.generateInstagram(v, precision, keywords)
	}

	if g.simulate {
		if err := g.sleep(ctx); err != nil {
			return nil, err
		}
	}
	return &content, nil
}

func (g *Generator) generateYouTube(v vars, precision bool, keywords []model.TrendingKeyword) model.GeneratedContent {
	tpl := g.pack.YouTube

	titles := make([]string, 0, len(tpl.Titles)+1)
	for _, t := range tpl.Titles {
		titles = append(titles, render(t, v))
	}

	hashtags := g.renderHashtags(v, tpl.Hashtags)

	if precision && len(keywords) > 0 {
		lead := v
		lead.keyword = keywordAt(keywords, 0, tpl.TrendFallbacks[0])
		titles = append([]string{render(tpl.TrendLeadTitle, lead)}, titles...)

		rewrite := v
		rewrite.keyword = keywordAt(keywords, 1, tpl.TrendFallbacks[1])
		titles[2] = render(tpl.TrendRewriteTitle, rewrite)

		hashtags = append(hashtags, g.keywordHashtags(keywords, tpl.TrendHashtagSample)...)
	}

	// Random subset of 3-5 titles, size itself randomized.
	titles = sample(g.rng, titles, 3+g.rng.IntN(3))

	return model.GeneratedContent{
		Titles:   titles,
		Hashtags: g.finalizeHashtags(hashtags),
	}
}

func (g *Generator) generateInstagram(v vars, precision bool, keywords []model.TrendingKeyword) model.GeneratedContent {
	tpl := g.pack.Instagram

	captions := make([]model.Caption, 0, len(tpl.Captions))
	for _, c := range tpl.Captions {
		captions = append(captions, model.Caption{Style: c.Style, Text: render(c.Text, v)})
	}

	hashtags := g.renderHashtags(v, tpl.Hashtags)

	if precision && len(keywords) > 0 {
		// Rewrite the first two captions around the top keywords,
		// keeping the original styles.
		for i, tc := range tpl.TrendCaptions {
			if i >= len(captions) {
				break
			}
			kv := v
			kv.keyword = keywordAt(keywords, i, tpl.TrendFallbacks[i])
			captions[i] = model.Caption{Style: tc.Style, Text: render(tc.Text, kv)}
		}
		hashtags = append(hashtags, g.keywordHashtags(keywords, tpl.TrendHashtagSample)...)
	}

	return model.GeneratedContent{
		Captions: captions,
		Hashtags: g.finalizeHashtags(hashtags),
	}
}

// renderHashtags renders the shared base pool plus the platform extras.
func (g *Generator) renderHashtags(v vars, extras []string) []string {
	out := make([]string, 0, len(g.pack.BaseHashtags)+len(extras))
	for _, h := range g.pack.BaseHashtags {
		out = append(out, render(h, v))
	}
	for _, h := range extras {
		out = append(out, render(h, v))
	}
	return out
}

// keywordHashtags derives hashtags from a random sample of up to n keywords.
func (g *Generator) keywordHashtags(keywords []model.TrendingKeyword, n int) []string {
	picked := sample(g.rng, keywords, n)
	out := make([]string, 0, len(picked))
	for _, kw := range picked {
		out = append(out, "#"+stripSpace(kw.Keyword))
	}
	return out
}

// finalizeHashtags deduplicates the pool and samples min(15, max(10, unique))
// tags. Fewer than 10 is possible when the pool is small.
func (g *Generator) finalizeHashtags(hashtags []string) []string {
	seen := make(map[string]struct{}, len(hashtags))
	unique := make([]string, 0, len(hashtags))
	for _, h := range hashtags {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		unique = append(unique, h)
	}

	n := len(unique)
	if n < 10 {
		// keep n
	} else if n > 15 {
		n = 15
	}
	return sample(g.rng, unique, n)
}

func (g *Generator) sleep(ctx context.Context) error {
	delay := g.latencyMin
	if span := g.latencyMax - g.latencyMin; span > 0 {
		delay += time.Duration(g.rng.Int64N(int64(span)))
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "generator: canceled")
	case <-timer.C:
		return nil
	}
}

// sample returns a random subset of up to n elements, without
// replacement. Asking for more elements than exist returns a shuffled
// copy of the whole slice.
func sample[T any](rng *rand.Rand, in []T, n int) []T {
	if len(in) == 0 || n <= 0 {
		return []T{}
	}
	out := make([]T, len(in))
	copy(out, in)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

// keywordAt returns the keyword at index i, or fallback when the index
// is out of range or the keyword is empty.
func keywordAt(keywords []model.TrendingKeyword, i int, fallback string) string {
	if i >= len(keywords) || keywords[i].Keyword == "" {
		return fallback
	}
	return keywords[i].Keyword
}

// Slug normalizes a topic for hashtag templates: NFKC-folded, lowered,
// whitespace removed.
func Slug(topic string) string {
	return stripSpace(strings.ToLower(norm.NFKC.String(topic)))
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
