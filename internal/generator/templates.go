package generator

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

// templatePack holds the per-platform template definitions loaded from
// the embedded pack.
type templatePack struct {
	BaseHashtags []string           `yaml:"base_hashtags"`
	YouTube      youtubeTemplates   `yaml:"youtube"`
	Instagram    instagramTemplates `yaml:"instagram"`
}

type youtubeTemplates struct {
	Titles             []string `yaml:"titles"`
	TrendLeadTitle     string   `yaml:"trend_lead_title"`
	TrendRewriteTitle  string   `yaml:"trend_rewrite_title"`
	TrendFallbacks     []string `yaml:"trend_fallbacks"`
	Hashtags           []string `yaml:"hashtags"`
	TrendHashtagSample int      `yaml:"trend_hashtag_sample"`
}

type captionTemplate struct {
	Style string `yaml:"style"`
	Text  string `yaml:"text"`
}

type instagramTemplates struct {
	Captions           []captionTemplate `yaml:"captions"`
	TrendCaptions      []captionTemplate `yaml:"trend_captions"`
	TrendFallbacks     []string          `yaml:"trend_fallbacks"`
	Hashtags           []string          `yaml:"hashtags"`
	TrendHashtagSample int               `yaml:"trend_hashtag_sample"`
}

func loadTemplatePack() (*templatePack, error) {
	var pack templatePack
	if err := yaml.Unmarshal(templatesYAML, &pack); err != nil {
		return nil, eris.Wrap(err, "generator: parse template pack")
	}
	if len(pack.YouTube.Titles) == 0 {
		return nil, eris.New("generator: template pack has no youtube titles")
	}
	if len(pack.Instagram.Captions) == 0 {
		return nil, eris.New("generator: template pack has no instagram captions")
	}
	return &pack, nil
}

// vars holds the placeholder values substituted into a template.
type vars struct {
	topic   string
	slug    string
	year    string
	keyword string
}

// render substitutes {topic}, {slug}, {year} and {keyword} placeholders.
func render(tpl string, v vars) string {
	r := strings.NewReplacer(
		"{topic}", v.topic,
		"{slug}", v.slug,
		"{year}", v.year,
		"{keyword}", v.keyword,
	)
	return r.Replace(tpl)
}
