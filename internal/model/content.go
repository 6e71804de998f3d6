package model

import (
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// Platform identifies a supported social media target.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
)

// Valid reports whether the platform is one of the supported values.
func (p Platform) Valid() bool {
	switch p {
	case PlatformYouTube, PlatformInstagram:
		return true
	}
	return false
}

// ParsePlatform converts user input into a Platform.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", eris.Errorf("model: unknown platform %q", s)
	}
	return p, nil
}

// Caption is a styled caption variant for platforms that use captions.
type Caption struct {
	Style string `json:"style"`
	Text  string `json:"text"`
}

// GeneratedContent is the output bundle of a single generation request.
// Titles is populated only for YouTube, Captions only for Instagram,
// Hashtags for both. The bundle is owned by the caller and never shared
// or cached across requests.
type GeneratedContent struct {
	Titles   []string  `json:"titles,omitempty"`
	Captions []Caption `json:"captions,omitempty"`
	Hashtags []string  `json:"hashtags,omitempty"`
}

// TrendingKeyword is a keyword/search-volume pair supplied by a keyword
// source. Consumed read-only by the generator.
type TrendingKeyword struct {
	Keyword      string `json:"keyword"`
	SearchVolume int    `json:"search_volume"`
}

const (
	// TopicMinLen and TopicMaxLen bound topic length in characters.
	TopicMinLen = 3
	TopicMaxLen = 100
)

// ErrInvalidTopic marks topic validation failures.
var ErrInvalidTopic = eris.New("model: invalid topic")

// ValidateTopic checks the topic against the length rules. Validation
// failures are rejected before generation and never reach the generator.
func ValidateTopic(topic string) error {
	t := strings.TrimSpace(topic)
	if t == "" {
		return eris.Wrap(ErrInvalidTopic, "topic is required")
	}
	n := utf8.RuneCountInString(t)
	if n < TopicMinLen {
		return eris.Wrapf(ErrInvalidTopic, "topic too short (%d chars, minimum %d)", n, TopicMinLen)
	}
	if n > TopicMaxLen {
		return eris.Wrapf(ErrInvalidTopic, "topic too long (%d chars, maximum %d)", n, TopicMaxLen)
	}
	return nil
}
