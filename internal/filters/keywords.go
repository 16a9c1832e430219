package filters

import (
	"fmt"
	"regexp"
	"strings"
)

// MatchMode controls how many keywords must hit before a message is blocked.
type MatchMode string

const (
	MatchAny MatchMode = "any" // one hit blocks
	MatchAll MatchMode = "all" // every keyword in the effective list must hit
)

// systemKeywords is the built-in catalog appended to the configured list
// when EnableSystemKeywords is set.
var systemKeywords = []string{
	"high risk",
	"no sl",
	"no stop loss",
	"manual only",
	"risky",
	"gamble",
	"martingale",
	"revenge trade",
}

// KeywordBlacklistConfig configures the keyword blacklist evaluator.
type KeywordBlacklistConfig struct {
	Enabled              bool      `yaml:"enabled"`
	Keywords             []string  `yaml:"keywords"`
	CaseSensitive        bool      `yaml:"case_sensitive"`
	WholeWordsOnly       bool      `yaml:"whole_words_only"`
	EnableSystemKeywords bool      `yaml:"enable_system_keywords"`
	MatchMode            MatchMode `yaml:"match_mode"`
}

func DefaultKeywordBlacklistConfig() *KeywordBlacklistConfig {
	return &KeywordBlacklistConfig{
		Enabled:              true,
		EnableSystemKeywords: true,
		MatchMode:            MatchAny,
	}
}

// KeywordFilter blocks signals whose raw provider message matches
// blacklisted text patterns.
type KeywordFilter struct {
	config *KeywordBlacklistConfig
}

func NewKeywordFilter(config *KeywordBlacklistConfig) *KeywordFilter {
	if config == nil {
		config = DefaultKeywordBlacklistConfig()
	}
	return &KeywordFilter{config: config}
}

// Evaluate matches the message against the effective keyword list. An empty
// effective list never blocks.
func (f *KeywordFilter) Evaluate(message string) *Result {
	keywords := f.effectiveKeywords()
	if len(keywords) == 0 {
		return pass("no blacklist keywords configured", 100)
	}

	haystack := message
	if !f.config.CaseSensitive {
		haystack = strings.ToLower(message)
	}

	var matched []string
	for _, kw := range keywords {
		if f.matches(haystack, kw) {
			matched = append(matched, kw)
		}
	}

	blocked := false
	switch f.config.MatchMode {
	case MatchAll:
		blocked = len(matched) == len(keywords)
	default:
		blocked = len(matched) > 0
	}

	if !blocked {
		res := pass("no blacklisted keywords matched", 100)
		res.Details["matched"] = matched
		return res
	}

	confidence := clamp(60+10*float64(len(matched)), 0, 95)
	res := block(fmt.Sprintf("blacklisted keywords matched: %s", strings.Join(matched, ", ")), confidence)
	res.Details["matched"] = matched
	res.Details["match_mode"] = string(f.config.MatchMode)
	return res
}

func (f *KeywordFilter) effectiveKeywords() []string {
	keywords := make([]string, 0, len(f.config.Keywords)+len(systemKeywords))
	for _, kw := range f.config.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, f.normalize(kw))
		}
	}
	if f.config.EnableSystemKeywords {
		for _, kw := range systemKeywords {
			keywords = append(keywords, f.normalize(kw))
		}
	}
	return keywords
}

func (f *KeywordFilter) normalize(kw string) string {
	if f.config.CaseSensitive {
		return kw
	}
	return strings.ToLower(kw)
}

func (f *KeywordFilter) matches(haystack, keyword string) bool {
	if f.config.WholeWordsOnly {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
		if err != nil {
			return false
		}
		return re.MatchString(haystack)
	}
	return strings.Contains(haystack, keyword)
}
