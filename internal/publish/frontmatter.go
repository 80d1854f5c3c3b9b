package publish

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// leading "---" block up to and including the closing "---" line
var frontMatterPattern = regexp.MustCompile(`(?ms)\A---[ \t]*\r?\n(.*?)^---[ \t]*(?:\r?\n|\z)`)

// Overrides are per-document publish settings read from front matter:
//
//	---
//	publish:
//	  strip_front_matter: true
//	  replace_original: false
//	---
type Overrides struct {
	StripFrontMatter *bool `yaml:"strip_front_matter"`
	ReplaceOriginal  *bool `yaml:"replace_original"`
}

// FrontMatter is a leading YAML block
type FrontMatter struct {
	Present   bool
	Block     string // the block as written, delimiters included
	Overrides Overrides
}

// SplitFrontMatter separates a leading front-matter block from the body. A
// block that is not valid YAML is still split off; the decode error is
// returned alongside.
func SplitFrontMatter(text string) (FrontMatter, string, error) {
	loc := frontMatterPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return FrontMatter{}, text, nil
	}

	fm := FrontMatter{Present: true, Block: text[:loc[1]]}
	body := text[loc[1]:]

	var meta struct {
		Publish Overrides `yaml:"publish"`
	}
	if err := yaml.Unmarshal([]byte(text[loc[2]:loc[3]]), &meta); err != nil {
		return fm, body, fmt.Errorf("invalid front matter: %w", err)
	}
	fm.Overrides = meta.Publish
	return fm, body, nil
}

// StripFrontMatter removes one leading front-matter block
func StripFrontMatter(text string) string {
	loc := frontMatterPattern.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[loc[1]:]
}

// Apply returns opts with the overrides applied
func (o Overrides) Apply(opts Options) Options {
	if o.StripFrontMatter != nil {
		opts.StripFrontMatter = *o.StripFrontMatter
	}
	if o.ReplaceOriginal != nil {
		opts.ReplaceOriginal = *o.ReplaceOriginal
	}
	return opts
}
