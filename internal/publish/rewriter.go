package publish

import (
	"path"
	"sort"
	"strings"
)

// RewriteOptions controls how links are rewritten
type RewriteOptions struct {
	DeriveAltText    bool
	ReplaceOriginal  bool
	StripFrontMatter bool
}

// Rewritten holds the rewrite of one document
type Rewritten struct {
	// Full has every succeeded reference replaced
	Full string
	// Export is what goes to the clipboard or output
	Export string
	// Document is what the document buffer should hold afterwards
	Document        string
	DocumentChanged bool
}

// Rewrite replaces every token of every succeeded reference with a markdown
// image link to its remote URL. Running it again on its own output changes
// nothing.
func Rewrite(original string, batch Batch, opts RewriteOptions) Rewritten {
	all := make(map[string]string)
	remoteOnly := make(map[string]string)

	for _, r := range batch.Results {
		if r.Outcome.Kind != Succeeded || r.Ref == nil {
			continue
		}
		link := "![" + altText(r.Ref.DisplayName, opts.DeriveAltText) + "](" + r.Outcome.URL + ")"
		for _, token := range r.Ref.Tokens() {
			all[token] = link
			if r.Ref.IsRemoteSource {
				remoteOnly[token] = link
			}
		}
	}

	full := replaceTokens(original, all)
	out := Rewritten{Full: full, Export: full}
	if opts.StripFrontMatter {
		out.Export = StripFrontMatter(full)
	}
	if opts.ReplaceOriginal {
		out.Document = full
	} else {
		out.Document = replaceTokens(original, remoteOnly)
	}
	out.DocumentChanged = out.Document != original
	return out
}

// replaceTokens applies all replacements in one pass. Longer tokens are tried
// first so a token contained in another never splits it.
func replaceTokens(text string, replacements map[string]string) string {
	if len(replacements) == 0 {
		return text
	}

	tokens := make([]string, 0, len(replacements))
	for token := range replacements {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})

	pairs := make([]string, 0, 2*len(tokens))
	for _, token := range tokens {
		pairs = append(pairs, token, replacements[token])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// altText is the display name without extension, dashes and underscores as spaces
func altText(displayName string, derive bool) string {
	if !derive {
		return ""
	}
	name := strings.TrimSuffix(displayName, path.Ext(displayName))
	return strings.NewReplacer("-", " ", "_", " ").Replace(name)
}
