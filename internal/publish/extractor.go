package publish

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/altafino/mdimg-publish/internal/uploader"
	"github.com/altafino/mdimg-publish/internal/webimage"
)

const imageExts = `png|jpe?g|gif|svg|webp|bmp|excalidraw`

var (
	// ![[target]] or ![[target|size]]
	embedPattern = regexp.MustCompile(`!\[\[([^\[\]|\n]+?\.(?i:` + imageExts + `))(?:\|[^\]\n]*)?\]\]`)
	// ![alt](target)
	inlinePattern = regexp.MustCompile(`!\[([^\]\n]*)\]\(([^()\n]+?\.(?i:` + imageExts + `))\)`)
)

// ExtractOptions controls reference extraction
type ExtractOptions struct {
	AttachmentFolder  string
	Document          DocumentContext
	AllowRemoteUpload bool
	// Hosted, when set, filters out web images the backend already serves
	Hosted uploader.HostedChecker
	Now    func() time.Time
}

// Skip records a match that was not turned into a reference
type Skip struct {
	Token  string
	Reason error
}

// Extraction is the deduplicated set of references found in a document
type Extraction struct {
	References []*ImageReference
	Skipped    []Skip
}

// Extract finds every embedded image in text. Embeds are collected before
// inline images; each group keeps text order. References that resolve to the
// same location are merged, keeping every spelling as an alias.
func Extract(text string, opts ExtractOptions) Extraction {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var ex Extraction
	byLocation := make(map[string]*ImageReference)

	add := func(token string, ref *ImageReference) {
		if existing, ok := byLocation[ref.Location]; ok {
			existing.addAlias(token)
			return
		}
		byLocation[ref.Location] = ref
		ex.References = append(ex.References, ref)
	}

	for _, m := range embedPattern.FindAllStringSubmatch(text, -1) {
		token, target := m[0], m[1]
		ref, err := localReference(token, target, opts)
		if err != nil {
			ex.Skipped = append(ex.Skipped, Skip{Token: token, Reason: err})
			continue
		}
		add(token, ref)
	}

	for _, m := range inlinePattern.FindAllStringSubmatch(text, -1) {
		token, target := m[0], strings.TrimSpace(m[2])

		var ref *ImageReference
		var err error
		if isWebURL(target) {
			ref, err = webReference(token, target, opts)
		} else {
			ref, err = localReference(token, target, opts)
		}
		if err != nil {
			ex.Skipped = append(ex.Skipped, Skip{Token: token, Reason: err})
			continue
		}
		add(token, ref)
	}

	return ex
}

func localReference(token, target string, opts ExtractOptions) (*ImageReference, error) {
	decoded, err := url.PathUnescape(target)
	if err != nil {
		return nil, fmt.Errorf("invalid image path %q: %w", target, err)
	}
	res, err := Resolve(decoded, opts.AttachmentFolder, opts.Document)
	if err != nil {
		return nil, err
	}
	return &ImageReference{
		SourceToken: token,
		DisplayName: res.DisplayName,
		Location:    res.Location,
		Fallback:    res.Fallback,
	}, nil
}

func webReference(token, target string, opts ExtractOptions) (*ImageReference, error) {
	if !opts.AllowRemoteUpload {
		return nil, ErrRemoteUploadDisabled
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid image URL %q: %w", target, err)
	}
	if opts.Hosted != nil && opts.Hosted.IsHosted(u) {
		return nil, ErrAlreadyHosted
	}
	return &ImageReference{
		SourceToken:    token,
		DisplayName:    webimage.FileName(target, "", opts.Now()),
		Location:       target,
		IsRemoteSource: true,
	}, nil
}

func isWebURL(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
