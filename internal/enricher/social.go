package enricher

import (
	"context"
	"log/slog"
	"strings"

	"github.com/levicap/github-scrapper/internal/core"
)

// SocialEnricher is the stage-2 collaborator: it re-reads the stored profile
// and mines the developer's blog page for social links the profile text did
// not carry.
type SocialEnricher struct {
	store  core.Store
	client *Client
}

// NewSocialEnricher creates the social stage collaborator.
func NewSocialEnricher(store core.Store, client *Client) *SocialEnricher {
	return &SocialEnricher{store: store, client: client}
}

// Process implements worker.Collaborator.
func (e *SocialEnricher) Process(ctx context.Context, unit core.Unit) (*core.Enrichment, error) {
	dev, err := e.store.GetDeveloper(ctx, unit.Username)
	if err != nil {
		return nil, err
	}

	// Links already found during the profile stage stay authoritative.
	links := dev.Social

	if blog := normalizeBlogURL(dev.Profile.Blog); blog != "" {
		page, err := e.client.FetchPage(ctx, blog)
		if err != nil {
			// A dead blog is not a processing failure; the profile links
			// already satisfy the stage.
			slog.Debug("blog page unreachable", "username", unit.Username, "url", blog, "error", err)
		} else {
			links = MergeSocialLinks(links, ExtractSocialLinks(page))
		}
	}

	return &core.Enrichment{Social: links}, nil
}

// normalizeBlogURL makes a bare domain fetchable.
func normalizeBlogURL(blog string) string {
	blog = strings.TrimSpace(blog)
	if blog == "" {
		return ""
	}
	if !strings.HasPrefix(blog, "http://") && !strings.HasPrefix(blog, "https://") {
		blog = "https://" + blog
	}
	return blog
}
