package enricher

import (
	"context"

	"github.com/levicap/github-scrapper/internal/core"
)

// ProfileEnricher is the stage-1 collaborator: it fetches the GitHub profile
// and top repositories for a claimed record and extracts social links from
// the profile text.
type ProfileEnricher struct {
	client *Client
}

// NewProfileEnricher creates the profile stage collaborator.
func NewProfileEnricher(client *Client) *ProfileEnricher {
	return &ProfileEnricher{client: client}
}

// Process implements worker.Collaborator.
func (e *ProfileEnricher) Process(ctx context.Context, unit core.Unit) (*core.Enrichment, error) {
	profile, repos, err := e.client.FetchProfile(ctx, unit.Username)
	if err != nil {
		return nil, err
	}

	social := ExtractSocialLinks(profile.Bio, profile.Blog)
	if profile.TwitterUsername != "" {
		social = MergeSocialLinks([]core.SocialLink{{
			Platform: "twitter",
			URL:      "https://twitter.com/" + profile.TwitterUsername,
		}}, social)
	}

	return &core.Enrichment{
		Profile: profile,
		Social:  social,
		Repos:   repos,
	}, nil
}
