package enricher

import (
	"testing"

	"github.com/levicap/github-scrapper/internal/core"
)

func linkMap(links []core.SocialLink) map[string]string {
	m := make(map[string]string, len(links))
	for _, l := range links {
		m[l.Platform] = l.URL
	}
	return m
}

func TestExtractSocialLinks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]string
	}{
		{
			name: "twitter full url",
			text: "find me at https://twitter.com/gopher",
			want: map[string]string{"twitter": "https://twitter.com/gopher"},
		},
		{
			name: "x dot com maps to twitter",
			text: "now on x.com/gopher",
			want: map[string]string{"twitter": "https://twitter.com/gopher"},
		},
		{
			name: "linkedin without scheme",
			text: "linkedin.com/in/jane-doe",
			want: map[string]string{"linkedin": "https://linkedin.com/in/jane-doe"},
		},
		{
			name: "telegram short domain",
			text: "ping me on t.me/gopher_chat",
			want: map[string]string{"telegram": "https://t.me/gopher_chat"},
		},
		{
			name: "hashnode subdomain",
			text: "I blog at gopher.hashnode.dev weekly",
			want: map[string]string{"hashnode": "https://gopher.hashnode.dev"},
		},
		{
			name: "stackoverflow numeric id",
			text: "https://stackoverflow.com/users/12345",
			want: map[string]string{"stackoverflow": "https://stackoverflow.com/users/12345"},
		},
		{
			name: "medium handle canonicalized",
			text: "writing on medium.com/gopher",
			want: map[string]string{"medium": "https://medium.com/@gopher"},
		},
		{
			name: "unknown url kept as other",
			text: "see https://gopher.example.org/about",
			want: map[string]string{"other": "https://gopher.example.org/about"},
		},
		{
			name: "github url not treated as other",
			text: "code at https://github.com/gopher",
			want: map[string]string{},
		},
		{
			name: "multiple platforms in one bio",
			text: "https://twitter.com/gopher and dev.to/gopher and https://blog.example.com",
			want: map[string]string{
				"twitter": "https://twitter.com/gopher",
				"dev_to":  "https://dev.to/gopher",
				"other":   "https://blog.example.com",
			},
		},
		{
			name: "empty text",
			text: "   ",
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := linkMap(ExtractSocialLinks(tt.text))
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractSocialLinks() = %v, want %v", got, tt.want)
			}
			for platform, url := range tt.want {
				if got[platform] != url {
					t.Errorf("platform %s = %q, want %q", platform, got[platform], url)
				}
			}
		})
	}
}

func TestExtractSocialLinksCombinesTexts(t *testing.T) {
	links := ExtractSocialLinks("on twitter.com/gopher", "and linkedin.com/in/gopher")
	got := linkMap(links)
	if got["twitter"] == "" || got["linkedin"] == "" {
		t.Fatalf("ExtractSocialLinks() across texts = %v", got)
	}
}

func TestMergeSocialLinks(t *testing.T) {
	base := []core.SocialLink{
		{Platform: "twitter", URL: "https://twitter.com/from-profile"},
	}
	extra := []core.SocialLink{
		{Platform: "twitter", URL: "https://twitter.com/from-blog"},
		{Platform: "medium", URL: "https://medium.com/@gopher"},
	}

	merged := linkMap(MergeSocialLinks(base, extra))
	if merged["twitter"] != "https://twitter.com/from-profile" {
		t.Errorf("merge overwrote base twitter link: %q", merged["twitter"])
	}
	if merged["medium"] != "https://medium.com/@gopher" {
		t.Errorf("merge dropped extra medium link: %q", merged["medium"])
	}
}
