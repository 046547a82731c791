package enricher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/levicap/github-scrapper/internal/core"
)

// linkPattern recognizes one platform in free-form profile text and
// canonicalizes the captured handle into a stable URL.
type linkPattern struct {
	platform string
	re       *regexp.Regexp
	canonURL func(match string) string
}

var linkPatterns = []linkPattern{
	{
		platform: "twitter",
		re:       regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:twitter\.com|x\.com)/([a-zA-Z0-9_]+)`),
		canonURL: func(m string) string { return "https://twitter.com/" + m },
	},
	{
		platform: "linkedin",
		re:       regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?linkedin\.com/in/([a-zA-Z0-9\-]+)`),
		canonURL: func(m string) string { return "https://linkedin.com/in/" + m },
	},
	{
		platform: "facebook",
		re:       regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?facebook\.com/([a-zA-Z0-9.]+)`),
		canonURL: func(m string) string { return "https://facebook.com/" + m },
	},
	{
		platform: "instagram",
		re:       regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?instagram\.com/([a-zA-Z0-9_.]+)`),
		canonURL: func(m string) string { return "https://instagram.com/" + m },
	},
	{
		platform: "telegram",
		re:       regexp.MustCompile(`(?i)(?:https?://)?(?:t\.me|telegram\.me)/([a-zA-Z0-9_]+)`),
		canonURL: func(m string) string { return "https://t.me/" + m },
	},
	{
		platform: "youtube",
		re:       regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?youtube\.com/(?:c/|channel/|@)?([a-zA-Z0-9_\-]+)`),
		canonURL: func(m string) string { return "https://youtube.com/@" + m },
	},
	{
		platform: "medium",
		re:       regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?medium\.com/@?([a-zA-Z0-9_\-]+)`),
		canonURL: func(m string) string { return "https://medium.com/@" + m },
	},
	{
		platform: "dev_to",
		re:       regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?dev\.to/([a-zA-Z0-9_\-]+)`),
		canonURL: func(m string) string { return "https://dev.to/" + m },
	},
	{
		platform: "hashnode",
		re:       regexp.MustCompile(`(?i)(?:https?://)?([a-zA-Z0-9_\-]+)\.hashnode\.dev`),
		canonURL: func(m string) string { return fmt.Sprintf("https://%s.hashnode.dev", m) },
	},
	{
		platform: "stackoverflow",
		re:       regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?stackoverflow\.com/users/([0-9]+)`),
		canonURL: func(m string) string { return "https://stackoverflow.com/users/" + m },
	},
}

var urlRe = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)

var knownDomains = []string{
	"twitter.com", "x.com", "linkedin.com", "facebook.com",
	"instagram.com", "t.me", "telegram.me", "youtube.com",
	"medium.com", "dev.to", "hashnode.dev", "stackoverflow.com",
	"github.com",
}

// ExtractSocialLinks scans free-form profile text for known platforms and
// returns at most one canonical link per platform. The first URL pointing
// somewhere unrecognized is kept under the "other" platform.
func ExtractSocialLinks(texts ...string) []core.SocialLink {
	combined := strings.Join(texts, " ")
	if strings.TrimSpace(combined) == "" {
		return nil
	}

	var links []core.SocialLink
	seen := make(map[string]bool)
	for _, p := range linkPatterns {
		m := p.re.FindStringSubmatch(combined)
		if m == nil || seen[p.platform] {
			continue
		}
		seen[p.platform] = true
		links = append(links, core.SocialLink{Platform: p.platform, URL: p.canonURL(m[1])})
	}

	for _, u := range urlRe.FindAllString(combined, -1) {
		if isKnownDomain(u) {
			continue
		}
		links = append(links, core.SocialLink{Platform: "other", URL: u})
		break
	}
	return links
}

func isKnownDomain(url string) bool {
	lower := strings.ToLower(url)
	for _, domain := range knownDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}

// MergeSocialLinks overlays extra links onto base, keeping the base entry
// when both name the same platform.
func MergeSocialLinks(base, extra []core.SocialLink) []core.SocialLink {
	seen := make(map[string]bool, len(base))
	merged := make([]core.SocialLink, 0, len(base)+len(extra))
	for _, l := range base {
		if seen[l.Platform] {
			continue
		}
		seen[l.Platform] = true
		merged = append(merged, l)
	}
	for _, l := range extra {
		if seen[l.Platform] {
			continue
		}
		seen[l.Platform] = true
		merged = append(merged, l)
	}
	return merged
}
