package core

import "time"

// Unit is one developer record moving through the enrichment pipeline, seen
// from the coordination layer: identity, status, lease fields and retry
// bookkeeping. Profile payload lives on Developer.
type Unit struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Status   Status `json:"status"`

	// Lease fields. ClaimedBy is non-empty iff Status == PROCESSING.
	// ClaimedFrom records the pending state the record was claimed out of,
	// so a retry or a stale-lease reclaim can revert it exactly.
	ClaimedBy           string     `json:"claimed_by,omitempty"`
	ClaimedFrom         Status     `json:"claimed_from,omitempty"`
	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty"`

	RetryCount int    `json:"retry_count"`
	LastError  string `json:"last_error,omitempty"`

	ProfiledAt *time.Time `json:"profiled_at,omitempty"`
	EnhancedAt *time.Time `json:"enhanced_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Profile holds the GitHub profile payload written by the profile stage.
type Profile struct {
	Name            string `json:"name,omitempty"`
	Email           string `json:"email,omitempty"`
	Bio             string `json:"bio,omitempty"`
	Location        string `json:"location,omitempty"`
	Company         string `json:"company,omitempty"`
	Blog            string `json:"blog,omitempty"`
	TwitterUsername string `json:"twitter_username,omitempty"`
	Hireable        *bool  `json:"hireable,omitempty"`

	Followers   int `json:"followers"`
	Following   int `json:"following"`
	PublicRepos int `json:"public_repos"`
	PublicGists int `json:"public_gists"`

	ProfileURL string `json:"profile_url,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`

	GitHubCreatedAt *time.Time `json:"github_created_at,omitempty"`
	GitHubUpdatedAt *time.Time `json:"github_updated_at,omitempty"`
}

// SocialLink is one platform -> URL association discovered for a developer.
type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// Repository is one of a developer's recently updated repositories.
type Repository struct {
	Name        string `json:"name"`
	Stars       int    `json:"stars"`
	Language    string `json:"language,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// Enrichment is the result a stage collaborator produces for one unit.
// The profile stage fills Profile, Social and Repos; the social stage
// fills Social only.
type Enrichment struct {
	Profile *Profile     `json:"profile,omitempty"`
	Social  []SocialLink `json:"social,omitempty"`
	Repos   []Repository `json:"repos,omitempty"`
}

// Developer is a unit together with its enrichment payload, as served by the
// ops API.
type Developer struct {
	Unit
	Profile Profile      `json:"profile"`
	Social  []SocialLink `json:"social,omitempty"`
	Repos   []Repository `json:"repos,omitempty"`
}

// Stats summarizes the state of the developer table.
type Stats struct {
	Total        int64            `json:"total"`
	ByStatus     map[Status]int64 `json:"by_status"`
	WithEmail    int64            `json:"with_email"`
	WithSocial   int64            `json:"with_social"`
	AvgFollowers int              `json:"avg_followers"`
	AvgRepos     int              `json:"avg_public_repos"`
}
