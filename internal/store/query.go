package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/levicap/github-scrapper/internal/core"
)

const seedUsernameSQL = `
	INSERT INTO developers (username, enrichment_status)
	VALUES ($1, 'INITIAL')
	ON CONFLICT (username) DO NOTHING`

// SeedUsernames implements core.Store.
func (s *Store) SeedUsernames(ctx context.Context, usernames []string) (int64, error) {
	if len(usernames) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, username := range usernames {
		batch.Queue(seedUsernameSQL, username)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range usernames {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("seeding usernames: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

const getDeveloperSQL = `
	SELECT id, username, enrichment_status,
	       claimed_by, claimed_from, processing_started_at,
	       retry_count, last_error,
	       name, email, bio, location, company, blog, twitter_username, hireable,
	       followers, following, public_repos, public_gists,
	       profile_url, avatar_url, github_created_at, github_updated_at,
	       profiled_at, enhanced_at, created_at
	FROM developers
	WHERE username = $1`

// GetDeveloper implements core.Store.
func (s *Store) GetDeveloper(ctx context.Context, username string) (*core.Developer, error) {
	var (
		d                                      core.Developer
		status, claimedBy, claimedFrom         *string
		lastError                              *string
		name, email, bio, location, company    *string
		blog, twitterUsername                  *string
		profileURL, avatarURL                  *string
	)

	err := s.pool.QueryRow(ctx, getDeveloperSQL, username).Scan(
		&d.ID, &d.Username, &status,
		&claimedBy, &claimedFrom, &d.ProcessingStartedAt,
		&d.RetryCount, &lastError,
		&name, &email, &bio, &location, &company, &blog, &twitterUsername, &d.Profile.Hireable,
		&d.Profile.Followers, &d.Profile.Following, &d.Profile.PublicRepos, &d.Profile.PublicGists,
		&profileURL, &avatarURL, &d.Profile.GitHubCreatedAt, &d.Profile.GitHubUpdatedAt,
		&d.ProfiledAt, &d.EnhancedAt, &d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.NewNotFoundError("developer", username)
	}
	if err != nil {
		return nil, fmt.Errorf("loading developer %s: %w", username, err)
	}

	d.Status = core.Status(deref(status))
	d.ClaimedBy = deref(claimedBy)
	d.ClaimedFrom = core.Status(deref(claimedFrom))
	d.LastError = deref(lastError)
	d.Profile.Name = deref(name)
	d.Profile.Email = deref(email)
	d.Profile.Bio = deref(bio)
	d.Profile.Location = deref(location)
	d.Profile.Company = deref(company)
	d.Profile.Blog = deref(blog)
	d.Profile.TwitterUsername = deref(twitterUsername)
	d.Profile.ProfileURL = deref(profileURL)
	d.Profile.AvatarURL = deref(avatarURL)

	if d.Social, err = s.socialLinks(ctx, d.ID); err != nil {
		return nil, err
	}
	if d.Repos, err = s.repositories(ctx, d.ID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) socialLinks(ctx context.Context, developerID int64) ([]core.SocialLink, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT platform, url FROM social_links WHERE developer_id = $1 ORDER BY platform`, developerID)
	if err != nil {
		return nil, fmt.Errorf("loading social links: %w", err)
	}
	defer rows.Close()

	var links []core.SocialLink
	for rows.Next() {
		var l core.SocialLink
		if err := rows.Scan(&l.Platform, &l.URL); err != nil {
			return nil, fmt.Errorf("scanning social link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (s *Store) repositories(ctx context.Context, developerID int64) ([]core.Repository, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, stars, COALESCE(language, ''), COALESCE(url, ''), COALESCE(description, '')
		 FROM repositories WHERE developer_id = $1 ORDER BY repo_order`, developerID)
	if err != nil {
		return nil, fmt.Errorf("loading repositories: %w", err)
	}
	defer rows.Close()

	var repos []core.Repository
	for rows.Next() {
		var r core.Repository
		if err := rows.Scan(&r.Name, &r.Stars, &r.Language, &r.URL, &r.Description); err != nil {
			return nil, fmt.Errorf("scanning repository: %w", err)
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

// CountByStatus implements core.Store.
func (s *Store) CountByStatus(ctx context.Context, status core.Status) (int64, error) {
	if !status.Valid() {
		return 0, core.NewValidationError(fmt.Sprintf("unknown enrichment status %q", status), nil)
	}
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM developers WHERE enrichment_status = $1::enrichment_status`,
		string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting %s records: %w", status, err)
	}
	return count, nil
}

const listFailedSQL = `
	SELECT id, username, enrichment_status, retry_count, last_error, created_at
	FROM developers
	WHERE enrichment_status = 'FAILED'
	ORDER BY id DESC
	LIMIT $1 OFFSET $2`

// ListFailed implements core.Store.
func (s *Store) ListFailed(ctx context.Context, limit, offset int) ([]core.Unit, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx, listFailedSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing failed records: %w", err)
	}
	defer rows.Close()

	var units []core.Unit
	for rows.Next() {
		var (
			u         core.Unit
			status    string
			lastError *string
		)
		if err := rows.Scan(&u.ID, &u.Username, &status, &u.RetryCount, &lastError, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning failed record: %w", err)
		}
		u.Status = core.Status(status)
		u.LastError = deref(lastError)
		units = append(units, u)
	}
	return units, rows.Err()
}

// Stats implements core.Store.
func (s *Store) Stats(ctx context.Context) (*core.Stats, error) {
	stats := &core.Stats{ByStatus: make(map[core.Status]int64)}

	rows, err := s.pool.Query(ctx,
		`SELECT enrichment_status, COUNT(*) FROM developers GROUP BY enrichment_status`)
	if err != nil {
		return nil, fmt.Errorf("counting by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		stats.ByStatus[core.Status(status)] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM developers WHERE email IS NOT NULL AND email <> ''`).Scan(&stats.WithEmail)
	if err != nil {
		return nil, fmt.Errorf("counting records with email: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT developer_id) FROM social_links`).Scan(&stats.WithSocial)
	if err != nil {
		return nil, fmt.Errorf("counting records with social links: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(followers), 0)::INTEGER, COALESCE(AVG(public_repos), 0)::INTEGER
		 FROM developers WHERE enrichment_status IN ('PROFILED', 'ENHANCED')`,
	).Scan(&stats.AvgFollowers, &stats.AvgRepos)
	if err != nil {
		return nil, fmt.Errorf("computing profile averages: %w", err)
	}

	return stats, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// touchLeaseStart backdates a lease; only used by tests to simulate staleness.
func (s *Store) touchLeaseStart(ctx context.Context, username string, startedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE developers SET processing_started_at = $2 WHERE username = $1`, username, startedAt)
	return err
}
