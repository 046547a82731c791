package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/levicap/github-scrapper/internal/core"
)

// Both outcome commits guard on enrichment_status = 'PROCESSING' AND
// claimed_by = owner: committing an outcome for a record the caller does not
// hold is rejected with a conflict error instead of silently succeeding.

const completeProfileSQL = `
	UPDATE developers SET
	    name = $3,
	    email = $4,
	    bio = $5,
	    location = $6,
	    company = $7,
	    blog = $8,
	    twitter_username = $9,
	    hireable = $10,
	    followers = $11,
	    following = $12,
	    public_repos = $13,
	    public_gists = $14,
	    profile_url = $15,
	    avatar_url = $16,
	    github_created_at = $17,
	    github_updated_at = $18,
	    enrichment_status = 'PROFILED',
	    profiled_at = NOW(),
	    retry_count = 0,
	    last_error = NULL,
	    claimed_by = NULL,
	    claimed_from = NULL,
	    processing_started_at = NULL
	WHERE username = $1 AND enrichment_status = 'PROCESSING' AND claimed_by = $2
	RETURNING id`

const completeSocialSQL = `
	UPDATE developers SET
	    enrichment_status = 'ENHANCED',
	    enhanced_at = NOW(),
	    retry_count = 0,
	    last_error = NULL,
	    claimed_by = NULL,
	    claimed_from = NULL,
	    processing_started_at = NULL
	WHERE username = $1 AND enrichment_status = 'PROCESSING' AND claimed_by = $2
	RETURNING id`

const upsertSocialLinkSQL = `
	INSERT INTO social_links (developer_id, platform, url)
	VALUES ($1, $2, $3)
	ON CONFLICT (developer_id, platform) DO UPDATE SET url = EXCLUDED.url`

const upsertRepositorySQL = `
	INSERT INTO repositories (developer_id, name, stars, language, url, description, repo_order)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (developer_id, name) DO UPDATE SET
	    stars = EXCLUDED.stars,
	    language = EXCLUDED.language,
	    url = EXCLUDED.url,
	    description = EXCLUDED.description,
	    repo_order = EXCLUDED.repo_order`

// CompleteStage implements core.Store.
func (s *Store) CompleteStage(ctx context.Context, stage core.Stage, username, owner string, enr *core.Enrichment) error {
	if err := stage.Validate(); err != nil {
		return err
	}
	if owner == "" {
		return core.NewInvalidRequestError("commit owner must not be empty", nil)
	}
	if stage.Done == core.StatusProfiled && (enr == nil || enr.Profile == nil) {
		return core.NewInvalidRequestError("profile stage commit requires a profile payload", map[string]any{
			"username": username,
		})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning commit transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var developerID int64
	switch stage.Done {
	case core.StatusProfiled:
		p := enr.Profile
		err = tx.QueryRow(ctx, completeProfileSQL,
			username, owner,
			nullStr(p.Name), nullStr(p.Email), nullStr(p.Bio), nullStr(p.Location),
			nullStr(p.Company), nullStr(p.Blog), nullStr(p.TwitterUsername),
			p.Hireable,
			p.Followers, p.Following, p.PublicRepos, p.PublicGists,
			nullStr(p.ProfileURL), nullStr(p.AvatarURL),
			p.GitHubCreatedAt, p.GitHubUpdatedAt,
		).Scan(&developerID)
	case core.StatusEnhanced:
		err = tx.QueryRow(ctx, completeSocialSQL, username, owner).Scan(&developerID)
	default:
		return core.NewValidationError(fmt.Sprintf("stage %q has no commit target", stage.Name), nil)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return notLeasedError(username, owner)
	}
	if err != nil {
		return fmt.Errorf("committing %s stage for %s: %w", stage.Name, username, err)
	}

	if enr != nil {
		for _, link := range enr.Social {
			if _, err := tx.Exec(ctx, upsertSocialLinkSQL, developerID, link.Platform, link.URL); err != nil {
				return fmt.Errorf("upserting social link %s for %s: %w", link.Platform, username, err)
			}
		}
		for i, repo := range enr.Repos {
			if _, err := tx.Exec(ctx, upsertRepositorySQL,
				developerID, repo.Name, repo.Stars, nullStr(repo.Language),
				nullStr(repo.URL), nullStr(repo.Description), i,
			); err != nil {
				return fmt.Errorf("upserting repository %s for %s: %w", repo.Name, username, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing %s stage for %s: %w", stage.Name, username, err)
	}
	return nil
}

// reportFailureSQL applies the retry-or-fail transition in one atomic
// statement: the incremented retry_count decides between returning the
// record to the state it was claimed out of and marking it FAILED.
const reportFailureSQL = `
	UPDATE developers
	SET retry_count = retry_count + 1,
	    last_error = $3,
	    enrichment_status = CASE
	        WHEN retry_count + 1 >= $4 THEN 'FAILED'::enrichment_status
	        ELSE claimed_from
	    END,
	    claimed_by = NULL,
	    claimed_from = NULL,
	    processing_started_at = NULL
	WHERE username = $1 AND enrichment_status = 'PROCESSING' AND claimed_by = $2
	RETURNING enrichment_status`

// ReportFailure implements core.Store.
func (s *Store) ReportFailure(ctx context.Context, username, owner, message string, maxRetries int) (core.Status, error) {
	if owner == "" {
		return "", core.NewInvalidRequestError("commit owner must not be empty", nil)
	}
	if maxRetries <= 0 {
		return "", core.NewInvalidRequestError("max retries must be positive", map[string]any{
			"max_retries": maxRetries,
		})
	}

	var status string
	err := s.pool.QueryRow(ctx, reportFailureSQL, username, owner, message, maxRetries).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", notLeasedError(username, owner)
	}
	if err != nil {
		return "", fmt.Errorf("reporting failure for %s: %w", username, err)
	}
	return core.Status(status), nil
}

func notLeasedError(username, owner string) *core.Error {
	return core.NewConflictError(
		fmt.Sprintf("record '%s' is not leased by '%s'", username, owner),
		map[string]any{
			"username": username,
			"owner":    owner,
		},
	)
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
