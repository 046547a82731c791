package store

// migrations are applied in order by Migrate. Each statement is idempotent.
var migrations = []string{
	`DO $$ BEGIN
		CREATE TYPE enrichment_status AS ENUM ('INITIAL', 'PROCESSING', 'PROFILED', 'ENHANCED', 'FAILED');
	EXCEPTION
		WHEN duplicate_object THEN NULL;
	END $$`,

	`CREATE TABLE IF NOT EXISTS developers (
		id                    BIGSERIAL PRIMARY KEY,
		username              VARCHAR(255) UNIQUE NOT NULL,
		enrichment_status     enrichment_status NOT NULL DEFAULT 'INITIAL',

		claimed_by            VARCHAR(255),
		claimed_from          enrichment_status,
		processing_started_at TIMESTAMP WITH TIME ZONE,

		retry_count           INTEGER NOT NULL DEFAULT 0,
		last_error            TEXT,

		name                  VARCHAR(255),
		email                 VARCHAR(255),
		bio                   TEXT,
		location              VARCHAR(255),
		company               VARCHAR(255),
		blog                  VARCHAR(500),
		twitter_username      VARCHAR(255),
		hireable              BOOLEAN,
		followers             INTEGER NOT NULL DEFAULT 0,
		following             INTEGER NOT NULL DEFAULT 0,
		public_repos          INTEGER NOT NULL DEFAULT 0,
		public_gists          INTEGER NOT NULL DEFAULT 0,
		profile_url           VARCHAR(500),
		avatar_url            VARCHAR(500),
		github_created_at     TIMESTAMP WITH TIME ZONE,
		github_updated_at     TIMESTAMP WITH TIME ZONE,

		profiled_at           TIMESTAMP WITH TIME ZONE,
		enhanced_at           TIMESTAMP WITH TIME ZONE,
		created_at            TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS social_links (
		id           BIGSERIAL PRIMARY KEY,
		developer_id BIGINT NOT NULL REFERENCES developers(id) ON DELETE CASCADE,
		platform     VARCHAR(50) NOT NULL,
		url          VARCHAR(500) NOT NULL,
		CONSTRAINT unique_developer_platform UNIQUE (developer_id, platform)
	)`,

	`CREATE TABLE IF NOT EXISTS repositories (
		id           BIGSERIAL PRIMARY KEY,
		developer_id BIGINT NOT NULL REFERENCES developers(id) ON DELETE CASCADE,
		name         VARCHAR(255) NOT NULL,
		stars        INTEGER NOT NULL DEFAULT 0,
		language     VARCHAR(100),
		url          VARCHAR(500),
		description  TEXT,
		repo_order   INTEGER NOT NULL DEFAULT 0,
		CONSTRAINT unique_developer_repo UNIQUE (developer_id, name)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_developers_status ON developers(enrichment_status)`,
	`CREATE INDEX IF NOT EXISTS idx_developers_processing_started ON developers(processing_started_at) WHERE enrichment_status = 'PROCESSING'`,
	`CREATE INDEX IF NOT EXISTS idx_social_links_developer ON social_links(developer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_repositories_developer ON repositories(developer_id)`,
}
