package schema

// TableDefinitions contains the statements creating every table and index.
// Each statement must be idempotent, they run on every boot.
var TableDefinitions = []string{
	`CREATE TABLE IF NOT EXISTS automation_rules (
		id UUID PRIMARY KEY,
		organization_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'draft',
		trigger_type VARCHAR(64) NOT NULL,
		trigger_conditions JSONB NOT NULL DEFAULT '[]'::jsonb,
		trigger_config JSONB,
		action_type VARCHAR(64) NOT NULL,
		action_config JSONB NOT NULL DEFAULT '{}'::jsonb,
		action_delay JSONB,
		delivery_window JSONB,
		multi_channel_config JSONB,
		execution_count BIGINT NOT NULL DEFAULT 0,
		success_count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_automation_rules_org_created ON automation_rules(organization_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_automation_rules_org_status ON automation_rules(organization_id, status)`,
	`CREATE TABLE IF NOT EXISTS workflows (
		id UUID PRIMARY KEY,
		organization_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		active BOOLEAN NOT NULL DEFAULT FALSE,
		trigger JSONB NOT NULL,
		steps JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_workflows_org_created ON workflows(organization_id, created_at DESC)`,
}

// TableNames lists tables in creation order
var TableNames = []string{
	"automation_rules",
	"workflows",
}
