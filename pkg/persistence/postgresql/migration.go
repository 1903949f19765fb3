package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflow_definitions (
				org_id VARCHAR(255) NOT NULL,
				id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				version INTEGER NOT NULL DEFAULT 1,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (org_id, id)
			);

			CREATE TABLE tasks (
				org_id VARCHAR(255) NOT NULL,
				id VARCHAR(255) NOT NULL,
				workflow_execution_id VARCHAR(255),
				workflow_definition_id VARCHAR(255),
				contact_id VARCHAR(255),
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				assigned_to VARCHAR(255),
				assigned_role VARCHAR(255),
				task_type VARCHAR(50) NOT NULL CHECK (task_type IN ('standard', 'approval')),
				status VARCHAR(50) NOT NULL CHECK (status IN ('backlog', 'todo', 'in_progress', 'done')),
				priority VARCHAR(50) NOT NULL DEFAULT 'medium',
				due_at TIMESTAMP WITH TIME ZONE,
				outcome VARCHAR(50) CHECK (outcome IN ('approved', 'rejected')),
				outcome_comment TEXT,
				completed_by VARCHAR(255),
				completed_at TIMESTAMP WITH TIME ZONE,
				claimed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (org_id, id)
			);

			CREATE INDEX idx_tasks_assigned_to ON tasks(org_id, assigned_to);
			CREATE INDEX idx_tasks_assigned_role ON tasks(org_id, assigned_role) WHERE assigned_to IS NULL;
			CREATE INDEX idx_tasks_execution ON tasks(workflow_execution_id);

			CREATE TABLE executions (
				org_id VARCHAR(255) NOT NULL,
				id VARCHAR(255) NOT NULL,
				definition_id VARCHAR(255) NOT NULL,
				definition_version INTEGER NOT NULL,
				contact_id VARCHAR(255),
				run_id VARCHAR(255) NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'failed')),
				steps JSONB NOT NULL,
				input JSONB,
				error TEXT NOT NULL DEFAULT '',
				triggered_by VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (org_id, id)
			);

			CREATE INDEX idx_executions_definition ON executions(org_id, definition_id);
		`,
		2: `
			CREATE TABLE organization_members (
				org_id VARCHAR(255) NOT NULL,
				user_id VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL DEFAULT '',
				role VARCHAR(255) NOT NULL DEFAULT '',
				roles TEXT[] NOT NULL DEFAULT '{}',
				PRIMARY KEY (org_id, user_id)
			);

			CREATE INDEX idx_organization_members_email ON organization_members(org_id, LOWER(email));

			CREATE TABLE field_permission_overrides (
				org_id VARCHAR(255) NOT NULL,
				role VARCHAR(255) NOT NULL,
				field VARCHAR(255) NOT NULL,
				readable BOOLEAN NOT NULL,
				writable BOOLEAN NOT NULL,
				PRIMARY KEY (org_id, role, field)
			);

			CREATE TABLE organization_senders (
				org_id VARCHAR(255) NOT NULL,
				address VARCHAR(255) NOT NULL,
				PRIMARY KEY (org_id, address)
			);

			CREATE TABLE contacts (
				org_id VARCHAR(255) NOT NULL,
				id VARCHAR(255) NOT NULL,
				fields JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (org_id, id)
			);

			CREATE TABLE audit_events (
				id VARCHAR(255) PRIMARY KEY,
				org_id VARCHAR(255) NOT NULL,
				entity_type VARCHAR(100) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				action VARCHAR(100) NOT NULL,
				actor_id VARCHAR(255) NOT NULL,
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_audit_events_entity ON audit_events(org_id, entity_type, entity_id, created_at);
		`,
	}
}
