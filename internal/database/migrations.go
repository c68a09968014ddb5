package database

type migration struct {
	name  string
	stmts []string
}

// migrations is the ordered schema history. The version number of a migration
// is its 1-based index; never reorder or edit an entry once released.
var migrations = []migration{
	{
		name: "hiring pipeline core",
		stmts: []string{
			`CREATE TABLE jobs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL,
				department TEXT NOT NULL DEFAULT '',
				location TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'open',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,

			`CREATE TABLE pipelines (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				job_id INTEGER NOT NULL UNIQUE,
				name TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				FOREIGN KEY (job_id) REFERENCES jobs(id)
			)`,

			`CREATE TABLE pipeline_stages (
				pipeline_id INTEGER NOT NULL,
				stage_key TEXT NOT NULL,
				name TEXT NOT NULL,
				type TEXT NOT NULL,
				display_order INTEGER NOT NULL,
				terminal BOOLEAN NOT NULL DEFAULT FALSE,
				PRIMARY KEY (pipeline_id, stage_key),
				FOREIGN KEY (pipeline_id) REFERENCES pipelines(id)
			)`,

			`CREATE TABLE pipeline_transitions (
				id TEXT NOT NULL,
				pipeline_id INTEGER NOT NULL,
				position INTEGER NOT NULL,
				from_stage_key TEXT NOT NULL,
				to_stage_key TEXT NOT NULL,
				action_name TEXT NOT NULL DEFAULT '',
				allowed_roles TEXT NOT NULL DEFAULT '[]',
				PRIMARY KEY (pipeline_id, id),
				FOREIGN KEY (pipeline_id) REFERENCES pipelines(id)
			)`,
			`CREATE INDEX idx_transitions_from ON pipeline_transitions(pipeline_id, from_stage_key)`,

			`CREATE TABLE applications (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				job_id INTEGER NOT NULL,
				candidate_name TEXT NOT NULL,
				candidate_email TEXT NOT NULL DEFAULT '',
				current_stage_key TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'active',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				FOREIGN KEY (job_id) REFERENCES jobs(id)
			)`,
			`CREATE INDEX idx_applications_job ON applications(job_id, current_stage_key)`,

			`CREATE TABLE application_stage_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				application_id INTEGER NOT NULL,
				from_stage_key TEXT NOT NULL,
				to_stage_key TEXT NOT NULL,
				reason TEXT NOT NULL DEFAULT '',
				notes TEXT NOT NULL DEFAULT '',
				actor TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				FOREIGN KEY (application_id) REFERENCES applications(id)
			)`,
			`CREATE INDEX idx_stage_history_app ON application_stage_history(application_id, id)`,
		},
	},
}
