package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflow_instances (
				id VARCHAR(64) PRIMARY KEY,
				workflow_type VARCHAR(255) NOT NULL,
				freezone_code VARCHAR(64),
				status VARCHAR(32) NOT NULL CHECK (status IN ('in_progress', 'completed', 'cancelled')),
				current_step INT NOT NULL DEFAULT 1,
				form_data JSONB NOT NULL DEFAULT '{}',
				completed_steps JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_instances_status ON workflow_instances(status);
			CREATE INDEX idx_workflow_instances_created_at ON workflow_instances(created_at);
		`,
		2: `
			CREATE TABLE documents (
				id VARCHAR(64) PRIMARY KEY,
				instance_id VARCHAR(64) NOT NULL REFERENCES workflow_instances(id) ON DELETE CASCADE,
				step_number INT NOT NULL,
				document_type VARCHAR(255) NOT NULL,
				file_name VARCHAR(512),
				mime_type VARCHAR(255),
				format VARCHAR(32),
				size_mb DOUBLE PRECISION NOT NULL DEFAULT 0,
				uploaded_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_documents_instance_step ON documents(instance_id, step_number);
		`,
	}
}
