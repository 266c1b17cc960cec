package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE form_schemas (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				code VARCHAR(255) NOT NULL,
				title VARCHAR(255) NOT NULL,
				version INT NOT NULL DEFAULT 1,
				definition JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (tenant_id, code)
			);

			CREATE INDEX idx_form_schemas_tenant ON form_schemas(tenant_id);

			CREATE TABLE documents (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				schema_id UUID NOT NULL REFERENCES form_schemas(id),
				title VARCHAR(255) NOT NULL,
				data JSONB,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'submitted', 'in_progress', 'approved', 'rejected', 'cancelled')),
				route JSONB,
				history JSONB,
				created_by VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				submitted_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				version BIGINT NOT NULL DEFAULT 1
			);

			CREATE INDEX idx_documents_tenant ON documents(tenant_id);
			CREATE INDEX idx_documents_status ON documents(status);
			CREATE INDEX idx_documents_created_by ON documents(created_by);
			CREATE INDEX idx_documents_submitted_at ON documents(submitted_at);
		`,
	}
}
