package store

// Schema contains the SQL statements bootstrapping the mirror's
// database: a single append-only operation log plus the cursor the
// importer uses to resume after a restart.
const Schema = `
-- plc_ops: the mirrored did:plc operation log. Append-only — rows are
-- never updated or deleted; nullification is recomputed at read time
-- by plccore, never persisted here.
CREATE TABLE IF NOT EXISTS plc_ops (
    seq        BIGSERIAL PRIMARY KEY,
    did        VARCHAR(64) NOT NULL,
    cid        VARCHAR(255) NOT NULL,
    op_json    BYTEA NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE (did, cid)
);

CREATE INDEX IF NOT EXISTS idx_plc_ops_did ON plc_ops(did, seq);
CREATE INDEX IF NOT EXISTS idx_plc_ops_created_at ON plc_ops(created_at);

-- import_cursor: a single-row table tracking the last createdAt the
-- importer has durably ingested, so a restart resumes the upstream
-- export poll without re-fetching the whole log.
CREATE TABLE IF NOT EXISTS import_cursor (
    id         SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
    after      TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
