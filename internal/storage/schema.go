package storage

// Schema is the SQL schema for the vault database. Every entity table is
// keyed by id; settings are keyed by key.
const Schema = `
CREATE TABLE IF NOT EXISTS files (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    media_type  TEXT NOT NULL,
    size        INTEGER NOT NULL CHECK(size >= 0),
    data        BLOB NOT NULL,
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS resources (
    id                  TEXT PRIMARY KEY,
    title               TEXT NOT NULL,
    category            TEXT NOT NULL,
    file_id             TEXT NULL REFERENCES files(id),
    file_name           TEXT NOT NULL DEFAULT '',
    source_file_id      TEXT NOT NULL DEFAULT '',
    path                TEXT NOT NULL DEFAULT '',
    remote_modified_at  TEXT NOT NULL DEFAULT '',
    created_at          TEXT NOT NULL,
    updated_at          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS speeches (
    id          TEXT PRIMARY KEY,
    motion      TEXT NOT NULL,
    role        TEXT NOT NULL,
    content     TEXT NOT NULL,
    notes       TEXT NOT NULL DEFAULT '',
    file_id     TEXT NULL REFERENCES files(id),
    file_name   TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS skills (
    id          TEXT PRIMARY KEY,
    skill       TEXT NOT NULL,
    score       REAL NOT NULL,
    target      TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS evaluations (
    id              TEXT PRIMARY KEY,
    date            TEXT NOT NULL DEFAULT '',
    event           TEXT NOT NULL DEFAULT '',
    motion          TEXT NOT NULL DEFAULT '',
    content_score   INTEGER NOT NULL,
    style_score     INTEGER NOT NULL,
    strategy_score  INTEGER NOT NULL,
    subcategories   TEXT NOT NULL DEFAULT '',
    total           INTEGER NOT NULL,
    strength        TEXT NOT NULL DEFAULT '',
    weakness        TEXT NOT NULL DEFAULT '',
    action          TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key    TEXT PRIMARY KEY,
    value  TEXT NOT NULL
);

-- At most one resource per remote file
CREATE UNIQUE INDEX IF NOT EXISTS idx_resources_source ON resources(source_file_id) WHERE source_file_id != '';
CREATE INDEX IF NOT EXISTS idx_resources_created ON resources(created_at);
CREATE INDEX IF NOT EXISTS idx_resources_remote_path ON resources(path, file_name) WHERE category = 'Google Drive';
CREATE INDEX IF NOT EXISTS idx_speeches_created ON speeches(created_at);
CREATE INDEX IF NOT EXISTS idx_skills_created ON skills(created_at);
CREATE INDEX IF NOT EXISTS idx_evaluations_created ON evaluations(created_at);

CREATE VIRTUAL TABLE IF NOT EXISTS resources_fts USING fts5(
    title,
    file_name,
    path,
    content='resources',
    content_rowid='rowid'
);

CREATE VIRTUAL TABLE IF NOT EXISTS speeches_fts USING fts5(
    motion,
    content,
    notes,
    content='speeches',
    content_rowid='rowid'
);

CREATE VIRTUAL TABLE IF NOT EXISTS evaluations_fts USING fts5(
    event,
    motion,
    content='evaluations',
    content_rowid='rowid'
);
`

// Triggers keep the external-content FTS tables in step with their sources.
const Triggers = `
CREATE TRIGGER IF NOT EXISTS resources_ai AFTER INSERT ON resources BEGIN
    INSERT INTO resources_fts(rowid, title, file_name, path) VALUES (new.rowid, new.title, new.file_name, new.path);
END;
CREATE TRIGGER IF NOT EXISTS resources_ad AFTER DELETE ON resources BEGIN
    INSERT INTO resources_fts(resources_fts, rowid, title, file_name, path) VALUES('delete', old.rowid, old.title, old.file_name, old.path);
END;
CREATE TRIGGER IF NOT EXISTS resources_au AFTER UPDATE ON resources BEGIN
    INSERT INTO resources_fts(resources_fts, rowid, title, file_name, path) VALUES('delete', old.rowid, old.title, old.file_name, old.path);
    INSERT INTO resources_fts(rowid, title, file_name, path) VALUES (new.rowid, new.title, new.file_name, new.path);
END;

CREATE TRIGGER IF NOT EXISTS speeches_ai AFTER INSERT ON speeches BEGIN
    INSERT INTO speeches_fts(rowid, motion, content, notes) VALUES (new.rowid, new.motion, new.content, new.notes);
END;
CREATE TRIGGER IF NOT EXISTS speeches_ad AFTER DELETE ON speeches BEGIN
    INSERT INTO speeches_fts(speeches_fts, rowid, motion, content, notes) VALUES('delete', old.rowid, old.motion, old.content, old.notes);
END;
CREATE TRIGGER IF NOT EXISTS speeches_au AFTER UPDATE ON speeches BEGIN
    INSERT INTO speeches_fts(speeches_fts, rowid, motion, content, notes) VALUES('delete', old.rowid, old.motion, old.content, old.notes);
    INSERT INTO speeches_fts(rowid, motion, content, notes) VALUES (new.rowid, new.motion, new.content, new.notes);
END;

CREATE TRIGGER IF NOT EXISTS evaluations_ai AFTER INSERT ON evaluations BEGIN
    INSERT INTO evaluations_fts(rowid, event, motion) VALUES (new.rowid, new.event, new.motion);
END;
CREATE TRIGGER IF NOT EXISTS evaluations_ad AFTER DELETE ON evaluations BEGIN
    INSERT INTO evaluations_fts(evaluations_fts, rowid, event, motion) VALUES('delete', old.rowid, old.event, old.motion);
END;
CREATE TRIGGER IF NOT EXISTS evaluations_au AFTER UPDATE ON evaluations BEGIN
    INSERT INTO evaluations_fts(evaluations_fts, rowid, event, motion) VALUES('delete', old.rowid, old.event, old.motion);
    INSERT INTO evaluations_fts(rowid, event, motion) VALUES (new.rowid, new.event, new.motion);
END;
`

// dsnPragmas configures every connection: WAL, busy timeout and foreign keys.
const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)"
