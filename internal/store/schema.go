package store

const schemaVersion = 1

// schemaDDL creates every table at schemaVersion 1. Migrations beyond this
// point are gated by schema_meta's "schema_version" key, a single-row
// bookkeeping table read once at startup.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS schema_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS collections (
	name          TEXT PRIMARY KEY,
	path          TEXT NOT NULL,
	pattern       TEXT NOT NULL DEFAULT '**/*',
	include_json  TEXT NOT NULL DEFAULT '[]',
	exclude_json  TEXT NOT NULL DEFAULT '[]',
	update_cmd    TEXT NOT NULL DEFAULT '',
	language_hint TEXT NOT NULL DEFAULT '',
	synced_at     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS contexts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	scope_type TEXT NOT NULL,
	scope_key  TEXT NOT NULL,
	text       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	collection         TEXT NOT NULL,
	rel_path           TEXT NOT NULL,
	source_hash        TEXT NOT NULL DEFAULT '',
	source_mime        TEXT NOT NULL DEFAULT '',
	source_ext         TEXT NOT NULL DEFAULT '',
	source_size        INTEGER NOT NULL DEFAULT 0,
	source_mtime       TEXT NOT NULL DEFAULT '',
	docid              TEXT NOT NULL DEFAULT '',
	uri                TEXT NOT NULL DEFAULT '',
	title              TEXT NOT NULL DEFAULT '',
	mirror_hash        TEXT NOT NULL DEFAULT '',
	converter_id       TEXT NOT NULL DEFAULT '',
	converter_version  TEXT NOT NULL DEFAULT '',
	language_hint      TEXT NOT NULL DEFAULT '',
	active             INTEGER NOT NULL DEFAULT 1,
	ingest_version     INTEGER NOT NULL DEFAULT 0,
	last_error_code    TEXT NOT NULL DEFAULT '',
	last_error_message TEXT NOT NULL DEFAULT '',
	last_error_at      TEXT NOT NULL DEFAULT '',
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL,
	UNIQUE(collection, rel_path)
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
CREATE INDEX IF NOT EXISTS idx_documents_mirror_hash ON documents(mirror_hash);
CREATE INDEX IF NOT EXISTS idx_documents_docid ON documents(docid);

CREATE TABLE IF NOT EXISTS content_bodies (
	mirror_hash TEXT PRIMARY KEY,
	body        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	mirror_hash TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	pos         INTEGER NOT NULL,
	text        TEXT NOT NULL,
	start_line  INTEGER NOT NULL,
	end_line    INTEGER NOT NULL,
	language    TEXT NOT NULL DEFAULT '',
	token_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (mirror_hash, seq)
);

CREATE TABLE IF NOT EXISTS content_vectors (
	mirror_hash TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	model       TEXT NOT NULL,
	dims        INTEGER NOT NULL,
	embedding   BLOB NOT NULL,
	PRIMARY KEY (mirror_hash, seq, model)
);
CREATE INDEX IF NOT EXISTS idx_content_vectors_model ON content_vectors(model);

CREATE TABLE IF NOT EXISTS tags (
	document_id INTEGER NOT NULL,
	tag         TEXT NOT NULL,
	source      TEXT NOT NULL,
	PRIMARY KEY (document_id, tag, source),
	FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_tags_tag ON tags(tag);

CREATE TABLE IF NOT EXISTS links (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	source_doc_id     INTEGER NOT NULL,
	target_ref        TEXT NOT NULL,
	target_ref_norm   TEXT NOT NULL,
	target_anchor     TEXT NOT NULL DEFAULT '',
	target_collection TEXT,
	link_type         TEXT NOT NULL,
	link_text         TEXT NOT NULL DEFAULT '',
	start_line        INTEGER NOT NULL,
	start_col         INTEGER NOT NULL,
	end_line          INTEGER NOT NULL,
	end_col           INTEGER NOT NULL,
	source            TEXT NOT NULL,
	FOREIGN KEY (source_doc_id) REFERENCES documents(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_doc_id);
CREATE INDEX IF NOT EXISTS idx_links_target_norm ON links(target_ref_norm);

CREATE TABLE IF NOT EXISTS ingest_errors (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	collection   TEXT NOT NULL,
	rel_path     TEXT NOT NULL,
	occurred_at  TEXT NOT NULL,
	code         TEXT NOT NULL,
	message      TEXT NOT NULL,
	details_json TEXT
);
CREATE INDEX IF NOT EXISTS idx_ingest_errors_occurred ON ingest_errors(occurred_at);

CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
	filepath,
	title,
	body,
	tokenize='unicode61'
);
`
