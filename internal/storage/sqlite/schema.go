// ABOUTME: SQLite schema for internal per-project tables
// ABOUTME: Internal tables carry the _qc_ prefix so they never mix with user data
package sqlite

// InternalPrefix marks tables owned by the application rather than the user
const InternalPrefix = "_qc_"

// Schema contains all SQL statements for database initialization
const Schema = `
CREATE TABLE IF NOT EXISTS _qc_conversations (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT 'New Chat',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS _qc_messages (
    id TEXT PRIMARY KEY,
    conversation_id TEXT NOT NULL REFERENCES _qc_conversations(id) ON DELETE CASCADE,
    role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
    content TEXT NOT NULL,
    context_tables TEXT,
    created_at DATETIME NOT NULL
);

-- Row embeddings for vectorized user tables
CREATE TABLE IF NOT EXISTS _qc_embeddings (
    table_name TEXT NOT NULL,
    source_column TEXT NOT NULL,
    row_id INTEGER NOT NULL,
    content TEXT NOT NULL,
    vector BLOB NOT NULL,
    model TEXT,
    created_at DATETIME NOT NULL,
    PRIMARY KEY (table_name, source_column, row_id)
);

CREATE TABLE IF NOT EXISTS _qc_documents (
    id TEXT PRIMARY KEY,
    filename TEXT NOT NULL,
    file_type TEXT NOT NULL,
    file_size INTEGER NOT NULL DEFAULT 0,
    word_count INTEGER NOT NULL DEFAULT 0,
    title TEXT,
    content TEXT NOT NULL,
    uploaded_at DATETIME NOT NULL,
    is_vectorized INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS _qc_document_chunks (
    id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL REFERENCES _qc_documents(id) ON DELETE CASCADE,
    chunk_index INTEGER NOT NULL,
    chunk_type TEXT NOT NULL,
    content TEXT NOT NULL,
    start_offset INTEGER NOT NULL,
    end_offset INTEGER NOT NULL,
    vector BLOB
);

CREATE TABLE IF NOT EXISTS _qc_query_history (
    id TEXT PRIMARY KEY,
    sql TEXT NOT NULL,
    executed_at DATETIME NOT NULL,
    row_count INTEGER NOT NULL DEFAULT 0,
    execution_time_ms INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS _qc_saved_queries (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    sql TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_qc_messages_conversation ON _qc_messages(conversation_id);
CREATE INDEX IF NOT EXISTS idx_qc_conversations_updated ON _qc_conversations(updated_at);
CREATE INDEX IF NOT EXISTS idx_qc_embeddings_table ON _qc_embeddings(table_name);
CREATE INDEX IF NOT EXISTS idx_qc_chunks_document ON _qc_document_chunks(document_id);
CREATE INDEX IF NOT EXISTS idx_qc_history_executed ON _qc_query_history(executed_at);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1
