// Package storage persists knowledge bases as per-corpus SQLite files.
//
// Each knowledge base holds three parallel record families keyed by chunk
// id: the relational chunk rows, an FTS5 table for lexical search, and an
// embeddings table for semantic search. A structural graph of nodes and
// edges tracks files and their woven dependencies.
//
// Two build modes exist. With the sqlite_vec tag the mattn/go-sqlite3
// driver computes vector distance inside SQLite; the default purego build
// uses modernc.org/sqlite and ranks vectors in Go.
package storage
