// Command assignments computes which catalog sources each author draws
// clips from, prints the table and records it in the local ledger.
//
// Usage:
//
//	assignments [-k N] [-authors id,id] [command]
//
// Commands:
//
//	compute  Assign k sources to every author (default). Authors come from
//	         -authors or, when it is omitted, from the active authors in the
//	         remote store. The assignment is deterministic per author id.
//
//	status   Print how many authors have each source as primary.
//
// Environment:
//
//	DATABASE_DIR  - Path to database directory (default: /database)
//	CATALOG_FILE  - YAML catalog (default: embedded)
//	SUPABASE_URL, SUPABASE_KEY, SUPABASE_DB_URL - author directory
package main
