// Package supabase is the remote store collaborator: media uploads to
// object storage, post and story records, and reads of the author and
// source exclusivity tables.
//
// Writes always go through the REST API. Reads use a direct Postgres
// connection when a connection string is configured and fall back to REST
// otherwise, so a deployment with only a URL and service key works.
package supabase
