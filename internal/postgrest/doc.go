// Package postgrest implements gateway.Gateway over a PostgREST-compatible
// HTTP API (PostgREST itself, or a Supabase project's /rest/v1 root).
//
// Query IR is encoded as PostgREST query parameters:
//
//	owner_id=eq.u1&item_key=eq.sku-1&order=id.asc&limit=1
//
// Writes send Prefer: return=representation so that inserts, updates and
// deletes return the affected rows, matching the SQL backends' RETURNING *.
// Joined counts use an inner embedding (select=id,child!inner(id)) and read
// the total from Content-Range.
package postgrest
