// Package shotlog persists shot routing decisions to PostgreSQL.
//
// Recording never blocks the routing path: records land in a growable
// spool and a background consumer batches them into the shots table,
// flushing on size or interval.
package shotlog
