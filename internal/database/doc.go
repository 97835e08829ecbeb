// Package database provides connection pool management for PostgreSQL.
//
// The proxy itself is stateless; the only database consumer is the
// optional shot history writer, which records routing decisions for
// later review.
package database
