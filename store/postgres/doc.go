// Package postgres is an authgate.AccountStore backed by PostgreSQL through
// pgx. Queries are built with squirrel and the schema ships as embedded
// golang-migrate migrations (see Migrate).
package postgres
