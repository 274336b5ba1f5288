// Package postgres provides PostgreSQL implementations of the store
// interfaces. All implementations accept a store.DBTX so they run
// against either a connection pool or a transaction, and map driver
// errors to the store package's sentinel errors.
package postgres
