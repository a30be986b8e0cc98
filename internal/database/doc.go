// Package database resolves database handles by logical alias. SQLite
// aliases use the pure-Go modernc driver and PostgreSQL aliases are opened
// through gorm's postgres dialector; both are exposed as *sql.DB pools.
package database
