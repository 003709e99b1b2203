//go:build mattn

package sqlite

import _ "github.com/mattn/go-sqlite3"

// driverName is the database/sql driver registered by the cgo engine,
// selected with -tags mattn.
const driverName = "sqlite3"
