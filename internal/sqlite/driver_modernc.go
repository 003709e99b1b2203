//go:build !mattn

package sqlite

import _ "modernc.org/sqlite"

// driverName is the database/sql driver registered by modernc.org/sqlite,
// the default pure-Go engine.
const driverName = "sqlite"
