// Package types defines the configuration object, copy reports, run result,
// and error kinds shared by the dbswap engine and its command-line wrapper.
package types
