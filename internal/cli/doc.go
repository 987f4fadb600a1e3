// Package cli implements the coursesync command tree.
//
// Running coursesync with no subcommand performs a sync: every configured calendar page is
// fetched, its courses are extracted and new ones are inserted into the Courses table.
//
// Exit codes:
//   - 0: the run completed, even if some pages or courses failed
//   - 1: configuration or initialisation error
package cli
