// Package pipeline runs a sync: fetch each calendar page, extract its courses and insert the
// ones the store does not have yet.
//
// Failures are contained. A page that cannot be fetched is skipped and the next URL is tried;
// a course that cannot be stored is counted as failed and the next course is tried. Duplicates,
// whether found by lookup or reported by the store as a unique violation, are skipped.
package pipeline
