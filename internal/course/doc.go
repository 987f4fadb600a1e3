// Package course provides the course record extracted from academic calendar pages.
//
// A Course is built once per course block found on a calendar page and handed to a
// store for a single insert attempt. Course codes are normalized by dropping any
// leading characters before the first letter, so stray numbering such as "1A" in
// "1A COSC 1P02" never reaches the store.
package course
