// Package scraper provides HTTP fetching and HTML parsing for academic calendar pages.
//
// The scraper package fetches one calendar page per subject and extracts a course record
// for every course-code marker on the page. Calendar pages are flat sequences of
// paragraphs: a code paragraph, a title paragraph and a run of body paragraphs holding
// the description, cross-listing notes, prerequisites and other notes. Titles,
// descriptions and prerequisites are found by scanning forward in document order from
// the code marker, the same way a reader of the page would.
package scraper
