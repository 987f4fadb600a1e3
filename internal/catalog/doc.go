// Package catalog holds the list of calendar subject pages to sync and builds their URLs.
//
// The subject list is embedded from subjects.yaml. Base URL, calendar year and level can be
// overridden so the same list can be pointed at another calendar edition.
package catalog
