// Package cfr defines the domain model shared by every cfrstat component.
//
// The hierarchy of the regulatory code is fixed:
//
//	title → chapter → subchapter → part → subpart → section
//
// A section is the leaf, text-bearing unit. Every persisted record is keyed
// by (title number, issue date, section identifier) and metric values add a
// metric id to that key.
//
// # Dates
//
// Issue dates carry no time of day. They are normalized to UTC midnight and
// persisted as ISO strings (YYYY-MM-DD) so that keys built from them compare
// by value. Use ParseDate, DayOf and FormatDate rather than time.Time's own
// formatting.
//
// # Text
//
// Identifiers, labels and section text pass through Normalize (Unicode NFC)
// before they are persisted, so documents that encode the same characters in
// different forms produce the same keys and the same metric values.
package cfr
