package cfr

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DomainSection separates section content hashes from any other hash.
const DomainSection = "cfrstat/section/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash returns the content hash persisted alongside a section's text.
// Two ingestions of the same text produce the same hash.
func ContentHash(content string) string {
	return hashWithDomain(DomainSection, []byte(content))
}

// NewSection builds a Section and its content hash. Content is stored as
// extracted, without normalization, because metrics count its bytes.
func NewSection(title int, date time.Time, sectionID, content string) Section {
	return Section{
		Title:       title,
		Date:        DayOf(date),
		SectionID:   sectionID,
		Content:     content,
		ContentHash: ContentHash(content),
	}
}
