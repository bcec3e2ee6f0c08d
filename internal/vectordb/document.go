package vectordb

import "time"

// DocumentKind categorizes the kind of content stored in the vector DB.
type DocumentKind string

const (
	KindOfficial DocumentKind = "official"
	KindGuide    DocumentKind = "guide"
	KindUpload   DocumentKind = "upload"
)

// Document is one indexed chunk of a source document.
type Document struct {
	ID       string
	Content  string
	Metadata DocumentMetadata
}

// DocumentMetadata describes where a chunk came from.
type DocumentMetadata struct {
	Source      string // File name of the source document, e.g. "HA_guide.pdf".
	Page        int
	Chunk       int
	ContentHash string
	Kind        DocumentKind
	FormCode    string
	Language    string
	LastUpdated time.Time
}

// SearchResult pairs a document with its similarity score.
type SearchResult struct {
	Document   Document
	Similarity float32
}

// SearchFilter allows narrowing search results by metadata fields.
type SearchFilter struct {
	Kind     *DocumentKind
	Source   *string
	FormCode *string
	Language *string
}
