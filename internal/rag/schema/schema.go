package schema

// ContentKind classifies a piece of retrieved or extracted content.
type ContentKind string

const (
	KindText  ContentKind = "text"
	KindImage ContentKind = "image"
	KindTable ContentKind = "table"
)

// ContentUnit is one extractable unit of a source document before
// summarization. A unit is either a page's text layer or a rendered page
// image, never both.
type ContentUnit struct {
	// Kind is KindText or KindImage; tables arrive as text.
	Kind ContentKind

	// Text holds the unit's content for text units.
	Text string

	// ImagePath is the absolute path of the rendered page image for image
	// units.
	ImagePath string

	// Page is the 1-based page number the unit came from.
	Page int

	// Source tags where the text came from, e.g. "pdf" or "ocr". Empty for
	// image units.
	Source string
}

// Content is a typed retrieval result handed to consumers.
type Content struct {
	Kind ContentKind

	// Value is the raw stored content: text for text units, the stored image
	// reference (file path or base64 payload) for image units.
	Value string
}

// Document is the carrier joining a synopsis embedding to its stored raw
// content. ID is the content id shared by the vector store and the content
// store.
type Document struct {
	ID string

	// Synopsis is the retrieval text indexed in the vector store. For short
	// texts it equals the raw content.
	Synopsis string

	// Content is the raw content persisted in the content store.
	Content string

	Embedding []float32

	// Score is the search distance, populated on query results only.
	Score float32
}
