package doctree

// Document is the plain text of one uploaded document after format conversion.
// Section offsets produced downstream are byte offsets into Text.
type Document struct {
	ID    string
	Title string // Document title (from metadata or filename)
	Text  string
}

// DocTree is a sectionized document: one node per detected section, in document order.
type DocTree struct {
	Title  string
	Source string     // Full document text the node offsets refer to
	Nodes  []*DocNode // Sections in document order
}

// DocNode is a single section body within a DocTree.
type DocNode struct {
	SectionID string
	Title     string // Preferred label, or the heading text when no label is configured
	Begin     int    // Body start offset in Source
	End       int    // Body end offset in Source
}

// Text returns the section body text.
func (n *DocNode) Text(source string) string {
	return source[n.Begin:n.End]
}

// Chunk is a sized span of a section body, ready for indexing.
type Chunk struct {
	Text       string   // Chunk text content
	Index      int      // Sequence number within document
	SectionID  string   // Section the chunk was cut from
	Breadcrumb []string // Document title and section title, e.g. ["discharge", "Hospital Course"]
	Begin      int
	End        int
}
