package index

// ContentIndex is the set of index operations the service layer uses.
type ContentIndex interface {
	UpsertContent(row ContentRow, body string, marks []MarkRow, unique []UniqueRow) error
	MarkInvalid(path, checksum, reason string) error
	DeleteContent(path string) error
	GetContent(path string) (*ContentRow, error)
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	ListContents(limit, offset int, mark, sort string) ([]ContentRow, int, error)
	ContentsByMark(key string) ([]MarkHit, error)
	Marks() ([]MarkCount, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies ContentIndex at compile time.
var _ ContentIndex = (*DB)(nil)
