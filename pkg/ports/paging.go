package ports

import "context"

// Direction selects which way a paged walk moves through history.
type Direction int

const (
	// Backward walks toward older items, starting at the newest when no cursor is set.
	Backward Direction = iota
	// Forward walks toward newer items, starting at the oldest when no cursor is set.
	Forward
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}

// PageRequest asks for one page of a cursor-paginated collection.
type PageRequest struct {
	Direction Direction
	Cursor    string
	Size      int
}

// Edge is one item of a page together with its cursor.
type Edge struct {
	Title     string
	Cursor    string
	SubjectID string
	Number    int
	// MergeReference is the merge commit of a pull request. Empty for issues.
	MergeReference    string
	AuthorLogin       string
	AuthorName        string
	AuthorEmail       string
	AuthorAssociation string
}

// Page is a batch of edges in chronological order (oldest first).
type Page struct {
	Edges   []Edge
	HasMore bool
}

// PagingSource lists merged pull requests or open issues page by page.
type PagingSource interface {
	List(ctx context.Context, req PageRequest) (Page, error)
}
