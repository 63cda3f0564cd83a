package store

// Hit is one cached transcript matching a search.
type Hit struct {
	Path         string
	UserID       string
	Folder       string
	Filename     string
	Score        int
	MessageCount int
	Preview      string
	FetchedAt    int64
}

// Entry describes a cached transcript without its payload.
type Entry struct {
	Path         string
	UserID       string
	Folder       string
	Filename     string
	MessageCount int
	Preview      string
	FetchedAt    int64
}
