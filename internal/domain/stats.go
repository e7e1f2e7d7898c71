package domain

// CrawlStats summarises one letter crawl.
type CrawlStats struct {
	Pages      int
	Candidates int
	Unseen     int
	Inserted   int
	Dropped    int
}

// FeedStats summarises one shortage feed ingest.
type FeedStats struct {
	Parsed  int
	Dropped int
}
