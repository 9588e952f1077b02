package domain

// DedupState is the process-wide delivery memory: everything already handed
// downstream, plus a bounded window of recent normalized titles per topic for
// near-duplicate checks. Loaded once at startup and persisted after every
// mutation; only the pipeline orchestrator writes to it.
type DedupState struct {
	SentPostIDs  map[string]struct{}
	SentLinks    map[string]struct{}
	RecentTitles map[string][]string // normalized titles, oldest first
}

// NewDedupState returns an empty state with all maps initialized.
func NewDedupState() *DedupState {
	return &DedupState{
		SentPostIDs:  make(map[string]struct{}),
		SentLinks:    make(map[string]struct{}),
		RecentTitles: make(map[string][]string),
	}
}
