package download

import "errors"

// Per-file failure kinds. They are matched with errors.Is on Result.Err.
var (
	ErrMetadata       = errors.New("metadata request failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrIO             = errors.New("disk write failed")
)

// IndeterminatePercent is reported while the remote size is unknown
const IndeterminatePercent = -1.0

// Target is one file to fetch: its absolute URL and the local file name
type Target struct {
	URL      string
	FileName string
}

// Result describes how a single target ended
type Result struct {
	Target Target
	Path   string // where the bytes were written
	State  State
	// BytesTransferred counts body bytes received over the network in this run
	BytesTransferred int64
	Skipped          bool // already complete on disk, no body requested
	Err              error
}

// Summary is the outcome of one Coordinator run, derived from the final ledger state
type Summary struct {
	Total            int
	Completed        int
	Errored          int
	BytesTransferred int64
	Results          []Result
	Final            Snapshot
}
