/*
Package prune holds the application level constants and configuration
for the prune tool, which selects optimal change points in
multivariate signals from a set of candidates.
*/
package prune

// BuildRevision stores the commit in the git repository at build time and is
// specified with -ldflags at build time.
var BuildRevision = ""

const (
	// DefaultWorkers is the number of batch jobs processed
	// concurrently when a configuration does not set one.
	DefaultWorkers = 2

	// OutputSuffix is appended to a batch input name to derive its
	// output file when no output is configured.
	OutputSuffix = ".segmentation.json"
)
