package telemetry

import (
	"fmt"
	"io"
	"time"

	"github.com/robinvdvleuten/salesledger/output"
)

// slowThreshold marks operations that are highlighted in the report.
const slowThreshold = 100 * time.Millisecond

// formatTimingTree outputs the timing tree in a hierarchical format.
// Example output:
//
//	salesledger list: 42ms
//	├─ store.load sales.json: 3ms
//	└─ ledger.summarize (12 lineages): 1ms
func formatTimingTree(w io.Writer, root *timerNode, styles *output.Styles) {
	_, _ = fmt.Fprintf(w, "%s: %s\n", styles.Keyword(root.name), formatDuration(root.duration()))

	for i, child := range root.children {
		formatNode(w, child, "", i == len(root.children)-1, styles)
	}
}

func formatNode(w io.Writer, node *timerNode, prefix string, isLast bool, styles *output.Styles) {
	duration := node.duration()

	branch, extension := "├─ ", "│  "
	if isLast {
		branch, extension = "└─ ", "   "
	}

	timing := formatDuration(duration)
	if duration >= slowThreshold {
		timing = styles.Warning(timing)
	} else {
		timing = styles.Dim(timing)
	}
	_, _ = fmt.Fprintf(w, "%s%s: %s\n", styles.Dim(prefix+branch), node.name, timing)

	for i, child := range node.children {
		formatNode(w, child, prefix+extension, i == len(node.children)-1, styles)
	}
}

// formatDuration shows milliseconds below one second and seconds above.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.2fs", float64(d)/float64(time.Second))
}
