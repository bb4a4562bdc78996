package format

import "github.com/thoreinstein/conductor/internal/mcp"

// Partition classifies existing host entry names against a sync.
type Partition struct {
	// Owned entries match an incoming server and are re-rendered.
	Owned []string
	// Orphaned entries were written by an earlier sync and are dropped.
	Orphaned []string
	// Foreign entries were never written by conductor and are kept.
	Foreign []string
}

// Classify partitions existing entry names. Matching ignores case.
func Classify(existing []string, incoming []*mcp.Server, previous []string) Partition {
	in := mcp.NewNameSet(mcp.Names(incoming)...)
	prev := mcp.NewNameSet(previous...)

	var p Partition
	for _, name := range existing {
		switch {
		case in.Has(name):
			p.Owned = append(p.Owned, name)
		case prev.Has(name):
			p.Orphaned = append(p.Orphaned, name)
		default:
			p.Foreign = append(p.Foreign, name)
		}
	}
	return p
}

// foreignFilter returns a predicate that is true for names to keep.
func foreignFilter(incoming []*mcp.Server, previous []string) func(string) bool {
	in := mcp.NewNameSet(mcp.Names(incoming)...)
	prev := mcp.NewNameSet(previous...)
	return func(name string) bool {
		return !in.Has(name) && !prev.Has(name)
	}
}
