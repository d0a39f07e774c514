package diff

import (
	"fmt"

	sgdiff "github.com/sourcegraph/go-diff/diff"
)

// Stats summarises a rendered unified diff: how many lines each side gained
// and lost. Used by report printers to size a failure at a glance.
type Stats struct {
	Added   int
	Deleted int
}

// Stat parses diffText and counts added and deleted lines. Changed lines
// count on both sides. The empty diff yields zero stats.
func Stat(diffText string) (Stats, error) {
	if diffText == "" {
		return Stats{}, nil
	}
	fileDiff, err := sgdiff.ParseFileDiff([]byte(diffText))
	if err != nil {
		return Stats{}, fmt.Errorf("parse diff: %w", err)
	}
	stat := fileDiff.Stat()
	return Stats{
		Added:   int(stat.Added + stat.Changed),
		Deleted: int(stat.Deleted + stat.Changed),
	}, nil
}
