// Package backup triggers managed database exports and lists the
// date-stamped folders they land in.
package backup

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Exporter starts one managed export writing to uri and returns the
// provider's operation name. It does not wait for completion.
type Exporter interface {
	Export(ctx context.Context, uri string) (operation string, err error)
}

// Lister returns the immediate child "folder" names under prefix in the
// bucket, without the prefix and without a trailing slash.
type Lister interface {
	ListFolders(ctx context.Context, bucket, prefix string) ([]string, error)
}

// Entry is one backup folder.
type Entry struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Created string `json:"created,omitempty"`
}

var dateToken = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// DateToken extracts the first YYYY-MM-DD token from name.
func DateToken(name string) (string, bool) {
	tok := dateToken.FindString(name)
	return tok, tok != ""
}

// Destination is where a backup taken at now is written.
type Destination struct {
	// Folder is the date-stamped prefix, gs://bucket/prefix/YYYY-MM-DD.
	Folder string
	// Object is the export file inside Folder.
	Object string
}

// NewDestination namespaces a backup by the UTC calendar date of now.
// Two backups on the same day share Folder and differ in Object.
func NewDestination(bucket, prefix, database string, now time.Time) Destination {
	now = now.UTC()
	folder := fmt.Sprintf("gs://%s/%s/%s", bucket, strings.Trim(prefix, "/"), now.Format("2006-01-02"))
	return Destination{
		Folder: folder,
		Object: fmt.Sprintf("%s/%s-%s.sql.gz", folder, database, now.Format("150405")),
	}
}

// Entries turns folder names into listing entries, sorted newest first.
// Dated entries come first, by date descending (then by name
// descending); undated entries follow, by name ascending.
func Entries(bucket, prefix string, folders []string) []Entry {
	prefix = strings.Trim(prefix, "/")
	out := make([]Entry, 0, len(folders))
	for _, name := range folders {
		e := Entry{
			Name: name,
			Path: fmt.Sprintf("gs://%s/%s/%s", bucket, prefix, name),
		}
		if tok, ok := DateToken(name); ok {
			e.Created = tok
		}
		out = append(out, e)
	}
	SortEntries(out)
	return out
}

func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.Created != "" && b.Created != "":
			if a.Created != b.Created {
				return a.Created > b.Created
			}
			return a.Name > b.Name
		case a.Created != "":
			return true
		case b.Created != "":
			return false
		default:
			return a.Name < b.Name
		}
	})
}
