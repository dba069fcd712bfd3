package recovery

import (
	"context"
	"time"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/snapshot"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/storage"
)

// Lister enumerates stored snapshot copies. *storage.MultiWriter implements it.
type Lister interface {
	List(ctx context.Context) []storage.StoredObject
}

// Entry is a restorable copy as shown to operators.
type Entry struct {
	Filename  string        `json:"filename"`
	Path      string        `json:"path"`
	Size      int64         `json:"size"`
	Created   time.Time     `json:"created"`
	Modified  time.Time     `json:"modified"`
	Directory string        `json:"directory"`
	Location  string        `json:"location"`
	Kind      snapshot.Kind `json:"type,omitempty"`
}

// ListBackups returns every stored copy, newest first.
func ListBackups(ctx context.Context, l Lister) []Entry {
	objs := l.List(ctx)
	out := make([]Entry, 0, len(objs))
	for _, o := range objs {
		out = append(out, Entry{
			Filename:  o.Key,
			Path:      o.Ref,
			Size:      o.Size,
			Created:   o.Created,
			Modified:  o.Modified,
			Directory: o.Directory,
			Location:  o.Location,
			Kind:      snapshot.KindFromName(o.Key),
		})
	}
	return out
}
