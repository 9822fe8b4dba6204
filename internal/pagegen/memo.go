package pagegen

import (
	"context"
	"sync"

	"github.com/jgxilos/wdd231/internal/directory"
	"github.com/jgxilos/wdd231/internal/models"
)

// onceSource fetches from its source at most once and replays the outcome,
// so a build renders every page from the same member list.
type onceSource struct {
	src     directory.Source
	once    sync.Once
	members []models.Member
	err     error
}

func newOnceSource(src directory.Source) *onceSource {
	return &onceSource{src: src}
}

func (o *onceSource) Load(ctx context.Context) ([]models.Member, error) {
	o.once.Do(func() {
		o.members, o.err = o.src.Load(ctx)
	})
	return o.members, o.err
}
