package messaging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator hands out message ids and timestamps. Timestamps are
// milliseconds that strictly increase within the process; ids append a
// per-generator instance tag so processes sharing a database never collide.
type IDGenerator struct {
	mu       sync.Mutex
	last     int64
	instance string
	now      func() time.Time
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{
		instance: strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		now:      time.Now,
	}
}

// Next returns an id of the form "<ts>-<instance>" and its timestamp.
// Ids sort by time while the timestamp keeps 13 digits.
func (g *IDGenerator) Next() (id string, ts int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts = g.now().UnixMilli()
	if ts <= g.last {
		ts = g.last + 1
	}
	g.last = ts
	return fmt.Sprintf("%d-%s", ts, g.instance), ts
}
