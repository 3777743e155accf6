package blob

import (
	"log"
	"time"
)

// Event carries the interesting attributes of one engine operation.
type Event struct {
	Op       string
	Service  string
	Key      string
	Checksum string // set for uploads only
}

// Observer receives a start event per engine operation and a done callback
// carrying duration and outcome. Implementations must be safe for concurrent
// use.
type Observer interface {
	Observe(e Event) (done func(err error))
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) Observe(Event) func(error) { return func(error) {} }

// LogObserver writes one line per completed operation via the standard logger.
type LogObserver struct{}

func (LogObserver) Observe(e Event) func(error) {
	start := time.Now()
	return func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = err.Error()
		}
		if e.Checksum != "" {
			log.Printf("blob %s service=%s key=%s checksum=%s dur=%s outcome=%s",
				e.Op, e.Service, e.Key, e.Checksum, time.Since(start), outcome)
			return
		}
		log.Printf("blob %s service=%s key=%s dur=%s outcome=%s",
			e.Op, e.Service, e.Key, time.Since(start), outcome)
	}
}
