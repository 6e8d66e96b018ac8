package pipeline

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrChannelClosed      = errors.New("channel closed")
	ErrItemLost           = errors.New("item lost")
	ErrRunAborted         = errors.New("run aborted before the item completed")
	ErrConservation       = errors.New("completed and failed items do not add up to submitted items")
	ErrDuplicateItem      = errors.New("item completed more than once")
	ErrInvalidCapacity    = errors.New("capacity must be greater than 0")
	ErrTooFewStages       = errors.New("at least 2 stages are required")
	ErrInvalidConcurrency = errors.New("concurrency must be greater than 0")
	ErrStageName          = errors.New("stage name must be set and unique")
)

// ItemLostError reports an item a stage faulted on while holding it.
type ItemLostError struct {
	ItemID int
	Stage  string
	Err    error
}

func (e *ItemLostError) Error() string {
	return fmt.Sprintf("item %d lost in stage %s: %v", e.ItemID, e.Stage, e.Err)
}

func (e *ItemLostError) Unwrap() error { return e.Err }

func (e *ItemLostError) Is(target error) bool { return target == ErrItemLost }

type errorChans struct {
	mu   sync.Mutex
	list []*errorChan
}

func (ec *errorChans) add(errChan *errorChan) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.list = append(ec.list, errChan)
}

type errorChan struct {
	c    <-chan error
	name string
}

func newErrorChan(name string, c <-chan error) *errorChan {
	return &errorChan{
		c:    c,
		name: name,
	}
}

// mergeErrors merges multiple channels of errors.
// Based on https://blog.golang.org/pipelines.
func mergeErrors(cs ...*errorChan) <-chan error {
	var wg sync.WaitGroup
	// The output channel holds one error per input channel so a slow reader
	// never blocks a worker on its way out.
	out := make(chan error, len(cs))

	output := func(c *errorChan) {
		defer wg.Done()
		if c.c == nil {
			return
		}
		for n := range c.c {
			out <- errors.Wrap(n, c.name)
		}
	}
	wg.Add(len(cs))
	for _, c := range cs {
		go output(c)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
