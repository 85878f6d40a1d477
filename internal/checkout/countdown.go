package checkout

import (
	"sync"
	"time"
)

// Countdown drives the post-checkout "redirecting in N..." experience: one
// tick per interval until zero, then the finish callback. Stop cancels the
// timer without finishing (view unmount); SkipToEnd is the "view now" action.
// The finish callback fires at most once.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	done      bool
	stop      chan struct{}
	onTick    func(remaining int)
	onFinish  func()
}

func newCountdown(seconds int, interval time.Duration, onTick func(int), onFinish func()) *Countdown {

	c := &Countdown{
		remaining: seconds,
		stop:      make(chan struct{}),
		onTick:    onTick,
		onFinish:  onFinish,
	}

	go c.run(interval)

	return c
}

func (c *Countdown) run(interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:

			c.mu.Lock()

			if c.done {
				c.mu.Unlock()

				return
			}

			c.remaining--
			remaining := c.remaining
			finished := remaining <= 0

			if finished {
				c.done = true
			}
			c.mu.Unlock()

			if c.onTick != nil {
				c.onTick(remaining)
			}

			if finished {

				if c.onFinish != nil {
					c.onFinish()
				}

				return
			}
		}
	}
}

func (c *Countdown) Remaining() int {

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.remaining
}

// SkipToEnd cancels the timer and fires the finish callback immediately.
func (c *Countdown) SkipToEnd() {

	c.mu.Lock()

	if c.done {
		c.mu.Unlock()

		return
	}

	c.done = true
	c.remaining = 0
	close(c.stop)
	c.mu.Unlock()

	if c.onFinish != nil {
		c.onFinish()
	}
}

// Stop cancels the timer without redirecting.
func (c *Countdown) Stop() {

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done {
		return
	}

	c.done = true
	close(c.stop)
}
