package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock set to initial. Time only moves when
// Advance is called.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{current: initial}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// FakeClock is a manually driven Clock. It is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	tickers []*fakeTicker
	changed *sync.Cond
}

type fakeTicker struct {
	deadline time.Time
	interval time.Duration
	channel  chan time.Time
	stopped  bool
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTicker{
		deadline: c.current.Add(d),
		interval: d,
		channel:  make(chan time.Time, 1),
	}
	c.tickers = append(c.tickers, t)
	c.changed.Broadcast()

	return &Ticker{
		C: t.channel,
		stopFunc: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			t.stopped = true
			c.changed.Broadcast()
		},
	}
}

// Advance moves the clock forward by d, delivering one tick per
// elapsed interval to every live ticker in deadline order. Sends never
// block; a full channel drops the tick.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	target := c.current
	c.mu.Unlock()

	for {
		due := c.collectDue(target)
		if len(due) == 0 {
			return
		}
		for _, f := range due {
			select {
			case f.channel <- f.at:
			default:
			}
		}
	}
}

type firing struct {
	channel chan time.Time
	at      time.Time
}

func (c *FakeClock) collectDue(target time.Time) []firing {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due []firing
	live := c.tickers[:0]
	for _, t := range c.tickers {
		if t.stopped {
			continue
		}
		live = append(live, t)
		if !t.deadline.After(target) {
			due = append(due, firing{channel: t.channel, at: t.deadline})
			t.deadline = t.deadline.Add(t.interval)
		}
	}
	c.tickers = live

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	return due
}

// WaitForTickers blocks until at least n tickers are registered and
// not stopped. It closes the race between a goroutine creating its
// ticker and the test advancing time.
func (c *FakeClock) WaitForTickers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.activeLocked() < n {
		c.changed.Wait()
	}
}

// ActiveTickers reports how many tickers are registered and not stopped.
func (c *FakeClock) ActiveTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked()
}

func (c *FakeClock) activeLocked() int {
	n := 0
	for _, t := range c.tickers {
		if !t.stopped {
			n++
		}
	}
	return n
}
