package transport

import "sync"

// collective is a reusable n-way rendezvous: every participant calls
// enter with its own contribution; the last arrival runs combine over
// everyone's contribution and every participant (including the last)
// receives the same result. It underlies both Barrier (combine==nil)
// and Allreduce. Safe for repeated use - arrivals are generation-
// counted so a team can run many successive barriers/allreduces
// without cross-talk.
type collective struct {
	mu      sync.Mutex
	cond    *sync.Cond
	nunits  uint64
	arrived uint64
	gen     uint64
	payload map[uint64][]byte
	result  []byte
	err     error
}

func newCollective(nunits uint64) *collective {
	c := &collective{nunits: nunits, payload: make(map[uint64][]byte)}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// enter blocks until all nunits participants have called enter for the
// current generation, then returns the combined result (nil if
// combine is nil). Every caller in a generation must supply a unique
// unit id.
func (c *collective) enter(unit uint64, contribution []byte, combine func(map[uint64][]byte) ([]byte, error)) ([]byte, error) {
	c.mu.Lock()
	myGen := c.gen
	c.payload[unit] = contribution
	c.arrived++
	if c.arrived == c.nunits {
		if combine != nil {
			c.result, c.err = combine(c.payload)
		} else {
			c.result, c.err = nil, nil
		}
		c.payload = make(map[uint64][]byte)
		c.arrived = 0
		c.gen++
		res, err := c.result, c.err
		c.cond.Broadcast()
		c.mu.Unlock()
		return res, err
	}
	for c.gen == myGen {
		c.cond.Wait()
	}
	res, err := c.result, c.err
	c.mu.Unlock()
	return res, err
}
