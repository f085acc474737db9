package chat

// job is one unit of work for the controller goroutine. Jobs run strictly
// one after another in submission order.
type job interface {
	run(c *Controller)
	abort(err error)
}

type submitJob struct {
	ex *Exchange
}

func (j *submitJob) run(c *Controller) { c.exchange(j.ex) }
func (j *submitJob) abort(err error)   { j.ex.resolve(Result{}, err) }

type resetJob struct {
	done chan error
}

func (j *resetJob) run(c *Controller) {
	// reset logs storage failures; callers of Reset only see ErrClosed.
	_ = c.reset()
	j.done <- nil
}

func (j *resetJob) abort(err error) { j.done <- err }

func (c *Controller) enqueue(j job) {
	c.qmu.Lock()
	if c.closed {
		c.qmu.Unlock()
		j.abort(ErrClosed)
		return
	}
	c.queue = append(c.queue, j)
	c.qmu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) dequeue() (job, bool) {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	if len(c.queue) == 0 {
		return nil, false
	}
	j := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	return j, true
}

func (c *Controller) loop() {
	defer close(c.stopped)
	for {
		select {
		case <-c.ctx.Done():
			c.drain()
			return
		case <-c.wake:
		}

		for {
			j, ok := c.dequeue()
			if !ok {
				break
			}
			if c.ctx.Err() != nil {
				j.abort(ErrClosed)
				continue
			}
			j.run(c)
		}
	}
}

// drain refuses new work and aborts everything still queued.
func (c *Controller) drain() {
	c.qmu.Lock()
	c.closed = true
	pending := c.queue
	c.queue = nil
	c.qmu.Unlock()

	for _, j := range pending {
		j.abort(ErrClosed)
	}
}
