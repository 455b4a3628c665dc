package galvo

import (
	"errors"

	"github.com/meerk40t/galvoplotter/connection"
)

// Job spooler. A single worker goroutine drains a FIFO of jobs; each job
// is invoked repeatedly until it reports done. Returning false means
// "call me again immediately", which lets jobs act as small state
// machines.

// JobFunc is one unit of re-entrant work. It runs on the spooler
// goroutine with no locks held.
type JobFunc func(*Controller) (done bool, err error)

// Job wraps a JobFunc so queue entries have identity for Remove. Stop,
// when set, is invoked best-effort during Shutdown.
type Job struct {
	Run  JobFunc
	Stop func()
}

// NewJob wraps fn in a removable Job.
func NewJob(fn JobFunc) *Job {
	return &Job{Run: fn}
}

// Submit queues fn and starts the worker if necessary. The returned Job
// can be passed to Remove.
func (c *Controller) Submit(fn JobFunc) *Job {
	job := NewJob(fn)
	c.SubmitJob(job)
	return job
}

// SubmitJob queues a prepared job and starts the worker if necessary.
func (c *Controller) SubmitJob(job *Job) {
	c.spoolMu.Lock()
	c.queue = append(c.queue, job)
	c.cond.Broadcast()
	c.spoolMu.Unlock()
	c.start()
}

// Remove deletes every queued occurrence of job, by identity.
func (c *Controller) Remove(job *Job) {
	c.spoolMu.Lock()
	kept := c.queue[:0]
	for _, j := range c.queue {
		if j != job {
			kept = append(kept, j)
		}
	}
	c.queue = kept
	c.cond.Broadcast()
	c.spoolMu.Unlock()
}

// Current returns the job the worker is presently invoking, if any.
func (c *Controller) Current() *Job {
	c.spoolMu.Lock()
	defer c.spoolMu.Unlock()
	return c.current
}

// QueueLength returns the number of queued jobs.
func (c *Controller) QueueLength() int {
	c.spoolMu.Lock()
	defer c.spoolMu.Unlock()
	return len(c.queue)
}

// CanSpool reports whether job submissions are being accepted.
func (c *Controller) CanSpool() bool {
	c.spoolMu.Lock()
	defer c.spoolMu.Unlock()
	return !c.shutdownFlag
}

// IsExecuting reports whether queued work remains.
func (c *Controller) IsExecuting() bool {
	c.spoolMu.Lock()
	defer c.spoolMu.Unlock()
	return !c.shutdownFlag && len(c.queue) > 0
}

// IsShutdown reports whether Shutdown has been requested.
func (c *Controller) IsShutdown() bool {
	c.spoolMu.Lock()
	defer c.spoolMu.Unlock()
	return c.shutdownFlag
}

// start launches the worker goroutine if none is running.
func (c *Controller) start() {
	c.spoolMu.Lock()
	defer c.spoolMu.Unlock()
	c.shutdownFlag = false
	if c.workerDone != nil {
		return
	}
	c.workerDone = make(chan struct{})
	go c.spoolerRun(c.workerDone)
}

// Shutdown stops the spooler: the current job is asked to stop, the
// queue is cleared, the hardware is aborted, and the worker is joined.
func (c *Controller) Shutdown() {
	c.spoolMu.Lock()
	c.shutdownFlag = true
	if c.current != nil && c.current.Stop != nil {
		c.current.Stop()
	}
	c.queue = nil
	c.cond.Broadcast()
	done := c.workerDone
	c.spoolMu.Unlock()

	c.Abort(true)
	if done != nil {
		<-done
	}
	c.spoolMu.Lock()
	c.workerDone = nil
	c.spoolMu.Unlock()
	c.sending.Store(false)
}

// spoolerRun is the worker loop. Jobs run with no locks held; a job that
// reports done is removed, a job that returns false runs again
// immediately. A refused transport parks the worker on the condition
// variable; an unreachable transport ends it.
func (c *Controller) spoolerRun(done chan struct{}) {
	defer close(done)
	for {
		c.spoolMu.Lock()
		for len(c.queue) == 0 {
			if c.shutdownFlag {
				c.current = nil
				c.spoolMu.Unlock()
				return
			}
			c.current = nil
			c.cond.Broadcast()
			c.cond.Wait()
		}
		if c.shutdownFlag {
			c.current = nil
			c.spoolMu.Unlock()
			return
		}
		job := c.queue[0]
		c.current = job
		c.spoolMu.Unlock()

		c.aborting.Store(false)
		finished, err := job.Run(c)
		if err != nil {
			if errors.Is(err, connection.ErrUnreachable) {
				// The board is gone for good; the worker dies with it.
				c.log.WithError(err).Error("transport unreachable, spooler exiting")
				return
			}
			if errors.Is(err, connection.ErrRefused) {
				c.spoolMu.Lock()
				if c.shutdownFlag {
					c.current = nil
					c.spoolMu.Unlock()
					return
				}
				c.cond.Wait()
				c.spoolMu.Unlock()
				continue
			}
			// Job-level failures are isolated; drop the job and move on.
			c.log.WithError(err).Error("job failed")
			c.Remove(job)
			continue
		}
		if finished {
			c.Remove(job)
		}
	}
}

// WaitForMachineIdle blocks until the queue drains and the worker goes
// idle, then waits for the hardware to finish its list program.
func (c *Controller) WaitForMachineIdle() error {
	c.spoolMu.Lock()
	for len(c.queue) > 0 || c.current != nil {
		c.cond.Wait()
	}
	c.spoolMu.Unlock()
	return c.WaitFinished()
}

// Pause suspends list execution on the board. Flush loops sleep until
// Resume.
func (c *Controller) Pause() error {
	c.paused.Store(true)
	_, err := c.StopList()
	return err
}

// Resume restarts a paused list program.
func (c *Controller) Resume() error {
	_, err := c.RestartList()
	c.paused.Store(false)
	return err
}

// Abort stops execution and resets the board's list state. When
// dummyPacket is set, an empty terminated list is flushed and executed so
// the hardware's list machinery lands in a known state.
func (c *Controller) Abort(dummyPacket bool) error {
	c.aborting.Store(true)
	c.listMu.Lock()
	defer c.listMu.Unlock()
	if _, err := c.StopExecute(); err != nil {
		return err
	}
	if _, err := c.SetFiberMo(0); err != nil {
		return err
	}
	if _, err := c.ResetList(); err != nil {
		return err
	}
	if dummyPacket {
		c.listNewLocked()
		if err := c.listWriteLocked(endOfListWord()); err != nil {
			return err
		}
		if err := c.listEndLocked(); err != nil {
			return err
		}
		if !c.listExecuting {
			if _, err := c.ExecuteList(); err != nil {
				return err
			}
		}
	}
	c.listExecuting = false
	c.listPackets = 0
	if _, err := c.SetFiberMo(0); err != nil {
		return err
	}
	c.PortOff(c.cfg.LaserPin)
	if _, err := c.WritePort(); err != nil {
		return err
	}
	c.setConfiguration(ConfigurationInitial)
	return nil
}
