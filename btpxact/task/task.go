/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package task

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

type job struct {
	fn func() error
	ch chan error
}

// Runs jobs one at a time, in the order they were queued.  Used to keep
// command processing and event emission totally ordered on one connection.
type TaskQueue struct {
	jobCh  chan job
	stopCh chan struct{}
	cause  error
	active bool
	name   string
	mtx    sync.Mutex
	wg     sync.WaitGroup

	// Enqueue calls that may still be sending on jobCh.
	senders sync.WaitGroup
}

func NewTaskQueue(name string) *TaskQueue {
	return &TaskQueue{
		name: name,
	}
}

var InactiveError = fmt.Errorf("inactive task queue")

func (j *job) finish(err error) {
	j.ch <- err
	close(j.ch)
}

// Queues fn.  Its result is delivered on the returned channel, which is
// closed afterwards.  If the queue is not running, the channel yields
// InactiveError immediately.  Blocks while the queue is full; a job that
// fills its own queue stays blocked until the queue is stopped.
func (q *TaskQueue) Enqueue(fn func() error) <-chan error {
	j := job{
		fn: fn,
		ch: make(chan error, 1),
	}

	q.mtx.Lock()
	if !q.active {
		q.mtx.Unlock()
		j.finish(InactiveError)
		return j.ch
	}

	jobCh := q.jobCh
	stopCh := q.stopCh
	q.senders.Add(1)
	q.mtx.Unlock()

	defer q.senders.Done()

	select {
	case jobCh <- j:
	case <-stopCh:
		j.finish(q.cause)
	}

	return j.ch
}

// Queues fn and waits for it to run.  Calling this from inside a job
// deadlocks.
func (q *TaskQueue) Run(fn func() error) error {
	return <-q.Enqueue(fn)
}

// Queues fn without waiting.  A failure is only logged.
func (q *TaskQueue) Post(fn func() error) {
	ch := q.Enqueue(fn)

	go func() {
		if err := <-ch; err != nil {
			log.Debugf("Task queue \"%s\": job failed: %s", q.name,
				err.Error())
		}
	}()
}

// Starts the worker.  depth is the number of jobs that can be queued before
// Enqueue blocks.
func (q *TaskQueue) Start(depth int) error {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if q.active {
		return fmt.Errorf("Task queue started twice \"%s\"", q.name)
	}
	q.active = true

	jobCh := make(chan job, depth)
	q.jobCh = jobCh

	stopCh := make(chan struct{})
	q.stopCh = stopCh

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		for {
			select {
			case <-stopCh:
				return

			case j := <-jobCh:
				select {
				case <-stopCh:
					j.finish(q.cause)
					return
				default:
				}
				j.finish(j.fn())
			}
		}
	}()

	return nil
}

// Stops the queue and waits for the worker to exit.  Jobs still queued fail
// with cause.  Must not be called from inside a job; use StopNoWait there.
func (q *TaskQueue) Stop(cause error) error {
	if err := q.StopNoWait(cause); err != nil {
		return err
	}

	q.wg.Wait()
	return nil
}

// Stops the queue without waiting for a running job to finish.
func (q *TaskQueue) StopNoWait(cause error) error {
	q.mtx.Lock()
	if !q.active {
		q.mtx.Unlock()
		return fmt.Errorf("Task queue stopped twice \"%s\"", q.name)
	}

	q.active = false
	q.cause = cause
	close(q.stopCh)
	jobCh := q.jobCh
	q.mtx.Unlock()

	// Blocked senders give up once stopCh is closed.
	q.senders.Wait()

	for {
		select {
		case j := <-jobCh:
			j.finish(cause)
		default:
			return nil
		}
	}
}

func (q *TaskQueue) Active() bool {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	return q.active
}
