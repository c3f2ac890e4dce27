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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOrder(t *testing.T) {
	q := NewTaskQueue("test")
	require.NoError(t, q.Start(8))
	defer q.Stop(fmt.Errorf("done"))

	var seq []int
	var chs []<-chan error
	for i := 0; i < 5; i++ {
		i := i
		chs = append(chs, q.Enqueue(func() error {
			seq = append(seq, i)
			return nil
		}))
	}
	for _, ch := range chs {
		assert.NoError(t, <-ch)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, seq)

	err := q.Run(func() error { return fmt.Errorf("oops") })
	assert.EqualError(t, err, "oops")
}

func TestInactive(t *testing.T) {
	q := NewTaskQueue("test")
	assert.False(t, q.Active())
	assert.Equal(t, InactiveError, q.Run(func() error { return nil }))

	require.NoError(t, q.Start(1))
	assert.Error(t, q.Start(1))
	assert.True(t, q.Active())

	require.NoError(t, q.Stop(fmt.Errorf("stopped")))
	assert.Error(t, q.Stop(fmt.Errorf("stopped")))
	assert.Equal(t, InactiveError, q.Run(func() error { return nil }))
}

func TestPost(t *testing.T) {
	q := NewTaskQueue("test")
	require.NoError(t, q.Start(8))
	defer q.Stop(fmt.Errorf("done"))

	var wg sync.WaitGroup
	wg.Add(3)
	n := 0
	for i := 0; i < 3; i++ {
		q.Post(func() error {
			n++
			wg.Done()
			return nil
		})
	}
	wg.Wait()

	// Posted jobs ran before this one.
	require.NoError(t, q.Run(func() error {
		assert.Equal(t, 3, n)
		return nil
	}))
}

func TestStopFailsQueued(t *testing.T) {
	q := NewTaskQueue("test")
	require.NoError(t, q.Start(4))

	block := make(chan struct{})
	running := make(chan struct{})
	first := q.Enqueue(func() error {
		close(running)
		<-block
		return nil
	})
	<-running

	second := q.Enqueue(func() error { return nil })

	cause := fmt.Errorf("shutdown")
	require.NoError(t, q.StopNoWait(cause))
	close(block)

	assert.Equal(t, cause, <-second)
	assert.NoError(t, <-first)
}

func TestStopReleasesFullQueue(t *testing.T) {
	q := NewTaskQueue("test")
	require.NoError(t, q.Start(1))

	filled := make(chan struct{})
	posted := make(chan struct{})
	first := q.Enqueue(func() error {
		q.Post(func() error { return nil })
		close(filled)

		// The queue is full and only this job could drain it.
		q.Post(func() error { return nil })
		close(posted)
		return nil
	})
	<-filled

	require.NoError(t, q.StopNoWait(fmt.Errorf("shutdown")))
	<-posted
	assert.NoError(t, <-first)
	assert.False(t, q.Active())
}
