// Copyright 2023-2024 daviszhen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// ReentryLock is a mutex the owning goroutine may take again.
// Every Lock needs its own Unlock. The lock is a one slot token channel,
// so waiting for it can be abandoned through a context.
type ReentryLock struct {
	token chan struct{}
	owner atomic.Int64
	//only the owner touches depth
	depth uint64
}

func NewReentryLock() *ReentryLock {
	return &ReentryLock{
		token: make(chan struct{}, 1),
	}
}

func (lock *ReentryLock) Lock() {
	_ = lock.LockContext(context.Background())
}

// LockContext waits for the lock until ctx is done. It returns ctx.Err()
// without the lock when the wait is abandoned.
func (lock *ReentryLock) LockContext(ctx context.Context) error {
	rid := goid.Get()
	if lock.owner.Load() == rid {
		lock.depth++
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case lock.token <- struct{}{}:
		lock.owner.Store(rid)
		lock.depth = 1
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (lock *ReentryLock) Unlock() {
	if lock.owner.Load() != goid.Get() || lock.depth == 0 {
		panic("unlock of unlocked mutex")
	}
	lock.depth--
	if lock.depth == 0 {
		lock.owner.Store(0)
		<-lock.token
	}
}

// Held reports whether the calling goroutine owns the lock.
func (lock *ReentryLock) Held() bool {
	return lock.owner.Load() == goid.Get()
}

var _ sync.Locker = (*ReentryLock)(nil)
