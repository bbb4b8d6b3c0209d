package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostRunsTaskAndExits(t *testing.T) {
	l := New()
	var ran int32
	l.Post(NewTask(func() {
		atomic.AddInt32(&ran, 1)
		l.Exit(7)
	}))
	code := l.Run(context.Background())
	assert.Equal(t, 7, code)
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran))
}

func TestPostIsIdempotentWhileQueued(t *testing.T) {
	l := New()
	var n int32
	task := NewTask(func() { atomic.AddInt32(&n, 1) })
	l.Post(task)
	l.Post(task) // should not double-enqueue
	l.Post(NewTask(func() { l.Exit(0) }))
	l.Run(context.Background())
	assert.EqualValues(t, 1, atomic.LoadInt32(&n))
}

func TestTimerOneShotFires(t *testing.T) {
	l := New()
	fired := make(chan struct{}, 1)
	l.TimerSet(nil, -20*time.Millisecond, func() {
		fired <- struct{}{}
		l.Exit(0)
	})
	done := make(chan int, 1)
	go func() { done <- l.Run(context.Background()) }()
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
	<-done
}

func TestExitFromAnotherGoroutine(t *testing.T) {
	l := New()
	go func() {
		time.Sleep(10 * time.Millisecond)
		l.Exit(3)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Equal(t, 3, l.Run(ctx))
}
