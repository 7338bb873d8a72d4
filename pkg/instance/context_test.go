package instance

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/corestate/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlarmSetGetDelete(t *testing.T) {
	ctx := Local(NewIDFromName("test"), kv.NewMemStore(), nil, nil)

	assert.Nil(t, ctx.GetAlarm())

	at := time.Now().Add(time.Hour)
	ctx.SetAlarm(at)
	require.NotNil(t, ctx.GetAlarm())
	assert.True(t, ctx.GetAlarm().Equal(at))

	// Setting again replaces, never stacks.
	later := at.Add(time.Hour)
	ctx.SetAlarm(later)
	assert.True(t, ctx.GetAlarm().Equal(later))

	ctx.DeleteAlarm()
	assert.Nil(t, ctx.GetAlarm())
}

func TestCriticalSectionSerializesCallers(t *testing.T) {
	ctx := Local(NewIDFromName("test"), kv.NewMemStore(), nil, nil)

	var (
		mu      sync.Mutex
		order   []int
		wg      sync.WaitGroup
	)
	var inFlight, overlapped int32

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = ctx.Block(func() error {
				if atomic.AddInt32(&inFlight, 1) > 1 {
					atomic.StoreInt32(&overlapped, 1)
				}
				time.Sleep(time.Millisecond)
				mu.Lock()
				order = append(order, n)
				mu.Unlock()
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
		}(i)
	}
	wg.Wait()

	assert.Len(t, order, 5)
	assert.Zero(t, atomic.LoadInt32(&overlapped), "two callers ran inside Block at the same time")
}

func TestDefaultHandlersFailLoudly(t *testing.T) {
	ctx := Local(NewIDFromName("test"), kv.NewMemStore(), nil, nil)
	assert.ErrorIs(t, DefaultAlarmHandler(ctx), ErrNotImplemented)

	_, _, err := DefaultFetchHandler(ctx, "GET", nil)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestSocketsAcceptAndGet(t *testing.T) {
	s := NewSockets()
	a := &fakeConn{}
	b := &fakeConn{}

	s.Accept(a, "room:1")
	s.Accept(b, "room:2")

	assert.Len(t, s.Get(""), 2)
	assert.Len(t, s.Get("room:1"), 1)
	assert.Len(t, s.Get("room:3"), 0)
}

type fakeConn struct{ written [][]byte }

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.written = append(f.written, data)
	return nil
}
