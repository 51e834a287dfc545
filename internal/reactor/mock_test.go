package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCancelBeforeCompletionYieldsCanceled(t *testing.T) {
	m := NewMock()
	var got Completion
	task := m.Read(3, make([]byte, 16), nil, func(c Completion) { got = c })
	m.Cancel(task.ID)
	require.NoError(t, m.Run(RunOnce))
	require.ErrorIs(t, got.Result.Err, ErrCanceled)
	require.Equal(t, OpRead, got.Result.Kind)
}

func TestCancelAfterCompletionIsNoop(t *testing.T) {
	m := NewMock()
	var calls int
	task := m.Read(3, make([]byte, 16), nil, func(c Completion) { calls++ })
	m.CompleteRead(3, 5, nil)
	require.NoError(t, m.Run(RunOnce))
	require.Equal(t, 1, calls)

	m.Cancel(task.ID) // already completed and reaped: best-effort no-op
	require.NoError(t, m.Run(RunOnce))
	require.Equal(t, 1, calls, "canceling a reaped task must not fire its callback again")
}

func TestCancelByFDCancelsEveryPendingOpOnFD(t *testing.T) {
	m := NewMock()
	var results []Completion
	record := func(c Completion) { results = append(results, c) }

	m.Read(5, make([]byte, 16), "read", record)
	m.Write(5, []byte("hi"), "write", record)
	timerTask := m.Timeout(time.Hour, "timer", record)
	m.Read(6, make([]byte, 16), "other-fd", record)

	m.CancelByFD(5)
	require.NoError(t, m.Run(RunOnce))

	require.Len(t, results, 2, "only the two ops on fd 5 should be canceled")
	for _, c := range results {
		require.ErrorIs(t, c.Result.Err, ErrCanceled)
	}

	// Timer is exempt from CancelByFD: Timeout takes no fd, and
	// CancelByFD(5) left it pending, so canceling it explicitly now
	// yields its single canceled completion.
	m.Cancel(timerTask.ID)
	results = nil
	require.NoError(t, m.Run(RunOnce))
	require.Len(t, results, 1)
	require.Equal(t, OpTimeout, results[0].Result.Kind)
}

func TestTimeoutFiresNotEarlierAndExactlyOnce(t *testing.T) {
	m := NewMock()
	var fired int
	m.Timeout(10*time.Millisecond, nil, func(c Completion) { fired++ })

	m.AdvanceTime(9 * time.Millisecond)
	require.NoError(t, m.Run(RunOnce))
	require.Equal(t, 0, fired, "must not fire before the deadline")

	m.AdvanceTime(1 * time.Millisecond)
	require.NoError(t, m.Run(RunOnce))
	require.Equal(t, 1, fired)

	m.AdvanceTime(time.Hour)
	require.NoError(t, m.Run(RunOnce))
	require.Equal(t, 1, fired, "must fire exactly once")
}

func TestRunUntilDoneDrainsAllPendingOps(t *testing.T) {
	m := NewMock()
	var done int
	m.Read(1, make([]byte, 4), nil, func(Completion) { done++ })
	m.Timeout(time.Millisecond, nil, func(Completion) { done++ })

	m.CompleteRead(1, 4, nil)
	m.AdvanceTime(time.Millisecond)
	require.NoError(t, m.Run(RunUntilDone))
	require.Equal(t, 2, done)
}
