package script

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInvoke_Success(t *testing.T) {
	var got []string
	s := New("backup", func(_ context.Context, args []string) error {
		got = args
		return nil
	})

	err := Invoke(context.Background(), s, []string{"full"}, NewFrameFilter(ownPackages))
	require.NoError(t, err)
	require.Equal(t, []string{"full"}, got)
}

func TestInvoke_ReturnedError(t *testing.T) {
	s := New("backup", func(context.Context, []string) error {
		return failDiskFull()
	})

	err := Invoke(context.Background(), s, nil, NewFrameFilter(ownPackages))

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, "backup", failure.Name)
	require.True(t, strings.HasPrefix(failure.Trace, "disk full on /var\n"), failure.Trace)
	require.Contains(t, failure.Trace, "failDiskFull")
	require.True(t, strings.HasPrefix(err.Error(), "Script failed: backup\ndisk full on /var\n"))
}

func TestInvoke_PlainErrorTracedFromInvoke(t *testing.T) {
	diskFull := errors.New("disk full")
	s := New("backup", func(context.Context, []string) error {
		return diskFull
	})

	err := Invoke(context.Background(), s, nil, NewFrameFilter(ownPackages))

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	require.ErrorIs(t, err, diskFull)
	require.True(t, strings.HasPrefix(failure.Trace, "disk full\n\tat "), failure.Trace)
	require.Contains(t, failure.Trace, "\tat github.com/zjrosen/devscripts/internal/script.Invoke")
	require.Contains(t, failure.Trace, "TestInvoke_PlainErrorTracedFromInvoke")
}

func TestInvoke_Panic(t *testing.T) {
	sentinel := errors.New("boom")
	s := New("reindex", func(context.Context, []string) error {
		panic(sentinel)
	})

	var err error
	require.NotPanics(t, func() {
		err = Invoke(context.Background(), s, nil, NewFrameFilter(ownPackages))
	})

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, "reindex", failure.Name)
	require.ErrorIs(t, err, sentinel)

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	require.Contains(t, failure.Trace, "panic: boom")
	require.Contains(t, failure.Trace, "TestInvoke_Panic")
}

func TestInvoke_PanicWithNonError(t *testing.T) {
	s := New("reindex", func(context.Context, []string) error {
		panic("index corrupted")
	})

	err := Invoke(context.Background(), s, nil, NewFrameFilter(ownPackages))

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	require.True(t, strings.HasPrefix(failure.Trace, "panic: index corrupted\n"))
}
