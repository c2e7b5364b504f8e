package script

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatic_ReturnsCopy(t *testing.T) {
	p := Static(New("a", noop), New("b", noop))

	first, err := p.Scripts(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)

	first[0] = nil
	second, err := p.Scripts(context.Background())
	require.NoError(t, err)
	require.NotNil(t, second[0])
}

func TestChain(t *testing.T) {
	p := Chain(Static(New("a", noop)), Static(New("b", noop), New("c", noop)))

	scripts, err := p.Scripts(context.Background())
	require.NoError(t, err)

	var names []string
	for _, s := range scripts {
		names = append(names, s.Name())
	}
	require.Equal(t, []string{"a", "b", "c"}, names)
}

func TestChain_StopsOnError(t *testing.T) {
	boom := errors.New("scripts dir unreadable")
	called := false
	p := Chain(
		ProviderFunc(func(context.Context) ([]Script, error) { return nil, boom }),
		ProviderFunc(func(context.Context) ([]Script, error) {
			called = true
			return nil, nil
		}),
	)

	_, err := p.Scripts(context.Background())
	require.ErrorIs(t, err, boom)
	require.False(t, called)
}

func TestFunc_Run(t *testing.T) {
	var got []string
	s := New("echo", func(_ context.Context, args []string) error {
		got = args
		return nil
	})

	require.Equal(t, "echo", s.Name())
	require.NoError(t, s.Run(context.Background(), []string{"x", "y"}))
	require.Equal(t, []string{"x", "y"}, got)

	require.NoError(t, (&Func{ScriptName: "empty"}).Run(context.Background(), nil))
}

func TestFunc_OriginIsCallSite(t *testing.T) {
	s := New("echo", noop)
	require.Regexp(t, `^script/script_test\.go:\d+$`, s.Origin())
	require.Empty(t, (&Func{ScriptName: "literal"}).Origin())
}

func TestDiscover(t *testing.T) {
	scripts, err := Discover(context.Background(), Static(New("a", noop)))
	require.NoError(t, err)
	require.Len(t, scripts, 1)

	boom := errors.New("scripts dir unreadable")
	_, err = Discover(context.Background(), ProviderFunc(func(context.Context) ([]Script, error) {
		return nil, boom
	}))
	require.ErrorIs(t, err, boom)
}

func TestDiscover_PanickingProviderIsError(t *testing.T) {
	p := ProviderFunc(func(context.Context) ([]Script, error) {
		panic("registry not initialised")
	})

	var scripts []Script
	var err error
	require.NotPanics(t, func() {
		scripts, err = Discover(context.Background(), p)
	})

	require.Nil(t, scripts)
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "panic: registry not initialised", err.Error())
}
