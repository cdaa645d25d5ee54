package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe_ShutsDownOnCancel(t *testing.T) {
	c := useTestConfig(t)
	st, err := openStore(context.Background(), c)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, st, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_ListenError(t *testing.T) {
	c := useTestConfig(t)
	st, err := openStore(context.Background(), c)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	err = serve(context.Background(), st, "127.0.0.1:-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server listen")
}
