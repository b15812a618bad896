package main

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vatfiler/internal/platform/httpserver"
	"vatfiler/internal/platform/logger"
)

type countingPurger struct {
	calls atomic.Int64
}

func (p *countingPurger) PurgeExpired(context.Context) (int, error) {
	p.calls.Add(1)
	return 1, nil
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &countingPurger{}
	srv := httpserver.New("127.0.0.1:0", http.NotFoundHandler())

	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, []purger{p}, 5*time.Millisecond, logger.Discard()) }()

	require.Eventually(t, func() bool { return p.calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}

	calls := p.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, p.calls.Load(), "purge loops are joined before serve returns")
}

func TestServeReturnsListenError(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	p := &countingPurger{}
	srv := httpserver.New(taken.Addr().String(), http.NotFoundHandler())

	err = serve(context.Background(), srv, []purger{p}, time.Hour, logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error")
}
