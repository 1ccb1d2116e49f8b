package main

import (
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	listenErr error
	stop      chan struct{}
	shutdowns int
}

func (f *fakeServer) Listen(string) error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return nil
}

func (f *fakeServer) ShutdownWithTimeout(time.Duration) error {
	f.shutdowns++
	close(f.stop)
	return nil
}

func TestServe_ListenErrorReturns(t *testing.T) {
	inUse := errors.New("address already in use")
	srv := &fakeServer{listenErr: inUse, stop: make(chan struct{})}

	err := serve(srv, ":8080", make(chan os.Signal))
	require.ErrorIs(t, err, inUse)
	assert.Zero(t, srv.shutdowns)
}

func TestServe_SignalShutsDown(t *testing.T) {
	srv := &fakeServer{stop: make(chan struct{})}
	quit := make(chan os.Signal, 1)
	quit <- syscall.SIGTERM

	require.NoError(t, serve(srv, ":8080", quit))
	assert.Equal(t, 1, srv.shutdowns)
}
