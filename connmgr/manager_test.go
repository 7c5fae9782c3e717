package connmgr_test

import (
	"bufio"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorlog/client-go/codec"
	"github.com/vectorlog/client-go/connmgr"
	"github.com/vectorlog/client-go/corrid"
	"github.com/vectorlog/client-go/frame"
	"github.com/vectorlog/client-go/operation"
	"github.com/vectorlog/client-go/wire"
)

// fakeServer is the peer side of a net.Pipe, decoded/encoded with the
// same frame+codec stack the manager uses, so tests can script server
// behavior without a real socket.
type fakeServer struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
	jc   *codec.JSON
}

func newFakeServer(t *testing.T, conn net.Conn) *fakeServer {
	return &fakeServer{t: t, conn: conn, r: bufio.NewReader(conn), jc: codec.NewJSON()}
}

func (s *fakeServer) recv() (corrid.ID, wire.Message) {
	s.t.Helper()
	f, err := frame.Read(s.r)
	require.NoError(s.t, err)
	id, err := corrid.FromBytes(f.CorrelationID[:])
	require.NoError(s.t, err)
	msg, err := s.jc.Decode(f.Payload)
	require.NoError(s.t, err)
	return id, msg
}

func (s *fakeServer) send(id corrid.ID, msg wire.Message) {
	s.t.Helper()
	body, err := s.jc.Encode(msg)
	require.NoError(s.t, err)
	f := frame.Frame{Payload: body}
	copy(f.CorrelationID[:], id.Bytes())
	enc, err := frame.Encode(f)
	require.NoError(s.t, err)
	_, err = s.conn.Write(enc)
	require.NoError(s.t, err)
}

// scriptedDialer hands out one side of a fresh net.Pipe per dial,
// pushing the peer side onto conns for the test to drive directly.
func scriptedDialer(conns chan<- net.Conn) connmgr.Dialer {
	return func(ctx context.Context, address string) (net.Conn, error) {
		client, server := net.Pipe()
		conns <- server
		return client, nil
	}
}

func failingDialer(err error) connmgr.Dialer {
	return func(ctx context.Context, address string) (net.Conn, error) {
		return nil, err
	}
}

func waitConn(t *testing.T, conns <-chan net.Conn) net.Conn {
	t.Helper()
	select {
	case c := <-conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a dial attempt")
		return nil
	}
}

func baseConfig() connmgr.Config {
	return connmgr.Config{
		Address:              "event-store:1113",
		ConnectionTimeout:    time.Second,
		HeartbeatInterval:    time.Hour, // effectively disabled unless a test shortens it
		HeartbeatTimeout:     time.Hour,
		ReconnectionDelayMin: 5 * time.Millisecond,
		ReconnectionDelayMax: 20 * time.Millisecond,
	}
}

func TestConnectThenEcho(t *testing.T) {
	conns := make(chan net.Conn, 4)
	cfg := baseConfig()
	m := connmgr.New(cfg, scriptedDialer(conns), nil, nil, nil, nil)
	m.Start()

	serverConn := waitConn(t, conns)
	server := newFakeServer(t, serverConn)

	client := wire.StringHandle("alice")
	replies := make(chan operation.Delivery, 1)
	m.Submit(client, wire.Out{Message: wire.Ping{}}, func(_ wire.ClientHandle, d operation.Delivery) {
		replies <- d
	})

	id, msg := server.recv()
	assert.Equal(t, wire.KindPing, msg.Kind())
	server.send(id, wire.Pong{})

	select {
	case d := <-replies:
		require.NoError(t, d.Failure)
		assert.Equal(t, wire.KindPong, d.Message.Kind())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Pong delivery")
	}
}

func TestStraySubscribeCompletedTriggersDefensiveUnsubscribe(t *testing.T) {
	conns := make(chan net.Conn, 4)
	cfg := baseConfig()
	m := connmgr.New(cfg, scriptedDialer(conns), nil, nil, nil, nil)
	m.Start()

	serverConn := waitConn(t, conns)
	server := newFakeServer(t, serverConn)

	strayID := corrid.New()
	server.send(strayID, wire.SubscribeCompleted{})

	id, msg := server.recv()
	assert.Equal(t, strayID, id)
	assert.Equal(t, wire.KindUnsubscribe, msg.Kind())
}

func TestReconnectReplaysSubscriptionWithoutConnectionLost(t *testing.T) {
	conns := make(chan net.Conn, 4)
	cfg := baseConfig()
	cfg.MaxReconnections = 1
	m := connmgr.New(cfg, scriptedDialer(conns), nil, nil, nil, nil)
	m.Start()

	firstConn := waitConn(t, conns)
	server := newFakeServer(t, firstConn)

	client := wire.StringHandle("alice")
	delivered := make(chan operation.Delivery, 4)
	m.Submit(client, wire.Out{Message: wire.Subscribe{}}, func(_ wire.ClientHandle, d operation.Delivery) {
		delivered <- d
	})

	subID, msg := server.recv()
	assert.Equal(t, wire.KindSubscribe, msg.Kind())

	// Drop the first session; the manager must reconnect and replay.
	firstConn.Close()

	secondConn := waitConn(t, conns)
	server2 := newFakeServer(t, secondConn)

	replayID, replayMsg := server2.recv()
	assert.Equal(t, subID, replayID, "replay must reuse the subscription's own correlation id")
	assert.Equal(t, wire.KindSubscribe, replayMsg.Kind())

	select {
	case d := <-delivered:
		t.Fatalf("subscription client must not see ConnectionLost across a successful reconnect, got %+v", d)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBudgetExhaustionDeliversConnectionLostAndTerminates(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxReconnections = 1
	dialErr := errors.New("no route to host")
	m := connmgr.New(cfg, failingDialer(dialErr), nil, nil, nil, nil)
	m.Start()

	client := wire.StringHandle("alice")
	delivered := make(chan operation.Delivery, 1)
	m.Submit(client, wire.Out{Message: wire.Ping{}}, func(_ wire.ClientHandle, d operation.Delivery) {
		delivered <- d
	})

	select {
	case d := <-delivered:
		assert.True(t, errors.Is(d.Failure, operation.ErrConnectionLost))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ConnectionLost delivery")
	}

	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("manager never terminated after exhausting its reconnect budget")
	}
}

func TestHeartbeatTimeoutForcesReconnect(t *testing.T) {
	conns := make(chan net.Conn, 4)
	cfg := baseConfig()
	cfg.HeartbeatInterval = 10 * time.Millisecond
	cfg.HeartbeatTimeout = 10 * time.Millisecond
	cfg.MaxReconnections = 1
	m := connmgr.New(cfg, scriptedDialer(conns), nil, nil, nil, nil)
	m.Start()

	firstConn := waitConn(t, conns)
	server := newFakeServer(t, firstConn)

	// Manager sends its own heartbeat probe and gets no reply; it must
	// close the session and dial again.
	_, msg := server.recv()
	assert.Equal(t, wire.KindHeartbeatRequest, msg.Kind())

	waitConn(t, conns) // the reconnect attempt
}
