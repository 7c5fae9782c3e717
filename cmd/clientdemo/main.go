/*
clientdemo is a minimal program exercising connmgr end to end: it
dials an event-store endpoint, sends a Ping on a timer, and logs every
Pong it gets back, reconnecting transparently if the session drops.
Optionally it registers itself with a Redis-backed diagnostics.Store so
an external monitor can watch its lifecycle.

It's a small binary built from flag parsing, a small App struct holding
every long-lived component, and the usual
os/signal.Notify(SIGINT, SIGTERM) graceful-shutdown idiom.
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vectorlog/client-go/connmgr"
	"github.com/vectorlog/client-go/diagnostics"
	"github.com/vectorlog/client-go/operation"
	"github.com/vectorlog/client-go/wire"
)

// Config is clientdemo's command-line surface.
type Config struct {
	InstanceID string

	Address           string
	ConnectTimeout    time.Duration
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	MaxReconnections  int
	PingInterval      time.Duration

	RedisAddr string
}

// App wires a connmgr.Manager with an optional diagnostics side
// channel and is the single place that holds every long-lived
// component's lifetime.
type App struct {
	cfg Config
	log *logrus.Entry

	manager  *connmgr.Manager
	store    *diagnostics.Store
	presence *diagnostics.Presence

	client wire.ClientHandle
	stop   chan struct{}
}

// NewApp constructs an App. Call Initialize then Start.
func NewApp(cfg Config, log *logrus.Entry) *App {
	return &App{cfg: cfg, log: log, client: wire.StringHandle(cfg.InstanceID), stop: make(chan struct{})}
}

// Initialize opens the optional diagnostics store and builds the
// Manager. Order matters: the diagnostics side channel, if any, must
// exist before the Manager that reports into it.
func (a *App) Initialize() error {
	var observer connmgr.Observer
	if a.cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store, err := diagnostics.Open(ctx, diagnostics.Config{Addr: a.cfg.RedisAddr})
		if err != nil {
			return err
		}
		a.store = store
		a.presence = diagnostics.NewPresence(store, 0)
		observer = diagnostics.NewPublisher(a.cfg.InstanceID, store, a.log)
	}

	a.manager = connmgr.New(connmgr.Config{
		Address:              a.cfg.Address,
		ConnectionTimeout:    a.cfg.ConnectTimeout,
		HeartbeatInterval:    a.cfg.HeartbeatInterval,
		HeartbeatTimeout:     a.cfg.HeartbeatTimeout,
		MaxReconnections:     a.cfg.MaxReconnections,
		ReconnectionDelayMin: 500 * time.Millisecond,
		ReconnectionDelayMax: 30 * time.Second,
	}, nil, nil, nil, observer, a.log)

	return nil
}

// Start launches the Manager and the demo ping loop.
func (a *App) Start() {
	a.manager.Start()
	if a.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.presence.Register(ctx, a.cfg.InstanceID, a.cfg.Address, "connecting"); err != nil {
			a.log.WithError(err).Warn("clientdemo: failed to register presence")
		}
	}
	go a.pingLoop()
}

func (a *App) pingLoop() {
	ticker := time.NewTicker(a.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			a.manager.Submit(a.client, wire.Out{Message: wire.Ping{}}, a.deliver)
		}
	}
}

func (a *App) deliver(_ wire.ClientHandle, d operation.Delivery) {
	if d.Failure != nil {
		a.log.WithError(d.Failure).Warn("clientdemo: ping failed")
		return
	}
	a.log.WithField("kind", d.Message.Kind()).Info("clientdemo: received reply")
}

// Stop tears everything down in the reverse order Initialize built it:
// the ping loop first, then the client, then diagnostics.
func (a *App) Stop() {
	close(a.stop)
	a.manager.ClientDied(a.client)

	if a.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.presence.Deregister(ctx, a.cfg.InstanceID); err != nil {
			a.log.WithError(err).Warn("clientdemo: failed to deregister presence")
		}
	}
	if a.store != nil {
		a.store.Close()
	}
}

func main() {
	instanceID := flag.String("id", "clientdemo-1", "diagnostics instance id")
	address := flag.String("addr", "127.0.0.1:1113", "event-store address")
	connectTimeout := flag.Duration("connect-timeout", 10*time.Second, "connection attempt timeout")
	heartbeatInterval := flag.Duration("heartbeat-interval", 30*time.Second, "heartbeat probe interval")
	heartbeatTimeout := flag.Duration("heartbeat-timeout", 10*time.Second, "heartbeat reply grace period")
	maxReconnections := flag.Int("max-reconnections", 10, "reconnect attempts before giving up")
	pingInterval := flag.Duration("ping-interval", 5*time.Second, "interval between demo pings")
	redisAddr := flag.String("redis", "", "optional diagnostics Redis address, disabled if empty")
	flag.Parse()

	log := logrus.NewEntry(logrus.StandardLogger())

	app := NewApp(Config{
		InstanceID:        *instanceID,
		Address:           *address,
		ConnectTimeout:    *connectTimeout,
		HeartbeatInterval: *heartbeatInterval,
		HeartbeatTimeout:  *heartbeatTimeout,
		MaxReconnections:  *maxReconnections,
		PingInterval:      *pingInterval,
		RedisAddr:         *redisAddr,
	}, log)

	if err := app.Initialize(); err != nil {
		log.WithError(err).Fatal("clientdemo: failed to initialize")
	}
	app.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Stop()
}
