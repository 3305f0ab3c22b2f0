package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"doorsync/control"
	"doorsync/door"
	"doorsync/indicator"
	"doorsync/logger"
	"doorsync/mqtt"
	"doorsync/network"
	"doorsync/remote"
)

var myBuild string

// App holds the application state and dependencies.
type App struct {
	cfg       *Config
	log       *logger.Logger
	session   *network.Session
	remote    *remote.Client
	door      door.Mover
	indicator indicator.Indicator
	signal    indicator.Indicator
	mqtt      *mqtt.Client
	loop      *control.Loop

	brokerDrops atomic.Int32
}

// Halt is the one terminal state for startup failures. Nothing after
// startup halts the device.
type Halt struct {
	Stage string
	Err   error
}

func (h *Halt) Error() string {
	return fmt.Sprintf("halt at %s: %v", h.Stage, h.Err)
}

func (h *Halt) Unwrap() error { return h.Err }

func main() {
	fmt.Printf("doorsync build %s\n", myBuild)

	cfgfile := flag.String("cfg", "doorsync.cfg", "Config file")
	once := flag.Bool("once", false, "Run a single tick and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := &App{}
	if h := app.start(ctx, *cfgfile); h != nil {
		app.halt(h)
	}

	go func() {
		if err := app.mqtt.Connect(); err != nil {
			app.log.Warnw("MQTT connect", "err", err)
		}
	}()
	go app.pingSender(ctx)

	if *once {
		out := app.loop.Tick(ctx)
		app.log.Infow("Single tick done", "outcome", out)
	} else if err := app.loop.Run(ctx); err != nil && ctx.Err() == nil {
		app.log.Errorw("Control loop stopped", "err", err)
	}

	app.log.Infow("Shutting down")
	app.release()
	app.log.Infow("Shutdown complete")
	app.log.Sync()
}

// start loads config and brings up every component in dependency order.
// Any failure is returned as a Halt; app keeps whatever was built so far
// so halt can still drive the indicator and release hardware.
func (app *App) start(ctx context.Context, cfgfile string) *Halt {
	cfg, err := LoadConfig(cfgfile)
	if err != nil {
		app.log = logger.Get(logger.InfoLevel)
		return &Halt{Stage: "config", Err: err}
	}
	app.cfg = cfg
	app.log = logger.Get(cfg.LogLevel)

	app.indicator, err = indicator.New(cfg.Indicator)
	if err != nil {
		return &Halt{Stage: "indicator", Err: err}
	}
	app.indicator.Signal(ctx, indicator.Booting)

	app.door, err = door.New(cfg.Door)
	if err != nil {
		return &Halt{Stage: "door", Err: err}
	}

	app.remote, err = remote.New(cfg.Remote, app.log.Named("remote"))
	if err != nil {
		return &Halt{Stage: "remote", Err: err}
	}

	app.mqtt, err = mqtt.New(cfg.MQTT, cfg.ClientID, mqtt.Handlers{
		OnConnect:    app.onMQTTConnect,
		OnDisconnect: app.onMQTTDisconnect,
		OnMessage:    app.onMQTTMessage,
	}, app.log.Named("mqtt"))
	if err != nil {
		return &Halt{Stage: "mqtt", Err: err}
	}
	app.signal = indicator.NewMulti(&statusPublisher{mqtt: app.mqtt}, app.indicator)

	app.session = network.New(cfg.Network, app.log.Named("network"))
	app.signal.Signal(ctx, indicator.Connecting)
	if err := app.session.Connect(ctx); err != nil {
		return &Halt{Stage: "network", Err: err}
	}

	app.loop, err = control.New(cfg.Control, control.Deps{
		Session: app.session,
		Client:  app.remote,
		Door:    app.door,
		Signal:  app.signal,
	}, app.log.Named("control"))
	if err != nil {
		return &Halt{Stage: "control", Err: err}
	}

	app.log.Infow("Started", "client_id", cfg.ClientID, "addr", app.session.Address())
	return nil
}

// halt logs the failure, shows the Halted pattern and exits.
func (app *App) halt(h *Halt) {
	app.log.Errorw("Startup failed, halting", "stage", h.Stage, "err", h.Err)
	if app.indicator != nil {
		app.indicator.Signal(context.Background(), indicator.Halted)
	}
	app.release()
	app.log.Sync()
	os.Exit(1)
}

func (app *App) release() {
	if app.mqtt != nil {
		app.mqtt.Disconnect()
	}
	if app.door != nil {
		if err := app.door.Release(); err != nil {
			app.log.Warnw("Release door", "err", err)
		}
	}
	if app.indicator != nil {
		if err := app.indicator.Release(); err != nil {
			app.log.Warnw("Release indicator", "err", err)
		}
	}
}

func (app *App) onMQTTConnect() {
	if drops := app.brokerDrops.Swap(0); drops > 0 {
		app.log.Infow("MQTT link restored", "drops", drops)
		app.mqtt.Publish(mqtt.StatusTopic(app.cfg.ClientID, "link"),
			fmt.Sprintf(`{"status":"restored","drops":%d}`, drops))
	}
	if err := app.mqtt.Subscribe(mqtt.ControlTopic(app.cfg.ClientID, "poll")); err != nil {
		app.log.Warnw("Subscribe", "err", err)
	}
}

// onMQTTDisconnect only counts the drop; paho reconnects on its own and
// the control loop never depends on the broker.
func (app *App) onMQTTDisconnect(err error) {
	n := app.brokerDrops.Add(1)
	app.log.Warnw("MQTT link lost", "drops", n, "err", err)
}

func (app *App) onMQTTMessage(topic string, payload []byte) {
	if topic == mqtt.ControlTopic(app.cfg.ClientID, "poll") {
		app.log.Infow("Remote poll request")
		app.loop.Kick()
	}
}

func (app *App) pingSender(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(app.cfg.PingSecs) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.mqtt.Publish(mqtt.StatusTopic(app.cfg.ClientID, "ping"), `{"status":"ok"}`)
		}
	}
}
