package app

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/danielschenk/smartscope-decoders/pkg/app/config"
	"github.com/danielschenk/smartscope-decoders/pkg/decoder"
	"github.com/danielschenk/smartscope-decoders/pkg/metrics"
	"github.com/danielschenk/smartscope-decoders/pkg/mqtt"
	"github.com/danielschenk/smartscope-decoders/pkg/raspberry"

	"github.com/gofiber/fiber/v2"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/womat/debug"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// source records traces from the gpio line, nil in capture file mode
	source raspberry.Source

	// dec is the decoder selected by the configuration
	dec decoder.Decoder

	// writeAPI writes decode cycle measurements to influxdb
	writeAPI api.WriteAPI

	// measurements holds the most recent decode result
	measurements struct {
		sync.Mutex
		data Result
	}

	// mqttData holds the last result sent to the mqtt broker
	mqttData struct {
		sync.Mutex
		data Result
	}

	// restart signals application restart
	restart chan struct{}
	// shutdown signals application shutdown
	shutdown chan struct{}
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	return &App{
		config:    config,
		urlParsed: u,

		web:  fiber.New(),
		mqtt: mqtt.New(),

		restart:  make(chan struct{}),
		shutdown: make(chan struct{}),
	}, err
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()
	go app.decodeService()

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	var ok bool

	if app.dec, ok = decoder.Lookup(app.config.Decoder); !ok {
		debug.ErrorLog.Printf("unknown decoder %q", app.config.Decoder)
		return fmt.Errorf("unknown decoder %q", app.config.Decoder)
	}

	if app.config.Source.File == "" {
		if app.config.Source.SamplePeriod <= 0 || app.config.Source.Duration <= 0 {
			err = fmt.Errorf("gpio capture needs a sample rate and a duration")
			debug.ErrorLog.Print(err)
			return err
		}

		if app.source, err = raspberry.Open(raspberry.Config{
			Gpio: app.config.Source.Gpio,
			Pull: app.config.Source.Pull,
			Mode: app.config.Source.Mode,
		}); err != nil {
			debug.ErrorLog.Printf("can't open gpio: %v", err)
			return err
		}
	}

	if err = app.mqtt.Connect(app.config.MQTT.Connection, MODULE); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	app.writeAPI = metrics.NewWriteAPI(app.config.InfluxDB.Host, app.config.InfluxDB.Organization, app.config.InfluxDB.Bucket)

	// initDefaultRoutes should be always called last because it may access
	// things like app.dec which must be initialized before
	app.initDefaultRoutes()

	return nil
}

// Restart returns the read only restart channel.
// Restart is used to be able to react on application restart. (see cmd/ssdec.go)
func (app *App) Restart() <-chan struct{} {
	return app.restart
}

// Shutdown returns the read only shutdown channel.
// Shutdown is used to be able to react on application shutdown. (see cmd/ssdec.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

// Close releases everything Run started. The web listener goes down first
// so that a successor application can bind the address again.
func (app *App) Close() error {
	if app.web != nil {
		_ = app.web.Shutdown()
	}

	if app.mqtt != nil {
		_ = app.mqtt.Disconnect()
	}

	if app.writeAPI != nil {
		app.writeAPI.Close()
	}

	if app.source != nil {
		_ = app.source.Close()
	}

	return nil
}
