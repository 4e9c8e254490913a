package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Decoder     string          `yaml:"decoder"`
	Source      SourceConfig    `yaml:"source"`
	CaptureFile string          `yaml:"capturefile"`
	Flag        FlagConfig      `yaml:"-"`
	Debug       DebugConfig     `yaml:"debug"`
	Webserver   WebserverConfig `yaml:"webserver"`
	MQTT        MQTTConfig      `yaml:"mqtt"`
	InfluxDB    InfluxDBConfig  `yaml:"influxdb"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	Debug      string
	ConfigFile string
}

// SourceConfig defines where sample traces come from.
// With File set, the file is decoded once. Otherwise the gpio line is
// recorded every Interval for Duration at SampleRate.
type SourceConfig struct {
	File         string        `yaml:"file"`
	Gpio         int           `yaml:"gpio"`
	Pull         string        `yaml:"pull"`
	Mode         string        `yaml:"mode"`
	SampleRate   int           `yaml:"samplerate"`
	SamplePeriod time.Duration `yaml:"-"`
	DurationInt  int           `yaml:"duration"`
	Duration     time.Duration `yaml:"-"`
	IntervalInt  int           `yaml:"interval"`
	Interval     time.Duration `yaml:"-"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection  string        `yaml:"connection"`
	Interval    time.Duration `yaml:"-"`
	IntervalInt int           `yaml:"interval"`
	Topic       string        `yaml:"topic"`
}

// InfluxDBConfig defines the struct of the influxdb client configuration and configuration file
type InfluxDBConfig struct {
	Host         string `yaml:"host"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		Decoder: "chlorbus",
		Source: SourceConfig{
			Gpio:        17,
			Pull:        "pullup",
			Mode:        "events",
			SampleRate:  100000,
			DurationInt: 250,
			IntervalInt: 10,
		},
		Flag: FlagConfig{},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version":  true,
				"health":   true,
				"data":     true,
				"decoders": true,
			},
		},
		MQTT: MQTTConfig{
			Connection:  "tcp:127.0.0.1883",
			IntervalInt: 5,
			Topic:       "/chlorinator/display"},
		InfluxDB: InfluxDBConfig{},
	}
}

func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	c.MQTT.Interval = time.Duration(c.MQTT.IntervalInt) * time.Second
	c.Source.Duration = time.Duration(c.Source.DurationInt) * time.Millisecond
	c.Source.Interval = time.Duration(c.Source.IntervalInt) * time.Second
	if c.Source.SampleRate > 0 {
		c.Source.SamplePeriod = time.Second / time.Duration(c.Source.SampleRate)
	}

	return nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
	}

	return nil
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Debug.FlagString {
	case "trace", "full":
		c.Debug.Flag = debug.Full
	case "debug":
		c.Debug.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "error":
		c.Debug.Flag = debug.Error | debug.Fatal
	case "standard":
		c.Debug.Flag = debug.Standard
	}

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		if c.Debug.File, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
