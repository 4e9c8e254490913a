package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/womat/debug"
)

func TestNewConfig(t *testing.T) {
	c := NewConfig()

	if c.Decoder != "chlorbus" {
		t.Errorf("default decoder: got %q, want %q", c.Decoder, "chlorbus")
	}
	if c.Source.Gpio != 17 || c.Source.Pull != "pullup" || c.Source.Mode != "events" {
		t.Errorf("unexpected default source: %+v", c.Source)
	}
	if c.Source.SampleRate != 100000 {
		t.Errorf("default samplerate: got %d, want 100000", c.Source.SampleRate)
	}
	if c.Webserver.URL != "http://0.0.0.0:4000" {
		t.Errorf("default webserver url: got %q", c.Webserver.URL)
	}
	for _, service := range []string{"version", "health", "data", "decoders"} {
		if !c.Webserver.Webservices[service] {
			t.Errorf("webservice %q not enabled by default", service)
		}
	}
	if c.Debug.FlagString != "standard" || c.Debug.FileString != "stderr" {
		t.Errorf("unexpected default debug config: %+v", c.Debug)
	}
}

func TestLoadConfig(t *testing.T) {
	yml := `
decoder: chlorbus
source:
  file: /var/lib/ssdec/capture.bin
  samplerate: 50000
  duration: 100
  interval: 30
capturefile: /tmp/replay.bin
debug:
  flag: debug
  file: stdout
webserver:
  url: http://0.0.0.0:8080
  webservices:
    data: false
mqtt:
  connection: tcp://broker:1883
  topic: /pool/display
  interval: 60
influxdb:
  host: http://influx:8086
  organization: pool
  bucket: chlorinator
`
	file := filepath.Join(t.TempDir(), "ssdec.yaml")
	if err := os.WriteFile(file, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewConfig()
	c.Flag.ConfigFile = file
	if err := c.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if c.Source.File != "/var/lib/ssdec/capture.bin" {
		t.Errorf("source file: got %q", c.Source.File)
	}
	if c.Source.SamplePeriod != 20*time.Microsecond {
		t.Errorf("sample period: got %v, want 20µs", c.Source.SamplePeriod)
	}
	if c.Source.Duration != 100*time.Millisecond {
		t.Errorf("source duration: got %v, want 100ms", c.Source.Duration)
	}
	if c.Source.Interval != 30*time.Second {
		t.Errorf("source interval: got %v, want 30s", c.Source.Interval)
	}
	if c.CaptureFile != "/tmp/replay.bin" {
		t.Errorf("capturefile: got %q", c.CaptureFile)
	}
	if c.MQTT.Connection != "tcp://broker:1883" || c.MQTT.Topic != "/pool/display" {
		t.Errorf("unexpected mqtt config: %+v", c.MQTT)
	}
	if c.MQTT.Interval != 60*time.Second {
		t.Errorf("mqtt interval: got %v, want 60s", c.MQTT.Interval)
	}
	if c.InfluxDB.Host != "http://influx:8086" || c.InfluxDB.Organization != "pool" || c.InfluxDB.Bucket != "chlorinator" {
		t.Errorf("unexpected influxdb config: %+v", c.InfluxDB)
	}
	if c.Webserver.URL != "http://0.0.0.0:8080" {
		t.Errorf("webserver url: got %q", c.Webserver.URL)
	}

	// keys absent from the file keep their defaults
	if c.Webserver.Webservices["data"] {
		t.Error("webservice data should be disabled by the file")
	}
	if !c.Webserver.Webservices["health"] || !c.Webserver.Webservices["version"] {
		t.Error("webservices not named in the file lost their defaults")
	}

	if c.Debug.Flag != debug.Warning|debug.Info|debug.Error|debug.Fatal|debug.Debug {
		t.Errorf("debug flag: got %#x", c.Debug.Flag)
	}
	if c.Debug.File != os.Stdout {
		t.Error("debug file should be stdout")
	}
}

func TestLoadConfig_DebugFlagOverrule(t *testing.T) {
	file := filepath.Join(t.TempDir(), "ssdec.yaml")
	if err := os.WriteFile(file, []byte("debug:\n  flag: standard\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewConfig()
	c.Flag.ConfigFile = file
	c.Flag.Debug = "trace"
	if err := c.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if c.Debug.Flag != debug.Full {
		t.Errorf("debug flag of the command line should win: got %#x", c.Debug.Flag)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = filepath.Join(t.TempDir(), "nope.yaml")

	if err := c.LoadConfig(); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
