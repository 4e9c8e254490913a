package app

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/danielschenk/smartscope-decoders/pkg/decoder"
	"github.com/danielschenk/smartscope-decoders/pkg/metrics"
	"github.com/danielschenk/smartscope-decoders/pkg/mqtt"
	"github.com/danielschenk/smartscope-decoders/pkg/trace"

	"github.com/womat/debug"
)

// maxRecordFails is the number of consecutive gpio errors after which the
// application requests a restart to reinitialize the line.
const maxRecordFails = 5

// decodeService acquires traces and decodes them in an endless loop.
// A configured capture file is decoded once, the gpio line is recorded
// again every interval.
func (app *App) decodeService() {
	if file := app.config.Source.File; file != "" {
		t, err := trace.ReadFile(file, app.config.Source.SamplePeriod)
		if err != nil {
			debug.ErrorLog.Printf("reading capture %q: %v", file, err)
			app.shutdown <- struct{}{}
			return
		}

		app.decode(file, t)
		return
	}

	source := fmt.Sprintf("gpio%d", app.config.Source.Gpio)
	n := int(app.config.Source.Duration / app.config.Source.SamplePeriod)
	fails := 0

	for {
		started := time.Now()

		t, err := app.source.Record(app.config.Source.SamplePeriod, n)
		if err != nil {
			debug.ErrorLog.Printf("recording %s: %v", source, err)

			if fails++; fails >= maxRecordFails {
				debug.ErrorLog.Printf("%s keeps failing, requesting restart", source)
				app.restart <- struct{}{}
				return
			}

			time.Sleep(time.Second)
			continue
		}
		fails = 0

		app.decode(source, t)

		if wait := app.config.Source.Interval - time.Since(started); wait > 0 {
			time.Sleep(wait)
		}
	}
}

// decode runs the configured decoder over one trace. It saves the result
// to the app main structure and forwards it to the mqtt broker and influxdb.
func (app *App) decode(source string, t trace.Trace) {
	started := time.Now()

	in := decoder.Input{
		Waveforms:    map[string][]bool{},
		SamplePeriod: t.SamplePeriod,
	}
	for name := range app.dec.Description().Inputs {
		in.Waveforms[name] = t.Samples
	}

	items, err := app.dec.Decode(in)
	if err != nil {
		debug.ErrorLog.Printf("decoding %s: %v", source, err)
		return
	}

	r := Summarize(source, t, items)
	debug.DebugLog.Printf("decoded %s: %d bytes, %d errors", source, r.ByteCount, r.ErrorCount)

	app.measurements.Lock()
	app.measurements.data = r
	app.measurements.Unlock()

	app.writeCapture(t)
	app.validateResult(r)

	app.writeAPI.WritePoint(metrics.DecodePoint(source, r.SampleCount, r.ByteCount, r.ErrorCount, time.Since(started)))
}

// GetResult returns the most recent decode result.
func (app *App) GetResult() Result {
	app.measurements.Lock()
	defer app.measurements.Unlock()

	return app.measurements.data
}

// validateResult checks the result against the last one sent to the mqtt
// broker and sends it if the byte stream changed or the mqtt interval is
// exceeded.
func (app *App) validateResult(r Result) {
	app.mqttData.Lock()
	defer app.mqttData.Unlock()

	m := app.mqttData.data
	deltaT := r.TimeStamp.Sub(m.TimeStamp)
	changed := r.Bytes != m.Bytes || r.ErrorCount != m.ErrorCount

	if changed || deltaT >= app.config.MQTT.Interval {
		app.sendMQTT(app.config.MQTT.Topic, r)
		app.mqttData.data = r
	}
}

// sendMQTT send message struct to the mqtt broker.
func (app *App) sendMQTT(topic string, message interface{}) {
	go func(t string, r interface{}) {
		debug.TraceLog.Printf("prepare mqtt message %v %v", t, r)

		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			debug.ErrorLog.Printf("sendMQTT marshal: %v", err)
			return
		}

		app.mqtt.C <- mqtt.Message{
			Qos:      0,
			Retained: true,
			Topic:    t,
			Payload:  b,
		}
	}(topic, message)
}

// writeCapture appends the trace to the configured capture file.
func (app *App) writeCapture(t trace.Trace) {
	if app.config.CaptureFile == "" {
		return
	}

	f, err := os.OpenFile(app.config.CaptureFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		debug.ErrorLog.Printf("opening capture file: %v", err)
		return
	}
	defer func() { _ = f.Close() }()

	if err := trace.WriteRaw(f, t); err != nil {
		debug.ErrorLog.Printf("writing capture file: %v", err)
	}
}
