// Package hal probes for devices and initializes their drivers.
package hal

import (
	"bytes"

	"github.com/keyem4251/toyos/device"
	"github.com/keyem4251/toyos/kernel/kfmt"
)

// InitDrivers executes each probe function and initializes the returned
// driver. Each driver's output is prefixed with its name and version. The
// drivers that were initialized successfully are returned in probe order.
func InitDrivers(probes []device.ProbeFn) []device.Driver {
	var (
		w       = kfmt.PrefixWriter{Sink: kfmt.GetOutputSink()}
		strBuf  bytes.Buffer
		drivers []device.Driver
	)

	for _, probe := range probes {
		drv := probe()
		if drv == nil {
			continue
		}

		strBuf.Reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&strBuf, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		w.Prefix = strBuf.Bytes()

		if err := drv.DriverInit(&w); err != nil {
			kfmt.Fprintf(&w, "init failed: %s\n", err.Message)
			continue
		}

		kfmt.Fprintf(&w, "initialized\n")
		drivers = append(drivers, drv)
	}

	return drivers
}
