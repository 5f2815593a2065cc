// motionsim runs the motion loop on a host against a simulated counter
// and sensor, with a loopback, serial co-processor or MQTT link.
package main

import (
	"os"

	"github.com/golang/glog"
)

func main() {
	err := newRootCommand().Execute()
	glog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
