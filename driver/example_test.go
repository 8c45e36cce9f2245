package driver_test

import (
	"fmt"
	"time"

	"github.com/notnil/armbus"
	"github.com/notnil/armbus/driver"
	"github.com/notnil/armbus/protocol"
)

// The arm side of the loopback bus answers with joint feedback, which the
// driver publishes as one snapshot.
func ExampleDriver() {
	bus := armbus.NewLoopbackBus()
	arm := bus.Open()
	defer bus.Close()

	cfg := driver.DefaultConfig()
	cfg.Transport = driver.TransportLoopback
	d, err := driver.New(bus.Open(), cfg)
	if err != nil {
		panic(err)
	}
	if err := d.Start(); err != nil {
		panic(err)
	}
	defer d.Shutdown()

	target := [protocol.Joints]int32{10_000, -20_000, 30_000, 0, 15_000, 0}
	frames, err := protocol.JointCommand(50, target)
	if err != nil {
		panic(err)
	}
	if err := d.SendRealtimeFrames(frames...); err != nil {
		panic(err)
	}

	for range frames {
		f, err := arm.Receive(time.Second)
		if err != nil {
			panic(err)
		}
		fmt.Printf("arm got 0x%X\n", f.ID)
	}

	for pair := uint8(0); pair < 3; pair++ {
		f, _ := protocol.Encode(protocol.JointFeedback{Pair: pair, A: target[2*pair], B: target[2*pair+1]})
		if err := arm.Send(f); err != nil {
			panic(err)
		}
	}
	for d.Snapshot().Generation == 0 {
		time.Sleep(time.Millisecond)
	}
	fmt.Println("joints:", d.Snapshot().Joints.Angles)

	// Output:
	// arm got 0x151
	// arm got 0x155
	// arm got 0x156
	// arm got 0x157
	// joints: [10000 -20000 30000 0 15000 0]
}
