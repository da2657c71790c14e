package timeflow_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/petrijr/timeflow"
)

// Example_timeline demonstrates a timeline driven by a manual clock, which
// makes the timing deterministic.
func Example_timeline() {
	clk := timeflow.NewManualClock(time.Time{})

	tl := timeflow.New(clk).
		After("10ms", func() { fmt.Println("connect") }).
		EveryN("5ms", func(tick int) { fmt.Println("poll", tick) }, 3).
		After("1ms", func() { fmt.Println("disconnect") }).
		OnFinish(func() { fmt.Println("done") })

	if err := tl.Start(); err != nil {
		log.Fatal(err)
	}
	clk.Advance(time.Second)

	// Output:
	// connect
	// poll 0
	// poll 1
	// poll 2
	// disconnect
	// done
}

// Example_labels demonstrates conditional gates, labels and loops.
func Example_labels() {
	clk := timeflow.NewManualClock(time.Time{})
	pass := 0

	tl := timeflow.New(clk).
		After("1s", func() { pass++; fmt.Println("pass", pass) }).
		If(func() bool { return pass%2 == 0 }).
		After("1s", func() { fmt.Println("  even pass extra") }).
		Label("tail").
		After("1s", func() { fmt.Println("  tail") }).
		Loop(3)

	if err := tl.Start(); err != nil {
		log.Fatal(err)
	}
	clk.Advance(time.Minute)

	// Output:
	// pass 1
	//   tail
	// pass 2
	//   even pass extra
	//   tail
	// pass 3
	//   tail
}

// Example_localRunner demonstrates running a timeline on a real event loop.
func Example_localRunner() {
	ctx := context.Background()

	runner := timeflow.NewLocalRunner()
	if err := runner.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer runner.Stop()

	err := runner.Run(ctx, func(tl *timeflow.Timeline) {
		tl.After("5ms", func() { fmt.Println("hello") }).
			After("5ms", func() { fmt.Println("world") })
	})
	if err != nil {
		log.Fatal(err)
	}

	// Output:
	// hello
	// world
}

// Example_parseDuration shows the accepted duration descriptors.
func Example_parseDuration() {
	for _, v := range []any{"250ms", "1.5s", "2m", 40, 2 * time.Hour} {
		d, err := timeflow.ParseDuration(v)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(d)
	}

	_, err := timeflow.ParseDuration("2x")
	fmt.Println(err != nil)

	// Output:
	// 250ms
	// 1.5s
	// 2m0s
	// 40ms
	// 2h0m0s
	// true
}
