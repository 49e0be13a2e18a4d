//go:build tinygo

// Command device is the firmware: it joins Wi-Fi, syncs the clock over NTP and shows the local time on the OLED.
package main

import (
	"context"
	"errors"
	"fmt"
	"machine"
	"time"

	"github.com/ajanata/textbuf"
	"tinygo.org/x/drivers/ssd1306"

	"github.com/ajanata/timesvc/internal/ntp"
	"github.com/ajanata/timesvc/internal/platform"
	"github.com/ajanata/timesvc/internal/timesvc"
)

var (
	// TODO better way to set these. for now, create a config.go and set them in an init()
	wifiSSID     string
	wifiPassword string
	timezone     = timesvc.DefaultTimezone
	ntpServer    = timesvc.DefaultNTPServer
)

const (
	printInterval   = time.Minute
	refreshInterval = time.Hour
)

func main() {
	time.Sleep(time.Second)
	blink()
	err := machine.I2C0.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
	})
	if err != nil {
		earlyPanic(err)
	}
	blink()

	dev := ssd1306.NewI2C(machine.I2C0)
	dev.Configure(ssd1306.Config{Width: 128, Height: 64, Address: 0x3D, VccState: ssd1306.SWITCHCAPVCC})
	dev.ClearBuffer()
	dev.ClearDisplay()
	blink()

	buf, err := textbuf.New(&dev, textbuf.FontSize6x8)
	if err != nil {
		earlyPanic(err)
	}
	buf.AutoFlush = true

	if _, err := ntp.ConnectWiFi(wifiSSID, wifiPassword, buf); err != nil {
		earlyPanic(err)
	}

	p := platform.New(ntp.NewSNTP(5*time.Second), platform.WithLogger(serialLogger{}))
	svc := timesvc.New(timesvc.Config{Timezone: timezone, NTPServer: ntpServer}, p, buf)
	if err := svc.Configure(context.Background(), timezone); err != nil {
		if !errors.Is(err, timesvc.ErrSyncTimeout) {
			earlyPanic(err)
		}
		// the platform keeps retrying in the background
		_ = buf.Println("NTP: no answer yet")
	}

	printTicker := time.NewTicker(printInterval)
	refreshTicker := time.NewTicker(refreshInterval)
	for {
		select {
		case <-printTicker.C:
			svc.PrintLocalTime()
		case <-refreshTicker.C:
			if err := svc.Refresh(); err != nil {
				println("refresh:", err.Error())
			}
		}
	}
}

func blink() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led.High()
	time.Sleep(100 * time.Millisecond)
	led.Low()
	time.Sleep(100 * time.Millisecond)
}

func earlyPanic(err error) {
	for i := 0; ; i++ {
		blink()
		if i%5 == 0 {
			println(err.Error())
		}
	}
}

// serialLogger writes platform events to the serial console.
type serialLogger struct{}

func (serialLogger) Debugw(string, ...interface{}) {}

func (serialLogger) Infow(msg string, keysAndValues ...interface{}) {
	println(msg, fmt.Sprint(keysAndValues...))
}

func (serialLogger) Warnw(msg string, keysAndValues ...interface{}) {
	println("warn:", msg, fmt.Sprint(keysAndValues...))
}
