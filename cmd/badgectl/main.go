// Command badgectl wires the bridge, clone engine, mode supervisor, and UI
// feedback against either real periph.io/tarm-serial hardware or the
// in-memory hwmock fakes, and runs the badge's main loop.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/nedpals/pn532badge/bridge"
	"github.com/nedpals/pn532badge/buildinfo"
	"github.com/nedpals/pn532badge/clone"
	"github.com/nedpals/pn532badge/hw/hwmock"
	"github.com/nedpals/pn532badge/hw/periphhw"
	"github.com/nedpals/pn532badge/hw/serialusb"
	"github.com/nedpals/pn532badge/mifare"
	"github.com/nedpals/pn532badge/supervisor"
	"github.com/nedpals/pn532badge/transport"
	"github.com/nedpals/pn532badge/ui"
)

var (
	transportFlag = flag.String("transport", "mock", "hardware backend: \"spi\" or \"mock\"")
	spiDevFlag    = flag.String("spi-dev", "/dev/spidev0.0", "SPI device node (transport=spi)")
	usbDevFlag    = flag.String("usb-dev", "/dev/ttyACM0", "USB-CDC serial device (transport=spi)")
	usbBaudFlag   = flag.Int("usb-baud", 115200, "USB-CDC baud rate (transport=spi)")
	irqPinFlag    = flag.String("irq-pin", "GPIO17", "PN532 IRQ GPIO pin name (transport=spi)")
	resetPinFlag  = flag.String("reset-pin", "GPIO27", "PN532 reset GPIO pin name (transport=spi)")
	menuLEDFlag   = flag.String("menu-led-pin", "GPIO5", "Menu LED GPIO pin name (transport=spi)")
	okLEDFlag     = flag.String("ok-led-pin", "GPIO6", "OK LED GPIO pin name (transport=spi)")
	profLEDFlag   = flag.String("profile-led-pin", "GPIO13", "Profile LED GPIO pin name (transport=spi)")
	buttonMenuPin = flag.String("menu-button-pin", "GPIO19", "Menu button GPIO pin name (transport=spi)")
	buttonOKPin   = flag.String("ok-button-pin", "GPIO26", "OK button GPIO pin name (transport=spi)")
	buttonProfPin = flag.String("profile-button-pin", "GPIO21", "Profile button GPIO pin name (transport=spi)")
	pollFlag      = flag.Duration("poll-interval", 20*time.Millisecond, "main loop tick interval")
	versionFlag   = flag.Bool("version", false, "print version and exit")
)

// hardware bundles every external collaborator the badge's main loop
// needs, so openHardware has one return value instead of a long tuple.
type hardware struct {
	spi     transport.SPI
	usb     transport.USBPort
	irq     transport.IRQLine
	reset   transport.GPIOPin
	leds    transport.LEDs
	buttons transport.ButtonSource
	clock   transport.Clock
	cleanup func()
}

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Println(buildinfo.FullVersion())
		return
	}

	logger := log.New(os.Stderr, "["+buildinfo.Name+"] ", log.LstdFlags)

	hw, err := openHardware()
	if err != nil {
		logger.Fatalf("hardware init: %v", err)
	}
	defer hw.cleanup()

	var image mifare.Image
	sup := supervisor.New(func() { dumpWithProgress(&image) })
	feedback := ui.NewFeedback(hw.leds, sup)
	br := bridge.New(hw.spi, hw.usb, hw.irq, hw.reset, hw.clock)
	txr := newSPITransceiver(hw.spi, hw.irq, hw.clock)
	engine := clone.NewEngine(txr, &image, nil, log.New(os.Stderr, "[clone] ", log.LstdFlags))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	stop := make(chan struct{})
	go func() {
		<-sigCh
		logger.Println("shutdown signal received")
		close(stop)
	}()

	active := func() bool {
		select {
		case <-stop:
			return false
		default:
			return true
		}
	}

	logger.Println("badge running, press Ctrl+C to stop")
	runSupervisorLoop(sup, feedback, br, engine, hw.buttons, hw.clock, *pollFlag, active, logger)
}

// runSupervisorLoop implements §4.6: dispatch to the bridge loop or a
// clone/write pass depending on main_menu, polling buttons and refreshing
// LED feedback on every tick.
func runSupervisorLoop(sup *supervisor.Supervisor, feedback *ui.Feedback, br *bridge.Bridge, engine *clone.Engine, buttons transport.ButtonSource, clock transport.Clock, poll time.Duration, active func() bool, logger *log.Logger) {
	for active() {
		drainButtons(sup, buttons)
		if err := feedback.Tick(); err != nil {
			logger.Printf("led feedback: %v", err)
		}

		switch sup.MainMenu() {
		case supervisor.Bridge:
			if err := br.Run(tickOnce(active)); err != nil {
				logger.Printf("bridge: %v", err)
			}
		case supervisor.Clone:
			submode := clone.Read
			if sup.Submode() == supervisor.Write {
				submode = clone.Write
			}
			if err := engine.RunPass(submode, func() bool {
				return active() && sup.MainMenu() == supervisor.Clone
			}); err != nil {
				logger.Printf("clone pass: %v", err)
			}
			if submode == clone.Read {
				sup.SetDone(engine.Done())
			}
		}

		clock.Sleep(poll)
	}
}

// tickOnce wraps active so a single bridge.Run iteration runs per
// supervisor loop tick, keeping button polling and LED feedback
// responsive even while in BRIDGE mode.
func tickOnce(active func() bool) func() bool {
	ticked := false
	return func() bool {
		if ticked || !active() {
			return false
		}
		ticked = true
		return true
	}
}

func drainButtons(sup *supervisor.Supervisor, buttons transport.ButtonSource) {
	for {
		select {
		case edge := <-buttons.Edges():
			switch edge {
			case transport.ButtonMenu:
				sup.OnMenu()
			case transport.ButtonOK:
				sup.OnOK()
			case transport.ButtonProfile:
				sup.OnProfile()
			}
		default:
			return
		}
	}
}

// dumpWithProgress prints the clone engine's captured card image with an
// mpb progress bar, the Profile button's dump action (§4.7).
func dumpWithProgress(image *mifare.Image) {
	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(int64(mifare.Blocks),
		mpb.PrependDecorators(decor.Name("dumping blocks: "), decor.Percentage(decor.WCSyncSpace)),
		mpb.AppendDecorators(decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "done!")),
	)
	for b := 0; b < mifare.Blocks; b++ {
		_ = image.Block(b)
		bar.Increment()
		time.Sleep(time.Millisecond)
	}
	p.Wait()
	ui.DumpBlocks(os.Stdout, image)
}

func openHardware() (*hardware, error) {
	switch *transportFlag {
	case "spi":
		return openRealHardware()
	case "mock":
		return openMockHardware(), nil
	default:
		return nil, fmt.Errorf("unknown -transport %q", *transportFlag)
	}
}

func openRealHardware() (*hardware, error) {
	if err := periphhw.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	spi, err := periphhw.OpenSPI(*spiDevFlag)
	if err != nil {
		return nil, err
	}
	usb, err := serialusb.Open(*usbDevFlag, *usbBaudFlag)
	if err != nil {
		spi.Close()
		return nil, err
	}
	irq, err := periphhw.OpenIRQ(*irqPinFlag)
	if err != nil {
		spi.Close()
		usb.Close()
		return nil, err
	}
	reset, err := periphhw.OpenPin(*resetPinFlag)
	if err != nil {
		spi.Close()
		usb.Close()
		return nil, err
	}
	leds, err := periphhw.OpenLEDs(*menuLEDFlag, *okLEDFlag, *profLEDFlag)
	if err != nil {
		spi.Close()
		usb.Close()
		return nil, err
	}
	buttons, err := periphhw.OpenButtons(*buttonMenuPin, *buttonOKPin, *buttonProfPin)
	if err != nil {
		spi.Close()
		usb.Close()
		return nil, err
	}
	go buttons.Run()

	return &hardware{
		spi:     spi,
		usb:     usb,
		irq:     irq,
		reset:   reset,
		leds:    leds,
		buttons: buttons,
		clock:   periphhw.RealClock{},
		cleanup: func() {
			buttons.Stop()
			spi.Close()
			usb.Close()
		},
	}, nil
}

func openMockHardware() *hardware {
	return &hardware{
		spi:     hwmock.NewByteLink(),
		usb:     hwmock.NewByteLink(),
		irq:     &hwmock.IRQLine{},
		reset:   &hwmock.GPIOPin{},
		leds:    &hwmock.LEDs{},
		buttons: hwmock.NewButtonSource(),
		clock:   hwmock.NewClock(time.Unix(0, 0)),
		cleanup: func() {},
	}
}
