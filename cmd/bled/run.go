package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nrfperiph/blestack/att"
	"github.com/nrfperiph/blestack/config"
	"github.com/nrfperiph/blestack/internal/capture"
	serialtransport "github.com/nrfperiph/blestack/internal/transport/serial"
	"github.com/nrfperiph/blestack/l2cap"
	"github.com/nrfperiph/blestack/link"
	"github.com/nrfperiph/blestack/sm"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "advertise and serve GATT reads over a serial-attached radio coprocessor",
	RunE:  runRun,
}

func runRun(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFileFlag)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	configureLogging(cfg.Logging)

	devAddr, err := config.ParseAddress(cfg.Advertising.Address, cfg.Advertising.Random)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	radio, err := serialtransport.Open(cfg.Radio.Device, cfg.Radio.BaudRate)
	if err != nil {
		return fmt.Errorf("run: open radio coprocessor: %w", err)
	}
	defer radio.Close()

	var trace *capture.Writer
	if cfg.Capture.Enabled {
		f, err := os.Create(cfg.Capture.Path)
		if err != nil {
			return fmt.Errorf("run: open capture file: %w", err)
		}
		defer f.Close()
		trace, err = capture.NewWriter(f, time.Now())
		if err != nil {
			return fmt.Errorf("run: start capture: %w", err)
		}
	}

	timer := serialtransport.NewHostTimer()
	ll := link.NewLinkLayer(devAddr, timer)

	demo := newDemoAttributeProvider()
	attServer := att.NewAttributeServer(demo)
	smManager := sm.NewManager(cfg.SecurityLevel())
	chanMap, err := l2cap.NewBleChannelMap(attServer, smManager)
	if err != nil {
		return fmt.Errorf("run: build channel map: %w", err)
	}

	txQueue, rxQueue := link.NewPacketQueue(), link.NewPacketQueue()
	l2capState := l2cap.NewL2CAPState(chanMap).Tx(txQueue.Producer())

	ads := []link.AdStructure{
		link.NewFlagsAd(link.DiscoverableFlags()),
		link.NewCompleteLocalNameAd(cfg.Advertising.Name),
	}
	interval := link.DurationFromMicros(uint32(cfg.Advertising.Interval.Microseconds()))

	cmd, err := ll.StartAdvertise(interval, ads, radio, txQueue.Consumer(), rxQueue.Producer())
	if err != nil {
		return fmt.Errorf("run: start advertising: %w", err)
	}
	if err := radio.ApplyRadioCmd(cmd.Radio); err != nil {
		return fmt.Errorf("run: apply initial radio command: %w", err)
	}
	if !cmd.NextUpdate.IsDisable() {
		timer.ConfigureInterrupt(cmd.NextUpdate)
	}

	log.WithFields(log.Fields{
		"device":  cfg.Radio.Device,
		"address": devAddr.String(),
		"name":    cfg.Advertising.Name,
	}).Info("advertising")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics.Port)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return isrLoop(egCtx, ll, timer, radio, trace) })
	eg.Go(func() error { return responderLoop(egCtx, l2capState, rxQueue.Consumer(), demo) })
	eg.Go(func() error { return statusLoop(egCtx, ll, devAddr.String()) })

	return eg.Wait()
}

// isrLoop simulates the radio ISR and timer interrupt context: it waits for
// the coprocessor to report a received packet or for the configured timer
// interrupt to fire, and drives the Link-Layer state machine exactly the
// way a bare-metal ISR would, one event at a time.
func isrLoop(ctx context.Context, ll *link.LinkLayer, timer *serialtransport.HostTimer, radio *serialtransport.Link, trace *capture.Writer) error {
	events := make(chan serialtransport.Event, 1)
	errs := make(chan error, 1)
	go func() {
		for {
			ev, err := radio.ReadEvent()
			if err != nil {
				errs <- err
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-errs:
			return fmt.Errorf("isr: read radio event: %w", err)

		case ev := <-events:
			rxEnd := timer.Now()
			var cmd link.Cmd
			if ev.Adv {
				cmd = ll.ProcessAdvPacket(rxEnd, radio, ev.AdvHdr, ev.Payload, ev.CrcOk)
			} else {
				cmd = ll.ProcessDataPacket(rxEnd, radio, ev.DataHdr, ev.Payload, ev.CrcOk)
				if trace != nil && ev.CrcOk {
					_ = trace.WritePacket(rxEnd, ev.DataHdr, ev.Payload)
				}
			}
			applyCmd(cmd, timer, radio)

		case <-ticker.C:
			if !timer.IsInterruptPending() {
				continue
			}
			timer.ClearInterrupt()
			cmd := ll.Update(radio)
			applyCmd(cmd, timer, radio)
		}
	}
}

func applyCmd(cmd link.Cmd, timer *serialtransport.HostTimer, radio *serialtransport.Link) {
	if err := radio.ApplyRadioCmd(cmd.Radio); err != nil {
		log.WithError(err).Warn("apply radio command")
	}
	if !cmd.NextUpdate.IsKeep() {
		timer.ConfigureInterrupt(cmd.NextUpdate)
	}
}

// responderLoop is the non-real-time side: it drains ATT/L2CAP data queued
// by the ISR loop and dispatches it through the L2CAP/ATT/SM stack, which
// may enqueue a response onto the TX queue the ISR loop drains in turn.
func responderLoop(ctx context.Context, state *l2cap.L2CAPStateTx, rx *link.Consumer, demo *demoAttributeProvider) error {
	ticker := time.NewTicker(responderTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			demo.Tick()
			for rx.HasData() {
				_, err := link.ConsumeRawWith(rx, func(header link.Header, payload []byte) link.Consume[struct{}] {
					switch header.Llid() {
					case link.LlidDataStart:
						return state.ProcessStart(payload)
					default:
						return state.ProcessCont(payload)
					}
				})
				if err != nil {
					log.WithError(err).Debug("l2cap dispatch")
				}
			}
		}
	}
}

// responderTickInterval bounds how long a queued L2CAP message can wait
// before the responder loop notices it; it isn't woken directly by the ISR
// loop since the two run on independent goroutines with no shared wakeup
// primitive in this demo driver.
const responderTickInterval = 10 * time.Millisecond

func serveMetrics(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Warn("metrics server")
	}
}

func configureLogging(cfg config.LoggingConfig) {
	if level, err := log.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	}
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
