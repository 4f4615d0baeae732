package main

import (
	"context"
	"embed"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/rake.receiver/internal/api"
	"github.com/banshee-data/rake.receiver/internal/config"
	"github.com/banshee-data/rake.receiver/internal/db"
	"github.com/banshee-data/rake.receiver/internal/gps"
	"github.com/banshee-data/rake.receiver/internal/iq"
	"github.com/banshee-data/rake.receiver/internal/rake"
	"github.com/banshee-data/rake.receiver/internal/serialmux"
	"github.com/banshee-data/rake.receiver/internal/version"
)

var (
	//go:embed static/*
	staticFiles embed.FS

	devMode    = flag.Bool("dev", false, "Run in dev mode with a mock GPS feed")
	listen     = flag.String("listen", ":8080", "Listen address for the HTTP API")
	iqListen   = flag.String("iq-listen", ":9301", "Listen address for the UDP I/Q stream")
	gpsSerial  = flag.String("gps-serial", "", "Serial device of an NMEA GPS receiver (e.g. /dev/ttyACM0)")
	gpsBaud    = flag.Int("gps-baud", 9600, "Baud rate for the GPS serial device")
	gpsdAddr   = flag.String("gpsd", "", "Address of a gpsd daemon (e.g. localhost:2947)")
	dbFile     = flag.String("db", "receiver_events.db", "Path to the sqlite event database (empty disables persistence)")
	configFile = flag.String("config", "", "Path to a JSON tuning config (defaults apply when empty)")
	pcapFile   = flag.String("pcap", "", "Replay I/Q packets from a PCAP file instead of listening on UDP")
)

// mockSentences feeds the dev-mode GPS mux: a fix at highway speed, one
// in the city, and a gpsd-style report.
var mockSentences = []string{
	"$GPRMC,123519,A,4807.038,N,01131.000,E,048.6,084.4,230394,003.1,W*6A",
	"$GPRMC,123520,A,4807.038,N,01131.000,E,012.2,084.4,230394,003.1,W*6A",
	`{"class":"TPV","mode":3,"speed":25.0}`,
}

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	log.Printf("rake receiver %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	tuning := config.EmptyTuningConfig()
	if *configFile != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	var database *db.DB
	var recorder *db.EventRecorder
	if *dbFile != "" {
		var err error
		database, err = db.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		recorder = db.NewEventRecorder(database)
		defer recorder.Close()
	}

	receiverConfig := config.ReceiverConfigFromTuning(tuning)
	if recorder != nil {
		receiverConfig.Sink = recorder
	}
	receiver, err := rake.NewReceiver(receiverConfig)
	if err != nil {
		log.Fatalf("Failed to build receiver: %v", err)
	}
	applyTuning(receiver, tuning)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// GPS over serial (or the dev-mode mock).
	var m serialmux.SerialMuxInterface
	if *devMode {
		m = serialmux.NewMockSerialMux(mockSentences, time.Second)
	} else if *gpsSerial != "" {
		m, err = serialmux.NewRealSerialMux(*gpsSerial, serialmux.PortOptions{BaudRate: *gpsBaud})
		if err != nil {
			log.Fatalf("Failed to open GPS serial port: %v", err)
		}
		if err := m.Initialize(); err != nil {
			log.Printf("GPS receiver setup failed (continuing with device defaults): %v", err)
		}
	}

	if m != nil {
		defer m.Close()

		// run the monitor routine to manage IO on the serial port
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Monitor(ctx); err != nil && err != context.Canceled {
				log.Printf("failed to monitor serial port: %v", err)
			}
			log.Print("monitor routine terminated")
		}()

		// subscribe to the serial port messages and feed them to the
		// adaptive controller
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, c := m.Subscribe()
			defer m.Unsubscribe(id)
			for {
				select {
				case payload := <-c:
					handleTelemetry(receiver, payload)
				case <-ctx.Done():
					log.Printf("subscribe routine terminated")
					return
				}
			}
		}()
	}

	// GPS via gpsd.
	if *gpsdAddr != "" {
		feed := gps.NewGPSDFeed(*gpsdAddr, func(line string) {
			handleTelemetry(receiver, line)
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := feed.Monitor(ctx); err != nil {
				log.Printf("gpsd feed failed: %v", err)
			}
			log.Print("gpsd routine terminated")
		}()
	}

	// I/Q ingest: live UDP stream or PCAP replay.
	stats := iq.NewStreamStats()
	handler := func(samples []complex128) error {
		receiver.ProcessBlock(samples)
		return nil
	}
	if *pcapFile != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := iq.ReadPCAPFile(ctx, *pcapFile, udpPort(*iqListen), stats, handler); err != nil && err != context.Canceled {
				log.Printf("pcap replay failed: %v", err)
			}
			log.Print("pcap routine terminated")
		}()
	} else if *iqListen != "" {
		listener := iq.NewUDPListener(iq.UDPListenerConfig{
			Address: *iqListen,
			Stats:   stats,
			Handler: handler,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Start(ctx); err != nil && err != context.Canceled {
				log.Printf("I/Q listener failed: %v", err)
			}
			log.Print("I/Q routine terminated")
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes
		if m != nil {
			m.AttachAdminRoutes(mux)
		}

		// mount the API handlers
		apiMux := api.NewServer(receiver, database).ServeMux()
		mux.Handle("/api/", apiMux)

		// read static files from the embedded filesystem in production or
		// from the local ./static in dev for easier iteration without
		// restarting the server
		var staticHandler http.Handler
		if *devMode {
			staticHandler = http.StripPrefix("/static/", http.FileServer(http.Dir("./static")))
		} else {
			staticHandler = http.FileServer(http.FS(staticFiles))
		}
		mux.Handle("/static/", staticHandler)
		mux.Handle("/", apiMux)

		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("got request %q", r.URL.Path)
			mux.ServeHTTP(w, r)
		})

		server := &http.Server{
			Addr:    *listen,
			Handler: h,
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
