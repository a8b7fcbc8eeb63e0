package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/Ananthan-A-K/ResQ/internal/alertfeed"
	"github.com/Ananthan-A-K/ResQ/internal/config"
	"github.com/Ananthan-A-K/ResQ/internal/connectivity"
	"github.com/Ananthan-A-K/ResQ/internal/core"
	"github.com/Ananthan-A-K/ResQ/internal/discovery"
	"github.com/Ananthan-A-K/ResQ/internal/engine"
	"github.com/Ananthan-A-K/ResQ/internal/logger"
	"github.com/Ananthan-A-K/ResQ/internal/store"
	"github.com/Ananthan-A-K/ResQ/internal/transport"
	"github.com/Ananthan-A-K/ResQ/internal/tui"
	"github.com/Ananthan-A-K/ResQ/internal/uplink"
	"github.com/Ananthan-A-K/ResQ/internal/web"
	"github.com/robfig/cron/v3"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
)

var (
	configPath string
	flagLabel  string
	flagPort   int
)

var rootCmd = &cobra.Command{
	Use:   "resq",
	Short: "ResQ disconnection-tolerant mesh messenger",
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ResQ node",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagLabel != "" {
			cfg.Node.Label = flagLabel
		}
		if flagPort != 0 {
			cfg.Network.Port = flagPort
		}
		return run(cfg)
	},
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func run(cfg *config.Config) error {
	if err := logger.Init(cfg.LogFile); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	dbPath := cfg.Node.DBFile
	if dbPath == "" {
		dbPath = fmt.Sprintf("resq_%d.db", cfg.Network.Port)
	}
	db, err := store.Init(dbPath)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	identityPath := cfg.Node.IdentityFile
	if identityPath == "" {
		identityPath = fmt.Sprintf("identity_%d.json", cfg.Network.Port)
	}
	id, err := core.LoadOrGenerate(identityPath, cfg.Node.Label)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	slog.Info("Starting ResQ", "nodeID", id.NodeID, "label", id.Label, "port", cfg.Network.Port)

	bcast, err := transport.NewBroadcast(cfg.Network.Port, cfg.Network.BroadcastAddr)
	if err != nil {
		return fmt.Errorf("open transport: %w", err)
	}
	defer bcast.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	peers := discovery.NewTracker(3 * time.Duration(cfg.Network.BeaconIntervalSecs) * time.Second)
	eng := engine.New(db, bcast, peers, id.NodeID, id.Label, engine.Config{
		MessageTTL:     cfg.Relay.TTL,
		RelayDelay:     time.Duration(cfg.Relay.DelayMillis) * time.Millisecond,
		SOSRelayDelay:  time.Duration(cfg.Relay.SOSDelayMillis) * time.Millisecond,
		RelayJitter:    time.Duration(cfg.Relay.JitterMillis) * time.Millisecond,
		MaxResends:     cfg.Relay.MaxResends,
		ResendInterval: time.Duration(cfg.Relay.ResendIntervalSecs) * time.Second,
		BeaconInterval: time.Duration(cfg.Network.BeaconIntervalSecs) * time.Second,
	})
	eng.Start(ctx)

	go func() {
		if err := bcast.Listen(ctx, eng.HandlePacket); err != nil {
			slog.Error("Transport receive loop failed", "error", err)
		}
	}()

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return err
	}
	probe := connectivity.DialProbe(cfg.Connectivity.ProbeAddr,
		time.Duration(cfg.Connectivity.ProbeTimeoutSecs)*time.Second)
	monitor := connectivity.NewMonitor(db, notifier, probe,
		time.Duration(cfg.Connectivity.CheckIntervalSecs)*time.Second)
	go monitor.Run(ctx)

	// Background jobs: alert feed polling and message retention.
	jobs := cron.New()
	if len(cfg.Feeds.URLs) > 0 {
		fetcher := alertfeed.NewFetcher(db, cfg.Feeds.URLs)
		if _, err := jobs.AddFunc(cfg.Feeds.Schedule, func() { fetcher.FetchAll(ctx) }); err != nil {
			return fmt.Errorf("schedule feed polling: %w", err)
		}
	}
	maxAge := time.Duration(cfg.Retention.MaxAgeDays) * 24 * time.Hour
	if _, err := jobs.AddFunc(cfg.Retention.Schedule, func() {
		if n, err := store.PurgeOlderThan(db, maxAge); err != nil {
			slog.Error("Retention sweep failed", "error", err)
		} else if n > 0 {
			slog.Info("Retention sweep purged messages", "count", n)
		}
	}); err != nil {
		return fmt.Errorf("schedule retention sweep: %w", err)
	}
	jobs.Start()
	defer jobs.Stop()

	if cfg.Web.Enabled {
		webSrv := web.NewServer(db, eng, peers, cfg.Web.Port)
		go func() {
			if err := webSrv.Start(ctx); err != nil {
				slog.Error("Web server failed", "error", err)
			}
		}()

		ip := outboundIP()
		url := fmt.Sprintf("http://%s:%d", ip, cfg.Web.Port)
		if qr, err := qrcode.New(url, qrcode.Medium); err == nil {
			fmt.Println("\nSCAN TO REACH THIS NODE:")
			fmt.Println(qr.ToString(false))
			fmt.Println("URL:", url)
		}
	}

	if os.Getenv("RESQ_HEADLESS") == "true" {
		slog.Info("Running headless (no TUI)")
		<-ctx.Done()
		return nil
	}
	return tui.StartTUI(db, eng, peers)
}

func buildNotifier(cfg *config.Config) (uplink.Notifier, error) {
	switch cfg.Uplink.Kind {
	case "log":
		return uplink.LogSink{}, nil
	case "discord":
		return uplink.NewDiscordWebhook(cfg.Uplink.WebhookURL), nil
	case "slack":
		return uplink.NewSlackWebhook(cfg.Uplink.WebhookURL), nil
	case "mqtt":
		pub, err := uplink.NewMQTTPublisher(cfg.Uplink.MQTT.Broker, cfg.Uplink.MQTT.ClientID, cfg.Uplink.MQTT.Topic)
		if err != nil {
			return nil, fmt.Errorf("init mqtt uplink: %w", err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown uplink kind %q", cfg.Uplink.Kind)
	}
}

// outboundIP prefers the IP this machine would use to reach the wider
// network, falling back to loopback when offline.
func outboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml")
	startCmd.Flags().StringVarP(&flagLabel, "label", "n", "", "Node label override")
	startCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "Mesh port override")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
