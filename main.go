package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/gateway"
	"github.com/leeineian/confessor/confess"
	"github.com/leeineian/confessor/home"
	"github.com/leeineian/confessor/proc"
	"github.com/leeineian/confessor/sys"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 0. Recover from panics (LogFatal uses panic to ensure defers run)
	defer func() {
		if r := recover(); r != nil {
			if msg, ok := r.(string); ok {
				fmt.Fprintf(os.Stderr, "\n[FATAL] %s\n", msg)
				os.Exit(1)
			}
			panic(r)
		}
	}()

	silent := flag.Bool("silent", false, "Disable all log output")
	skipReg := flag.Bool("skip-reg", false, "Skip command registration")
	forceReg := flag.Bool("force-reg", false, "Re-register commands even if unchanged")
	flag.Parse()

	// 1. Initialize Logger (handle flags)
	sys.InitLogger(*silent, true)

	// 2. Load configuration
	cfg, err := sys.LoadConfig()
	if err != nil {
		sys.LogFatal(sys.MsgConfigFailedToLoad, err)
	}

	// 3. Initialize Database
	if err := sys.InitDatabase(context.Background(), cfg.DatabasePath); err != nil {
		sys.LogFatal("Failed to initialize database: %v", err)
	}
	defer sys.CloseDatabase()

	// 4. Open confession storage
	store, err := confess.OpenStore(cfg.StoragePath)
	if err != nil {
		sys.LogFatal(sys.MsgStoreOpenFail, err)
	}
	defer store.Close()

	sys.LogInfo(sys.MsgBotStarting, sys.GetProjectName())

	// 5. Run bot (blocks until shutdown signal)
	if err := run(cfg, store, *silent, *skipReg, *forceReg); err != nil {
		sys.LogFatal(sys.MsgGenericError, err)
	}
}

func run(cfg *sys.Config, store *confess.Store, silent, skipReg, forceReg bool) error {
	// 1. Setup global context that responds to shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	sys.SetAppContext(ctx)

	// 2. Submission pipeline and its observers
	tracker := confess.NewCooldownTracker(cfg.CooldownWindow(), time.Now)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := proc.NewMetrics(registry, store, tracker)

	pipeline := confess.NewPipeline(confess.PipelineConfig{
		Store:     store,
		Cooldowns: tracker,
		IDs:       confess.NewIDGenerator(time.Now),
		MaxLength: cfg.MaxLength,
		Observers: []confess.Observer{metrics, home.PostReceipts},
	})

	// 3. Create disgo client
	client, err := sys.CreateClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close(context.Background())

	pipeline.SetTransport(home.NewDiscordTransport(client.Rest, cfg))
	home.Bind(pipeline)
	proc.Register(pipeline)

	// 4. Command Registration
	if !skipReg {
		if err := sys.RegisterCommands(ctx, client, cfg.GuildID, forceReg); err != nil {
			sys.LogError(sys.MsgBotRegisterFail, err)
		}
	} else {
		sys.LogInfo(sys.MsgBotRegisterSkipped)
	}

	g, gctx := errgroup.WithContext(ctx)

	// 5. Connect to Gateway
	g.Go(func() error {
		if err := client.OpenGateway(gctx); err != nil {
			return fmt.Errorf(sys.MsgBotGatewayFail, err)
		}
		<-gctx.Done()
		return nil
	})

	// 6. Health server
	if cfg.HealthAddr != "" {
		gatewayUp := func() bool {
			return client.Gateway != nil && client.Gateway.Status() == gateway.StatusReady
		}
		handler := proc.NewHealthHandler(store, gatewayUp, registry)
		srv := proc.NewHealthServer(cfg.HealthAddr, proc.NewHealthRouter(handler))
		g.Go(func() error {
			return proc.RunHealthServer(gctx, srv)
		})
	}

	err = g.Wait()
	if !silent {
		fmt.Println()
	}

	// Graceful Shutdown
	sys.LogInfo("Shutting down all daemons...")
	sys.ShutdownDaemons(context.Background())

	if botUser, ok := client.Caches.SelfUser(); ok {
		sys.LogInfo(sys.MsgBotShutdown, botUser.Username)
	} else {
		sys.LogInfo(sys.MsgBotShutdown, sys.GetProjectName())
	}

	return err
}
