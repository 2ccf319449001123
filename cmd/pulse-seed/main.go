// Command pulse-seed fills a store with randomized demo pulses read from a
// YAML seed file. The store is selected with the same environment variables
// as the server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/MrSnakeDoc/pulse/internal/app"
	"github.com/MrSnakeDoc/pulse/internal/config"
	"github.com/MrSnakeDoc/pulse/internal/logger"
	"github.com/MrSnakeDoc/pulse/internal/pulse"
	"github.com/MrSnakeDoc/pulse/internal/sources/seed"
	"github.com/MrSnakeDoc/pulse/internal/utils"
	"github.com/MrSnakeDoc/pulse/internal/version"
)

type cli struct {
	File     string  `help:"Seed file with locations and content." default:"configs/seeds.yaml" type:"existingfile"`
	Min      int     `help:"Minimum pulses per item." default:"2"`
	Max      int     `help:"Maximum pulses per item." default:"8"`
	Days     int     `help:"Spread pulses over the last N days." default:"30"`
	Variance float64 `help:"Maximum offset in degrees around a location." default:"0.045"`
	RandSeed uint64  `help:"Random seed, 0 picks one." name:"rand-seed" default:"0"`

	Version kong.VersionFlag `help:"Print version and exit."`
}

func main() {
	var args cli
	kctx := kong.Parse(&args,
		kong.Name("pulse-seed"),
		kong.Description("Seed a Pulse store with demo pulses."),
		kong.Vars{"version": version.String()},
	)

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)

	file, err := seed.NewLoader(args.File).Load()
	kctx.FatalIfErrorf(err)

	if cfg.Store == config.StoreMemory {
		log.Warn("PULSE_STORE is memory, seeded pulses are discarded on exit")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := app.OpenStore(ctx, cfg, log)
	kctx.FatalIfErrorf(err)
	defer utils.CloseLogged(backend.Closer, cfg.Store, log)

	service := pulse.NewService(backend.Store, log, pulse.Options{})
	seeder, err := seed.NewSeeder(service, seed.Options{
		Min:      args.Min,
		Max:      args.Max,
		Days:     args.Days,
		Variance: args.Variance,
		Seed:     args.RandSeed,
	}, log)
	kctx.FatalIfErrorf(err)

	res, err := seeder.Run(ctx, file)
	if err != nil {
		log.Error("seeding failed",
			logger.Int("items", res.Items),
			logger.Int("pulses", res.Pulses),
			logger.Error(err))
		utils.CloseLogged(backend.Closer, cfg.Store, log)
		os.Exit(1)
	}

	log.Info("✅ seeding complete",
		logger.Int("items", res.Items),
		logger.Int("pulses", res.Pulses),
		logger.String("store", cfg.Store))
}
