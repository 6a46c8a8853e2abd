// Command lotgo runs the parking reservation engine with simulated load
// and renders spot activity to the terminal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	lotgo "github.com/hupe1980/lotgo"
	"github.com/hupe1980/lotgo/model"
	"github.com/hupe1980/lotgo/sim"
	"github.com/hupe1980/lotgo/testutil"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type runFlags struct {
	configPath    string
	logLevel      string
	jsonLogs      bool
	runFor        time.Duration
	seed          int64
	demoUsers     int
	statsInterval time.Duration
}

func newRootCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:          "lotgo",
		Short:        "Run the parking reservation engine with simulated load",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to YAML config")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&flags.jsonLogs, "json-logs", false, "emit logs as JSON")
	cmd.Flags().DurationVar(&flags.runFor, "duration", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "random seed for the simulators (0 picks one)")
	cmd.Flags().IntVar(&flags.demoUsers, "demo-users", 2, "demo identities registered and booked at startup")
	cmd.Flags().DurationVar(&flags.statsInterval, "stats-interval", 15*time.Second, "how often to print engine stats")

	return cmd
}

func run(cmd *cobra.Command, flags runFlags) error {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}

	level, err := parseLevel(flags.logLevel)
	if err != nil {
		return err
	}
	logger := lotgo.NewTextLogger(level)
	if flags.jsonLogs {
		logger = lotgo.NewJSONLogger(level)
	}

	opts := []lotgo.Option{
		lotgo.WithLogger(logger),
		lotgo.WithMetricsCollector(&lotgo.BasicMetricsCollector{}),
	}
	if cfg.Engine.AdmissionLimit > 0 {
		opts = append(opts, lotgo.WithAdmissionLimit(cfg.Engine.AdmissionLimit))
	}
	if cfg.Engine.ThrottleInterval != 0 {
		opts = append(opts, lotgo.WithThrottleInterval(time.Duration(cfg.Engine.ThrottleInterval)))
	}
	if cfg.Engine.WarningLead != 0 {
		opts = append(opts, lotgo.WithWarningLead(time.Duration(cfg.Engine.WarningLead)))
	}
	if cfg.Engine.Workers > 0 {
		opts = append(opts, lotgo.WithWorkers(cfg.Engine.Workers))
	}

	engine, err := lotgo.New(cfg.Layout, opts...)
	if err != nil {
		return err
	}
	defer engine.Close()

	obs := newTermObserver(cmd.OutOrStdout())
	engine.RegisterObserver(obs)

	seed := flags.seed
	if seed == 0 {
		seed = cfg.Sim.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := testutil.NewRNG(seed)

	seedDemoUsers(engine, rng, flags.demoUsers)

	if cfg.Sim.Users {
		us := sim.NewUserSim(engine, sim.WithSeed(seed))
		us.Start()
		defer us.Stop()
	}
	if cfg.Sim.Sensors {
		ss := sim.NewSensorSim(engine, sim.WithSeed(seed+1))
		ss.Start()
		defer ss.Stop()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if flags.runFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.runFor)
		defer cancel()
	}

	ticker := time.NewTicker(flags.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			printStats(obs, engine)
			return nil
		case <-ticker.C:
			printStats(obs, engine)
		}
	}
}

// seedDemoUsers registers a few identities and books spots for them so the
// sensor simulation has user bookings to work against.
func seedDemoUsers(engine *lotgo.Engine, rng *testutil.RNG, count int) {
	roles := []model.Role{model.RoleRegular, model.RoleVIP, model.RoleCorporate}
	spotIDs := engine.SpotIDs()

	for i := 0; i < count; i++ {
		userID := "user-" + uuid.NewString()[:8]
		engine.RegisterUser(userID, roles[i%len(roles)])

		spotID := rng.Pick(spotIDs)
		plate := fmt.Sprintf("KX-%04d", rng.Intn(10000))
		hours := rng.Intn(8) + 1
		engine.BookSpot(spotID, userID, plate, fmt.Sprintf("%d hours", hours),
			time.Duration(hours)*time.Hour, false)
	}
}

func printStats(obs *termObserver, engine *lotgo.Engine) {
	s := engine.Stats()
	obs.printStats(fmt.Sprintf(
		"stats processed=%d failed=%d queue=%d in_flight=%d throttled=%d suppressed=%d booked=%d",
		s.BookingsProcessed, s.FailedBookings, s.QueueDepth, s.InFlight,
		s.Throttled, s.Suppressed, len(engine.GetAllBookedSpots()),
	))
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
