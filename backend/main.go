package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"apollo/backend/config"
	"apollo/backend/routes"
	"apollo/backend/seeds"
	"apollo/backend/utils"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

func main() {
	app := &cli.App{
		Name:  "apollo",
		Usage: "course marketplace API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "text or json", EnvVars: []string{"LOG_FORMAT"}},
			&cli.BoolFlag{Name: "log-colors", Usage: "colorize console output", EnvVars: []string{"LOG_COLORS"}},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server and background jobs",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "migrate", Value: true, Usage: "run migrations before serving"}},
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the database schema",
				Action: migrate,
			},
			{
				Name:  "seed",
				Usage: "create demo accounts and a sample course",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "password", Value: "password123", Usage: "password for the demo accounts"},
				},
				Action: seed,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup(c *cli.Context) (*config.Config, *log.Logger, *gorm.DB, error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	// Initialize logger
	logger := utils.InitLogger(utils.LoggerConfig{
		Format:       c.String("log-format"),
		EnableColors: c.Bool("log-colors"),
	})

	// Initialize database
	db, err := utils.InitDB(cfg, utils.Tagged(logger, "DB"))
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, db, nil
}

func serve(c *cli.Context) error {
	cfg, logger, db, err := setup(c)
	if err != nil {
		return err
	}
	if c.Bool("migrate") {
		if err := utils.AutoMigrate(db); err != nil {
			return err
		}
	}

	metrics := utils.NewMetrics()
	svc, err := routes.NewServices(db, cfg, logger, metrics)
	if err != nil {
		return err
	}
	app := routes.NewApp(cfg, db, logger, metrics, svc)

	reminders, err := svc.Reminders.Start(cfg.ReminderSchedule)
	if err != nil {
		return err
	}
	defer reminders.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on :%s", cfg.ServerPort)
		errCh <- app.Listen(":" + cfg.ServerPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Println("shutting down")
	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-reminders.Stop().Done()
	return nil
}

func migrate(c *cli.Context) error {
	_, logger, db, err := setup(c)
	if err != nil {
		return err
	}
	if err := utils.AutoMigrate(db); err != nil {
		return err
	}
	logger.Println("migrations applied")
	return nil
}

func seed(c *cli.Context) error {
	_, logger, db, err := setup(c)
	if err != nil {
		return err
	}
	if err := utils.AutoMigrate(db); err != nil {
		return err
	}
	err = seeds.Run(db, c.String("password"), logger)
	if errors.Is(err, seeds.ErrAlreadySeeded) {
		logger.Println("database already seeded, nothing to do")
		return nil
	}
	return err
}
