package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/andresuchdata/autopar/backend-go/internal/cache"
	"github.com/andresuchdata/autopar/backend-go/internal/config"
	"github.com/andresuchdata/autopar/backend-go/internal/domain"
	"github.com/andresuchdata/autopar/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/autopar/backend-go/internal/service"
	"github.com/andresuchdata/autopar/backend-go/internal/storage"
	"github.com/andresuchdata/autopar/backend-go/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
)

type dbKey struct{}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func scopeFlags() []cli.Flag {
	return []cli.Flag{
		newDBURLFlag(),
		&cli.StringFlag{Name: "restaurant", Usage: "Restaurant ID", Required: true},
		&cli.StringFlag{Name: "list", Usage: "Inventory list ID"},
		&cli.StringFlag{Name: "guide", Usage: "PAR guide ID"},
	}
}

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey{}, postgres.Wrap(sqlx.NewDb(db, "pgx")))
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey{}).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *postgres.DB {
	return c.Context.Value(dbKey{}).(*postgres.DB)
}

func scopeFrom(c *cli.Context) domain.Scope {
	return domain.Scope{
		RestaurantID: strings.TrimSpace(c.String("restaurant")),
		ListID:       strings.TrimSpace(c.String("list")),
		GuideID:      strings.TrimSpace(c.String("guide")),
	}
}

// newService wires the service the same way cmd/server does.
func newService(c *cli.Context) (*service.ParService, error) {
	cfg := config.Load()

	opts, err := service.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	runs, err := cache.NewSuggestionRunCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("init run cache: %w", err)
	}

	objects, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	store := postgres.NewParStore(dbFrom(c))
	return service.NewParService(store, runs, storage.NewRunArchive(objects, cfg.Storage.Prefix), opts), nil
}

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	logger.SetLevel(os.Getenv("LOG_LEVEL"))

	app := &cli.App{
		Name:  "parctl",
		Usage: "Operate the PAR suggestion engine",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					return dbFrom(c).Migrate(c.Context)
				},
			},
			{
				Name:  "seed",
				Usage: "Load approved counts from a CSV file",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "file",
						Usage:   "CSV with session_id,restaurant_id,list_id,approved_at,item_name,stock_quantity,category,unit,par_level",
						Value:   "./data/seeds/counts.csv",
						EnvVars: []string{"SEED_COUNTS_FILE"},
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runSeed,
			},
			{
				Name:  "generate",
				Usage: "Generate PAR suggestions and print the run",
				Flags: append(scopeFlags(),
					&cli.Float64Flag{Name: "lead-time", Usage: "Lead time in days (0 uses the configured value)"},
					&cli.StringFlag{Name: "filter", Usage: "all, changed, major, stockout, overstock or missing_par", Value: "all"},
				),
				Before: initDB,
				After:  closeDB,
				Action: runGenerate,
			},
			{
				Name:  "apply",
				Usage: "Generate suggestions and apply the selected items to a guide",
				Flags: append(scopeFlags(),
					&cli.StringFlag{Name: "run-id", Usage: "Apply a cached run instead of generating a new one"},
					&cli.StringSliceFlag{Name: "item", Usage: "Item key to apply (repeatable); all when omitted"},
				),
				Before: initDB,
				After:  closeDB,
				Action: runApply,
			},
			{
				Name:  "runs",
				Usage: "Inspect applied-run archives and the suggestion run cache",
				Subcommands: []*cli.Command{
					{
						Name:  "archived",
						Usage: "List archived applied runs of a restaurant",
						Flags: []cli.Flag{
							newDBURLFlag(),
							&cli.StringFlag{Name: "restaurant", Usage: "Restaurant ID", Required: true},
						},
						Before: initDB,
						After:  closeDB,
						Action: runListArchived,
					},
					{
						Name:      "show",
						Usage:     "Print one archived applied run",
						ArgsUsage: "<object key>",
						Flags:     []cli.Flag{newDBURLFlag()},
						Before:    initDB,
						After:     closeDB,
						Action:    runShowArchived,
					},
					{
						Name:   "flush",
						Usage:  "Drop every cached suggestion run",
						Flags:  []cli.Flag{newDBURLFlag()},
						Before: initDB,
						After:  closeDB,
						Action: runFlushRuns,
					},
				},
			},
			{
				Name:  "notify",
				Usage: "Evaluate the daily PAR notification for one or more restaurants",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringSliceFlag{Name: "restaurant", Usage: "Restaurant ID (repeatable)", Required: true},
				},
				Before: initDB,
				After:  closeDB,
				Action: runNotify,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("parctl failed")
	}
}
