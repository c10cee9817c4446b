package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
	"github.com/andresuchdata/autopar/backend-go/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func runGenerate(c *cli.Context) error {
	filter, ok := domain.ParseFilter(c.String("filter"))
	if !ok {
		return fmt.Errorf("unknown filter %q", c.String("filter"))
	}

	svc, err := newService(c)
	if err != nil {
		return err
	}

	run, err := svc.Generate(c.Context, service.GenerateParams{
		Scope:        scopeFrom(c),
		LeadTimeDays: c.Float64("lead-time"),
	})
	if err != nil {
		return err
	}
	return printJSON(c, svc.View(run, filter))
}

func runApply(c *cli.Context) error {
	svc, err := newService(c)
	if err != nil {
		return err
	}

	scope := scopeFrom(c)
	runID := c.String("run-id")
	if runID == "" {
		run, err := svc.Generate(c.Context, service.GenerateParams{Scope: scope})
		if err != nil {
			return err
		}
		runID = run.ID
	}

	outcome, err := svc.Apply(c.Context, service.ApplyParams{
		RunID:    runID,
		ItemKeys: c.StringSlice("item"),
		Scope:    domain.Scope{GuideID: scope.GuideID},
	})
	if err != nil {
		return err
	}
	return printJSON(c, outcome)
}

// runNotify keeps going when a single restaurant fails so one bad scope does not
// block the rest of the cron batch.
func runNotify(c *cli.Context) error {
	svc, err := newService(c)
	if err != nil {
		return err
	}

	var failed int
	for _, id := range c.StringSlice("restaurant") {
		res, err := svc.Notify(c.Context, domain.Scope{RestaurantID: id})
		switch {
		case errors.Is(err, domain.ErrInsufficientHistory):
			log.Info().Str("restaurant_id", id).Msg("par notify: no approved counts yet")
			continue
		case err != nil:
			failed++
			log.Error().Err(err).Str("restaurant_id", id).Msg("par notify: evaluation failed")
			continue
		}
		if err := printJSON(c, map[string]interface{}{"restaurant_id": id, "result": res}); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d restaurant(s) failed", failed)
	}
	return nil
}

func runListArchived(c *cli.Context) error {
	svc, err := newService(c)
	if err != nil {
		return err
	}

	keys, err := svc.ArchivedRuns(c.Context, c.String("restaurant"))
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Fprintln(c.App.Writer, k)
	}
	return nil
}

func runShowArchived(c *cli.Context) error {
	key := strings.TrimSpace(c.Args().First())
	if key == "" {
		return fmt.Errorf("object key is required")
	}

	svc, err := newService(c)
	if err != nil {
		return err
	}

	rec, err := svc.ArchivedRun(c.Context, key)
	if err != nil {
		return err
	}
	return printJSON(c, rec)
}

func runFlushRuns(c *cli.Context) error {
	svc, err := newService(c)
	if err != nil {
		return err
	}

	n, err := svc.FlushRuns(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "flushed %d cached run(s)\n", n)
	return nil
}
