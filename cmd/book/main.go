package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"bookproxy/internal/app"
	"bookproxy/internal/booking"
	"bookproxy/internal/config"
	"bookproxy/internal/logging"
	"bookproxy/internal/models"

	"github.com/urfave/cli/v2"
)

var errBookingFailed = errors.New("booking failed")

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:  "book",
		Usage: "Create bookings on SavvyCal or Cal.com from the terminal.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "configs/config.yaml", EnvVars: []string{"CONFIG_PATH"}, Usage: "path to the YAML config"},
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "log level written to stderr"},
		},
		Commands: []*cli.Command{
			createCommand(out),
			linkCommand(out),
		},
	}
}

func createCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a booking and print the result as JSON.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "provider", Aliases: []string{"p"}, Usage: "savvycal or calcom (default savvycal)"},
			&cli.StringFlag{Name: "link-id", Usage: "SavvyCal link id"},
			&cli.StringFlag{Name: "username", Usage: "Cal.com username"},
			&cli.StringFlag{Name: "event-slug", Usage: "Cal.com event type slug"},
			&cli.StringFlag{Name: "start", Required: true, Usage: "start instant, RFC 3339"},
			&cli.IntFlag{Name: "duration", Usage: "duration in minutes"},
			&cli.StringFlag{Name: "name", Required: true, Usage: "attendee name"},
			&cli.StringFlag{Name: "email", Required: true, Usage: "attendee email"},
			&cli.StringFlag{Name: "tz", Usage: "attendee IANA time zone"},
			&cli.StringSliceFlag{Name: "guest", Usage: "guest email, repeatable"},
		},
		Action: func(c *cli.Context) error {
			application, err := setup(c)
			if err != nil {
				return err
			}
			defer application.Close()

			req := models.BookingRequest{
				Provider:      c.String("provider"),
				LinkID:        c.String("link-id"),
				Username:      c.String("username"),
				EventSlug:     c.String("event-slug"),
				StartAt:       c.String("start"),
				Duration:      c.Int("duration"),
				AttendeeName:  c.String("name"),
				AttendeeEmail: c.String("email"),
				TimeZone:      c.String("tz"),
				Guests:        c.StringSlice("guest"),
			}

			result, err := application.Service.CreateBooking(c.Context, req)
			if err != nil {
				_ = printJSON(out, map[string]any{"error": booking.Message(err), "status": booking.HTTPStatus(err)})
				return errBookingFailed
			}
			return printJSON(out, result)
		},
	}
}

func linkCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "link",
		Usage: "Show a SavvyCal link's default and allowed durations.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Required: true, Usage: "SavvyCal link id"},
		},
		Action: func(c *cli.Context) error {
			application, err := setup(c)
			if err != nil {
				return err
			}
			defer application.Close()

			if !application.SavvyCal.Configured() {
				return fmt.Errorf("missing %s", config.SavvyCalTokenEnv)
			}
			link, err := application.SavvyCal.GetLink(c.Context, c.String("id"))
			if err != nil {
				return err
			}
			return printJSON(out, map[string]any{
				"id":               link.ID,
				"slug":             link.Slug,
				"name":             link.Name,
				"default_duration": link.DefaultDuration,
				"durations":        link.Durations,
			})
		},
	}
}

func setup(c *cli.Context) (*app.App, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Logging.Level = c.String("log-level")
	cfg.Logging.Output = "stderr"
	cfg.Logging.Format = "console"

	logger, _, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	cliLogger := logger.With().Str("component", "book-cli").Logger()
	return app.New(c.Context, cfg, &cliLogger), nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
