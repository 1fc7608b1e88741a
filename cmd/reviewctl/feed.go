package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"bitewise/internal/auth"
	"bitewise/internal/feed"
	"bitewise/internal/reviewapi"

	"github.com/urfave/cli"
)

var feedCommand = cli.Command{
	Name:  "feed",
	Usage: "show recent reviews from people you follow",
	Flags: []cli.Flag{
		cli.DurationFlag{Name: "watch", Usage: "refresh the feed on this interval until interrupted"},
	},
	Action: feedAction,
}

func feedAction(c *cli.Context) error {
	logger := newLogger(c.GlobalBool("debug"))
	defer logger.Sync()

	client := reviewapi.New(c.GlobalString("api-url"), reviewapi.WithLogger(logger))
	loader := feed.NewLoader(auth.NewTokenSession(c.GlobalString("token")), client, feed.WithLogger(logger))
	defer loader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := loader.Load(ctx, feed.Initial); err != nil {
		return cli.NewExitError(fmt.Sprintf("could not load feed: %v", err), 1)
	}
	printFeed(os.Stdout, loader, feed.DefaultPresenter, time.Now())

	interval := c.Duration("watch")
	if interval <= 0 {
		return nil
	}
	return watchFeed(ctx, os.Stdout, loader, interval)
}

// watchFeed refreshes on every tick. A failed refresh keeps the last list.
func watchFeed(ctx context.Context, out io.Writer, loader *feed.Loader, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := loader.Load(ctx, feed.Refresh); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				fmt.Fprintf(out, "refresh failed: %v\n", err)
				continue
			}
			fmt.Fprintln(out, strings.Repeat("-", 40))
			printFeed(out, loader, feed.DefaultPresenter, time.Now())
		}
	}
}

func printFeed(out io.Writer, loader *feed.Loader, p feed.Presenter, now time.Time) {
	if loader.IsEmpty() {
		fmt.Fprintln(out, "No reviews yet. Follow some friends to see what they are eating.")
		return
	}
	for _, r := range loader.Reviews() {
		c := p.Present(r, now)
		fmt.Fprintf(out, "%s  %s  %s\n", c.UserName, c.Stars, c.Date)
		fmt.Fprintf(out, "  %s", c.Restaurant)
		if c.Address != "" {
			fmt.Fprintf(out, ", %s", c.Address)
		}
		fmt.Fprintln(out)
		if len(c.Dishes) > 0 {
			line := strings.Join(c.Dishes, " | ")
			if c.MoreDishes != "" {
				line += " | " + c.MoreDishes
			}
			fmt.Fprintf(out, "  %s\n", line)
		}
		if c.Text != "" {
			fmt.Fprintf(out, "  %q\n", c.Text)
		}
		if c.Photo != "" {
			fmt.Fprintf(out, "  photo: %s %s\n", c.Photo, c.MorePhotos)
		}
	}
}
