package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"

	"bitewise/internal/auth"
	"bitewise/internal/domain/reviews"
	"bitewise/internal/editor"
	"bitewise/internal/params"
	"bitewise/internal/reviewapi"

	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var submitCommand = cli.Command{
	Name:      "submit",
	Usage:     "post a review of one restaurant",
	UsageText: "reviewctl submit --provider google --provider-id ID --name NAME --dish momo --dish thukpa --rating 4",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "provider", Usage: "place provider, e.g. google"},
		cli.StringFlag{Name: "provider-id", Usage: "place id at the provider"},
		cli.StringFlag{Name: "name", Usage: "restaurant name"},
		cli.StringFlag{Name: "address", Usage: "restaurant address"},
		cli.StringFlag{Name: "lat", Usage: "latitude, ignored when not a number"},
		cli.StringFlag{Name: "lng", Usage: "longitude, ignored when not a number"},
		cli.StringSliceFlag{Name: "dish", Usage: "a dish you tried, repeatable"},
		cli.IntFlag{Name: "rating", Usage: "stars from 1 to 5"},
	},
	Action: submitAction,
}

func submitAction(c *cli.Context) error {
	q := url.Values{}
	q.Set(params.KeyProvider, c.String("provider"))
	q.Set(params.KeyProviderID, c.String("provider-id"))
	q.Set(params.KeyName, c.String("name"))
	q.Set(params.KeyAddress, c.String("address"))
	q.Set(params.KeyLat, c.String("lat"))
	q.Set(params.KeyLng, c.String("lng"))

	ref, err := params.ParseRestaurantRef(q)
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}
	if err := validate.Struct(ref); err != nil {
		return cli.NewExitError(err.Error(), 2)
	}

	logger := newLogger(c.GlobalBool("debug"))
	defer logger.Sync()

	client := reviewapi.New(c.GlobalString("api-url"), reviewapi.WithLogger(logger))
	sessions := auth.NewTokenSession(c.GlobalString("token"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return submitReview(ctx, os.Stdout, logger, ref, sessions, client, c.StringSlice("dish"), c.Int("rating"))
}

// submitReview fills an editor the way a reviewer would and submits it once.
// Notices are printed to out as they arrive.
func submitReview(ctx context.Context, out io.Writer, logger *zap.SugaredLogger, ref reviews.RestaurantRef, sessions auth.SessionProvider, api editor.ReviewCreator, dishes []string, rating int) error {
	ed := editor.New(ref, sessions, api,
		editor.WithLogger(logger),
		editor.WithNotifier(editor.NotifierFunc(func(n editor.Notice) {
			fmt.Fprintf(out, "%s: %s\n", n.Title, n.Message)
		})),
		editor.WithNavigator(navigatorFunc(func() {
			fmt.Fprintf(out, "review of %s is done\n", ref.Name)
		})),
		editor.WithObserver(func(from, to editor.State) {
			logger.Debugw("editor transition", "from", from.String(), "to", to.String())
		}),
	)
	defer ed.Close()

	for i, dish := range dishes {
		if i > 0 {
			ed.AddDishSlot()
		}
		if err := ed.UpdateDishSlot(i, dish); err != nil {
			return err
		}
	}
	if rating != 0 {
		if err := ed.SetRating(rating); err != nil {
			return cli.NewExitError(err.Error(), 2)
		}
	}

	if err := ed.Submit(ctx); err != nil {
		return cli.NewExitError("review was not posted", 1)
	}
	ed.Acknowledge()
	return nil
}

type navigatorFunc func()

func (f navigatorFunc) GoBack() { f() }
