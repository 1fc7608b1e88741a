package main

import (
	"fmt"

	"bitewise/internal/auth"

	"github.com/urfave/cli"
)

var tokenCommand = cli.Command{
	Name:  "token",
	Usage: "mint a development access token for a user",
	Flags: []cli.Flag{
		cli.Int64Flag{Name: "user-id", Usage: "id of the user the token is for"},
		cli.StringFlag{Name: "secret", Usage: "signing secret shared with the Review Service", EnvVar: "AUTH_TOKEN_SECRET"},
		cli.StringFlag{Name: "refresh-secret", Usage: "refresh token signing secret", EnvVar: "AUTH_TOKEN_REFRESH_SECRET"},
	},
	Action: func(c *cli.Context) error {
		userID := c.Int64("user-id")
		if userID <= 0 {
			return cli.NewExitError("--user-id is required", 2)
		}
		secret := c.String("secret")
		if secret == "" {
			secret = "example"
		}
		refreshSecret := c.String("refresh-secret")
		if refreshSecret == "" {
			refreshSecret = "example-refresh"
		}

		a := auth.NewJWTAuthenticator(secret, refreshSecret, "bitewise", "bitewise")
		access, _, err := a.GenerateTokens(userID)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, access)
		return nil
	},
}
