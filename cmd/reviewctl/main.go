package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "v0.3.0"

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "api-url",
		Value:  "http://localhost:8080/v1",
		Usage:  "Review Service base URL",
		EnvVar: "REVIEW_API_URL",
	},
	cli.StringFlag{
		Name:   "token",
		Usage:  "bearer token of the signed-in reviewer",
		EnvVar: "REVIEW_ACCESS_TOKEN",
	},
	cli.BoolFlag{
		Name:  "debug",
		Usage: "show debug messages",
	},
}

// newLogger writes to stderr so command output on stdout stays clean.
func newLogger(debug bool) *zap.SugaredLogger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	level := zapcore.WarnLevel
	if debug {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stderr), level)
	return zap.New(core).Sugar()
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "error loading .env file:", err)
		os.Exit(1)
	}

	app := cli.NewApp()
	app.Name = "reviewctl"
	app.Usage = "post restaurant reviews and read your friends' feed"
	app.UsageText = "reviewctl [global options] command [command options]"
	app.Version = version
	app.Flags = globalFlags
	app.Commands = []cli.Command{
		submitCommand,
		feedCommand,
		tokenCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
