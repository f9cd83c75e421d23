// Command mindmate runs the MindMate wellness-journaling API.
//
//	@title						MindMate API
//	@version					1.0
//	@description				Journaling, habit tracking and a personalized wellness assistant.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the JWT.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/tbourn/mindmate-backend/internal/config"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "v0.1.0"

var CLI struct {
	Version kong.VersionFlag `help:"Print version and exit."`
	EnvFile []string         `help:"Dotenv files loaded before reading the environment." type:"path" default:".env" name:"env-file"`

	Serve   ServeCmd   `cmd:"" help:"Run the HTTP API." default:"1"`
	Migrate MigrateCmd `cmd:"" help:"Create or update the storage schema and exit."`
	Context ContextCmd `cmd:"" help:"Print the personalization block for a user."`
	Ver     VersionCmd `cmd:"" name:"version" help:"Print build information."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("mindmate"),
		kong.Description("Wellness journaling, habits and a context-aware assistant."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	config.LoadDotEnv(CLI.EnvFile...)
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: config: %v\n", err)
		os.Exit(2)
	}

	if err := kctx.Run(&Globals{Config: cfg}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
