package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/abushop/shopfront/internal/auth"
	"github.com/abushop/shopfront/internal/config"
	"github.com/abushop/shopfront/internal/database"
	"github.com/abushop/shopfront/internal/database/users"
	"github.com/abushop/shopfront/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "create-user":
		if err := runCreateUser(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "-h", "--help", "help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runCreateUser creates a credential record from the command line, for
// bootstrapping without going through the registration endpoint.
func runCreateUser(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	username := fs.String("username", "", "Username (required)")
	email := fs.String("email", "", "Email address (required)")
	name := fs.String("name", "", "Display name (defaults to username)")
	password := fs.String("password", "", "Password (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.NewConfig()
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	svc := auth.NewService(users.NewRepository(db.DB), cfg.Auth)
	user, err := svc.CreateUser(*username, *email, *name, *password)
	if err != nil {
		return err
	}

	fmt.Printf("Created user %s (%s)\n", user.Username, user.Email)
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve        Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  create-user  Create a user account (-username, -email, -password, -name)\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
