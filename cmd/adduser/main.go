// Command adduser creates an account out-of-band, for bootstrapping or
// administrative recovery. Normal account creation goes through /register.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"spendtrack/internal/auth"
	"spendtrack/internal/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	username := fs.String("user", "", "Username")
	password := fs.String("password", "", "Password")
	dbPath := fs.String("db", envOr("SQLITE_DB_PATH", "./data/spendtrack.db"), "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	name, err := auth.NormalizeUsername(*username)
	if err != nil {
		fs.PrintDefaults()
		return fmt.Errorf("invalid username: %w", err)
	}
	if err := auth.ValidatePassword(*password); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}

	hash, err := auth.HashPassword(*password, bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	repo, err := storage.NewSQLiteRepository(*dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	account, err := repo.CreateAccount(context.Background(), name, hash)
	if err != nil {
		return err
	}

	fmt.Printf("Created account %q (id %d)\n", account.Username, account.ID)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
