package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/atelier-hq/atelier/internal/adapter/postgres"
	"github.com/atelier-hq/atelier/internal/config"
	"github.com/atelier-hq/atelier/internal/service"
)

// runAdmin dispatches admin subcommands for managing operator accounts.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-staff":
		return runAdminCreateStaff(args[1:])
	case "reset-password":
		return runAdminResetPassword(args[1:])
	case "create-session":
		return runAdminCreateSession(args[1:])
	case "list-staff":
		return runAdminListStaff(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: atelier admin <command> [options]

Commands:
  create-staff     Create an operator account
  reset-password   Reset an operator's password
  create-session   Mint a legacy session token for an operator
  list-staff       List operator accounts
  help             Show this help message

Examples:
  atelier admin create-staff --email ops@studio.test --name "Ops" --admin
  atelier admin reset-password --email ops@studio.test
  atelier admin create-session --email ops@studio.test --ttl 24h
  atelier admin list-staff
`)
}

func loadAdminDeps() (*service.AuthService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	store := postgres.NewStore(pool)
	authSvc := service.NewAuthService(store, &cfg.Auth)

	cleanup := func() {
		pool.Close()
	}
	return authSvc, cleanup, nil
}

func runAdminCreateStaff(args []string) error {
	fs := flag.NewFlagSet("create-staff", flag.ContinueOnError)
	email := fs.String("email", "", "operator email address (required)")
	name := fs.String("name", "", "operator display name (required)")
	password := fs.String("password", "", "password (prompted if not provided)") //nolint:gosec // CLI flag
	admin := fs.Bool("admin", false, "grant administrator rights")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		return fmt.Errorf("--email is required")
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	pass, err := passwordOrPrompt(*password)
	if err != nil {
		return err
	}

	authSvc, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := authSvc.CreateStaff(context.Background(), *email, *name, pass, *admin)
	if err != nil {
		return fmt.Errorf("create staff: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Staff created: %s (id=%s, admin=%t)\n", st.Email, st.ID, st.IsAdmin)
	return nil
}

func runAdminResetPassword(args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	email := fs.String("email", "", "operator email address (required)")
	password := fs.String("password", "", "new password (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		return fmt.Errorf("--email is required")
	}

	pass, err := passwordOrPrompt(*password)
	if err != nil {
		return err
	}

	authSvc, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := authSvc.ResetPassword(context.Background(), *email, pass); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Password reset successfully for %s\n", *email)
	return nil
}

func runAdminCreateSession(args []string) error {
	fs := flag.NewFlagSet("create-session", flag.ContinueOnError)
	email := fs.String("email", "", "operator email address (required)")
	ttl := fs.Duration("ttl", 24*time.Hour, "session lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		return fmt.Errorf("--email is required")
	}

	authSvc, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	raw, err := authSvc.CreateLegacySession(context.Background(), *email, *ttl)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	// The raw token is shown once; only its hash is stored.
	fmt.Fprintf(os.Stderr, "Session created for %s (expires in %s)\n", *email, *ttl)
	fmt.Println(raw)
	return nil
}

func runAdminListStaff(args []string) error {
	fs := flag.NewFlagSet("list-staff", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	authSvc, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	staff, err := authSvc.ListStaff(context.Background())
	if err != nil {
		return fmt.Errorf("list staff: %w", err)
	}

	if len(staff) == 0 {
		fmt.Println("No staff accounts found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tEMAIL\tNAME\tADMIN\tCREATED")
	for i := range staff {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
			staff[i].ID, staff[i].Email, staff[i].Name, staff[i].IsAdmin,
			staff[i].CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func passwordOrPrompt(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	pass, err := promptPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if pass != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return pass, nil
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		return "", err
	}
	return string(b), nil
}
