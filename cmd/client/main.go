package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/MKhiriev/go-vault-sync/internal/client"
	"github.com/MKhiriev/go-vault-sync/internal/config"
	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/service"
	"github.com/MKhiriev/go-vault-sync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

const usage = `usage: vault-sync <command> [flags]

commands:
  signup     create an account
  login      log in and unlock the vault
  lists      print the todo lists
  tags       print the tags
  sessions   print the open sessions
  calibrate  print hash parameters tuned for this machine
  totp       enable or disable two-factor codes (totp enable|disable)
  logout     end the session
  version    print build information`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]
	if command == "version" {
		printBuildInfo()
		return
	}

	args := os.Args[2:]
	if command == "totp" && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = command+" "+args[0], args[1:]
	}

	cfg, err := config.GetClientConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error getting configs: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewClientLogger("go-vault-sync-client", cfg.App.LogDir, cfg.App.Development)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := client.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating client")
	}
	defer c.Close()

	if err = run(ctx, c, command, bufio.NewReader(os.Stdin), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, command string, in *bufio.Reader, out io.Writer) error {
	switch command {
	case "signup":
		email, password, err := credentials(in, out)
		if err != nil {
			return err
		}
		if err = c.SignUp(ctx, email, password); err != nil {
			return err
		}
		params := c.Auth.HashParams()
		fmt.Fprintf(out, "account created (type=%s time=%d memory=%dKiB)\n", params.Type, params.TimeCost, params.MemoryCost)
		return nil

	case "login":
		email, password, err := credentials(in, out)
		if err != nil {
			return err
		}
		cond, err := c.Login(ctx, email, password, nil)
		if err == nil && cond == models.AuthTOTPRequired {
			code, perr := prompt(in, out, "TOTP code: ")
			if perr != nil {
				return perr
			}
			totp, perr := strconv.Atoi(code)
			if perr != nil {
				return fmt.Errorf("invalid totp code: %w", perr)
			}
			cond, err = c.Login(ctx, email, password, &totp)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cond)
		return nil

	case "lists", "tags", "sessions":
		if err := unlock(ctx, c, in, out); err != nil {
			return err
		}
		if err := c.Load(ctx); err != nil {
			fmt.Fprintf(out, "warning: %v\n", err)
		}
		printResources(c, command, out)
		return nil

	case "calibrate":
		_, password, err := credentials(in, out)
		if err != nil {
			return err
		}
		params, err := c.Calibrate(ctx, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "type=%s time=%d memory=%dKiB threads=%d\n", params.Type, params.TimeCost, params.MemoryCost, params.Threads)
		return nil

	case "totp enable", "totp disable":
		password, err := prompt(in, out, "Password: ")
		if err != nil {
			return err
		}
		ok, err := c.Resume(ctx, password)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("not logged in")
		}
		if command == "totp disable" {
			if err = service.DisableTOTP(ctx, c.Auth, password); err != nil {
				return err
			}
			fmt.Fprintln(out, "two-factor codes disabled")
			return nil
		}
		info, err := service.EnableTOTP(ctx, c.Auth, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "secret: %s\nuri: %s\nbackup codes:\n", info.Secret, info.URI)
		for _, code := range info.BackupCodes {
			fmt.Fprintf(out, "  %08d\n", code)
		}
		return nil

	case "logout":
		if err := unlock(ctx, c, in, out); err != nil {
			return err
		}
		return c.Logout(ctx)

	default:
		return fmt.Errorf("unknown command\n%s", usage)
	}
}

// unlock resumes the persisted session with the master password.
func unlock(ctx context.Context, c *client.Client, in *bufio.Reader, out io.Writer) error {
	password, err := prompt(in, out, "Password: ")
	if err != nil {
		return err
	}
	ok, err := c.Resume(ctx, password)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("not logged in")
	}
	return nil
}

func printResources(c *client.Client, kind string, out io.Writer) {
	switch kind {
	case "lists":
		for _, r := range c.Lists.Visible(true, false) {
			fmt.Fprintf(out, "%s\t%s\t%d items\n", r.ID, r.Data.Title, len(r.Data.Items))
		}
	case "tags":
		for _, r := range c.Tags.Ordered() {
			fmt.Fprintf(out, "%s\t%s\n", r.ID, r.Data.Name)
		}
	case "sessions":
		for _, r := range c.Sessions.ByLastUse() {
			current := ""
			if r.Data.IsCurrent {
				current = "\t(current)"
			}
			fmt.Fprintf(out, "%s\tlevel %d%s\n", r.ID, r.Data.AuthLevel, current)
		}
	}
}

func credentials(in *bufio.Reader, out io.Writer) (string, string, error) {
	email, err := prompt(in, out, "Email: ")
	if err != nil {
		return "", "", err
	}
	password, err := prompt(in, out, "Password: ")
	if err != nil {
		return "", "", err
	}
	return email, password, nil
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.TrimSuffix(label, ": "))
	}
	return line, nil
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
