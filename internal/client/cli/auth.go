package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/daybook/internal/client/scheduler"
	"github.com/iudanet/daybook/internal/client/storage"
)

func (c *Cli) registerCommand() *cobra.Command {
	var passwordFile string
	cmd := &cobra.Command{
		Use:   "register [username]",
		Short: "Create an account on the sync server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRegister(cmd.Context(), args, passwordFile)
		},
	}
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "read the password from a file")
	return cmd
}

func (c *Cli) loginCommand() *cobra.Command {
	var (
		passwordFile string
		noSync       bool
	)
	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Sign in and synchronize",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLogin(cmd.Context(), args, passwordFile, !noSync)
		},
	}
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "read the password from a file")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "do not synchronize after sign in")
	return cmd
}

func (c *Cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out; local data and pending edits are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLogout(cmd.Context())
		},
	}
}

func (c *Cli) runRegister(ctx context.Context, args []string, passwordFile string) error {
	username, err := c.username(args)
	if err != nil {
		return err
	}

	password, err := c.password(passwordFile, true)
	if err != nil {
		return err
	}

	userID, err := c.rt.Auth.Register(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Println(styleOK.Render("✓ Registration successful"))
	c.io.Printf("Username: %s\n", username)
	c.io.Printf("User ID:  %s\n", userID)
	c.io.Println()
	c.io.Println("Run 'daybook login' to start synchronizing.")
	return nil
}

func (c *Cli) runLogin(ctx context.Context, args []string, passwordFile string, syncAfter bool) error {
	username, err := c.username(args)
	if err != nil {
		return err
	}

	password, err := c.password(passwordFile, false)
	if err != nil {
		return err
	}

	authData, err := c.rt.Auth.Login(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Println(styleOK.Render("✓ Logged in as " + authData.Username))

	if !syncAfter {
		return nil
	}

	// Ошибка синхронизации не отменяет вход: правки остаются в журнале
	results, err := c.rt.Sync.ReconcileAll(ctx, scheduler.ReasonLogin)
	c.printResults(results)
	if err != nil {
		c.io.Println(styleWarn.Render("Sync after login failed: " + err.Error()))
	}
	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	current, err := c.rt.Auth.Current(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			c.io.Println("Not logged in.")
			return nil
		}
		return fmt.Errorf("failed to read session: %w", err)
	}

	if err := c.rt.Auth.Logout(ctx); err != nil {
		return err
	}
	c.io.Printf("Logged out %s. Local data is kept on this device.\n", current.Username)
	return nil
}

func (c *Cli) username(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return "", fmt.Errorf("failed to read username: %w", err)
	}
	return username, nil
}

// password читает пароль с приоритетом:
// 1. переменная окружения DAYBOOK_PASSWORD
// 2. файл --password-file
// 3. интерактивный ввод (при регистрации с подтверждением)
func (c *Cli) password(passwordFile string, confirm bool) (string, error) {
	if env := os.Getenv(PasswordEnv); env != "" {
		return env, nil
	}

	if passwordFile != "" {
		content, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", errors.New("password file is empty")
		}
		return password, nil
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if !confirm {
		return password, nil
	}

	again, err := c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	if password != again {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}
