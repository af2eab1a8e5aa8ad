package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"postwriter/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Facebook session cookie",
	Long: `Manage the stored Facebook session securely.

The session is stored using:
  - System keychain (when available)
  - Encrypted file with scrypt key derivation
  - Environment variable (POSTWRITER_SESSION_COOKIE, read-only)

Never share your session cookie or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a Facebook session cookie securely",
	Long: `Store a Facebook session cookie in the system keychain or an
encrypted file.

To get the cookie value:
1. Log into Facebook in your browser
2. Open Developer Tools (F12)
3. Go to Application/Storage > Cookies
4. Copy the full cookie header for facebook.com`,
	Example: `  postwriter auth login`,
	RunE:    runLogin,
}

// showCmd represents the auth show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored session (sanitized)",
	RunE:  runShow,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(showCmd)
	authCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	cookie, err := auth.PromptSecret("Session cookie: ")
	if err != nil {
		return err
	}
	if strings.TrimSpace(cookie) == "" {
		return fmt.Errorf("session cookie cannot be empty")
	}

	fmt.Print("User agent (press Enter for default): ")
	reader := bufio.NewReader(os.Stdin)
	userAgent, _ := reader.ReadString('\n')

	session := &auth.Session{
		Cookie:    strings.TrimSpace(cookie),
		UserAgent: strings.TrimSpace(userAgent),
	}
	if err := manager.Store(session); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	fmt.Println("Session stored.")
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	session, err := manager.Retrieve()
	if err != nil {
		if err == auth.ErrNotFound {
			fmt.Println("No session stored.")
			return nil
		}
		return err
	}

	fmt.Printf("Cookie:     %s\n", sanitize(session.Cookie))
	if session.UserAgent != "" {
		fmt.Printf("User agent: %s\n", session.UserAgent)
	}
	if !session.LastModified.IsZero() {
		fmt.Printf("Stored:     %s\n", session.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	if err := manager.Delete(); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	fmt.Println("Session removed.")
	return nil
}

// sanitize keeps only the edges of a secret visible.
func sanitize(s string) string {
	if len(s) <= 12 {
		return strings.Repeat("*", len(s))
	}
	return s[:6] + "..." + s[len(s)-4:]
}
