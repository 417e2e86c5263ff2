/**
 * @description
 * Terminal client for the Polaris starter backend.
 * A thin set of screens over the client facade: magic-code login, a profile
 * settings screen, and live views of the user collection and own profile.
 * The facade owns every transport and auth detail; this binary only renders.
 *
 * @dependencies
 * - backend/client: the shared facade
 * - golang.org/x/term: no-echo entry of the emailed code
 */

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/polaris-starter/backend/client"
	"github.com/polaris-starter/backend/internal/logger"
)

func main() {
	baseURL := flag.String("url", envOr("POLARIS_URL", "http://localhost:8080"), "backend origin")
	appID := flag.String("app-id", os.Getenv("POLARIS_APP_ID"), "application id")
	bypass := flag.Bool("bypass-auth", os.Getenv("AUTH_BYPASS") == "true", "skip auth against a bypassed backend")
	flag.Parse()

	c := client.New(client.Config{
		BaseURL:    *baseURL,
		AppID:      *appID,
		Token:      loadToken(),
		BypassAuth: *bypass,
	})

	ctx := context.Background()
	stdin := bufio.NewReader(os.Stdin)

	// Back to the login screen whenever the session ends, from any screen
	stopRedirect := c.RedirectSignedOut(func() {
		fmt.Println("\nSession ended. Sign in again to continue.")
	})
	defer stopRedirect()

	for {
		state := c.GetAuth(ctx)
		switch {
		case *bypass || state.SignedIn():
			if done := profileScreen(ctx, c, stdin); done {
				saveToken(c.Token())
				return
			}
		case state.Status == client.AuthFailed:
			logger.Error("Could not reach the backend: %v", state.Err)
			return
		default:
			if done := loginScreen(ctx, c, stdin); done {
				return
			}
			saveToken(c.Token())
		}
	}
}

// loginScreen drives the magic-code flow; returns true to quit
func loginScreen(ctx context.Context, c *client.Client, stdin *bufio.Reader) bool {
	fmt.Println("== Sign in ==")
	email := prompt(stdin, "Email (empty to quit): ")
	if email == "" {
		return true
	}

	if err := c.SendMagicCode(ctx, email); err != nil {
		fmt.Printf("Could not send the code: %v\n", err)
		return false
	}
	fmt.Println("A sign-in code is on its way to", email)

	fmt.Print("Code: ")
	rawCode, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Printf("Could not read the code: %v\n", err)
		return false
	}

	user, err := c.SignInWithMagicCode(ctx, email, strings.TrimSpace(string(rawCode)))
	if err != nil {
		fmt.Printf("Sign-in failed: %v\n", err)
		return false
	}
	if user.Email != nil {
		fmt.Println("Signed in as", *user.Email)
	}
	return false
}

// profileScreen shows and edits the signed-in user's profile; returns true
// to quit
func profileScreen(ctx context.Context, c *client.Client, stdin *bufio.Reader) bool {
	profile, err := c.EnsureProfile(ctx)
	if err != nil {
		fmt.Printf("Could not load your profile: %v\n", err)
		return true
	}
	if profile == nil {
		fmt.Println("The backend returned no profile.")
		return true
	}

	for {
		fmt.Println("\n== Profile ==")
		fmt.Printf("  First name: %s\n", orDash(profile.FirstName))
		fmt.Printf("  Last name:  %s\n", orDash(profile.LastName))
		fmt.Println("Commands: [e]dit, [u]sers, [w]atch, [g]reet, [s]ign out, [q]uit")

		switch prompt(stdin, "> ") {
		case "e":
			first := prompt(stdin, "First name (empty clears): ")
			last := prompt(stdin, "Last name (empty clears): ")
			updated, err := c.UpdateProfile(ctx, first, last)
			if err != nil {
				fmt.Printf("Update failed: %v\n", err)
				continue
			}
			if updated != nil {
				profile = updated
			}
		case "u":
			users, err := c.ListUsers(ctx)
			if err != nil {
				fmt.Printf("Could not list users: %v\n", err)
				continue
			}
			fmt.Printf("%d users:\n", len(users))
			for _, user := range users {
				if user.Email != nil {
					fmt.Println("  -", *user.Email)
				}
			}
		case "w":
			watchUsers(ctx, c, stdin)
		case "g":
			name := prompt(stdin, "Name: ")
			greeting, err := c.Hello(ctx, name)
			if err != nil {
				fmt.Printf("Call failed: %v\n", err)
				continue
			}
			fmt.Println(greeting)
		case "s":
			if err := c.SignOut(ctx); err != nil {
				fmt.Printf("Sign-out hiccup: %v\n", err)
			}
			saveToken("")
			return false
		case "q":
			return true
		}
	}
}

// watchUsers renders the live user collection until Enter is pressed
func watchUsers(ctx context.Context, c *client.Client, stdin *bufio.Reader) {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	snapshots, stop := c.WatchUsers(watchCtx)
	defer stop()

	fmt.Println("Watching users (press Enter to stop)...")
	go func() {
		for snapshot := range snapshots {
			switch {
			case snapshot.Loading:
				fmt.Println("  loading...")
			case snapshot.Err != nil:
				fmt.Printf("  stream error: %v (retrying)\n", snapshot.Err)
			default:
				fmt.Printf("  %d users\n", len(snapshot.Data))
			}
		}
	}()

	_, _ = stdin.ReadString('\n')
}

func prompt(stdin *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

func orDash(value *string) string {
	if value == nil || *value == "" {
		return "-"
	}
	return *value
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// The session token persists between runs next to the user's config
func tokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".polaris", "session")
}

func loadToken() string {
	path := tokenPath()
	if path == "" {
		return ""
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func saveToken(token string) {
	path := tokenPath()
	if path == "" {
		return
	}
	if token == "" {
		_ = os.Remove(path)
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return
	}
	_ = os.WriteFile(path, []byte(token), 0o600)
}
