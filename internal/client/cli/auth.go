package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/blindvote/blindvote/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a username, display name and password and creates
// an account. The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	displayName, err := getSimpleText(a.reader, "Enter display name", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.client.Register(ctx, username, displayName, string(password)); err != nil {
		fmt.Println("Registration failed:", err)
		return err
	}

	fmt.Println("Success! You can now log in.")
	return nil
}

// Login prompts for credentials, authenticates, and loads the voter
// profile. The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.client.Login(ctx, username, string(password)); err != nil {
		fmt.Println("Login failed:", err)
		return err
	}

	profile, err := a.client.Me(ctx)
	if err != nil {
		fmt.Println("Could not load profile:", err)
		return err
	}
	a.profile = profile

	fmt.Printf("Logged in as %s\n", profile.Username)
	if !profile.HasPublicKey {
		fmt.Println("No public key registered yet. Run keygen, keyexport, then keyregister before voting.")
	}
	return nil
}

func (a *App) Logout(context.Context) error {
	a.profile = nil
	fmt.Println("Logged out.")
	return nil
}
