package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/blindvote/blindvote/internal/client/keys"
)

// KeyGenerate creates a fresh signing keypair in the vault. An existing
// key is only replaced after explicit confirmation.
func (a *App) KeyGenerate(ctx context.Context) error {
	state, err := a.keys.State(ctx)
	if err != nil {
		return err
	}
	if state != keys.StateNoKey {
		ok, err := Confirm(a.reader, "A keypair already exists. Replace it?", os.Stdout)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Keeping the existing keypair.")
			return nil
		}
		if err := a.keys.Reset(ctx); err != nil {
			return err
		}
	}

	if err := a.keys.Generate(ctx); err != nil {
		fmt.Println("Key generation failed:", err)
		return err
	}
	fmt.Println("Keypair generated. Export the private key with keyexport before registering.")
	return nil
}

// KeyExport writes the private key to a file the voter controls.
func (a *App) KeyExport(ctx context.Context) error {
	path, err := getSimpleText(a.reader, "Enter file path for the private key", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.keys.Export(ctx, path); err != nil {
		if errors.Is(err, keys.ErrNoKey) {
			fmt.Println("No keypair yet. Run keygen first.")
		} else {
			fmt.Println("Export failed:", err)
		}
		return err
	}
	fmt.Printf("Private key written to %s. Keep this file safe; it never leaves your machine otherwise.\n", path)
	return nil
}

// KeyRegister sends the public key to the server after explicit
// confirmation that the private key has been saved.
func (a *App) KeyRegister(ctx context.Context) error {
	ok, err := Confirm(a.reader, "Have you saved the exported private key?", os.Stdout)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Register cancelled. Export the private key first.")
		return nil
	}

	if err := a.keys.Register(ctx); err != nil {
		switch {
		case errors.Is(err, keys.ErrNoKey):
			fmt.Println("No keypair yet. Run keygen first.")
		case errors.Is(err, keys.ErrKeyNotExported):
			fmt.Println("Private key not exported yet. Run keyexport first.")
		default:
			fmt.Println("Registration failed:", err)
		}
		return err
	}

	if a.profile != nil {
		a.profile.HasPublicKey = true
	}
	fmt.Println("Public key registered. You can vote now.")
	return nil
}

func (a *App) KeyStatus(ctx context.Context) error {
	state, err := a.keys.State(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Key workflow state:", state)
	return nil
}
