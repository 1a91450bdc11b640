// Package keys drives the voter key workflow: generate a keypair, export
// the private key to the voter's control, then register the public key
// with the server. Registration is gated on the export step so a voter
// cannot end up with a registered public key whose private half was never
// saved.
package keys

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/blindvote/blindvote/internal/client/store"
	"github.com/blindvote/blindvote/internal/filex"
	"github.com/blindvote/blindvote/internal/votecrypt"
)

// Registrar is the slice of the API client the workflow needs.
type Registrar interface {
	RegisterPublicKey(ctx context.Context, publicKeyPEM string) error
}

type State string

const (
	StateNoKey      State = "no_key"
	StateGenerated  State = "generated"
	StateDownloaded State = "downloaded"
	StateRegistered State = "registered"
)

var (
	ErrNoKey          = errors.New("no keypair generated")
	ErrKeyNotExported = errors.New("private key not exported yet")
)

type Workflow struct {
	metadata store.MetadataRepository
	client   Registrar
}

func NewWorkflow(metadata store.MetadataRepository, client Registrar) *Workflow {
	return &Workflow{metadata: metadata, client: client}
}

func (w *Workflow) State(ctx context.Context) (State, error) {
	raw, err := w.metadata.Get(ctx, store.KeyKeyState)
	if err != nil {
		return "", err
	}
	if raw == nil {
		return StateNoKey, nil
	}
	return State(raw), nil
}

// Generate creates a fresh keypair and stores it in the vault, discarding
// any previous key material.
func (w *Workflow) Generate(ctx context.Context) error {
	privatePEM, publicPEM, err := votecrypt.GenerateKeyPairPEM()
	if err != nil {
		return err
	}
	if err := w.metadata.Set(ctx, store.KeyPrivateKeyPEM, []byte(privatePEM)); err != nil {
		return err
	}
	if err := w.metadata.Set(ctx, store.KeyPublicKeyPEM, []byte(publicPEM)); err != nil {
		return err
	}
	return w.setState(ctx, StateGenerated)
}

// Export writes the private key to path with owner-only permissions and
// advances the workflow past the export gate.
func (w *Workflow) Export(ctx context.Context, path string) error {
	state, err := w.State(ctx)
	if err != nil {
		return err
	}
	if state == StateNoKey {
		return ErrNoKey
	}

	raw, err := w.metadata.Get(ctx, store.KeyPrivateKeyPEM)
	if err != nil {
		return err
	}
	if raw == nil {
		return ErrNoKey
	}
	if err := filex.WriteSensitiveFile(path, raw); err != nil {
		return fmt.Errorf("failed to export private key: %w", err)
	}

	if state == StateGenerated {
		return w.setState(ctx, StateDownloaded)
	}
	return nil
}

// Register sends the public key to the server. It refuses to run before
// the private key has been exported.
func (w *Workflow) Register(ctx context.Context) error {
	state, err := w.State(ctx)
	if err != nil {
		return err
	}
	switch state {
	case StateNoKey:
		return ErrNoKey
	case StateGenerated:
		return ErrKeyNotExported
	}

	raw, err := w.metadata.Get(ctx, store.KeyPublicKeyPEM)
	if err != nil {
		return err
	}
	if raw == nil {
		return ErrNoKey
	}
	if err := w.client.RegisterPublicKey(ctx, string(raw)); err != nil {
		return err
	}
	return w.setState(ctx, StateRegistered)
}

// PrivateKey returns the voter's stored private key. The casting engine
// uses it to sign receipt hashes.
func (w *Workflow) PrivateKey(ctx context.Context) (*rsa.PrivateKey, error) {
	raw, err := w.metadata.Get(ctx, store.KeyPrivateKeyPEM)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNoKey
	}
	return votecrypt.ParsePrivateKeyPEM(string(raw))
}

func (w *Workflow) PublicKeyPEM(ctx context.Context) (string, error) {
	raw, err := w.metadata.Get(ctx, store.KeyPublicKeyPEM)
	if err != nil {
		return "", err
	}
	if raw == nil {
		return "", ErrNoKey
	}
	return string(raw), nil
}

// Reset discards the stored key material and returns the workflow to the
// initial state.
func (w *Workflow) Reset(ctx context.Context) error {
	if err := w.metadata.Delete(ctx, store.KeyPrivateKeyPEM); err != nil {
		return err
	}
	if err := w.metadata.Delete(ctx, store.KeyPublicKeyPEM); err != nil {
		return err
	}
	return w.metadata.Delete(ctx, store.KeyKeyState)
}

func (w *Workflow) setState(ctx context.Context, state State) error {
	return w.metadata.Set(ctx, store.KeyKeyState, []byte(state))
}
