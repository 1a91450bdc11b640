// Package cli is the interactive voting client: a small REPL over the
// server API, the local vault and the casting engine.
package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/blindvote/blindvote/internal/client/api"
	"github.com/blindvote/blindvote/internal/client/config"
	"github.com/blindvote/blindvote/internal/client/engine"
	"github.com/blindvote/blindvote/internal/client/keys"
	"github.com/blindvote/blindvote/internal/client/store"
)

type App struct {
	config  *config.Config
	client  api.Client
	vault   *store.Vault
	keys    *keys.Workflow
	engine  *engine.Engine
	profile *api.Profile
	reader  *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	vault, err := store.Open(ctx, c.VaultPath)
	if err != nil {
		return nil, err
	}

	httpClient := api.NewHTTPClient(c.ServerEndpointAddr)
	httpClient.SetTimeout(c.RequestTimeout)

	workflow := keys.NewWorkflow(vault.Metadata, httpClient)
	return &App{
		config: c,
		client: httpClient,
		vault:  vault,
		keys:   workflow,
		engine: engine.NewEngine(httpClient, vault.Secrets, vault.Receipts, workflow),
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.vault.Close()

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

func (a *App) isLoggedIn() bool {
	return a.profile != nil
}

func (a *App) isAdmin() bool {
	return a.profile != nil && a.profile.IsAdmin
}

func (a *App) status() string {
	if a.profile == nil {
		return "not logged in"
	}
	if a.profile.IsAdmin {
		return a.profile.Username + " (admin)"
	}
	return a.profile.Username
}
