package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/blindvote/blindvote/internal/common"
)

func openTestVault(t *testing.T) *Vault {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "vault.db")
	v, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		t.Fatalf("tableExists query failed: %v", err)
	}
	return n > 0
}

func TestOpen_AppliesMigrations(t *testing.T) {
	v := openTestVault(t)

	for _, table := range []string{"goose_db_version", "metadata", "blinding_secrets", "receipts"} {
		if !tableExists(t, v.DB, table) {
			t.Errorf("expected table %s to exist", table)
		}
	}
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "vault.db")

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("sql.Open error: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("RunMigrations (first) error: %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("RunMigrations (second) should be idempotent, got error: %v", err)
	}
}

func TestMetadata_RoundTrip(t *testing.T) {
	ctx := context.Background()
	v := openTestVault(t)

	got, err := v.Metadata.Get(ctx, KeyPrivateKeyPEM)
	if err != nil || got != nil {
		t.Fatalf("missing key: want nil, nil; got %v, %v", got, err)
	}

	if err := v.Metadata.Set(ctx, KeyPrivateKeyPEM, []byte("pem-data")); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	got, err = v.Metadata.Get(ctx, KeyPrivateKeyPEM)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(got) != "pem-data" {
		t.Fatalf("unexpected value: %q", got)
	}

	if err := v.Metadata.Set(ctx, KeyPrivateKeyPEM, []byte("pem-data-2")); err != nil {
		t.Fatalf("Set (overwrite) error: %v", err)
	}
	got, _ = v.Metadata.Get(ctx, KeyPrivateKeyPEM)
	if string(got) != "pem-data-2" {
		t.Fatalf("overwrite did not stick: %q", got)
	}

	if err := v.Metadata.Delete(ctx, KeyPrivateKeyPEM); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	got, err = v.Metadata.Get(ctx, KeyPrivateKeyPEM)
	if err != nil || got != nil {
		t.Fatalf("deleted key: want nil, nil; got %v, %v", got, err)
	}
}

func TestSecrets_SaveGetUpdate(t *testing.T) {
	ctx := context.Background()
	v := openTestVault(t)

	_, err := v.Secrets.Get(ctx, 1)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}

	secret := &VoteSecret{
		ElectionID: 1,
		Token:      "token-abc",
		RHex:       "0badc0de",
		CreatedAt:  time.Now(),
	}
	if err := v.Secrets.Save(ctx, secret); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := v.Secrets.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Token != "token-abc" || got.RHex != "0badc0de" || got.UnblindedSignature != nil {
		t.Fatalf("unexpected secret: %+v", got)
	}

	if err := v.Secrets.SetUnblindedSignature(ctx, 1, "sig-111"); err != nil {
		t.Fatalf("SetUnblindedSignature error: %v", err)
	}
	got, _ = v.Secrets.Get(ctx, 1)
	if got.UnblindedSignature == nil || *got.UnblindedSignature != "sig-111" {
		t.Fatalf("signature not persisted: %+v", got)
	}

	if err := v.Secrets.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := v.Secrets.Get(ctx, 1); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound after delete, got %v", err)
	}
}

func TestSecrets_SetSignatureOnMissingRow(t *testing.T) {
	ctx := context.Background()
	v := openTestVault(t)

	err := v.Secrets.SetUnblindedSignature(ctx, 42, "sig")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestReceipts_SaveGet(t *testing.T) {
	ctx := context.Background()
	v := openTestVault(t)

	_, err := v.Receipts.Get(ctx, 1)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}

	votedAt := time.Unix(1700000000, 0)
	rec := &StoredReceipt{
		ElectionID:  1,
		ReceiptHash: "rhash",
		Signature:   "rsig",
		VoteHash:    "vhash",
		VotedAt:     votedAt,
	}
	if err := v.Receipts.Save(ctx, rec); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := v.Receipts.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.ReceiptHash != "rhash" || got.VoteHash != "vhash" || !got.VotedAt.Equal(votedAt) {
		t.Fatalf("unexpected receipt: %+v", got)
	}
}
