package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/blindvote/blindvote/internal/common"
	"github.com/blindvote/blindvote/internal/votecrypt"
)

// Vote walks the voter through casting: pick an election and option,
// confirm, then run the casting engine. The engine's execution log is
// shown afterwards so a failed attempt names the exact step it died at.
func (a *App) Vote(ctx context.Context) error {
	electionID, err := GetID(a.reader, "Enter election id", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return err
	}

	e, err := a.client.GetElection(ctx, electionID)
	if err != nil {
		fmt.Println("Could not load election:", err)
		return err
	}
	fmt.Printf("%s\n", e.Title)
	for _, o := range e.Options {
		fmt.Printf("  %d. [%d] %s\n", o.Order, o.ID, o.Text)
	}

	optionID, err := GetID(a.reader, "Enter option id", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return err
	}

	ok, err := Confirm(a.reader, "Cast this vote? It cannot be changed", os.Stdout)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Vote cancelled.")
		return nil
	}

	res, err := a.engine.Cast(ctx, electionID, optionID)
	for _, entry := range res.Log {
		if entry.Err != nil {
			fmt.Printf("  %-20s FAILED: %v\n", entry.Step, entry.Err)
		} else {
			fmt.Printf("  %-20s %s\n", entry.Step, entry.Detail)
		}
	}
	if err != nil {
		printCastError(err)
		return err
	}

	fmt.Println("Vote cast.")
	fmt.Printf("Receipt hash: %s\n", res.Receipt.ReceiptHash)
	fmt.Println("Keep the receipt hash: it proves participation without revealing your choice.")
	return nil
}

// printCastError explains the failure in terms of what the voter should
// do next: retry, stop, or escalate.
func printCastError(err error) {
	switch {
	case errors.Is(err, common.ErrNoPublicKey):
		fmt.Println("You have no registered public key. Run keygen, keyexport, keyregister first.")
	case errors.Is(err, common.ErrElectionNotOpen):
		fmt.Println("This election is not open for voting.")
	case errors.Is(err, common.ErrAlreadyVoted):
		fmt.Println("You have already voted in this election.")
	case errors.Is(err, common.ErrTokenNotSigned):
		fmt.Println("Token issuance failed: the election's signing key is misconfigured. Contact an administrator; retrying will not help.")
	case errors.Is(err, common.ErrNetwork):
		fmt.Println("Network failure. Check the receipt command before retrying: the vote may have been recorded.")
	default:
		fmt.Println("Vote failed:", err)
	}
}

// Receipt shows the voter's receipt for an election, preferring the local
// vault copy.
func (a *App) Receipt(ctx context.Context) error {
	electionID, err := GetID(a.reader, "Enter election id", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return err
	}

	r, err := a.engine.Receipt(ctx, electionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			fmt.Println("No receipt: you have not voted in this election.")
		} else {
			fmt.Println("Could not load receipt:", err)
		}
		return err
	}

	fmt.Printf("Receipt for election %d\n", r.ElectionID)
	fmt.Printf("  hash:      %s\n", r.ReceiptHash)
	fmt.Printf("  signature: %s\n", r.DigitalSignature)
	fmt.Printf("  voted at:  %s\n", r.VotedAt.Format("2006-01-02 15:04:05"))

	switch err := a.verifyReceipt(ctx, r.ReceiptHash, r.DigitalSignature); {
	case err == nil:
		fmt.Println("  signature verifies against your registered key")
	default:
		fmt.Println("  WARNING: signature does not verify:", err)
	}
	return nil
}

// The receipt is signed with the voter's own key at cast time, so it is
// checked against the public half stored in the vault.
func (a *App) verifyReceipt(ctx context.Context, receiptHash, signature string) error {
	pubPEM, err := a.keys.PublicKeyPEM(ctx)
	if err != nil {
		return err
	}
	pub, err := votecrypt.ParsePublicKeyPEM(pubPEM)
	if err != nil {
		return err
	}
	return votecrypt.VerifyReceiptSignature(pub, receiptHash, signature)
}

// TokenStatus shows the blind token state for an election.
func (a *App) TokenStatus(ctx context.Context) error {
	electionID, err := GetID(a.reader, "Enter election id", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return err
	}

	t, err := a.client.TokenStatus(ctx, electionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			fmt.Println("No token issued for this election yet.")
		} else {
			fmt.Println("Could not load token status:", err)
		}
		return err
	}

	fmt.Printf("Token %d for election %d\n", t.ID, t.ElectionID)
	fmt.Printf("  signed:  %t\n", t.IsSigned)
	fmt.Printf("  used:    %t\n", t.IsUsed)
	fmt.Printf("  created: %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
	if t.UsedAt != nil {
		fmt.Printf("  used at: %s\n", t.UsedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
