package cli

import (
	"context"
	"fmt"
	"os"
)

// Elections lists the elections currently accepting or awaiting votes.
func (a *App) Elections(ctx context.Context) error {
	list, err := a.client.ListActiveElections(ctx)
	if err != nil {
		fmt.Println("Could not list elections:", err)
		return err
	}
	if len(list) == 0 {
		fmt.Println("No active elections.")
		return nil
	}
	for _, e := range list {
		fmt.Printf("[%d] %s (%s) %s - %s\n",
			e.ID, e.Title, e.State,
			e.StartDate.Format("2006-01-02 15:04"),
			e.EndDate.Format("2006-01-02 15:04"))
	}
	return nil
}

// ShowElection prints one election with its options.
func (a *App) ShowElection(ctx context.Context) error {
	id, err := GetID(a.reader, "Enter election id", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return err
	}

	e, err := a.client.GetElection(ctx, id)
	if err != nil {
		fmt.Println("Could not load election:", err)
		return err
	}

	fmt.Printf("[%d] %s (%s)\n", e.ID, e.Title, e.State)
	if e.Description != nil && *e.Description != "" {
		fmt.Println(*e.Description)
	}
	fmt.Printf("Voting window: %s - %s\n",
		e.StartDate.Format("2006-01-02 15:04"),
		e.EndDate.Format("2006-01-02 15:04"))
	for _, o := range e.Options {
		fmt.Printf("  %d. [%d] %s\n", o.Order, o.ID, o.Text)
	}
	return nil
}

// Results prints the tally for an election.
func (a *App) Results(ctx context.Context) error {
	id, err := GetID(a.reader, "Enter election id", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return err
	}

	r, err := a.client.Results(ctx, id)
	if err != nil {
		fmt.Println("Could not load results:", err)
		return err
	}

	fmt.Printf("Total votes: %d\n", r.TotalVotes)
	for _, o := range r.Options {
		marker := ""
		if o.Winner {
			marker = "  <- winner"
		}
		fmt.Printf("  %-30s %5d  %5.1f%%%s\n", o.OptionText, o.Count, o.Percent, marker)
	}
	if r.Tie {
		fmt.Println("The election is tied.")
	}
	return nil
}

// Audit prints the token ledger summary, optionally per election.
func (a *App) Audit(ctx context.Context) error {
	if !a.isAdmin() {
		fmt.Println("Audit requires an admin account.")
		return nil
	}

	text, err := getSimpleText(a.reader, "Enter election id (empty for all)", os.Stdout)
	if err != nil {
		return err
	}
	var electionID *int64
	if text != "" {
		id, err := parseID(text)
		if err != nil {
			fmt.Println(err)
			return err
		}
		electionID = &id
	}

	report, err := a.client.AuditTokens(ctx, electionID)
	if err != nil {
		fmt.Println("Audit failed:", err)
		return err
	}

	fmt.Printf("Tokens: total=%d signed=%d used=%d unsigned_anomalous=%d\n",
		report.Summary["total"], report.Summary["signed"],
		report.Summary["used"], report.Summary["unsigned_anomalous"])
	if n := report.Summary["unsigned_anomalous"]; n > 0 {
		fmt.Printf("WARNING: %d unsigned token(s) indicate an institution key failure during issuance.\n", n)
	}
	for _, tok := range report.Tokens {
		fmt.Printf("  token %d voter=%d election=%d signed=%t used=%t\n",
			tok.ID, tok.VoterID, tok.ElectionID, tok.IsSigned, tok.IsUsed)
	}
	return nil
}
