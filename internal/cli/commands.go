package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/mkarpov/usagevault/internal/models"
	"github.com/mkarpov/usagevault/internal/offline"
	"github.com/mkarpov/usagevault/internal/repositories/records"
	"github.com/mkarpov/usagevault/internal/stats"
)

// Login prompts for credentials and signs the user in.
func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", os.Stdout)
	if err != nil {
		return err
	}
	secret, err := GetPassword(os.Stdout, "API key or password")
	if err != nil {
		return err
	}
	remember, err := GetYesNo(a.reader, "Stay signed in on this device?", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.sessions.Login(ctx, email, secret, remember); err != nil {
		fmt.Println("Login failed:", err)
		return err
	}
	fmt.Println("Signed in as", email)
	return nil
}

// Logout signs the user out and removes remembered credentials.
func (a *App) Logout(ctx context.Context) error {
	if err := a.sessions.Logout(ctx); err != nil {
		fmt.Println("Logout failed:", err)
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

// Whoami prints the signed-in user.
func (a *App) Whoami(ctx context.Context) error {
	user := a.sessions.CurrentUser()
	if user == nil {
		fmt.Println("Not signed in.")
		return nil
	}
	fmt.Printf("%s (signed in %s)\n", user.Email, user.SignedInAt.Format("2006-01-02 15:04"))
	return nil
}

// Usage lists recent usage records, optionally filtered by source.
func (a *App) Usage(ctx context.Context, args []string) error {
	f := records.Filter{}
	if len(args) > 0 {
		f.Source = models.Source(args[0])
		if !f.Source.Valid() {
			fmt.Println("Unknown source:", args[0], "(want web, code or manual)")
			return nil
		}
	}

	recs, err := a.usage.Query(ctx, f)
	if err != nil {
		fmt.Println("Query failed:", err)
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No usage recorded yet. Try 'gen' to create sample data.")
		return nil
	}

	for _, r := range recs {
		fmt.Printf("%6d  %s  %-6s  %-18s  %8d tok  $%.4f\n",
			r.ID, r.Timestamp.Format("2006-01-02 15:04"), r.Source, r.Model, r.Tokens, r.Cost)
	}

	total, err := a.usage.Count(ctx)
	if err != nil {
		fmt.Println("Count failed:", err)
		return err
	}
	fmt.Printf("%d of %d record(s) shown.\n", len(recs), total)
	return nil
}

// Summary prints an aggregated view of the last N days (default 7).
func (a *App) Summary(ctx context.Context, args []string) error {
	days := 7
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			fmt.Println("Usage: summary [days]")
			return nil
		}
		days = n
	}

	sum, err := a.usage.Summary(ctx, days)
	if err != nil {
		fmt.Println("Summary failed:", err)
		return err
	}

	fmt.Printf("Last %d day(s): %d calls, %d tokens, $%.4f\n",
		sum.Days, sum.Calls, sum.TotalTokens, sum.TotalCost)
	for _, model := range sortedKeys(sum.ByModel) {
		fmt.Printf("  %-18s %10d tok\n", model, sum.ByModel[model])
	}
	return nil
}

// Gen fabricates sample usage records (default 20 over 7 days).
func (a *App) Gen(ctx context.Context, args []string) error {
	n := 20
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			fmt.Println("Usage: gen [count]")
			return nil
		}
		n = v
	}

	generator := stats.NewGenerator(int64(os.Getpid()) + int64(n))
	recorded, err := a.usage.RecordAll(ctx, generator.Generate(n, 7))
	if err != nil {
		fmt.Printf("Generated %d of %d records before an error: %v\n", recorded, n, err)
		return err
	}
	fmt.Printf("Generated %d records.\n", recorded)
	return nil
}

// Sync replays queued offline writes now.
func (a *App) Sync(ctx context.Context) error {
	reply, err := a.worker.Send(ctx, offline.MsgSyncTrigger)
	if err != nil {
		return err
	}
	if reply.Err != nil {
		fmt.Println("Sync incomplete:", reply.Err)
		return reply.Err
	}
	fmt.Println("Sync complete.")
	return nil
}

// ClearCache wipes the HTTP response caches.
func (a *App) ClearCache(ctx context.Context) error {
	reply, err := a.worker.Send(ctx, offline.MsgClearCache)
	if err != nil {
		return err
	}
	if reply.Err != nil {
		fmt.Println("Cache clear failed:", reply.Err)
		return reply.Err
	}
	fmt.Println("Caches cleared.")
	return nil
}

// ClearData wipes every stored collection after confirmation.
func (a *App) ClearData(ctx context.Context) error {
	sure, err := GetYesNo(a.reader, "Delete ALL local data, including credentials?", os.Stdout)
	if err != nil {
		return err
	}
	if !sure {
		fmt.Println("Aborted.")
		return nil
	}

	if err := a.sessions.Logout(ctx); err != nil {
		fmt.Println("Warning: logout failed:", err)
	}
	if err := a.store.ClearAll(ctx); err != nil {
		fmt.Println("Wipe failed:", err)
		return err
	}
	fmt.Println("All local data deleted.")
	return nil
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
