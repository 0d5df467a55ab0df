package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
)

func (a *App) getStatus() string {
	if user := a.sessions.CurrentUser(); user != nil {
		return fmt.Sprintf("(%s)", user.Email)
	}
	return "(signed out)"
}

// Root runs the interactive loop on stdin until the user exits.
func (a *App) Root(ctx context.Context) {
	fmt.Println("Welcome to usagevault (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
