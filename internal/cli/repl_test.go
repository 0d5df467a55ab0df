package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	signedIn bool
	calls    []string
	lastArgs []string
}

func (f *fakeExec) isSignedIn() bool { return f.signedIn }
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.signedIn = true
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.signedIn = false
	return nil
}
func (f *fakeExec) Whoami(ctx context.Context) error {
	f.calls = append(f.calls, "whoami")
	return nil
}
func (f *fakeExec) Usage(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "usage")
	f.lastArgs = args
	return nil
}
func (f *fakeExec) Summary(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "summary")
	f.lastArgs = args
	return nil
}
func (f *fakeExec) Gen(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "gen")
	f.lastArgs = args
	return nil
}
func (f *fakeExec) Sync(ctx context.Context) error {
	f.calls = append(f.calls, "sync")
	return nil
}
func (f *fakeExec) ClearCache(ctx context.Context) error {
	f.calls = append(f.calls, "clearcache")
	return nil
}
func (f *fakeExec) ClearData(ctx context.Context) error {
	f.calls = append(f.calls, "cleardata")
	return nil
}

func runScript(t *testing.T, exec *fakeExec, lines ...string) {
	t.Helper()
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	sc := bufio.NewScanner(strings.NewReader(strings.Join(lines, "\n")))
	runREPL(context.Background(), exec, func() string { return "status" }, sc)
}

func TestRunREPL_SignInFlowAndCommands(t *testing.T) {
	exec := &fakeExec{}
	runScript(t, exec,
		"help",
		"login",
		"help",
		"whoami",
		"usage web",
		"summary 30",
		"gen 5",
		"sync",
		"clearcache",
		"nonsense",
		"logout",
		"exit",
	)

	assert.Equal(t, []string{
		"login", "whoami", "usage", "summary", "gen", "sync", "clearcache", "logout",
	}, exec.calls)
}

func TestRunREPL_CommandArgsPassedThrough(t *testing.T) {
	exec := &fakeExec{signedIn: true}
	runScript(t, exec, "summary 30", "exit")
	assert.Equal(t, []string{"30"}, exec.lastArgs)
}

func TestRunREPL_Aliases(t *testing.T) {
	exec := &fakeExec{signedIn: true}
	runScript(t, exec, "u", "s", "quit")
	assert.Equal(t, []string{"usage", "summary"}, exec.calls)
}

func TestRunREPL_EOFExits(t *testing.T) {
	exec := &fakeExec{}
	runScript(t, exec, "whoami")
	assert.Equal(t, []string{"whoami"}, exec.calls)
}

func TestRunREPL_BlankLinesIgnored(t *testing.T) {
	exec := &fakeExec{}
	runScript(t, exec, "", "   ", "whoami", "exit")
	assert.Equal(t, []string{"whoami"}, exec.calls)
}
