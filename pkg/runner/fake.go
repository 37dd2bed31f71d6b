package runner

import (
	"context"
	"sync"

	"github.com/openfroyo/tfsync/pkg/engine"
)

// Fake is an in-memory Runner. Responses are keyed by the quoted command
// line; unknown commands fail with an external process error.
type Fake struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	calls     []Command
}

type fakeResponse struct {
	stdout []byte
	err    error
}

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{responses: make(map[string]fakeResponse)}
}

// On registers the output of the command args.
func (f *Fake) On(stdout string, args ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[Join(args)] = fakeResponse{stdout: []byte(stdout)}
	return f
}

// Fail registers err as the outcome of the command args.
func (f *Fake) Fail(err error, args ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[Join(args)] = fakeResponse{err: err}
	return f
}

// Run implements Runner.
func (f *Fake) Run(ctx context.Context, cmd Command) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, cmd)
	if err := ctx.Err(); err != nil {
		return nil, engine.NewCancelledError(err)
	}

	response, ok := f.responses[cmd.String()]
	if !ok {
		return nil, engine.NewExternalProcessError(cmd.String(), errUnexpected)
	}
	if response.err != nil {
		return nil, response.err
	}
	return &Result{Stdout: response.stdout}, nil
}

// Calls returns the commands run so far.
func (f *Fake) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

// Count returns how many times the command args ran.
func (f *Fake) Count(args ...string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := Join(args)
	n := 0
	for _, c := range f.calls {
		if c.String() == line {
			n++
		}
	}
	return n
}

type fakeError string

func (e fakeError) Error() string { return string(e) }

const errUnexpected = fakeError("unexpected command")
