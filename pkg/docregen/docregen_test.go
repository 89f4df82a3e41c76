//go:build !integration

package docregen

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gh-download/ghpipe/pkg/pipeline"
	"github.com/gh-download/ghpipe/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commentDoc = `# gh-download

Usage:

<!-- CODE:BASH:START -->
<!-- echo "ghdl --help" -->
<!-- CODE:END -->
<!-- OUTPUT:START -->
stale output
<!-- OUTPUT:END -->

Done.
`

const fencedDoc = "# Tool\n\n" +
	"```python markdown-code-runner\n" +
	"print('hi')\n" +
	"```\n\n" +
	"<!-- OUTPUT:START -->\n" +
	"<!-- OUTPUT:END -->\n" +
	"\n" +
	"```bash\n" +
	"<!-- CODE:START -->\n" +
	"```\n"

// echoExecutor returns a fixed output per language and counts calls.
func echoExecutor(calls *int) Executor {
	return ExecutorFunc(func(_ context.Context, block Block) (string, error) {
		*calls++
		return "ran " + block.Language + ": " + block.Code + "\n", nil
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    []Block
		wantErr string
	}{
		{
			name: "comment style",
			doc:  commentDoc,
			want: []Block{{Language: "bash", Code: `echo "ghdl --help"`, Style: StyleComment, Line: 5}},
		},
		{
			name: "fenced style ignores markers quoted in plain fences",
			doc:  fencedDoc,
			want: []Block{{Language: "python", Code: "print('hi')", Style: StyleFenced, Line: 3}},
		},
		{
			name: "multi-line python",
			doc:  "<!-- CODE:START -->\n<!-- x = 1 -->\n<!-- print(x) -->\n<!-- CODE:END -->\n<!-- OUTPUT:START -->\n<!-- OUTPUT:END -->\n",
			want: []Block{{Language: "python", Code: "x = 1\nprint(x)", Style: StyleComment, Line: 1}},
		},
		{
			name: "no blocks",
			doc:  "# plain\n",
		},
		{
			name:    "missing output section",
			doc:     "<!-- CODE:START -->\n<!-- print(1) -->\n<!-- CODE:END -->\ntext\n",
			wantErr: "not followed by an <!-- OUTPUT:START --> section",
		},
		{
			name:    "unterminated code",
			doc:     "<!-- CODE:START -->\n<!-- print(1) -->\n",
			wantErr: "has no <!-- CODE:END --> marker",
		},
		{
			name:    "unterminated output",
			doc:     "<!-- CODE:START -->\n<!-- print(1) -->\n<!-- CODE:END -->\n<!-- OUTPUT:START -->\n",
			wantErr: "has no <!-- OUTPUT:END --> marker",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks, err := Parse([]byte(tt.doc))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, blocks, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].Language, blocks[i].Language)
				assert.Equal(t, tt.want[i].Code, blocks[i].Code)
				assert.Equal(t, tt.want[i].Style, blocks[i].Style)
				assert.Equal(t, tt.want[i].Line, blocks[i].Line)
			}
		})
	}
}

func TestRegenerate(t *testing.T) {
	calls := 0
	out, n, err := Regenerate(context.Background(), []byte(commentDoc), echoExecutor(&calls))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, calls)

	want := strings.Replace(commentDoc, "stale output\n", GeneratedWarning+"\nran bash: echo \"ghdl --help\"\n", 1)
	assert.Equal(t, want, string(out))

	again, _, err := Regenerate(context.Background(), out, echoExecutor(&calls))
	require.NoError(t, err)
	assert.Equal(t, string(out), string(again), "regeneration must be idempotent")
}

func TestRegenerateFencedEmptyOutput(t *testing.T) {
	executor := ExecutorFunc(func(context.Context, Block) (string, error) { return "", nil })
	out, _, err := Regenerate(context.Background(), []byte(fencedDoc), executor)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<!-- OUTPUT:START -->\n"+GeneratedWarning+"\n<!-- OUTPUT:END -->")
}

func TestRegenerateKeepsLineEndings(t *testing.T) {
	calls := 0
	crlf := strings.ReplaceAll(commentDoc, "\n", "\r\n")
	out, _, err := Regenerate(context.Background(), []byte(crlf), echoExecutor(&calls))
	require.NoError(t, err)

	want := strings.Replace(commentDoc, "stale output\n", GeneratedWarning+"\nran bash: echo \"ghdl --help\"\n", 1)
	assert.Equal(t, strings.ReplaceAll(want, "\n", "\r\n"), string(out))

	again, _, err := Regenerate(context.Background(), out, echoExecutor(&calls))
	require.NoError(t, err)
	assert.Equal(t, string(out), string(again))
}

func TestRegenerateKeepsIndentation(t *testing.T) {
	doc := "- Usage:\n\n" +
		"  <!-- CODE:BASH:START -->\n" +
		"  <!-- echo hi -->\n" +
		"  <!-- CODE:END -->\n" +
		"  <!-- OUTPUT:START -->\n" +
		"  <!-- OUTPUT:END -->\n"
	executor := ExecutorFunc(func(context.Context, Block) (string, error) {
		return "line one\r\n\nline two\n", nil
	})

	out, _, err := Regenerate(context.Background(), []byte(doc), executor)
	require.NoError(t, err)
	assert.Equal(t, "- Usage:\n\n"+
		"  <!-- CODE:BASH:START -->\n"+
		"  <!-- echo hi -->\n"+
		"  <!-- CODE:END -->\n"+
		"  <!-- OUTPUT:START -->\n"+
		"  "+GeneratedWarning+"\n"+
		"  line one\n"+
		"\n"+
		"  line two\n"+
		"  <!-- OUTPUT:END -->\n", string(out))

	again, _, err := Regenerate(context.Background(), out, executor)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(again))
}

func TestRegenerateFailureAborts(t *testing.T) {
	boom := errors.New("exit status 2")
	executor := ExecutorFunc(func(context.Context, Block) (string, error) { return "", boom })

	_, _, err := Regenerate(context.Background(), []byte(commentDoc), executor)
	require.ErrorIs(t, err, boom)

	var blockErr *BlockError
	require.ErrorAs(t, err, &blockErr)
	assert.Equal(t, 5, blockErr.Line)
}

func TestRegenerateFile(t *testing.T) {
	dir := testutil.TempDir(t, "ghpipe-regen-*")
	path := testutil.WriteFile(t, dir, "README.md", commentDoc)
	calls := 0

	dry, err := RegenerateFile(context.Background(), path, echoExecutor(&calls), true)
	require.NoError(t, err)
	assert.True(t, dry.Changed)
	onDisk, _ := os.ReadFile(path)
	assert.Equal(t, commentDoc, string(onDisk), "dry run must not write")

	first, err := RegenerateFile(context.Background(), path, echoExecutor(&calls), false)
	require.NoError(t, err)
	assert.True(t, first.Changed)
	info, err := os.Stat(path)
	require.NoError(t, err)
	modTime := info.ModTime()

	second, err := RegenerateFile(context.Background(), path, echoExecutor(&calls), false)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, modTime, info.ModTime(), "unchanged files are not rewritten")
}

func TestRegenerateFileFailureLeavesFileUntouched(t *testing.T) {
	dir := testutil.TempDir(t, "ghpipe-regen-*")
	path := testutil.WriteFile(t, dir, "README.md", commentDoc)
	executor := ExecutorFunc(func(context.Context, Block) (string, error) { return "", errors.New("boom") })

	_, err := RegenerateFile(context.Background(), path, executor, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)

	onDisk, _ := os.ReadFile(path)
	assert.Equal(t, commentDoc, string(onDisk))
}

func TestShellExecutor(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
	t.Setenv("TERM", "xterm-256color")

	e := NewShellExecutor(t.TempDir(), pipeline.DefaultDisplayEnv(), false)
	out, err := e.Execute(context.Background(), Block{Language: "bash", Code: `echo "$TERM $NO_COLOR"`})
	require.NoError(t, err)
	assert.Equal(t, "dumb 1\n", out)

	_, err = e.Execute(context.Background(), Block{Language: "bash", Code: "echo oops >&2; exit 3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")

	_, err = e.Execute(context.Background(), Block{Language: "ruby", Code: "puts 1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported block language")
}

func TestWatch(t *testing.T) {
	dir := testutil.TempDir(t, "ghpipe-watch-*")
	path := testutil.WriteFile(t, dir, "README.md", "# one\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func() error {
			select {
			case changed <- struct{}{}:
			default:
			}
			return nil
		}, func(error) {})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("# two\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatchIgnoresOwnWrites(t *testing.T) {
	dir := testutil.TempDir(t, "ghpipe-watch-*")
	path := testutil.WriteFile(t, dir, "README.md", "# one\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func() error {
			calls <- struct{}{}
			return os.WriteFile(path, []byte("# regenerated\n"), 0o644)
		}, func(error) {})
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("# two\n"), 0o644))

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
	// The regeneration's own write must not trigger another run.
	time.Sleep(time.Second)
	assert.Empty(t, calls)

	cancel()
	require.NoError(t, <-done)
}
