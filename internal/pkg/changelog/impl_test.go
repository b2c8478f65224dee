package changelog_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vreid/sweeper/internal/pkg/changelog"
)

func TestParseLog(t *testing.T) {
	t.Parallel()

	out := "abc1234|2025-01-02|Add leaderboard\n" +
		"\n" +
		"broken line\n" +
		"def5678|2025-01-01|Fix a | b\n" +
		"only|two\n"

	assert.Equal(t, []changelog.Commit{
		{Hash: "abc1234", Date: "2025-01-02", Message: "Add leaderboard"},
		{Hash: "def5678", Date: "2025-01-01", Message: "Fix a | b"},
	}, changelog.ParseLog(out))

	assert.Equal(t, []changelog.Commit{}, changelog.ParseLog(""))
}

func TestCommitsFallsBackToEmpty(t *testing.T) {
	t.Parallel()

	s := changelog.New(slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute,
		func(context.Context) ([]changelog.Commit, error) {
			return nil, errors.New("not a git repository")
		})

	assert.Equal(t, []changelog.Commit{}, s.Commits(context.Background()))
}

func TestCommitsCachesLoader(t *testing.T) {
	t.Parallel()

	calls := 0

	s := changelog.New(slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour,
		func(context.Context) ([]changelog.Commit, error) {
			calls++

			return []changelog.Commit{{Hash: "abc", Date: "2025-01-01", Message: "init"}}, nil
		})

	for range 3 {
		assert.Len(t, s.Commits(context.Background()), 1)
	}

	assert.Equal(t, 1, calls)
}

func TestGitLogOutsideRepository(t *testing.T) {
	t.Parallel()

	_, err := changelog.GitLog(t.TempDir())(context.Background())
	assert.Error(t, err)
}
