package changelog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/samber/do/v2"
	"github.com/vreid/sweeper/internal/pkg/common"
	"github.com/vreid/sweeper/internal/pkg/memo"
)

type Commit struct {
	Hash    string `json:"hash"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

type ChangelogService struct {
	Logger *slog.Logger

	commits *memo.Value[[]Commit]
}

func NewChangelogService(i do.Injector) (*ChangelogService, error) {
	dir := do.MustInvokeNamed[string](i, "changelog-dir")
	ttl := do.MustInvokeNamed[time.Duration](i, "changelog-ttl")
	logger := do.MustInvoke[*slog.Logger](i)

	return New(logger, ttl, GitLog(dir)), nil
}

func New(logger *slog.Logger, ttl time.Duration, load memo.Loader[[]Commit]) *ChangelogService {
	return &ChangelogService{
		Logger:  logger,
		commits: memo.New(ttl, load),
	}
}

// Commits never fails. Git errors are logged and the last good list, or an
// empty one, is returned.
func (s *ChangelogService) Commits(ctx context.Context) []Commit {
	commits, err := s.commits.Get(ctx)
	if err != nil {
		s.Logger.ErrorContext(ctx, "failed to get changelogs", common.Err(err))
	}

	if commits == nil {
		return []Commit{}
	}

	return commits
}

func GitLog(dir string) memo.Loader[[]Commit] {
	return func(ctx context.Context) ([]Commit, error) {
		var stdout, stderr bytes.Buffer

		cmd := exec.CommandContext(ctx, "git", "log", "--pretty=format:%h|%ad|%s", "--date=short")
		cmd.Dir = dir
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		err := cmd.Run()
		if err != nil {
			return nil, fmt.Errorf("git log failed: %w: %s", err, strings.TrimSpace(stderr.String()))
		}

		return ParseLog(stdout.String()), nil
	}
}

// ParseLog reads "hash|date|subject" lines. Lines with fewer than two
// separators are skipped; the subject may itself contain '|'.
func ParseLog(out string) []Commit {
	commits := []Commit{}

	for line := range strings.SplitSeq(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 3 {
			continue
		}

		commits = append(commits, Commit{
			Hash:    parts[0],
			Date:    parts[1],
			Message: parts[2],
		})
	}

	return commits
}
