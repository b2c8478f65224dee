package certifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/sweeper/internal/pkg/certifier"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func newBoard(size int, mines ...[2]int) certifier.Board {
	board := make(certifier.Board, size)
	for r := range board {
		board[r] = make([]bool, size)
	}

	for _, m := range mines {
		board[m[0]][m[1]] = true
	}

	return board
}

func newCertifier(t *testing.T, secret string) *certifier.Certifier {
	t.Helper()

	c, err := certifier.New([]byte(secret))
	require.NoError(t, err)

	return c
}

func TestNewRejectsEmptySecret(t *testing.T) {
	t.Parallel()

	_, err := certifier.New(nil)
	require.ErrorIs(t, err, certifier.ErrEmptySecret)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	c := newCertifier(t, "round-trip")

	for _, size := range []int{1, 9, 10, 17} {
		board := newBoard(size, [2]int{0, 0}, [2]int{size - 1, size - 1})

		token, err := c.Sign(board, size)
		require.NoError(t, err)
		assert.True(t, c.Verify(board, size, token), "size %d", size)
	}
}

func TestSignIsDeterministic(t *testing.T) {
	t.Parallel()

	c := newCertifier(t, "deterministic")

	a, err := c.Sign(newBoard(9, [2]int{3, 4}), 9)
	require.NoError(t, err)

	b, err := c.Sign(newBoard(9, [2]int{3, 4}), 9)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotContains(t, a, "=")
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	canonical, err := certifier.Canonicalize(newBoard(1, [2]int{0, 0}), 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"board":[[true]],"size":1}`, string(canonical))
	assert.Equal(t, `{"board":[[true]],"size":1}`, string(canonical))
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	t.Parallel()

	c := newCertifier(t, "tamper")
	board := newBoard(9, [2]int{1, 2})

	token, err := c.Sign(board, 9)
	require.NoError(t, err)

	for i := range len(token) {
		for _, ch := range []byte(alphabet) {
			if ch == token[i] {
				continue
			}

			tampered := []byte(token)
			tampered[i] = ch

			assert.False(t, c.Verify(board, 9, string(tampered)), "position %d char %c", i, ch)
		}
	}

	assert.False(t, c.Verify(board, 9, ""))
	assert.False(t, c.Verify(board, 9, token+"A"))
	assert.False(t, c.Verify(board, 9, token[:len(token)-1]))
	assert.False(t, c.Verify(board, 9, "not base64!"))
}

func TestVerifyRejectsTamperedBoard(t *testing.T) {
	t.Parallel()

	c := newCertifier(t, "tamper")
	board := newBoard(9, [2]int{1, 2})

	token, err := c.Sign(board, 9)
	require.NoError(t, err)

	for r := range 9 {
		for col := range 9 {
			tampered := newBoard(9, [2]int{1, 2})
			tampered[r][col] = !tampered[r][col]

			assert.False(t, c.Verify(tampered, 9, token), "cell %d,%d", r, col)
		}
	}
}

func TestVerifyRejectsTamperedSize(t *testing.T) {
	t.Parallel()

	c := newCertifier(t, "tamper")

	token, err := c.Sign(newBoard(9), 9)
	require.NoError(t, err)

	assert.False(t, c.Verify(newBoard(9), 10, token))
	assert.False(t, c.Verify(newBoard(10), 10, token))
	assert.False(t, c.Verify(newBoard(8), 8, token))
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	t.Parallel()

	board := newBoard(9, [2]int{4, 4})

	token, err := newCertifier(t, "one").Sign(board, 9)
	require.NoError(t, err)

	assert.False(t, newCertifier(t, "two").Verify(board, 9, token))
}

func TestSignRejectsMalformedBoard(t *testing.T) {
	t.Parallel()

	c := newCertifier(t, "malformed")

	ragged := newBoard(9)
	ragged[4] = ragged[4][:8]

	for name, tc := range map[string]struct {
		board certifier.Board
		size  int
	}{
		"zero size":     {board: certifier.Board{}, size: 0},
		"negative size": {board: newBoard(1), size: -1},
		"nil board":     {board: nil, size: 9},
		"too few rows":  {board: newBoard(8), size: 9},
		"ragged row":    {board: ragged, size: 9},
	} {
		_, err := c.Sign(tc.board, tc.size)
		require.ErrorIs(t, err, certifier.ErrMalformedBoard, name)
	}
}
