package certifier

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrEmptySecret    = errors.New("signature secret must not be empty")
	ErrMalformedBoard = errors.New("malformed board")
)

// Strict rejects tokens whose trailing bits were altered without changing the decoded bytes.
var tokenEncoding = base64.RawURLEncoding.Strict()

type Certifier struct {
	secret []byte
}

func New(secret []byte) (*Certifier, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	return &Certifier{
		secret: append([]byte(nil), secret...),
	}, nil
}

func CheckShape(board Board, size int) error {
	if size < 1 {
		return fmt.Errorf("%w: size %d is not positive", ErrMalformedBoard, size)
	}

	if len(board) != size {
		return fmt.Errorf("%w: %d rows for size %d", ErrMalformedBoard, len(board), size)
	}

	for r, row := range board {
		if len(row) != size {
			return fmt.Errorf("%w: row %d has %d cells for size %d", ErrMalformedBoard, r, len(row), size)
		}
	}

	return nil
}

// Canonicalize serializes board and size into the exact bytes the MAC covers.
func Canonicalize(board Board, size int) ([]byte, error) {
	err := CheckShape(board, size)
	if err != nil {
		return nil, err
	}

	marshaled, err := json.Marshal(signedBoard{
		Board: board,
		Size:  size,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBoard, err)
	}

	return marshaled, nil
}

func (c *Certifier) mac(board Board, size int) ([]byte, error) {
	canonical, err := Canonicalize(board, size)
	if err != nil {
		return nil, err
	}

	h := hmac.New(sha256.New, c.secret)
	h.Write(canonical)

	return h.Sum(nil), nil
}

func (c *Certifier) Sign(board Board, size int) (string, error) {
	sum, err := c.mac(board, size)
	if err != nil {
		return "", err
	}

	return tokenEncoding.EncodeToString(sum), nil
}

func (c *Certifier) Verify(board Board, size int, token string) bool {
	provided, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return false
	}

	expected, err := c.mac(board, size)
	if err != nil {
		return false
	}

	return hmac.Equal(provided, expected)
}
