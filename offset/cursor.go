// Package offset tracks physical page windows over a remote collection and
// encodes logical result offsets as opaque cursors.
//
// A cursor marks the position of the next element in a query's result
// sequence, so a caller can resume an evaluation with Skip(DecodeCursor(c)).
package offset

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/friendsofgo/errors"
)

const cursorPrefix = "cursor:offset:"

// EncodeCursor encodes an offset as a base64 string of "cursor:offset:NUMBER".
func EncodeCursor(offset int) *string {
	encoded := base64.URLEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
	return &encoded
}

// ParseCursor decodes a cursor produced by EncodeCursor.
func ParseCursor(input string) (int, error) {
	decoded, err := base64.URLEncoding.DecodeString(input)
	if err != nil {
		return 0, errors.Wrap(err, "invalid cursor: not base64")
	}

	data, ok := strings.CutPrefix(string(decoded), cursorPrefix)
	if !ok {
		return 0, errors.New("invalid cursor: missing offset prefix")
	}

	offset, err := strconv.ParseInt(data, 10, 32)
	if err != nil {
		return 0, errors.Wrap(err, "invalid cursor")
	}
	if offset < 0 {
		return 0, errors.Errorf("invalid cursor: negative offset %d", offset)
	}

	return int(offset), nil
}

// DecodeCursor is the lenient form of ParseCursor. It returns 0 for a nil or
// malformed cursor.
func DecodeCursor(input *string) int {
	if input == nil {
		return 0
	}

	offset, err := ParseCursor(*input)
	if err != nil {
		return 0
	}
	return offset
}
