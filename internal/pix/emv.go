package pix

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrFieldTooLong is returned when a TLV value exceeds 99 bytes.
var ErrFieldTooLong = errors.New("pix: field value longer than 99 bytes")

// ErrMalformed is returned when a payload cannot be decoded.
var ErrMalformed = errors.New("pix: malformed payload")

// Field is a single EMV tag-length-value entry.
type Field struct {
	Tag   string
	Value string
}

// EncodeField renders tag + 2-digit decimal length + value. Length counts bytes.
func EncodeField(tag, value string) (string, error) {
	if len(tag) != 2 {
		return "", fmt.Errorf("pix: tag %q must have two characters", tag)
	}
	if len(value) > 99 {
		return "", fmt.Errorf("%w: tag %s has %d bytes", ErrFieldTooLong, tag, len(value))
	}
	return fmt.Sprintf("%s%02d%s", tag, len(value), value), nil
}

// EncodeFields concatenates fields in order.
func EncodeFields(fields ...Field) (string, error) {
	var b strings.Builder
	for _, f := range fields {
		enc, err := EncodeField(f.Tag, f.Value)
		if err != nil {
			return "", err
		}
		b.WriteString(enc)
	}
	return b.String(), nil
}

// DecodeFields splits a TLV sequence into fields.
func DecodeFields(s string) ([]Field, error) {
	var out []Field
	for i := 0; i < len(s); {
		if i+4 > len(s) {
			return nil, fmt.Errorf("%w: truncated header at %d", ErrMalformed, i)
		}
		tag := s[i : i+2]
		n, err := strconv.Atoi(s[i+2 : i+4])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: bad length for tag %s", ErrMalformed, tag)
		}
		start := i + 4
		if start+n > len(s) {
			return nil, fmt.Errorf("%w: tag %s overruns payload", ErrMalformed, tag)
		}
		out = append(out, Field{Tag: tag, Value: s[start : start+n]})
		i = start + n
	}
	return out, nil
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
