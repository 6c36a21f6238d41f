package rmiproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	cmd := ParseCommand([]byte("UPLOAD /tmp/f 128"))
	assert.Equal(t, "UPLOAD", cmd.Verb)
	assert.Equal(t, []string{"/tmp/f", "128"}, cmd.Args)
}

func TestParseCommandTabSeparated(t *testing.T) {
	cmd := ParseCommand([]byte("LIST\t/sdcard"))
	assert.Equal(t, "LIST", cmd.Verb)
	assert.Equal(t, []string{"/sdcard"}, cmd.Args)
}

func TestParseCommandEmpty(t *testing.T) {
	cmd := ParseCommand(nil)
	assert.Equal(t, "", cmd.Verb)
	assert.Nil(t, cmd.Args)
}

func TestEncodeParseListingRoundTrip(t *testing.T) {
	entries := []FileEntry{
		{Name: "bin", IsDir: true},
		{Name: "hello.txt", Size: 5},
	}
	payload := EncodeListing(entries)
	assert.Equal(t, "D\tbin\nF\thello.txt\t5\n", string(payload))

	parsed := ParseListing(payload)
	assert.Equal(t, entries, parsed)
}

func TestParseListingSkipsMalformed(t *testing.T) {
	payload := []byte("D\tbin\nnonsense\nF\t\t5\nF\thello.txt\t5\n")
	parsed := ParseListing(payload)
	assert.Equal(t, []FileEntry{
		{Name: "bin", IsDir: true},
		{Name: "hello.txt", Size: 5},
	}, parsed)
}

func TestEncodeListingSkipsTabInName(t *testing.T) {
	payload := EncodeListing([]FileEntry{{Name: "bad\tname"}, {Name: "ok"}})
	assert.Equal(t, "F\tok\t0\n", string(payload))
}

func TestFormatParseVersionRoundTrip(t *testing.T) {
	payload := FormatVersion(42)
	assert.Equal(t, "VERSION 42", string(payload))

	n, err := ParseVersion(payload)
	assert.NoError(t, err)
	assert.EqualValues(t, 42, n)
}

func TestParseVersionLeadingZeros(t *testing.T) {
	n, err := ParseVersion([]byte("VERSION 007"))
	assert.NoError(t, err)
	assert.EqualValues(t, 7, n)
}

func TestParseVersionTrailingGarbageRejected(t *testing.T) {
	_, err := ParseVersion([]byte("VERSION 42x"))
	assert.Error(t, err)
}

func TestParseVersionMissingPrefixRejected(t *testing.T) {
	_, err := ParseVersion([]byte("42"))
	assert.Error(t, err)
}

func TestCredentialsEqual(t *testing.T) {
	a := Credentials{Username: "l16", Password: "l16"}
	b := Credentials{Username: "l16", Password: "l16"}
	c := Credentials{Username: "l16", Password: "wrong"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
