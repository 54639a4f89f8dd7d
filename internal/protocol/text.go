package protocol

import (
	"bytes"
	"fmt"
	"strconv"
)

// crlf is the text protocol's line terminator.
var crlf = []byte("\r\n")

// EncodeTextGet encodes a GET request: "get <key>\r\n".
func EncodeTextGet(key string) []byte {
	return []byte(fmt.Sprintf("get %s\r\n", key))
}

// EncodeTextSet encodes a SET request: "set <key> 0 0 <len>\r\n<value>\r\n".
func EncodeTextSet(key string, value []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "set %s 0 0 %d\r\n", key, len(value))
	buf.Write(value)
	buf.Write(crlf)
	return buf.Bytes()
}

// EncodeTextDelete encodes a DELETE request: "delete <key>\r\n".
func EncodeTextDelete(key string) []byte {
	return []byte(fmt.Sprintf("delete %s\r\n", key))
}

// ReadLine scans buf for a CRLF-terminated line. It returns the line
// (excluding the CRLF), the number of bytes consumed (including the CRLF),
// and ok=true. If buf has no complete line yet, ok is false and line/n are
// zero.
func ReadLine(buf []byte) (line []byte, n int, ok bool) {
	idx := bytes.Index(buf, crlf)
	if idx < 0 {
		return nil, 0, false
	}
	return buf[:idx], idx + len(crlf), true
}

// IsEnd reports whether line is the literal "END" marker.
func IsEnd(line []byte) bool {
	return bytes.Equal(line, []byte("END"))
}

// ValueHeader is the parsed form of a text "VALUE <key> <flags> <len>" line.
type ValueHeader struct {
	Key    string
	Flags  uint32
	Length int
}

// ParseValueHeader parses a "VALUE <key> <flags> <len>" line. It returns
// ErrMalformedResponse if line is not a well-formed VALUE line.
func ParseValueHeader(line []byte) (ValueHeader, error) {
	fields := bytes.Fields(line)
	if len(fields) != 4 || string(fields[0]) != "VALUE" {
		return ValueHeader{}, ErrMalformedResponse
	}
	flags, err := strconv.ParseUint(string(fields[2]), 10, 32)
	if err != nil {
		return ValueHeader{}, ErrMalformedResponse
	}
	length, err := strconv.Atoi(string(fields[3]))
	if err != nil || length < 0 {
		return ValueHeader{}, ErrMalformedResponse
	}
	return ValueHeader{Key: string(fields[1]), Flags: uint32(flags), Length: length}, nil
}
