package protocol

import (
	"encoding/binary"
	"testing"
)

func TestEncodeBinaryGetRoundTrip(t *testing.T) {
	req := EncodeBinaryGet("foo")
	if len(req) != headerSize+3 {
		t.Fatalf("len = %d, want %d", len(req), headerSize+3)
	}
	if req[hdrMagicOff] != magicRequest || req[hdrOpcodeOff] != OpcodeGet {
		t.Fatalf("bad header: % x", req[:headerSize])
	}
	if string(req[headerSize:]) != "foo" {
		t.Fatalf("key = %q, want foo", req[headerSize:])
	}
}

func TestEncodeBinarySetBodyLen(t *testing.T) {
	req := EncodeBinarySet("foo", []byte("bar"))
	bodyLen := binary.BigEndian.Uint32(req[hdrBodyLenOff:])
	wantBody := setExtrasSize + len("foo") + len("bar")
	if int(bodyLen) != wantBody {
		t.Fatalf("body_len = %d, want %d", bodyLen, wantBody)
	}
	if len(req) != headerSize+wantBody {
		t.Fatalf("len = %d, want %d", len(req), headerSize+wantBody)
	}
}

func TestDecodeBinaryIncomplete(t *testing.T) {
	buf := make([]byte, headerSize-1)
	_, ok, err := DecodeBinary(buf)
	if ok || err != nil {
		t.Fatalf("expected ok=false, err=nil for a short header, got ok=%v err=%v", ok, err)
	}
}

func TestDecodeBinaryWaitsForBody(t *testing.T) {
	buf := make([]byte, headerSize)
	binary.BigEndian.PutUint32(buf[hdrBodyLenOff:], 10)
	_, ok, err := DecodeBinary(buf)
	if ok || err != nil {
		t.Fatalf("expected ok=false, err=nil while body is still arriving, got ok=%v err=%v", ok, err)
	}
}

func TestDecodeBinaryGetHit(t *testing.T) {
	buf := make([]byte, headerSize+3)
	buf[hdrMagicOff] = magicResponse
	buf[hdrOpcodeOff] = OpcodeGet
	binary.BigEndian.PutUint32(buf[hdrBodyLenOff:], 3)
	copy(buf[headerSize:], "bar")

	d, ok, err := DecodeBinary(buf)
	if !ok || err != nil {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if d.Op != OpGet || d.Miss || string(d.Value) != "bar" || d.NBytes != headerSize+3 {
		t.Fatalf("got %+v", d)
	}
}

func TestDecodeBinaryGetMiss(t *testing.T) {
	buf := make([]byte, headerSize)
	buf[hdrMagicOff] = magicResponse
	buf[hdrOpcodeOff] = OpcodeGet
	binary.BigEndian.PutUint16(buf[hdrStatusOff:], 1)

	d, ok, err := DecodeBinary(buf)
	if !ok || err != nil {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if d.Op != OpGet || !d.Miss {
		t.Fatalf("got %+v", d)
	}
}

func TestDecodeBinarySASLFailure(t *testing.T) {
	buf := make([]byte, headerSize)
	buf[hdrMagicOff] = magicResponse
	buf[hdrOpcodeOff] = OpcodeSASLAuth
	binary.BigEndian.PutUint16(buf[hdrStatusOff:], 1)

	d, ok, err := DecodeBinary(buf)
	if !ok {
		t.Fatal("expected ok=true: a full message was present")
	}
	if err != ErrSASLFailed {
		t.Fatalf("err = %v, want ErrSASLFailed", err)
	}
	if d.NBytes != headerSize {
		t.Fatalf("NBytes = %d, want %d", d.NBytes, headerSize)
	}
}

func TestDecodeBinaryUnknownOpcode(t *testing.T) {
	buf := make([]byte, headerSize)
	buf[hdrOpcodeOff] = 0x7f
	_, ok, err := DecodeBinary(buf)
	if ok || err != ErrMalformedResponse {
		t.Fatalf("ok=%v err=%v, want ok=false err=ErrMalformedResponse", ok, err)
	}
}
