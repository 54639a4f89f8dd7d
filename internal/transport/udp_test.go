package transport

import (
	"net"
	"testing"
	"time"
)

func TestUDPFramingHeaderStrippedOnReceive(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer serverConn.Close()

	tr, err := DialUDP("udp", serverConn.LocalAddr().String(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()
	<-tr.Events() // CONNECTED

	if err := tr.Write([]byte("get foo\r\n")); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 1024)
	n, addr, err := serverConn.ReadFromUDP(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != udpHeaderSize+len("get foo\r\n") {
		t.Fatalf("datagram length = %d, want header+payload", n)
	}
	if buf[5] != 1 {
		t.Fatalf("framing byte[5] = %d, want 1", buf[5])
	}

	reply := make([]byte, udpHeaderSize+5)
	reply[5] = 1
	copy(reply[udpHeaderSize:], "END\r\n")
	if _, err := serverConn.WriteToUDP(reply, addr); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-tr.Events():
		if ev != EventReadable {
			t.Fatalf("event = %v, want READABLE", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for READABLE")
	}
	if got := string(tr.Buffered()); got != "END\r\n" {
		t.Fatalf("Buffered() = %q, want END\\r\\n (framing header stripped)", got)
	}
}
