// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"voicepiano/internal/analysis"
	"voicepiano/internal/fft"
)

// captureSender keeps every datagram.
type captureSender struct {
	mu      sync.Mutex
	packets [][]byte
}

func (c *captureSender) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packets = append(c.packets, append([]byte(nil), data...))
	return nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.packets)
}

func testFrame() analysis.FrameResult {
	return analysis.FrameResult{
		Index:    7,
		Spectrum: fft.Spectrum{0, 12.5, 255, 40},
		Peaks:    []int{2},
		Notes:    []analysis.NoteEvent{{Note: 41, Amplitude: 0.6}, {Note: 48, Amplitude: 0.2}},
	}
}

func TestNewPublisherErrors(t *testing.T) {
	if _, err := NewPublisher(time.Millisecond, nil); err == nil {
		t.Error("nil sender should fail")
	}
	p, err := NewPublisher(0, &captureSender{})
	if err != nil {
		t.Fatal(err)
	}
	if p.interval != 16*time.Millisecond {
		t.Errorf("default interval = %v, want 16ms", p.interval)
	}
}

func TestPublisherPacketRoundTrip(t *testing.T) {
	sender := &captureSender{}
	p, err := NewPublisher(time.Second, sender)
	if err != nil {
		t.Fatal(err)
	}

	p.ObserveFrame(650*time.Millisecond, testFrame())
	p.publish()

	if sender.count() != 1 {
		t.Fatalf("sent %d packets, want 1", sender.count())
	}
	pkt, err := ParsePacket(sender.packets[0])
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}

	if pkt.Sequence != 1 {
		t.Errorf("Sequence = %d, want 1", pkt.Sequence)
	}
	if pkt.FrameIndex != 7 {
		t.Errorf("FrameIndex = %d, want 7", pkt.FrameIndex)
	}
	if pkt.At != 650*time.Millisecond {
		t.Errorf("At = %v, want 650ms", pkt.At)
	}
	if pkt.Timestamp == 0 {
		t.Error("Timestamp not set")
	}
	if len(pkt.Notes) != 2 || pkt.Notes[0] != 41 || pkt.Notes[1] != 48 {
		t.Errorf("Notes = %v, want [41 48]", pkt.Notes)
	}
	want := []float32{0, 12.5, 255, 40}
	if len(pkt.Spectrum) != len(want) {
		t.Fatalf("Spectrum = %v, want %v", pkt.Spectrum, want)
	}
	for i := range want {
		if pkt.Spectrum[i] != want[i] {
			t.Errorf("Spectrum[%d] = %v, want %v", i, pkt.Spectrum[i], want[i])
		}
	}
}

func TestPublisherSkipsUnchangedFrame(t *testing.T) {
	sender := &captureSender{}
	p, _ := NewPublisher(time.Second, sender)

	p.publish()
	if sender.count() != 0 {
		t.Fatal("published without a frame")
	}

	p.ObserveFrame(0, testFrame())
	p.publish()
	p.publish()
	if sender.count() != 1 {
		t.Errorf("sent %d packets, want 1", sender.count())
	}
}

func TestParsePacketShort(t *testing.T) {
	sender := &captureSender{}
	p, _ := NewPublisher(time.Second, sender)
	p.ObserveFrame(0, testFrame())
	p.publish()

	full := sender.packets[0]
	for _, n := range []int{0, 10, len(full) - 1} {
		if _, err := ParsePacket(full[:n]); !errors.Is(err, ErrShortPacket) {
			t.Errorf("ParsePacket(%d bytes) error = %v, want ErrShortPacket", n, err)
		}
	}
}

func TestPublisherStartStop(t *testing.T) {
	sender := &captureSender{}
	p, _ := NewPublisher(time.Millisecond, sender)

	p.ObserveFrame(0, testFrame())
	p.Start()
	p.Start() // no-op while running

	deadline := time.Now().Add(2 * time.Second)
	for sender.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}
	if sender.count() != 1 {
		t.Errorf("sent %d packets, want 1", sender.count())
	}
}

func TestSenderOverLoopback(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("loopback UDP unavailable: %v", err)
	}
	defer listener.Close()

	sender, err := NewSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	p, _ := NewPublisher(time.Second, sender)
	p.ObserveFrame(0, testFrame())
	p.publish()

	buf := make([]byte, 2048)
	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	pkt, err := ParsePacket(buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	if pkt.FrameIndex != 7 {
		t.Errorf("FrameIndex = %d, want 7", pkt.FrameIndex)
	}

	if err := sender.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sender.Send([]byte{1}); err == nil {
		t.Error("Send after Close should fail")
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestNewSenderBadAddress(t *testing.T) {
	if _, err := NewSender("not an address"); err == nil {
		t.Error("NewSender should reject a malformed address")
	}
}
