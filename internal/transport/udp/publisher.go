// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"voicepiano/internal/analysis"
	"voicepiano/internal/log"
	"voicepiano/internal/piano"
)

// PacketSender delivers one datagram.
type PacketSender interface {
	Send(data []byte) error
}

// Publisher keeps the most recent analysed frame and sends it over UDP at a
// fixed interval. Frames that arrive faster than the interval are
// coalesced; an unchanged frame is not resent.
type Publisher struct {
	sender   PacketSender
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	// Latest frame, guarded by frameMu.
	frameMu sync.Mutex
	latest  Packet
	pending bool

	sequenceNum  uint32
	packetBuffer *bytes.Buffer
	f32Buffer    []float32
}

// NewPublisher creates a publisher sending through sender. An interval of
// zero or less defaults to 16ms (~60Hz).
func NewPublisher(interval time.Duration, sender PacketSender) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDP publisher: sender cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		log.Warnf("UDP: Invalid interval provided, defaulting to %s", interval)
	}
	log.Infof("UDP: Publisher initialised (interval: %s)", interval)

	return &Publisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// ObserveFrame records res as the next frame to publish.
func (p *Publisher) ObserveFrame(at time.Duration, res analysis.FrameResult) {
	p.frameMu.Lock()
	defer p.frameMu.Unlock()

	p.latest.FrameIndex = uint32(res.Index)
	p.latest.At = at
	p.latest.Spectrum = p.latest.Spectrum[:0]
	for _, v := range res.Spectrum {
		p.latest.Spectrum = append(p.latest.Spectrum, float32(v))
	}
	p.latest.Notes = p.latest.Notes[:0]
	for _, ev := range res.Notes {
		p.latest.Notes = append(p.latest.Notes, uint8(ev.Note))
	}
	p.pending = true
}

// Start begins the periodic publishing. Subsequent calls are no-ops while
// running.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("UDP: Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Local copies keep the goroutine off p.ticker/p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
// Safe to call more than once.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	log.Infof("UDP: Publisher stopped after %d packets", p.sequenceNum)
	return nil
}

/*
UDP packet layout (big endian):

	+-----------------+--------+----------------------------------+
	| Field           | Type   | Description                      |
	+-----------------+--------+----------------------------------+
	| Sequence number | uint32 | monotonically increasing         |
	| Timestamp       | int64  | nanoseconds since epoch          |
	| Frame index     | uint32 | index of the analysed frame      |
	| Offset          | int64  | frame offset from playback start |
	| Note count      | uint8  | M                                |
	| Notes           | uint8  | M key indices, ascending         |
	| Level count     | uint16 | N                                |
	| Levels          | float32| N spectrum levels                |
	+-----------------+--------+----------------------------------+
*/

// Packet is the decoded form of one datagram.
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	FrameIndex uint32
	At         time.Duration
	Notes      []uint8
	Spectrum   []float32
}

// publish sends the pending frame, if any.
func (p *Publisher) publish() {
	p.frameMu.Lock()
	if !p.pending {
		p.frameMu.Unlock()
		return
	}
	p.pending = false
	p.sequenceNum++
	pkt := p.latest
	pkt.Sequence = p.sequenceNum
	pkt.Timestamp = time.Now().UnixNano()
	err := p.encode(pkt)
	p.frameMu.Unlock()

	if err != nil {
		log.Errorf("UDP: Error packing frame: %v", err)
		return
	}
	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		log.Debugf("UDP: Sent packet %d (%d bytes)", pkt.Sequence, p.packetBuffer.Len())
	}
}

// encode writes pkt into the reusable packet buffer.
func (p *Publisher) encode(pkt Packet) error {
	if len(pkt.Spectrum) > 0xFFFF {
		return fmt.Errorf("spectrum too long: %d levels", len(pkt.Spectrum))
	}
	if len(pkt.Notes) > analysis.NumKeys {
		return fmt.Errorf("too many notes: %d", len(pkt.Notes))
	}

	buf := p.packetBuffer
	buf.Reset()
	fields := []any{
		pkt.Sequence,
		pkt.Timestamp,
		pkt.FrameIndex,
		int64(pkt.At),
		uint8(len(pkt.Notes)),
		pkt.Notes,
		uint16(len(pkt.Spectrum)),
		pkt.Spectrum,
	}
	for _, f := range fields {
		if err := binary.Write(buf, binary.BigEndian, f); err != nil {
			return err
		}
	}
	return nil
}

// ErrShortPacket is returned by ParsePacket for truncated datagrams.
var ErrShortPacket = errors.New("short UDP packet")

// ParsePacket decodes a datagram produced by Publisher.
func ParsePacket(data []byte) (Packet, error) {
	var (
		pkt       Packet
		at        int64
		noteCount uint8
		levels    uint16
	)
	r := bytes.NewReader(data)
	read := func(v any) error {
		if err := binary.Read(r, binary.BigEndian, v); err != nil {
			return fmt.Errorf("%w: %v", ErrShortPacket, err)
		}
		return nil
	}

	for _, v := range []any{&pkt.Sequence, &pkt.Timestamp, &pkt.FrameIndex, &at, &noteCount} {
		if err := read(v); err != nil {
			return Packet{}, err
		}
	}
	pkt.At = time.Duration(at)
	pkt.Notes = make([]uint8, noteCount)
	if err := read(pkt.Notes); err != nil {
		return Packet{}, err
	}
	if err := read(&levels); err != nil {
		return Packet{}, err
	}
	pkt.Spectrum = make([]float32, levels)
	if err := read(pkt.Spectrum); err != nil {
		return Packet{}, err
	}
	return pkt, nil
}

// Close stops the publisher.
func (p *Publisher) Close() error {
	return p.Stop()
}

var (
	_ piano.FrameObserver        = (*Publisher)(nil)
	_ interface{ Close() error } = (*Publisher)(nil)
	_ PacketSender               = (*Sender)(nil)
)
