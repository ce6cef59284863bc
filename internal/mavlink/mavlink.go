// Package mavlink implements the subset of MAVLink 2 used on the gimbal
// serial link: frame marshalling, the X.25 checksum, a streaming parser
// that resynchronizes on garbage, and the message types of the mount
// control dialect.
//
// Signatures (incompat flag 0x01) are not supported; the gimbal link is a
// point-to-point serial cable.
package mavlink

import (
	"github.com/pkg/errors"
)

const (
	// Magic is the MAVLink 2 frame start marker.
	Magic = 0xFD

	headerLen   = 10 // magic .. msgid
	checksumLen = 2
	maxFrameLen = headerLen + 255 + checksumLen
)

// Frame is a single MAVLink 2 frame. Payload holds the wire payload,
// which may be shorter than the message definition because MAVLink 2
// truncates trailing zero bytes.
type Frame struct {
	Seq     uint8
	SysID   uint8
	CompID  uint8
	MsgID   uint32
	Payload []byte
}

// crcExtra seeds the checksum with a hash of the message definition so
// that sender and receiver disagree on the CRC if their dialects differ.
// Only the messages this driver exchanges are listed; frames with any
// other ID cannot be validated and are dropped by the parser.
var crcExtra = map[uint32]uint8{
	MsgIDHeartbeat:        50,
	MsgIDSysStatus:        124,
	MsgIDSystemTime:       137,
	MsgIDRawIMU:           144,
	MsgIDAttitude:         39,
	MsgIDCommandLong:      152,
	MsgIDCommandAck:       143,
	MsgIDMountStatus:      134,
	MsgIDMountOrientation: 26,
}

// crcAccumulate folds one byte into the X.25 checksum.
func crcAccumulate(b byte, crc uint16) uint16 {
	tmp := b ^ byte(crc&0xff)
	tmp ^= tmp << 4
	return (crc >> 8) ^ (uint16(tmp) << 8) ^ (uint16(tmp) << 3) ^ (uint16(tmp) >> 4)
}

func crcFrame(body []byte, extra uint8) uint16 {
	crc := uint16(0xffff)
	for _, b := range body {
		crc = crcAccumulate(b, crc)
	}
	return crcAccumulate(extra, crc)
}

// trimPayload drops trailing zero bytes per the MAVLink 2 truncation rule.
// At least one payload byte is always kept.
func trimPayload(p []byte) []byte {
	n := len(p)
	for n > 1 && p[n-1] == 0 {
		n--
	}
	return p[:n]
}

// Marshal encodes f into wire bytes. The payload is truncated per the
// MAVLink 2 rule. Frames with a message ID outside the supported dialect
// cannot be checksummed and are rejected.
func Marshal(f Frame) ([]byte, error) {
	extra, ok := crcExtra[f.MsgID]
	if !ok {
		return nil, errors.Errorf("mavlink: no CRC_EXTRA for message id %d", f.MsgID)
	}
	if len(f.Payload) > 255 {
		return nil, errors.Errorf("mavlink: payload too long: %d", len(f.Payload))
	}

	payload := trimPayload(f.Payload)
	buf := make([]byte, 0, headerLen+len(payload)+checksumLen)
	buf = append(buf,
		Magic,
		byte(len(payload)),
		0, // incompat flags
		0, // compat flags
		f.Seq,
		f.SysID,
		f.CompID,
		byte(f.MsgID),
		byte(f.MsgID>>8),
		byte(f.MsgID>>16),
	)
	buf = append(buf, payload...)
	crc := crcFrame(buf[1:], extra)
	return append(buf, byte(crc), byte(crc>>8)), nil
}

// PackFrame marshals a message into a framed byte slice.
func PackFrame(sysID, compID, seq uint8, m Message) ([]byte, error) {
	return Marshal(Frame{
		Seq:     seq,
		SysID:   sysID,
		CompID:  compID,
		MsgID:   m.MsgID(),
		Payload: m.Pack(),
	})
}

// Parser is a streaming MAVLink 2 decoder. Bytes are fed in as they
// arrive from the port; complete validated frames come back out. Input
// that does not frame or checksum is discarded one byte at a time until
// the stream locks again.
type Parser struct {
	buf []byte

	framesOK     uint64
	badCRC       uint64
	droppedBytes uint64
}

// Stats reports parser counters: validated frames, checksum failures and
// bytes discarded during resynchronization.
func (p *Parser) Stats() (framesOK, badCRC, droppedBytes uint64) {
	return p.framesOK, p.badCRC, p.droppedBytes
}

// Parse consumes data and returns any frames completed by it.
func (p *Parser) Parse(data []byte) []Frame {
	var frames []Frame
	for _, b := range data {
		if len(p.buf) == 0 && b != Magic {
			p.droppedBytes++
			continue
		}
		p.buf = append(p.buf, b)
		frames = p.drain(frames)
	}
	return frames
}

// drain emits every complete frame currently buffered. A frame that fails
// validation costs one byte of resynchronization, after which the
// remainder is rescanned, so one bad frame cannot shadow a good one
// behind it.
func (p *Parser) drain(frames []Frame) []Frame {
	for {
		if len(p.buf) < headerLen {
			return frames
		}
		want := headerLen + int(p.buf[1]) + checksumLen
		if len(p.buf) < want {
			return frames
		}
		if f := p.finish(want); f != nil {
			frames = append(frames, *f)
		} else {
			p.resync()
		}
	}
}

// finish validates the complete frame in buf[:n] and consumes it.
func (p *Parser) finish(n int) *Frame {
	buf := p.buf
	msgID := uint32(buf[7]) | uint32(buf[8])<<8 | uint32(buf[9])<<16

	if buf[2]&0x01 != 0 {
		// Signed frame, unsupported.
		p.badCRC++
		return nil
	}
	extra, ok := crcExtra[msgID]
	if !ok {
		p.badCRC++
		return nil
	}
	wire := uint16(buf[n-2]) | uint16(buf[n-1])<<8
	if crcFrame(buf[1:n-2], extra) != wire {
		p.badCRC++
		return nil
	}

	payload := make([]byte, int(buf[1]))
	copy(payload, buf[headerLen:n-2])
	f := &Frame{
		Seq:     buf[4],
		SysID:   buf[5],
		CompID:  buf[6],
		MsgID:   msgID,
		Payload: payload,
	}
	p.framesOK++
	p.buf = append(p.buf[:0], p.buf[n:]...)
	return f
}

// resync drops the leading byte and keeps everything from the next magic
// marker onward.
func (p *Parser) resync() {
	p.droppedBytes++
	rest := p.buf[1:]
	for i, b := range rest {
		if b == Magic {
			p.buf = append(p.buf[:0], rest[i:]...)
			return
		}
		p.droppedBytes++
	}
	p.buf = p.buf[:0]
}
