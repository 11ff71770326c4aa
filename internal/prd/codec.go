package prd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"prd_gateway/internal/crc"
)

// Wire layout (big-endian), version 1:
//
//	off len field
//	  0   2 magic 0x5052 ("PR")
//	  2   1 version (0x01)
//	  3   1 presence flags (FieldMask)
//	  4   8 callsign, ASCII, space padded
//	 12   4 aircraft type designator, ASCII, space padded
//	 16   4 latitude, int32, degrees * 1e7
//	 20   4 longitude, int32, degrees * 1e7
//	 24   4 altitude, int32, feet * 100
//	 28   2 ground speed, uint16, knots * 10
//	 30   2 heading, uint16, degrees * 100 (0..35999)
//	 32   1 extension entry count
//	 33   n TLV entries: keyLen u8, key, valLen u8, value
//	end   2 CRC-16 (poly 0x1021) over all preceding bytes
//
// Fields whose presence bit is clear are still carried (the base layout is
// fixed) but their bytes are ignored on decode.
const (
	Magic   = 0x5052
	Version = 0x01

	callsignLen = 8
	typeLen     = 4
	baseLen     = 33 // through the extension count byte
	crcLen      = 2

	// MinFrameLen is the smallest valid frame: base layout, no extensions,
	// plus the frame check.
	MinFrameLen = baseLen + crcLen

	// MaxFrameLen bounds what a decoder will accept; PRD sources write
	// datagrams of at most 1024 bytes.
	MaxFrameLen = 1024
)

const (
	latScale     = 1e7
	lonScale     = 1e7
	altScale     = 100
	speedScale   = 10
	headingScale = 100
)

// ErrMalformed is the sentinel for all decode failures: short or oversized
// buffers, bad magic/version, frame-check mismatch, out-of-domain fields, or
// truncated extension entries. Every error returned by Decode wraps it.
var ErrMalformed = errors.New("malformed PRD message")

// Decoder decodes PRD frames. The zero value is ready to use.
type Decoder struct {
	// DefaultCallsign replaces an absent or blank callsign. Empty means
	// the package default "ABC123".
	DefaultCallsign string
}

// Decode parses a raw PRD frame using package defaults.
func Decode(raw []byte) (*PositionReport, error) {
	var d Decoder
	return d.Decode(raw)
}

// Decode parses a raw PRD frame into a PositionReport.
//
// Decode is a pure function of its input: it performs no I/O, keeps no state,
// and never aliases the returned report to raw. On any failure the returned
// error wraps ErrMalformed and the report is nil.
func (d *Decoder) Decode(raw []byte) (*PositionReport, error) {
	if len(raw) < MinFrameLen {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformed, len(raw), MinFrameLen)
	}
	if len(raw) > MaxFrameLen {
		return nil, fmt.Errorf("%w: %d bytes exceeds max frame of %d", ErrMalformed, len(raw), MaxFrameLen)
	}
	if m := binary.BigEndian.Uint16(raw[0:2]); m != Magic {
		return nil, fmt.Errorf("%w: bad magic 0x%04X", ErrMalformed, m)
	}
	if v := raw[2]; v != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, v)
	}
	if !crc.VerifyFrame(raw) {
		return nil, fmt.Errorf("%w: frame check failed", ErrMalformed)
	}

	fields := FieldMask(raw[3])
	r := &PositionReport{Fields: fields}

	r.Callsign = strings.ToUpper(strings.TrimRight(string(raw[4:4+callsignLen]), " "))
	if !fields.has(FieldCallsign) || r.Callsign == "" {
		r.Callsign = d.defaultCallsign()
		r.Fields &^= FieldCallsign
	}
	r.Type = strings.TrimRight(string(raw[12:12+typeLen]), " ")
	if !fields.has(FieldType) || r.Type == "" {
		r.Type = DefaultType
		r.Fields &^= FieldType
	}

	if fields.has(FieldPosition) {
		r.Latitude = float64(int32(binary.BigEndian.Uint32(raw[16:20]))) / latScale
		r.Longitude = float64(int32(binary.BigEndian.Uint32(raw[20:24]))) / lonScale
		if r.Latitude < -90 || r.Latitude > 90 {
			return nil, fmt.Errorf("%w: latitude %.7f out of range", ErrMalformed, r.Latitude)
		}
		if r.Longitude < -180 || r.Longitude > 180 {
			return nil, fmt.Errorf("%w: longitude %.7f out of range", ErrMalformed, r.Longitude)
		}
	}
	if fields.has(FieldAltitude) {
		r.Altitude = float64(int32(binary.BigEndian.Uint32(raw[24:28]))) / altScale
	}
	if fields.has(FieldSpeed) {
		r.Speed = float64(binary.BigEndian.Uint16(raw[28:30])) / speedScale
	}
	if fields.has(FieldHeading) {
		hdg := binary.BigEndian.Uint16(raw[30:32])
		if hdg >= 360*headingScale {
			return nil, fmt.Errorf("%w: heading %.2f out of range", ErrMalformed, float64(hdg)/headingScale)
		}
		r.Heading = float64(hdg) / headingScale
	}

	ext, err := decodeExt(raw[32 : len(raw)-crcLen])
	if err != nil {
		return nil, err
	}
	r.Ext = ext

	return r, nil
}

func (d *Decoder) defaultCallsign() string {
	if d.DefaultCallsign != "" {
		return strings.ToUpper(d.DefaultCallsign)
	}
	return DefaultCallsign
}

func (m FieldMask) has(bit FieldMask) bool { return m&bit != 0 }

// decodeExt parses the extension section: a count byte followed by that many
// key/value TLV entries. Unknown keys are preserved verbatim.
func decodeExt(sect []byte) (map[string]string, error) {
	count := int(sect[0])
	if count == 0 {
		if len(sect) != 1 {
			return nil, fmt.Errorf("%w: %d trailing bytes after empty extension section", ErrMalformed, len(sect)-1)
		}
		return nil, nil
	}

	ext := make(map[string]string, count)
	p := 1
	for i := 0; i < count; i++ {
		if p >= len(sect) {
			return nil, fmt.Errorf("%w: extension entry %d truncated", ErrMalformed, i)
		}
		klen := int(sect[p])
		p++
		if klen == 0 || p+klen > len(sect) {
			return nil, fmt.Errorf("%w: extension entry %d has bad key length %d", ErrMalformed, i, klen)
		}
		key := string(sect[p : p+klen])
		p += klen

		if p >= len(sect) {
			return nil, fmt.Errorf("%w: extension entry %d missing value", ErrMalformed, i)
		}
		vlen := int(sect[p])
		p++
		if p+vlen > len(sect) {
			return nil, fmt.Errorf("%w: extension entry %d has bad value length %d", ErrMalformed, i, vlen)
		}
		ext[key] = string(sect[p : p+vlen])
		p += vlen
	}
	if p != len(sect) {
		return nil, fmt.Errorf("%w: %d trailing bytes after extension section", ErrMalformed, len(sect)-p)
	}
	return ext, nil
}

// Encode serializes a PositionReport into a version-1 PRD frame. Fields whose
// presence bit is clear are written as zero. Encode is the inverse of Decode
// for any report Decode can produce.
func Encode(r *PositionReport) ([]byte, error) {
	if n := len(r.Callsign); n > callsignLen {
		return nil, fmt.Errorf("callsign %q exceeds %d bytes", r.Callsign, callsignLen)
	}
	if n := len(r.Type); n > typeLen {
		return nil, fmt.Errorf("type %q exceeds %d bytes", r.Type, typeLen)
	}
	if r.Fields.has(FieldPosition) {
		if r.Latitude < -90 || r.Latitude > 90 {
			return nil, fmt.Errorf("latitude %.7f out of range", r.Latitude)
		}
		if r.Longitude < -180 || r.Longitude > 180 {
			return nil, fmt.Errorf("longitude %.7f out of range", r.Longitude)
		}
	}
	if r.Fields.has(FieldHeading) && (r.Heading < 0 || r.Heading >= 360) {
		return nil, fmt.Errorf("heading %.2f out of range", r.Heading)
	}
	if r.Fields.has(FieldSpeed) && (r.Speed < 0 || r.Speed > math.MaxUint16/float64(speedScale)) {
		return nil, fmt.Errorf("speed %.1f out of range", r.Speed)
	}
	if len(r.Ext) > math.MaxUint8 {
		return nil, fmt.Errorf("%d extension entries exceeds max of %d", len(r.Ext), math.MaxUint8)
	}

	buf := make([]byte, baseLen, MinFrameLen+16*len(r.Ext))
	binary.BigEndian.PutUint16(buf[0:2], Magic)
	buf[2] = Version
	buf[3] = byte(r.Fields)

	copy(buf[4:4+callsignLen], pad(strings.ToUpper(r.Callsign), callsignLen))
	copy(buf[12:12+typeLen], pad(r.Type, typeLen))

	if r.Fields.has(FieldPosition) {
		binary.BigEndian.PutUint32(buf[16:20], uint32(int32(math.Round(r.Latitude*latScale))))
		binary.BigEndian.PutUint32(buf[20:24], uint32(int32(math.Round(r.Longitude*lonScale))))
	}
	if r.Fields.has(FieldAltitude) {
		binary.BigEndian.PutUint32(buf[24:28], uint32(int32(math.Round(r.Altitude*altScale))))
	}
	if r.Fields.has(FieldSpeed) {
		binary.BigEndian.PutUint16(buf[28:30], uint16(math.Round(r.Speed*speedScale)))
	}
	if r.Fields.has(FieldHeading) {
		binary.BigEndian.PutUint16(buf[30:32], uint16(math.Round(r.Heading*headingScale)))
	}

	buf[32] = byte(len(r.Ext))
	// Stable entry order keeps encoded frames reproducible.
	keys := make([]string, 0, len(r.Ext))
	for k := range r.Ext {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := r.Ext[k]
		if len(k) == 0 || len(k) > math.MaxUint8 {
			return nil, fmt.Errorf("extension key %q has bad length", k)
		}
		if len(v) > math.MaxUint8 {
			return nil, fmt.Errorf("extension value for %q exceeds %d bytes", k, math.MaxUint8)
		}
		buf = append(buf, byte(len(k)))
		buf = append(buf, k...)
		buf = append(buf, byte(len(v)))
		buf = append(buf, v...)
	}

	sum := crc.Checksum(buf)
	buf = append(buf, sum[0], sum[1])
	if len(buf) > MaxFrameLen {
		return nil, fmt.Errorf("encoded frame is %d bytes, exceeds max of %d", len(buf), MaxFrameLen)
	}
	return buf, nil
}

func pad(s string, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b
}
