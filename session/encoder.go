package session

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
)

const (
	recordFormatVersionCurrent = recordFormatVersionV1
	recordFormatVersionV1      = 1

	maxIPLength = 255
)

// Encode serialises rec in the current binary format.
func Encode(rec Record) ([]byte, error) {
	if len(rec.IP) > maxIPLength {
		return nil, errors.New("ip too long")
	}

	var buf bytes.Buffer
	buf.Grow(1 + 8 + 1 + len(rec.IP) + 16)

	buf.WriteByte(recordFormatVersionCurrent)

	if err := binary.Write(&buf, binary.BigEndian, rec.UserID); err != nil {
		return nil, err
	}

	buf.WriteByte(byte(len(rec.IP)))
	buf.WriteString(rec.IP)

	if err := binary.Write(&buf, binary.BigEndian, rec.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, rec.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a stored record. Besides the binary format it accepts the JSON
// object {"user_id":<int>,"ip":"<addr>"} written by earlier releases.
func Decode(data []byte) (Record, error) {
	if len(data) == 0 {
		return Record{}, errors.New("empty record")
	}
	if data[0] == '{' {
		return decodeLegacyJSON(data)
	}

	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return Record{}, err
	}
	if version != recordFormatVersionV1 {
		return Record{}, errors.New("unsupported record version")
	}

	var rec Record
	if err := binary.Read(r, binary.BigEndian, &rec.UserID); err != nil {
		return Record{}, err
	}

	ipLen, err := r.ReadByte()
	if err != nil {
		return Record{}, err
	}
	ip := make([]byte, ipLen)
	if _, err := io.ReadFull(r, ip); err != nil {
		return Record{}, err
	}
	rec.IP = string(ip)

	if err := binary.Read(r, binary.BigEndian, &rec.IssuedAt); err != nil {
		return Record{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &rec.ExpiresAt); err != nil {
		return Record{}, err
	}

	if r.Len() != 0 {
		return Record{}, errors.New("trailing record bytes")
	}

	return rec, nil
}

type legacyRecord struct {
	UserID *int64  `json:"user_id"`
	IP     *string `json:"ip"`
}

func decodeLegacyJSON(data []byte) (Record, error) {
	var legacy legacyRecord
	if err := json.Unmarshal(data, &legacy); err != nil {
		return Record{}, err
	}
	if legacy.UserID == nil || legacy.IP == nil {
		return Record{}, errors.New("legacy record missing fields")
	}
	if len(*legacy.IP) > maxIPLength {
		return Record{}, errors.New("ip too long")
	}
	return Record{UserID: *legacy.UserID, IP: *legacy.IP}, nil
}
