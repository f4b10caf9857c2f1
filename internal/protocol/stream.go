package protocol

import (
	"encoding/binary"
	"io"
)

// Batch stream framing: a fixed header followed by the record bodies.
const (
	Magic   uint32 = 0x5a4d4b54 // "ZMKT"
	Version uint16 = 1

	batchHeaderLen = 4 + 2 + 2
)

// Limits constrains batch decode memory use.
type Limits struct {
	MaxRecords uint16
}

func DefaultLimits() Limits {
	return Limits{MaxRecords: 4096}
}

// WriteBatch frames a batch of records onto w.
func WriteBatch(w io.Writer, records []Record, limits Limits) error {
	if len(records) > int(limits.MaxRecords) {
		return ErrTooManyRecords
	}

	buf := make([]byte, batchHeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	binary.BigEndian.PutUint16(buf[4:6], Version)
	binary.BigEndian.PutUint16(buf[6:8], uint16(len(records)))
	if _, err := w.Write(buf); err != nil {
		return err
	}

	for _, rec := range records {
		if err := WriteRecord(w, rec); err != nil {
			return err
		}
	}
	return nil
}

// ReadBatch reads one framed batch from r.
func ReadBatch(r io.Reader, limits Limits) ([]Record, error) {
	var fixed [batchHeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, truncated(err)
	}

	if binary.BigEndian.Uint32(fixed[0:4]) != Magic {
		return nil, ErrInvalidMagic
	}
	if binary.BigEndian.Uint16(fixed[4:6]) != Version {
		return nil, ErrUnsupportedVersion
	}

	count := binary.BigEndian.Uint16(fixed[6:8])
	if count > limits.MaxRecords {
		return nil, ErrTooManyRecords
	}

	records := make([]Record, 0, count)
	for i := 0; i < int(count); i++ {
		rec, err := ReadRecord(r)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
