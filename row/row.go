// Package row defines the fixed-width record stored in leaf cells.
package row

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

const (
	// UsernameMaxLen is the largest username the username field can hold,
	// not counting the trailing NUL terminator.
	UsernameMaxLen = 32
	// EmailMaxLen is the largest email the email field can hold, not
	// counting the trailing NUL terminator.
	EmailMaxLen = 255

	usernameFieldSize = UsernameMaxLen + 1
	emailFieldSize    = EmailMaxLen + 1

	idFieldSize = 4

	idOffset       = 0
	usernameOffset = idOffset + idFieldSize
	emailOffset    = usernameOffset + usernameFieldSize

	// Size is the serialized byte width of a Row. It is a compile-time
	// constant: changing any field size changes the on-disk format.
	Size = emailOffset + emailFieldSize
)

// Row is a single fixed-width record: a signed 32-bit key plus two
// fixed-capacity strings, serialized by raw byte copy into leaf cells.
type Row struct {
	ID       int32
	Username string
	Email    string
}

// Validate reports whether r fits within the fixed-width fields.
func (r Row) Validate() error {
	if len(r.Username) > UsernameMaxLen {
		return errors.Errorf("row: username %q exceeds %d bytes", r.Username, UsernameMaxLen)
	}
	if len(r.Email) > EmailMaxLen {
		return errors.Errorf("row: email %q exceeds %d bytes", r.Email, EmailMaxLen)
	}
	return nil
}

// Serialize writes r into dst, which must be exactly Size bytes long.
func Serialize(r Row, dst []byte) error {
	if len(dst) != Size {
		return errors.Errorf("row.Serialize: dst length %d, expected %d", len(dst), Size)
	}
	if err := r.Validate(); err != nil {
		return err
	}

	for i := range dst {
		dst[i] = 0
	}

	binary.LittleEndian.PutUint32(dst[idOffset:idOffset+idFieldSize], uint32(r.ID))
	copy(dst[usernameOffset:usernameOffset+usernameFieldSize], r.Username)
	copy(dst[emailOffset:emailOffset+emailFieldSize], r.Email)
	return nil
}

// Deserialize reconstructs a Row from src, which must be exactly Size bytes.
func Deserialize(src []byte) (Row, error) {
	if len(src) != Size {
		return Row{}, errors.Errorf("row.Deserialize: src length %d, expected %d", len(src), Size)
	}

	id := int32(binary.LittleEndian.Uint32(src[idOffset : idOffset+idFieldSize]))
	username := cString(src[usernameOffset : usernameOffset+usernameFieldSize])
	email := cString(src[emailOffset : emailOffset+emailFieldSize])

	return Row{ID: id, Username: username, Email: email}, nil
}

// cString trims a NUL-padded fixed field down to its Go string content.
func cString(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
