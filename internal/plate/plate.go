// plate.go - Structured license plate identifier and field-element encoding.
//
// A Plate is the structured identifier produced by the recognition collaborator:
// region name, vehicle class code, kana/romaji syllable, and serial number.
// Encode maps a plate losslessly into 8 bounded field elements plus a salt,
// all strictly below the BN254 scalar-field modulus, ready for commitment.

package plate

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// NumElements is the fixed number of encoded slots per plate.
const NumElements = 8

var (
	// ErrInvalidPlate reports an empty or malformed plate field.
	ErrInvalidPlate = errors.New("invalid plate")
	// ErrOutOfRange reports a slot value not strictly below the scalar-field modulus.
	ErrOutOfRange = errors.New("slot value out of field range")
)

const (
	classCodeWidth = 3
	serialWidth    = 4
	// Text fields occupy two slots of up to 31 bytes each; a 31-byte
	// big-endian integer is below 2^248 and therefore below the modulus.
	textChunkBytes = 31
	textMaxBytes   = 2 * textChunkBytes
)

// rentalSyllables are the hiragana (and romaji transliterations) reserved for
// rental vehicles. Plates carrying one of these are transient-class identifiers.
var rentalSyllables = map[string]bool{
	"わ": true, "れ": true,
	"wa": true, "re": true,
}

// Plate is the structured identifier of a vehicle license plate.
// Immutable value object; supplied externally and validated at this boundary.
type Plate struct {
	Region    string
	ClassCode string
	Syllable  string
	Serial    string
}

// IsRental reports whether the plate belongs to the transient (rental) class,
// whose account association lapses unless periodically re-affirmed.
func (p Plate) IsRental() bool {
	return rentalSyllables[strings.ToLower(p.Syllable)]
}

// Validate checks the plate shape without encoding it.
func (p Plate) Validate() error {
	if p.Region == "" {
		return fmt.Errorf("%w: empty region", ErrInvalidPlate)
	}
	if len(p.Region) > textMaxBytes {
		return fmt.Errorf("%w: region exceeds %d bytes", ErrInvalidPlate, textMaxBytes)
	}
	if err := validateNumeric("class code", p.ClassCode, classCodeWidth); err != nil {
		return err
	}
	if p.Syllable == "" {
		return fmt.Errorf("%w: empty syllable", ErrInvalidPlate)
	}
	if len(p.Syllable) > textMaxBytes {
		return fmt.Errorf("%w: syllable exceeds %d bytes", ErrInvalidPlate, textMaxBytes)
	}
	if err := validateNumeric("serial", p.Serial, serialWidth); err != nil {
		return err
	}
	return nil
}

func validateNumeric(name, s string, width int) error {
	if s == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalidPlate, name)
	}
	if len(s) > width {
		return fmt.Errorf("%w: %s exceeds %d digits", ErrInvalidPlate, name, width)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: %s contains non-digit %q", ErrInvalidPlate, name, r)
		}
	}
	return nil
}

// Encoding holds the 8 encoded slots and the salt of one plate.
// Lives only in caller memory; Clear must be called once the proof is produced.
type Encoding struct {
	Elements [NumElements]*big.Int
	Salt     *big.Int
}

// Encode deterministically maps a plate into 8 bounded field elements plus a salt.
// Slot layout: region (2 chunks), class code, syllable (2 chunks), serial, 2 reserved.
// A nil salt draws a fresh random field element; a supplied salt must be in range.
func Encode(p Plate, salt *big.Int) (*Encoding, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	regionLo, regionHi, err := textSlots("region", p.Region)
	if err != nil {
		return nil, err
	}
	syllableLo, syllableHi, err := textSlots("syllable", p.Syllable)
	if err != nil {
		return nil, err
	}

	// Numeric slots are canonicalized by fixed-width zero-padding: "33" and
	// "033" denote the same class code and encode identically. The padded
	// decimal string reads as the same integer, so parsing directly is
	// equivalent.
	classCode := new(big.Int)
	classCode.SetString(p.ClassCode, 10)
	serial := new(big.Int)
	serial.SetString(p.Serial, 10)

	if salt == nil {
		salt, err = NewSalt()
		if err != nil {
			return nil, err
		}
	} else {
		salt = new(big.Int).Set(salt)
		if salt.Sign() < 0 || salt.Cmp(fr.Modulus()) >= 0 {
			return nil, fmt.Errorf("%w: salt", ErrOutOfRange)
		}
	}

	return &Encoding{
		Elements: [NumElements]*big.Int{
			regionLo, regionHi,
			classCode,
			syllableLo, syllableHi,
			serial,
			big.NewInt(0), big.NewInt(0),
		},
		Salt: salt,
	}, nil
}

// textSlots encodes a text field as two big-endian byte integers, low chunk first.
// Fields of 31 bytes or fewer leave the high slot at zero.
func textSlots(name, s string) (lo, hi *big.Int, err error) {
	b := []byte(s)
	loBytes := b
	var hiBytes []byte
	if len(b) > textChunkBytes {
		hiBytes = b[:len(b)-textChunkBytes]
		loBytes = b[len(b)-textChunkBytes:]
	}
	lo = new(big.Int).SetBytes(loBytes)
	hi = new(big.Int).SetBytes(hiBytes)
	if lo.Cmp(fr.Modulus()) >= 0 || hi.Cmp(fr.Modulus()) >= 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrOutOfRange, name)
	}
	return lo, hi, nil
}

// NewSalt draws a uniformly random scalar-field element.
func NewSalt() (*big.Int, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return nil, fmt.Errorf("salt generation failed: %w", err)
	}
	return e.BigInt(new(big.Int)), nil
}

// Clear zeroizes all slots and the salt. The plate itself is the caller's to drop.
func (e *Encoding) Clear() {
	for _, el := range e.Elements {
		if el != nil {
			el.SetUint64(0)
		}
	}
	if e.Salt != nil {
		e.Salt.SetUint64(0)
	}
}

// Modulus returns the scalar-field modulus bounding every slot.
func Modulus() *big.Int {
	return fr.Modulus()
}
