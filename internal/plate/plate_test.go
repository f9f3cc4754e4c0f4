package plate

import (
	"math/big"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDeterministic(t *testing.T) {
	p := Plate{Region: "Shinagawa", ClassCode: "330", Syllable: "A", Serial: "1234"}
	salt := big.NewInt(42)

	enc1, err := Encode(p, salt)
	require.NoError(t, err)
	enc2, err := Encode(p, salt)
	require.NoError(t, err)

	for i := range enc1.Elements {
		assert.Zero(t, enc1.Elements[i].Cmp(enc2.Elements[i]), "slot %d differs", i)
	}
	assert.Zero(t, enc1.Salt.Cmp(enc2.Salt))
}

func TestEncodeSlotLayout(t *testing.T) {
	p := Plate{Region: "Shinagawa", ClassCode: "330", Syllable: "A", Serial: "1234"}
	enc, err := Encode(p, big.NewInt(7))
	require.NoError(t, err)

	assert.Equal(t, new(big.Int).SetBytes([]byte("Shinagawa")), enc.Elements[0])
	assert.Zero(t, enc.Elements[1].Sign(), "high region chunk should be empty")
	assert.Equal(t, big.NewInt(330), enc.Elements[2])
	assert.Equal(t, new(big.Int).SetBytes([]byte("A")), enc.Elements[3])
	assert.Equal(t, big.NewInt(1234), enc.Elements[5])
	assert.Zero(t, enc.Elements[6].Sign())
	assert.Zero(t, enc.Elements[7].Sign())
}

func TestEncodeFreshSalt(t *testing.T) {
	p := Plate{Region: "Nerima", ClassCode: "500", Syllable: "わ", Serial: "8008"}
	enc1, err := Encode(p, nil)
	require.NoError(t, err)
	enc2, err := Encode(p, nil)
	require.NoError(t, err)

	assert.NotZero(t, enc1.Salt.Cmp(enc2.Salt), "fresh salts should differ")
	assert.Negative(t, enc1.Salt.Cmp(Modulus()))
}

func TestEncodeRejectsMalformed(t *testing.T) {
	cases := map[string]Plate{
		"empty region":       {Region: "", ClassCode: "330", Syllable: "A", Serial: "1234"},
		"empty syllable":     {Region: "Shinagawa", ClassCode: "330", Syllable: "", Serial: "1234"},
		"empty serial":       {Region: "Shinagawa", ClassCode: "330", Syllable: "A", Serial: ""},
		"alpha class code":   {Region: "Shinagawa", ClassCode: "3a0", Syllable: "A", Serial: "1234"},
		"serial too long":    {Region: "Shinagawa", ClassCode: "330", Syllable: "A", Serial: "12345"},
		"class code too big": {Region: "Shinagawa", ClassCode: "1330", Syllable: "A", Serial: "1234"},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Encode(p, big.NewInt(1))
			assert.ErrorIs(t, err, ErrInvalidPlate)
		})
	}
}

func TestEncodeRejectsOutOfRangeSalt(t *testing.T) {
	p := Plate{Region: "Shinagawa", ClassCode: "330", Syllable: "A", Serial: "1234"}
	_, err := Encode(p, Modulus())
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestFieldContainment(t *testing.T) {
	// Fuzz over the supported plate alphabet: every slot must stay below the modulus.
	rng := rand.New(rand.NewSource(1))
	regions := []string{"Shinagawa", "Nerima", "Sapporo", "Yokohama", "練馬", "なにわ", "北九州"}
	syllables := []string{"A", "わ", "れ", "さ", "wa", "re", "ほ"}
	for i := 0; i < 200; i++ {
		p := Plate{
			Region:    regions[rng.Intn(len(regions))],
			ClassCode: []string{"3", "33", "330", "500"}[rng.Intn(4)],
			Syllable:  syllables[rng.Intn(len(syllables))],
			Serial:    []string{"1", "88", "1234", "8008"}[rng.Intn(4)],
		}
		enc, err := Encode(p, nil)
		require.NoError(t, err, "plate %+v", p)
		for j, el := range enc.Elements {
			assert.Negative(t, el.Cmp(Modulus()), "plate %+v slot %d", p, j)
		}
		assert.Negative(t, enc.Salt.Cmp(Modulus()))
	}
}

func TestIsRental(t *testing.T) {
	assert.True(t, Plate{Syllable: "わ"}.IsRental())
	assert.True(t, Plate{Syllable: "れ"}.IsRental())
	assert.True(t, Plate{Syllable: "Wa"}.IsRental())
	assert.False(t, Plate{Syllable: "A"}.IsRental())
	assert.False(t, Plate{Syllable: "さ"}.IsRental())
}

func TestClearZeroizes(t *testing.T) {
	p := Plate{Region: "Shinagawa", ClassCode: "330", Syllable: "A", Serial: "1234"}
	enc, err := Encode(p, nil)
	require.NoError(t, err)
	enc.Clear()
	for i, el := range enc.Elements {
		assert.Zero(t, el.Sign(), "slot %d not cleared", i)
	}
	assert.Zero(t, enc.Salt.Sign())
}

func TestLongRegionSplitsAcrossSlots(t *testing.T) {
	long := "abcdefghijklmnopqrstuvwxyz0123456789ABCDEF" // 42 bytes
	p := Plate{Region: long, ClassCode: "330", Syllable: "A", Serial: "1234"}
	enc, err := Encode(p, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).SetBytes([]byte(long[11:])), enc.Elements[0])
	assert.Equal(t, new(big.Int).SetBytes([]byte(long[:11])), enc.Elements[1])
}

func TestMaxLengthTextStaysInField(t *testing.T) {
	// Full-length high-byte chunks must still be below the modulus: a 31-byte
	// big-endian integer tops out under 2^248.
	long := strings.Repeat("z", 62)
	p := Plate{Region: long, ClassCode: "330", Syllable: long, Serial: "1234"}
	enc, err := Encode(p, big.NewInt(1))
	require.NoError(t, err)
	for i, el := range enc.Elements {
		assert.Negative(t, el.Cmp(Modulus()), "slot %d", i)
	}

	tooLong := strings.Repeat("z", 63)
	_, err = Encode(Plate{Region: tooLong, ClassCode: "330", Syllable: "A", Serial: "1234"}, big.NewInt(1))
	assert.ErrorIs(t, err, ErrInvalidPlate)
}

func TestNumericSlotsNormalizeLeadingZeros(t *testing.T) {
	// Fixed-width padding canonicalizes numeric fields: "33" and "033" are
	// the same class code and must commit to the same account.
	base := Plate{Region: "Shinagawa", ClassCode: "33", Syllable: "A", Serial: "12"}
	padded := Plate{Region: "Shinagawa", ClassCode: "033", Syllable: "A", Serial: "0012"}

	enc1, err := Encode(base, big.NewInt(5))
	require.NoError(t, err)
	enc2, err := Encode(padded, big.NewInt(5))
	require.NoError(t, err)
	for i := range enc1.Elements {
		assert.Zero(t, enc1.Elements[i].Cmp(enc2.Elements[i]), "slot %d differs", i)
	}
}
