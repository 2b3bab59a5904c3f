package sdjwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSaltIsUniqueAndURLSafe(t *testing.T) {
	a, err := NewSalt()
	require.NoError(t, err)
	b, err := NewSalt()
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestDisclosureEncodeDecodeObjectForm(t *testing.T) {
	d := Disclosure{Salt: "somesalt", ClaimName: "given_name", Value: "Erika"}

	encoded, err := d.Encode()
	require.NoError(t, err)

	decoded, err := DecodeDisclosure(encoded)
	require.NoError(t, err)
	assert.Equal(t, d.Salt, decoded.Salt)
	assert.Equal(t, d.ClaimName, decoded.ClaimName)
	assert.Equal(t, d.Value, decoded.Value)
	assert.False(t, decoded.IsArray)
}

func TestDisclosureEncodeDecodeArrayForm(t *testing.T) {
	d := Disclosure{Salt: "arraysalt", Value: "DE", IsArray: true}

	encoded, err := d.Encode()
	require.NoError(t, err)

	decoded, err := DecodeDisclosure(encoded)
	require.NoError(t, err)
	assert.Equal(t, d.Salt, decoded.Salt)
	assert.Equal(t, d.Value, decoded.Value)
	assert.True(t, decoded.IsArray)
	assert.Empty(t, decoded.ClaimName)
}

func TestDisclosureEncodeRejectsMissingClaimName(t *testing.T) {
	d := Disclosure{Salt: "x", Value: "y"}
	_, err := d.Encode()
	assert.Error(t, err)
}

func TestDecodeDisclosureRejectsReservedNames(t *testing.T) {
	for _, reserved := range []string{"_sd", "_sd_alg", "..."} {
		d := Disclosure{Salt: "s", ClaimName: reserved, Value: "v"}
		encoded, err := d.Encode()
		require.NoError(t, err)

		_, err = DecodeDisclosure(encoded)
		assert.ErrorIs(t, err, ErrReservedKey)
	}
}

func TestDecodeDisclosureRejectsMalformedInput(t *testing.T) {
	_, err := DecodeDisclosure("not-base64url!!")
	assert.ErrorIs(t, err, ErrMalformedDisclosure)

	_, err = DecodeDisclosure("W10") // base64url of "[]"
	assert.ErrorIs(t, err, ErrMalformedDisclosure)
}

func TestDisclosureDigestIsDeterministic(t *testing.T) {
	d := Disclosure{Salt: "fixedsalt", ClaimName: "email", Value: "a@b.com"}
	ctor, err := HashConstructor(DefaultHashAlg)
	require.NoError(t, err)

	d1, err := d.Digest(ctor)
	require.NoError(t, err)
	d2, err := d.Digest(ctor)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestHashConstructorRejectsUnsupportedAlgorithms(t *testing.T) {
	for _, alg := range []string{"sha3-256", "md5", "sha-1", "none", ""} {
		_, err := HashConstructor(alg)
		assert.ErrorIsf(t, err, ErrUnsupportedAlgorithm, "alg=%q", alg)
	}
}

func TestHashConstructorAcceptsMandatedAlgorithms(t *testing.T) {
	for _, alg := range []string{"sha-256", "sha-384", "sha-512"} {
		_, err := HashConstructor(alg)
		assert.NoError(t, err)
	}
}
