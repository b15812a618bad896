package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vatfiler/pkg/domain-errors"
)

func TestGenerate(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, VerifyPassword("correct horse", hash))

	err = VerifyPassword("wrong horse", hash)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestHashPassword_Rejects(t *testing.T) {
	_, err := HashPassword("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = HashPassword(strings.Repeat("x", 73))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
