package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTestOne   = errors.New("test one")
	errTestTwo   = errors.New("test two")
	errTestThree = errors.New("test three")
)

func TestAppendError(t *testing.T) {
	t.Parallel()
	assert.NoError(t, AppendError(nil, nil))
	assert.ErrorIs(t, AppendError(errTestOne, nil), errTestOne)
	assert.ErrorIs(t, AppendError(nil, errTestOne), errTestOne)

	err := AppendError(errTestOne, errTestTwo)
	err = AppendError(err, fmt.Errorf("%w wrapped", errTestThree))
	require.Error(t, err)
	assert.ErrorIs(t, err, errTestOne)
	assert.ErrorIs(t, err, errTestTwo)
	assert.ErrorIs(t, err, errTestThree)
	assert.Equal(t, "test one, test two, test three wrapped", err.Error())
}

func TestExcludeError(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ExcludeError(errTestOne, errTestOne))
	assert.ErrorIs(t, ExcludeError(errTestOne, errTestTwo), errTestOne)

	err := AppendError(errTestOne, errTestTwo)
	err = ExcludeError(err, errTestOne)
	assert.ErrorIs(t, err, errTestTwo)
	assert.NotErrorIs(t, err, errTestOne)

	assert.NoError(t, ExcludeError(AppendError(errTestOne, errTestOne), errTestOne))
}
