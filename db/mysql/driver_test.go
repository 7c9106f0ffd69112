package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_BadDSN(t *testing.T) {
	db, err := Open("enemyai", Pool{MaxOpen: 4})
	require.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "mysql: ")
}
