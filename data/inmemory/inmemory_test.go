package inmemory

import (
	"testing"

	"github.com/getmynews/getmynews/data"
	"github.com/stretchr/testify/assert"
)

func TestInMemoryDB(t *testing.T) {
	db := GetInMemoryDB()

	// iterate over the testing suite and call the function
	for _, f := range data.TestingFuncs {
		f(t, db)
	}
}

func TestInMemory_CopiesValues(t *testing.T) {
	db := GetInMemoryDB()

	v := []byte("abc")
	_ = db.Put("k", v)
	v[0] = 'x'

	got, _ := db.Get("k")
	assert.Equal(t, []byte("abc"), got)

	got[0] = 'y'
	again, _ := db.Get("k")
	assert.Equal(t, []byte("abc"), again)
	assert.Equal(t, 1, db.Len())
}
