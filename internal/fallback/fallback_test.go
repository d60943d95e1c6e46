package fallback_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tnunamak/usagemeter/internal/fallback"
)

var errSkip = errors.New("skip")

func TestFirstStopsAtFirstSuccess(t *testing.T) {
	var tried []string
	try := func(c string) (string, error) {
		tried = append(tried, c)
		if c == "b" || c == "c" {
			return "ok-" + c, nil
		}
		return "", errSkip
	}

	var classified []string
	got, idx, ok := fallback.First([]string{"a", "b", "c"}, try, func(c string, err error) {
		assert.ErrorIs(t, err, errSkip)
		classified = append(classified, c)
	})

	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "ok-b", got)
	assert.Equal(t, []string{"a", "b"}, tried)
	assert.Equal(t, []string{"a"}, classified)
}

func TestFirstAllFail(t *testing.T) {
	count := 0
	got, idx, ok := fallback.First([]int{1, 2, 3}, func(int) (int, error) {
		return 99, errSkip
	}, func(int, error) { count++ })

	assert.False(t, ok)
	assert.Equal(t, -1, idx)
	assert.Equal(t, 0, got)
	assert.Equal(t, 3, count)
}

func TestFirstNilClassifier(t *testing.T) {
	_, _, ok := fallback.First([]int{1}, func(int) (int, error) { return 0, errSkip }, nil)
	assert.False(t, ok)

	_, _, ok = fallback.First(nil, func(int) (int, error) { return 0, nil }, nil)
	assert.False(t, ok)
}
