package valkey

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_RejectsReportWithoutExpiry(t *testing.T) {
	c := &Cache{}

	for _, ttl := range []int{0, -30} {
		err := c.Set(context.Background(), "tracks:run:a:b:3:100", []byte(`{"run_id":"r"}`), ttl)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ttl must be positive")
	}
}
