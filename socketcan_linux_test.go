//go:build linux

package armbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRcvTimevalNeverZero(t *testing.T) {
	for _, d := range []time.Duration{time.Nanosecond, 999 * time.Nanosecond, time.Microsecond} {
		tv := rcvTimeval(d)
		assert.False(t, tv.Sec == 0 && tv.Usec == 0, "%s must not disable the receive timeout", d)
	}
	tv := rcvTimeval(1500 * time.Millisecond)
	assert.EqualValues(t, 1, tv.Sec)
	assert.EqualValues(t, 500_000, tv.Usec)
}
